package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/paycore/payroll-engine/internal/config"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/internal/jobs"
	"github.com/paycore/payroll-engine/internal/output"
)

// CalcOptions holds flags shared by calc and batch.
type CalcOptions struct {
	*RootOptions
	Catalog   string
	OutputDir string
	Apply     bool
	Enqueue   bool
	Workers   int
}

// NewCalcCommand creates the calc command.
func NewCalcCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CalcOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "calc <fixture.yaml>",
		Short: "Calculate the paychecks in a fixture",
		Long: `Calculate every paycheck in a fixture and print the pay stubs.

Example:
  paycalc calc ./fixtures/weekly.yaml
  paycalc calc ./fixtures/weekly.yaml --format detailed-csv --output-dir ./reports
  paycalc calc ./fixtures/weekly.yaml --apply`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixtures(cmd, opts, args)
		},
	}
	opts.bindFlags(cmd)
	return cmd
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CalcOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <fixture.yaml>...",
		Short: "Calculate several fixtures as one pay run",
		Long: `Calculate the paychecks of several fixtures and write one combined report.
Paychecks within a fixture are calculated concurrently.

Example:
  paycalc batch ./fixtures/*.yaml --workers 8 --format csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixtures(cmd, opts, args)
		},
	}
	opts.bindFlags(cmd)
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent paychecks (default PAYROLL_BATCH_WORKERS)")
	return cmd
}

func (o *CalcOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Catalog, "catalog", "", "tax rule catalog (default PAYROLL_CATALOG_FILE, then the fixture's catalog_file)")
	cmd.Flags().StringVarP(&o.OutputDir, "output-dir", "o", "", "write the report to this directory instead of stdout")
	cmd.Flags().BoolVar(&o.Apply, "apply", false, "record garnishment withholding in the ledger")
	cmd.Flags().BoolVar(&o.Enqueue, "enqueue", false, "queue garnishment withholding for the worker")
	cmd.MarkFlagsMutuallyExclusive("apply", "enqueue")
}

func runFixtures(cmd *cobra.Command, opts *CalcOptions, files []string) error {
	ctx := cmd.Context()
	rt, err := opts.openRuntime(ctx, nil, opts.Catalog)
	if err != nil {
		return err
	}
	defer rt.Close()
	if opts.Workers > 0 {
		rt.runner.Workers = opts.Workers
	}

	parser := config.NewInputParser()
	var results []*domain.PaycheckResult
	for _, file := range files {
		fixture, err := parser.LoadFromFile(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load fixture", err)
		}
		outcome, err := rt.runner.Calculate(ctx, fixture)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("fixture %s", file), err)
		}
		if opts.Apply {
			report, err := rt.runner.Apply(ctx, outcome)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to apply withholding", err)
			}
			opts.Logger.Info("ledger updated",
				slog.String("fixture", file),
				slog.Int("applied", report.Applied),
				slog.Int("duplicates", report.Duplicates),
				slog.Int("completed", len(report.Completed)),
			)
		}
		results = append(results, outcome.Results...)
	}

	if opts.Enqueue {
		if err := enqueueResults(ctx, opts.RootOptions, results); err != nil {
			return err
		}
	}

	if opts.OutputDir != "" {
		written, err := output.GenerateReport(results, opts.Format, opts.OutputDir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
		for _, f := range written {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	}
	if err := output.Render(cmd.OutOrStdout(), results, opts.Format); err != nil {
		return WrapExitError(ExitCommandError, "failed to render report", err)
	}
	return nil
}

func enqueueResults(ctx context.Context, opts *RootOptions, results []*domain.PaycheckResult) error {
	if opts.Settings.RedisAddr == "" {
		return &ExitError{Code: ExitCommandError, Message: "--enqueue needs PAYROLL_REDIS_ADDR"}
	}
	enq := jobs.NewEnqueuer(asynq.RedisClientOpt{Addr: opts.Settings.RedisAddr}, opts.Settings.TaskMaxRetry)
	defer enq.Close()
	queued, err := enq.EnqueueResults(ctx, results)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to enqueue withholding", err)
	}
	opts.Logger.Info("withholding queued", slog.Int("tasks", queued))
	return nil
}
