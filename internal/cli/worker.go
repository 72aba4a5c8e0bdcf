package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/paycore/payroll-engine/internal/jobs"
)

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Apply queued withholding events to the ledger",
		Long: `Run the background worker that drains the withholding queue on
PAYROLL_REDIS_ADDR into the ledger configured by PAYROLL_LEDGER_DRIVER.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := rootOpts.Settings
			if s.RedisAddr == "" {
				return &ExitError{Code: ExitCommandError, Message: "worker needs PAYROLL_REDIS_ADDR"}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := rootOpts.openRuntime(ctx, nil, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			worker, err := jobs.NewWorker(jobs.WorkerConfig{
				RedisOpts:   asynq.RedisClientOpt{Addr: s.RedisAddr},
				Concurrency: s.WorkerConcurrency,
				Logger:      rootOpts.Logger,
				Job:         jobs.NewApplyWithholdingJob(rt.runner.Ledger, rootOpts.Logger),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build worker", err)
			}
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return WrapExitError(ExitFailure, "worker stopped", err)
			}
			rootOpts.Logger.Info("worker stopped")
			return nil
		},
	}
}
