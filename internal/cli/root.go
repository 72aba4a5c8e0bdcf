// Package cli implements the paycalc command line.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paycore/payroll-engine/internal/config"
	"github.com/paycore/payroll-engine/internal/output"
)

// RootOptions holds global flags and the state PersistentPreRunE prepares for every
// subcommand.
type RootOptions struct {
	Verbose bool
	Format  string

	Settings *config.Settings
	Logger   *slog.Logger
}

// NewRootCommand creates the root command for paycalc.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "paycalc",
		Short: "Payroll calculation engine",
		Long: `paycalc calculates paychecks from YAML fixtures, keeps the garnishment ledger
and serves both over HTTP or as a background worker.

Runtime settings come from PAYROLL_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "console", fmt.Sprintf("output format (%s)", strings.Join(output.AvailableFormatterNames(), "|")))

	cmd.AddCommand(NewCalcCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))

	return cmd
}

func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if output.GetFormatterByName(o.Format) == nil {
		return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid format %q: must be one of %v", o.Format, output.AvailableFormatterNames())}
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	o.Settings = settings

	level, _ := config.ParseLogLevel(settings.LogLevel)
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}
