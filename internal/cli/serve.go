package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/paycore/payroll-engine/internal/httpapi"
	"github.com/paycore/payroll-engine/internal/jobs"
	"github.com/paycore/payroll-engine/internal/payrun"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var catalog string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the payroll HTTP API",
		Long: `Serve paycheck calculation and the garnishment ledger over HTTP on
PAYROLL_HTTP_ADDR. Bearer tokens are required when PAYROLL_JWT_SECRET is set, and
ledger=enqueue is available when PAYROLL_REDIS_ADDR is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := rootOpts.Settings
			metrics := httpapi.NewMetrics()
			rt, err := rootOpts.openRuntime(ctx, metrics.Registerer(), catalog)
			if err != nil {
				return err
			}
			defer rt.Close()

			var enqueuer payrun.Enqueuer
			if s.RedisAddr != "" {
				enq := jobs.NewEnqueuer(asynq.RedisClientOpt{Addr: s.RedisAddr}, s.TaskMaxRetry)
				defer enq.Close()
				enqueuer = enq
			}

			srv, err := httpapi.New(httpapi.Config{
				Logger:             rootOpts.Logger,
				Runner:             rt.runner,
				Enqueuer:           enqueuer,
				Metrics:            metrics,
				JWTSecret:          []byte(s.JWTSecret),
				RateLimitPerMinute: s.RateLimitPerMin,
				RequestTimeout:     s.HTTPWriteTimeout,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build server", err)
			}
			if err := srv.ListenAndServe(ctx, s.HTTPAddr, s.HTTPReadTimeout, s.HTTPWriteTimeout); err != nil {
				return WrapExitError(ExitFailure, "http server", err)
			}
			rootOpts.Logger.Info("http server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&catalog, "catalog", "", "tax rule catalog (default PAYROLL_CATALOG_FILE)")
	return cmd
}
