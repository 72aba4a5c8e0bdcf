package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/paycore/payroll-engine/internal/rules"
)

// RulesOptions holds flags for rules show.
type RulesOptions struct {
	*RootOptions
	Catalog    string
	EmployerID string
	WorkState  string
	HomeState  string
	WorkCity   string
	AsOf       string
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the tax rule catalog",
	}
	cmd.AddCommand(newRulesShowCommand(rootOpts))
	cmd.AddCommand(newRulesInvalidateCommand(rootOpts))
	return cmd
}

func newRulesShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the rules in force for an employer and location",
		Long: `Print, as catalog YAML, the rules the engine would apply to a paycheck.

Example:
  paycalc rules show --catalog rules.yaml --employer ACME --work-state CA --as-of 2025-03-14`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now().UTC()
			if opts.AsOf != "" {
				parsed, err := time.Parse("2006-01-02", opts.AsOf)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --as-of", err)
				}
				asOf = parsed
			}

			rt, err := opts.openRuntime(cmd.Context(), nil, opts.Catalog)
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.catalog == nil {
				return &ExitError{Code: ExitCommandError, Message: "no catalog: pass --catalog or set PAYROLL_CATALOG_FILE"}
			}

			specs, err := rt.catalog.SelectRules(cmd.Context(), rules.Query{
				EmployerID: opts.EmployerID,
				AsOf:       asOf,
				WorkState:  opts.WorkState,
				HomeState:  opts.HomeState,
				WorkCity:   opts.WorkCity,
			})
			if err != nil {
				return WrapExitError(ExitFailure, "failed to select rules", err)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(rules.Document{Version: asOf.Format("2006-01-02"), Rules: specs}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "tax rule catalog (default PAYROLL_CATALOG_FILE)")
	cmd.Flags().StringVar(&opts.EmployerID, "employer", "", "employer id")
	cmd.Flags().StringVar(&opts.WorkState, "work-state", "", "work state code")
	cmd.Flags().StringVar(&opts.HomeState, "home-state", "", "home state code")
	cmd.Flags().StringVar(&opts.WorkCity, "city", "", "work city")
	cmd.Flags().StringVar(&opts.AsOf, "as-of", "", "check date, YYYY-MM-DD (default today)")
	return cmd
}

func newRulesInvalidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop every cached rule selection in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Settings.RedisAddr == "" {
				return &ExitError{Code: ExitCommandError, Message: "invalidate needs PAYROLL_REDIS_ADDR"}
			}
			rt := &runtime{}
			defer rt.Close()
			if err := rt.openCache(cmd.Context(), opts); err != nil {
				return err
			}
			version, err := rt.cache.Bump(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to bump rule cache version", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rule cache version %d\n", version)
			return nil
		},
	}
}
