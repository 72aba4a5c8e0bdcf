package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paycore/payroll-engine/internal/domain"
)

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and update the garnishment ledger",
	}
	cmd.AddCommand(newLedgerApplyCommand(rootOpts))
	cmd.AddCommand(newLedgerShowCommand(rootOpts))
	return cmd
}

func newLedgerApplyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <events.json>",
		Short: "Apply withholding events to the ledger",
		Long: `Apply withholding events from a JSON file, either a bare array or an object
with an "events" array. Events already recorded are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read events", err)
			}
			rt, err := opts.openRuntime(cmd.Context(), nil, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.runner.Ledger.ApplyEvents(cmd.Context(), events)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to apply events", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func readEvents(path string) ([]domain.WithholdingEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []domain.WithholdingEvent
	if err := json.Unmarshal(data, &events); err == nil {
		return events, nil
	}
	var wrapped struct {
		Events []domain.WithholdingEvent `json:"events"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wrapped.Events, nil
}

func newLedgerShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <employer-id> <employee-id>",
		Short: "List an employee's ledger entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.openRuntime(cmd.Context(), nil, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := rt.runner.Ledger.Store().List(cmd.Context(), args[0], args[1])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list ledger", err)
			}
			if opts.Format == "json" {
				if entries == nil {
					entries = []domain.LedgerEntry{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return writeLedgerTable(cmd, entries)
		},
	}
}

func writeLedgerTable(cmd *cobra.Command, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No ledger entries.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tWITHHELD\tARREARS REMAINING\tEVENTS\tLAST CHECK")
	for _, e := range entries {
		arrears := "-"
		if e.RemainingArrears != nil {
			arrears = e.RemainingArrears.String()
		}
		last := "-"
		if e.LastCheckDate != nil {
			last = e.LastCheckDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", e.OrderID, e.Status, e.TotalWithheld, arrears, e.EventCount, last)
	}
	return tw.Flush()
}
