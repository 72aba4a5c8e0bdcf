// Package payrun runs a paycheck fixture end to end: it resolves each paycheck through
// the fixture providers and rule catalog, calculates the batch and hands the resulting
// withholding events to the ledger.
package payrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/paycore/payroll-engine/internal/calculation"
	"github.com/paycore/payroll-engine/internal/config"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/internal/ledger"
	"github.com/paycore/payroll-engine/internal/rules"
)

// Enqueuer hands withholding events to the background worker. jobs.Enqueuer satisfies it.
type Enqueuer interface {
	EnqueueResults(ctx context.Context, results []*domain.PaycheckResult) (int, error)
}

// Runner calculates fixtures. Catalog is used for fixtures without inline tax rules;
// Ledger, when set, hydrates garnishment orders before calculation.
type Runner struct {
	Engine  *calculation.CalculationEngine
	Catalog rules.Catalog
	Ledger  *ledger.Reconciler
	Workers int
	Logger  *slog.Logger
}

// Outcome is a calculated fixture.
type Outcome struct {
	Results []*domain.PaycheckResult
}

// Events flattens the withholding events of every result in result order.
func (o Outcome) Events() []domain.WithholdingEvent {
	var events []domain.WithholdingEvent
	for _, r := range o.Results {
		events = append(events, r.WithholdingEvents...)
	}
	return events
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

// Calculate assembles and calculates every paycheck of the fixture in file order.
func (r *Runner) Calculate(ctx context.Context, fixture *config.Fixture) (Outcome, error) {
	if r.Engine == nil {
		return Outcome{}, errors.New("payrun: engine not configured")
	}
	catalog := r.Catalog
	if len(fixture.TaxRules) > 0 {
		catalog = nil
	} else if catalog == nil && fixture.CatalogFile != "" {
		static, err := config.LoadTaxCatalog(fixture.CatalogFile)
		if err != nil {
			return Outcome{}, err
		}
		catalog = static
	}

	var hydrator config.OrderHydrator
	if r.Ledger != nil {
		hydrator = r.Ledger
	}
	assembler, err := config.NewAssembler(fixture, catalog, hydrator)
	if err != nil {
		return Outcome{}, err
	}
	inputs, err := assembler.Inputs(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to assemble paychecks: %w", err)
	}

	results, err := r.Engine.CalculateBatch(ctx, inputs, r.Workers)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to calculate paychecks: %w", err)
	}
	r.logger().InfoContext(ctx, "calculated paychecks",
		slog.String("employer_id", fixture.EmployerID),
		slog.Int("paychecks", len(results)),
	)
	return Outcome{Results: results}, nil
}

// Apply records the outcome's withholding events in the ledger.
func (r *Runner) Apply(ctx context.Context, o Outcome) (ledger.ReconcileReport, error) {
	if r.Ledger == nil {
		return ledger.ReconcileReport{}, errors.New("payrun: ledger not configured")
	}
	events := o.Events()
	if len(events) == 0 {
		return ledger.ReconcileReport{}, nil
	}
	return r.Ledger.ApplyEvents(ctx, events)
}
