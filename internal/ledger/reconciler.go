package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/dateutil"
	"github.com/paycore/payroll-engine/pkg/money"
)

// arrearsAgeDays is the 12-week threshold for the CCPA arrears increment.
const arrearsAgeDays = 84

// Reconciler moves withholding events into the ledger and feeds ledger state back into
// the orders of the next paycheck.
type Reconciler struct {
	store   Store
	metrics *Metrics
	logger  *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithMetrics records apply outcomes and completions.
func WithMetrics(m *Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

// WithLogger sets the logger; the default discards output.
func WithLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewReconciler(store Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying ledger store.
func (r *Reconciler) Store() Store { return r.store }

// ReconcileReport summarizes one ApplyEvents call.
type ReconcileReport struct {
	Applied    int                  `json:"applied"`
	Duplicates int                  `json:"duplicates"`
	Completed  []domain.LedgerKey   `json:"completed,omitempty"`
	Entries    []domain.LedgerEntry `json:"entries"`
}

// ApplyEvents applies events in order and marks orders completed once nothing is left to
// collect. It stops at the first store error; events before it stay applied.
func (r *Reconciler) ApplyEvents(ctx context.Context, events []domain.WithholdingEvent) (ReconcileReport, error) {
	var report ReconcileReport
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		start := time.Now()
		res, err := r.store.Apply(ctx, ev)
		r.metrics.observeApply(start, res.Duplicate, err)
		if err != nil {
			return report, fmt.Errorf("apply event %s for order %s: %w", ev.EventID, ev.OrderID, err)
		}
		entry := res.Entry
		if res.Duplicate {
			report.Duplicates++
			r.logger.DebugContext(ctx, "duplicate withholding event", "event_id", ev.EventID, "order_id", ev.OrderID)
			// Redelivered after a crash between Apply and MarkCompleted.
			if entry.EventCount > 0 {
				if err := r.complete(ctx, &report, &entry, ev); err != nil {
					return report, err
				}
			}
			continue
		}
		report.Applied++

		if err := r.complete(ctx, &report, &entry, ev); err != nil {
			return report, err
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

// complete marks the entry's order completed when ShouldComplete says so.
func (r *Reconciler) complete(ctx context.Context, report *ReconcileReport, entry *domain.LedgerEntry, ev domain.WithholdingEvent) error {
	if !ShouldComplete(*entry, ev) {
		return nil
	}
	if err := r.store.MarkCompleted(ctx, ev.Key()); err != nil {
		return fmt.Errorf("complete order %s: %w", ev.OrderID, err)
	}
	entry.Status = domain.LedgerCompleted
	report.Completed = append(report.Completed, ev.Key())
	r.metrics.orderCompleted()
	r.logger.InfoContext(ctx, "garnishment order completed",
		"order_id", ev.OrderID, "employee_id", ev.EmployeeID, "total_withheld", entry.TotalWithheld.String())
	return nil
}

// HydrateOrders overlays ledger state on the orders for an employee: completed orders are
// dropped, withheld-to-date comes from the ledger, and tracked arrears are replaced by the
// ledger's remaining balance. Orders with no ledger entry pass through unchanged.
func (r *Reconciler) HydrateOrders(ctx context.Context, employerID, employeeID string, orders []domain.GarnishmentOrder) ([]domain.GarnishmentOrder, error) {
	out := make([]domain.GarnishmentOrder, 0, len(orders))
	for _, o := range orders {
		key := domain.LedgerKey{EmployerID: employerID, EmployeeID: employeeID, OrderID: o.OrderID}
		entry, err := r.store.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			out = append(out, o)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrate order %s: %w", o.OrderID, err)
		}
		if entry.Status == domain.LedgerCompleted {
			r.logger.DebugContext(ctx, "skipping completed order", "order_id", o.OrderID)
			continue
		}
		o.WithheldToDate = entry.TotalWithheld
		if entry.RemainingArrears != nil {
			o.ArrearsBefore = money.Ptr(*entry.RemainingArrears)
		}
		out = append(out, o)
	}
	return out, nil
}

// ArrearsAtLeast12Weeks reports whether an order served on served has been outstanding
// for at least 12 weeks on the check date.
func ArrearsAtLeast12Weeks(served, checkDate time.Time) bool {
	return dateutil.DaysBetween(served, checkDate) >= arrearsAgeDays
}

// SupportCapContext builds the support-cap facts for a paycheck: the arrears increment
// applies when any support order with an open balance was served at least 12 weeks ago.
func SupportCapContext(orders []domain.GarnishmentOrder, checkDate time.Time, supportsOtherDependents bool) *domain.SupportCapContext {
	ctx := &domain.SupportCapContext{SupportsOtherDependents: supportsOtherDependents}
	for _, o := range orders {
		if !o.Type.IsSupport() || o.ServedDate == nil || o.ArrearsBefore == nil || !o.ArrearsBefore.IsPositive() {
			continue
		}
		if ArrearsAtLeast12Weeks(*o.ServedDate, checkDate) {
			ctx.ArrearsAtLeast12Weeks = true
			break
		}
	}
	return ctx
}
