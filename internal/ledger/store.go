// Package ledger persists cumulative garnishment withholding per order. Every store
// applies withholding events idempotently: an event id is recorded once, and only a
// newly recorded event moves the order's running totals.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

var (
	// ErrAggregateRace is returned when the order aggregate could be neither updated nor
	// created within the attempt budget.
	ErrAggregateRace = errors.New("ledger: aggregate upsert lost the race too many times")
	// ErrNotFound is returned for a key with no ledger entry.
	ErrNotFound = errors.New("ledger: entry not found")
	// ErrInvalidEvent is returned for an event missing its id or key.
	ErrInvalidEvent = errors.New("ledger: invalid withholding event")
)

// maxApplyAttempts bounds the update-then-insert loop on the aggregate row.
const maxApplyAttempts = 3

// ApplyResult reports the entry after an Apply. Duplicate is set when the event id was
// already recorded and nothing changed.
type ApplyResult struct {
	Entry     domain.LedgerEntry
	Duplicate bool
}

// Store is the garnishment ledger.
type Store interface {
	Apply(ctx context.Context, ev domain.WithholdingEvent) (ApplyResult, error)
	Get(ctx context.Context, key domain.LedgerKey) (*domain.LedgerEntry, error)
	MarkCompleted(ctx context.Context, key domain.LedgerKey) error
	List(ctx context.Context, employerID, employeeID string) ([]domain.LedgerEntry, error)
	Close() error
}

// Open returns the store for a driver name: memory, sqlite or postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "sqlite3":
		if dsn == "" {
			return nil, errors.New("ledger: sqlite driver needs a database path")
		}
		return OpenSQLite(dsn)
	case "postgres", "postgresql", "pgx":
		if dsn == "" {
			return nil, errors.New("ledger: postgres driver needs a DSN")
		}
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("ledger: unknown driver %q", driver)
}

func validateEvent(ev domain.WithholdingEvent) error {
	switch {
	case ev.EventID == "":
		return fmt.Errorf("%w: empty event id", ErrInvalidEvent)
	case ev.EmployerID == "" || ev.EmployeeID == "" || ev.OrderID == "":
		return fmt.Errorf("%w: event %s has an incomplete key", ErrInvalidEvent, ev.EventID)
	case ev.Withheld.IsNegative() || ev.AppliedToArrears.IsNegative():
		return fmt.Errorf("%w: event %s has a negative amount", ErrInvalidEvent, ev.EventID)
	}
	return nil
}

// newEntry is the aggregate created by an order's first event.
func newEntry(ev domain.WithholdingEvent) domain.LedgerEntry {
	entry := domain.LedgerEntry{
		LedgerKey:     ev.Key(),
		TotalWithheld: money.Zero(),
		Status:        domain.LedgerActive,
	}
	if ev.InitialArrears != nil {
		entry.InitialArrears = money.Ptr(*ev.InitialArrears)
		entry.RemainingArrears = money.Ptr(*ev.InitialArrears)
	}
	advance(&entry, ev)
	return entry
}

// advance folds one event into an entry. Remaining arrears never go below zero and the
// status is left alone.
func advance(entry *domain.LedgerEntry, ev domain.WithholdingEvent) {
	entry.TotalWithheld = entry.TotalWithheld.Add(ev.Withheld)
	if entry.RemainingArrears != nil {
		remaining := entry.RemainingArrears.Sub(ev.AppliedToArrears).FloorZero()
		entry.RemainingArrears = &remaining
	}
	checkDate := ev.CheckDate
	entry.LastPaycheckID = ev.PaycheckID
	entry.LastPayRunID = ev.PayRunID
	entry.LastCheckDate = &checkDate
	entry.EventCount++
}

// ShouldComplete reports whether an entry has nothing left to collect after an event: the
// lifetime cap is reached, or an arrears-only order is paid off.
func ShouldComplete(entry domain.LedgerEntry, ev domain.WithholdingEvent) bool {
	if entry.Status == domain.LedgerCompleted {
		return false
	}
	if ev.LifetimeCap != nil && entry.TotalWithheld.Cents >= ev.LifetimeCap.Cents {
		return true
	}
	return ev.ArrearsOnly && entry.RemainingArrears != nil && !entry.RemainingArrears.IsPositive()
}
