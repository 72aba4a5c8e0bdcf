package calculation

import (
	"fmt"
	"strings"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// ProrationStrategy derives the worked fraction of a pay period from hire and
// termination dates. Compute returns nil when the employee worked the whole period.
type ProrationStrategy interface {
	Name() string
	Compute(period domain.PayPeriod, hire, termination *time.Time) (*domain.Proration, error)
}

// CalendarDays prorates by overlapping calendar days.
type CalendarDays struct{}

// Workdays prorates by overlapping Monday-to-Friday days.
type Workdays struct{}

// ThirtyDayMonth prorates worked days over a fixed 30-day month.
type ThirtyDayMonth struct{}

var thirty = decimal.NewFromInt(30)

func (CalendarDays) Name() string   { return "CALENDAR_DAYS" }
func (Workdays) Name() string       { return "WORKDAYS" }
func (ThirtyDayMonth) Name() string { return "THIRTY_DAY_MONTH" }

func (CalendarDays) Compute(period domain.PayPeriod, hire, termination *time.Time) (*domain.Proration, error) {
	return computeProration(period, hire, termination, func(start, end time.Time) decimal.Decimal {
		return ratio(dateutil.DaysInclusive(start, end), dateutil.DaysInclusive(period.Start, period.End))
	})
}

func (Workdays) Compute(period domain.PayPeriod, hire, termination *time.Time) (*domain.Proration, error) {
	return computeProration(period, hire, termination, func(start, end time.Time) decimal.Decimal {
		return ratio(dateutil.Workdays(start, end), dateutil.Workdays(period.Start, period.End))
	})
}

func (ThirtyDayMonth) Compute(period domain.PayPeriod, hire, termination *time.Time) (*domain.Proration, error) {
	return computeProration(period, hire, termination, func(start, end time.Time) decimal.Decimal {
		return decimal.NewFromInt(int64(dateutil.DaysInclusive(start, end))).Div(thirty)
	})
}

// computeProration handles the shared window logic: no dates or a fully covered period
// means no proration, no overlap means zero.
func computeProration(period domain.PayPeriod, hire, termination *time.Time, fraction func(start, end time.Time) decimal.Decimal) (*domain.Proration, error) {
	if hire == nil && termination == nil {
		return nil, nil
	}
	if period.End.Before(period.Start) {
		return nil, fmt.Errorf("%w: period %s ends before it starts", domain.ErrInvalidProration, period.ID)
	}

	windowStart, windowEnd := period.Start, period.End
	if hire != nil {
		windowStart = *hire
	}
	if termination != nil {
		windowEnd = *termination
	}

	start, end, ok := dateutil.Overlap(windowStart, windowEnd, period.Start, period.End)
	if !ok {
		return &domain.Proration{Fraction: decimal.Zero}, nil
	}
	if dateutil.DateOnly(start).Equal(dateutil.DateOnly(period.Start)) && dateutil.DateOnly(end).Equal(dateutil.DateOnly(period.End)) {
		return nil, nil
	}

	f := clampUnit(fraction(start, end))
	return &domain.Proration{Fraction: f}, nil
}

func ratio(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole)))
}

func clampUnit(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return d
}

// ValidateProration rejects fractions outside [0, 1].
func ValidateProration(p *domain.Proration) error {
	if p == nil {
		return nil
	}
	if p.Fraction.IsNegative() || p.Fraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidProration, p.Fraction)
	}
	return nil
}

// ResolveProration returns the explicit override when one is given, otherwise the
// strategy's fraction. The boolean reports whether the override was used.
func ResolveProration(strategy ProrationStrategy, period domain.PayPeriod, hire, termination *time.Time, override *domain.Proration) (*domain.Proration, bool, error) {
	if override != nil {
		if err := ValidateProration(override); err != nil {
			return nil, true, err
		}
		return override, true, nil
	}
	if strategy == nil {
		strategy = CalendarDays{}
	}
	p, err := strategy.Compute(period, hire, termination)
	if err != nil {
		return nil, false, err
	}
	if err := ValidateProration(p); err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// ParseProrationStrategy resolves a strategy by name; an empty name means calendar days.
func ParseProrationStrategy(name string) (ProrationStrategy, error) {
	switch strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(name))) {
	case "", "CALENDAR_DAYS", "CALENDAR":
		return CalendarDays{}, nil
	case "WORKDAYS", "WORK_DAYS":
		return Workdays{}, nil
	case "THIRTY_DAY_MONTH", "30_DAY_MONTH":
		return ThirtyDayMonth{}, nil
	}
	return nil, fmt.Errorf("unknown proration strategy %q", name)
}
