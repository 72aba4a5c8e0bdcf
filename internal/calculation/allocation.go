package calculation

import (
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// RemainderAwareAllocation spreads an annual amount across the periods of a year so the
// per-period amounts sum back to the annual amount exactly. The leftover cents go one
// each to the earliest periods.
type RemainderAwareAllocation struct {
	annual    money.Money
	periods   int
	base      money.Money
	remainder int64
}

// NewRemainderAwareAllocation fails on a non-positive period count or a negative annual amount.
func NewRemainderAwareAllocation(annual money.Money, periods int) (*RemainderAwareAllocation, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidPeriods, periods)
	}
	if annual.IsNegative() {
		return nil, fmt.Errorf("negative annual amount %s", annual)
	}
	return &RemainderAwareAllocation{
		annual:    annual,
		periods:   periods,
		base:      annual.DivInt(int64(periods)),
		remainder: annual.Cents % int64(periods),
	}, nil
}

// Base is the per-period amount before remainder cents.
func (a *RemainderAwareAllocation) Base() money.Money {
	return a.base
}

// Periods is the number of periods the amount is spread over.
func (a *RemainderAwareAllocation) Periods() int {
	return a.periods
}

// AmountForPeriod returns the amount for a 0-based period index.
func (a *RemainderAwareAllocation) AmountForPeriod(index int) (money.Money, error) {
	if index < 0 || index >= a.periods {
		return money.Money{}, fmt.Errorf("%w: period index %d outside [0, %d)", domain.ErrInvalidPeriods, index, a.periods)
	}
	if int64(index) < a.remainder {
		return a.base.Add(money.NewIn(1, a.base.Currency)), nil
	}
	return a.base, nil
}

// Total sums every period; it always equals the annual amount.
func (a *RemainderAwareAllocation) Total() money.Money {
	total := money.NewIn(0, a.annual.Currency)
	for i := 0; i < a.periods; i++ {
		amount, _ := a.AmountForPeriod(i)
		total = total.Add(amount)
	}
	return total
}
