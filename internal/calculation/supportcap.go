package calculation

import (
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// SupportCapPolicy holds the CCPA limits on support withholding as a share of
// disposable income.
type SupportCapPolicy struct {
	NoOtherDependents money.Percent
	OtherDependents   money.Percent
	ArrearsIncrement  money.Percent
}

// DefaultSupportCapPolicy is 60% (50% when the employee supports another family), plus
// 5% when arrears are at least 12 weeks old.
func DefaultSupportCapPolicy() SupportCapPolicy {
	return SupportCapPolicy{
		NoOtherDependents: money.MustPercent("0.60"),
		OtherDependents:   money.MustPercent("0.50"),
		ArrearsIncrement:  money.MustPercent("0.05"),
	}
}

// Rate returns the applicable cap rate, limited by a lower state aggregate cap.
func (p SupportCapPolicy) Rate(ctx domain.SupportCapContext) money.Percent {
	rate := p.NoOtherDependents
	if ctx.SupportsOtherDependents {
		rate = p.OtherDependents
	}
	if ctx.ArrearsAtLeast12Weeks {
		rate = rate.Add(p.ArrearsIncrement)
	}
	if ctx.StateAggregateCap != nil {
		rate = money.MinPercent(rate, *ctx.StateAggregateCap)
	}
	return rate
}

// Cap returns the rate and the cap amount for the disposable income, rounded half-up.
func (p SupportCapPolicy) Cap(ctx domain.SupportCapContext, disposable money.Money) (money.Percent, money.Money) {
	rate := p.Rate(ctx)
	return rate, disposable.MulRate(rate)
}

// allocateProportionally scales requests down to limit when their total exceeds it. Each
// share is floored to the cent; the last request takes the remaining cents, never more
// than it asked for.
func allocateProportionally(requests []money.Money, limit money.Money) []money.Money {
	out := make([]money.Money, len(requests))
	total := money.Sum(requests...)
	if !total.GreaterThan(limit) {
		copy(out, requests)
		return out
	}
	if !total.IsPositive() {
		return out
	}

	capCents := decimal.NewFromInt(limit.Cents)
	totalCents := decimal.NewFromInt(total.Cents)
	allocated := money.Zero()
	for i, req := range requests {
		if i == len(requests)-1 {
			out[i] = money.Min(limit.Sub(allocated), req).FloorZero()
			break
		}
		share := decimal.NewFromInt(req.Cents).Mul(capCents).Div(totalCents).Floor()
		out[i] = money.NewIn(share.IntPart(), req.Currency)
		allocated = allocated.Add(out[i])
	}
	return out
}
