package calculation

import (
	"sort"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// DeductionRequest is the input to DeductionsCalculator.Compute.
type DeductionRequest struct {
	Plans    []domain.DeductionPlan
	Gross    money.Money
	PriorYtd domain.YtdSnapshot
}

// DeductionComputation separates pre-tax and post-tax lines. Reductions feed the basis
// builder; MandatoryPreTax feeds disposable income.
type DeductionComputation struct {
	PreTax          []domain.DeductionLine
	PostTax         []domain.DeductionLine
	Reductions      []BasisReduction
	MandatoryPreTax money.Money
	Trace           []domain.TraceStep
}

// DeductionsCalculator applies employee benefit and voluntary deductions. Garnishment
// plans are left to the garnishment engine.
type DeductionsCalculator struct {
	Logger Logger
}

func NewDeductionsCalculator() *DeductionsCalculator {
	return &DeductionsCalculator{Logger: NopLogger{}}
}

// Compute processes pre-tax plans first, then post-tax, each ordered by plan id.
func (c *DeductionsCalculator) Compute(req DeductionRequest) DeductionComputation {
	plans := make([]domain.DeductionPlan, 0, len(req.Plans))
	for _, p := range req.Plans {
		if p.Kind == domain.DeductionGarnishment {
			continue
		}
		plans = append(plans, p)
	}
	sort.SliceStable(plans, func(i, j int) bool {
		pi, pj := plans[i].Kind.IsPreTax(), plans[j].Kind.IsPreTax()
		if pi != pj {
			return pi
		}
		return plans[i].ID < plans[j].ID
	})

	out := DeductionComputation{MandatoryPreTax: money.Zero()}
	for _, plan := range plans {
		amount, capped := planAmount(plan, req.Gross, req.PriorYtd.Deduction(plan.ID))
		if !amount.IsPositive() {
			continue
		}
		effects := plan.Effects()
		line := domain.DeductionLine{
			Code:        plan.ID,
			Description: plan.Name,
			Kind:        plan.Kind,
			Amount:      amount,
		}
		out.Trace = append(out.Trace, domain.DeductionApplied{
			Code:        plan.ID,
			Description: plan.Name,
			Basis:       req.Gross,
			Rate:        plan.EmployeeRate,
			Amount:      amount,
			CappedAt:    capped,
			Effects:     effects,
		})

		if plan.Kind.IsPreTax() {
			out.PreTax = append(out.PreTax, line)
			out.Reductions = append(out.Reductions, BasisReduction{Code: plan.ID, Amount: amount, Effects: effects})
			if plan.Mandatory {
				out.MandatoryPreTax = out.MandatoryPreTax.Add(amount)
			}
			continue
		}
		out.PostTax = append(out.PostTax, line)
	}
	return out
}

// planAmount is rate x gross plus flat, limited by the per-period cap and by what is
// left of the annual cap. The returned cap is set when a limit bound.
func planAmount(plan domain.DeductionPlan, gross, ytd money.Money) (money.Money, *money.Money) {
	amount := money.Zero()
	if plan.EmployeeRate != nil {
		amount = amount.Add(gross.MulRate(*plan.EmployeeRate))
	}
	if plan.EmployeeFlat != nil {
		amount = amount.Add(*plan.EmployeeFlat)
	}

	var capped *money.Money
	if plan.PerPeriodCap != nil && amount.GreaterThan(*plan.PerPeriodCap) {
		amount = *plan.PerPeriodCap
		capped = money.Ptr(*plan.PerPeriodCap)
	}
	if plan.AnnualCap != nil {
		remaining := plan.AnnualCap.Sub(ytd).FloorZero()
		if amount.GreaterThan(remaining) {
			amount = remaining
			capped = money.Ptr(*plan.AnnualCap)
		}
	}
	return amount.FloorZero(), capped
}
