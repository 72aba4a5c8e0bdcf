package calculation

import (
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

var cashBases = []domain.TaxBasis{
	domain.BasisGross,
	domain.BasisFederalTaxable,
	domain.BasisStateTaxable,
	domain.BasisSocialSecurityWages,
	domain.BasisMedicareWages,
	domain.BasisFutaWages,
}

var supplementalBases = append(append([]domain.TaxBasis{}, cashBases...), domain.BasisSupplementalWages)

// categoryBases maps each earning category onto the bases it contributes to.
// Categories absent from the table contribute to Gross only.
var categoryBases = map[domain.EarningCategory][]domain.TaxBasis{
	domain.EarningRegular:      cashBases,
	domain.EarningOvertime:     cashBases,
	domain.EarningCommission:   cashBases,
	domain.EarningHoliday:      cashBases,
	domain.EarningPTO:          cashBases,
	domain.EarningTips:         cashBases,
	domain.EarningBonus:        supplementalBases,
	domain.EarningSupplemental: supplementalBases,
	domain.EarningImputed: {
		domain.BasisFederalTaxable,
		domain.BasisStateTaxable,
		domain.BasisSocialSecurityWages,
		domain.BasisMedicareWages,
	},
	domain.EarningFringeNonTaxable: {domain.BasisGross},
	domain.EarningReimbursement:    {domain.BasisGross},
}

// BasisReduction is a pre-tax deduction and the bases it reduces.
type BasisReduction struct {
	Code    string
	Amount  money.Money
	Effects []domain.DeductionEffect
}

// BasisContext is the input to BuildBases.
type BasisContext struct {
	Employee   domain.EmployeeSnapshot
	Earnings   []domain.EarningLine
	Reductions []BasisReduction
}

// BasisComputation holds the per-basis amounts and the codes that produced them.
type BasisComputation struct {
	Bases      map[domain.TaxBasis]money.Money
	Components map[domain.TaxBasis]map[string]money.Money
	Trace      []domain.TraceStep
}

// Amount returns the basis amount, zero when absent.
func (b BasisComputation) Amount(basis domain.TaxBasis) money.Money {
	return b.Bases[basis]
}

// ContributesTo reports the bases an earning category feeds.
func ContributesTo(category domain.EarningCategory) ([]domain.TaxBasis, bool) {
	bases, ok := categoryBases[category]
	if !ok {
		return []domain.TaxBasis{domain.BasisGross}, false
	}
	return bases, true
}

// BuildBases derives the per-basis wage amounts for a paycheck. Exempt employees never
// contribute to the exempt bases, and every basis is floored at zero.
func BuildBases(ctx BasisContext) BasisComputation {
	out := BasisComputation{
		Bases:      make(map[domain.TaxBasis]money.Money, len(domain.AllTaxBases)),
		Components: make(map[domain.TaxBasis]map[string]money.Money, len(domain.AllTaxBases)),
	}
	for _, basis := range domain.AllTaxBases {
		out.Bases[basis] = money.Zero()
		out.Components[basis] = map[string]money.Money{}
	}

	add := func(basis domain.TaxBasis, code string, amount money.Money) {
		out.Bases[basis] = out.Bases[basis].Add(amount)
		out.Components[basis][code] = out.Components[basis][code].Add(amount)
	}

	for _, line := range ctx.Earnings {
		bases, known := ContributesTo(line.Category)
		if !known {
			out.Trace = append(out.Trace, domain.Note{
				Message: "unknown earning category " + string(line.Category) + " for code " + line.Code + ": counted in Gross only",
			})
		}
		for _, basis := range bases {
			if excluded(ctx.Employee, basis) {
				continue
			}
			add(basis, line.Code, line.Amount)
		}
	}

	for _, r := range ctx.Reductions {
		for _, effect := range r.Effects {
			basis, ok := effect.Basis()
			if !ok || excluded(ctx.Employee, basis) {
				continue
			}
			add(basis, r.Code, r.Amount.Neg())
		}
	}

	for _, basis := range domain.AllTaxBases {
		out.Bases[basis] = out.Bases[basis].FloorZero()
		out.Trace = append(out.Trace, domain.BasisComputed{
			Basis:      basis,
			Components: out.Components[basis],
			Result:     out.Bases[basis],
		})
	}
	return out
}

func excluded(emp domain.EmployeeSnapshot, basis domain.TaxBasis) bool {
	switch {
	case emp.FICAExempt && basis.IsFICA():
		return true
	case emp.FederalWithholdingExempt && basis == domain.BasisFederalTaxable:
		return true
	}
	return false
}
