package calculation

import (
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// YtdUpdate is everything one paycheck adds to the running totals.
type YtdUpdate struct {
	Earnings              []domain.EarningLine
	EmployeeTaxes         []domain.TaxLine
	EmployerTaxes         []domain.TaxLine
	Deductions            []domain.DeductionLine
	Bases                 map[domain.TaxBasis]money.Money
	EmployerContributions []domain.EmployerContributionLine
}

// YtdAccumulator folds a paycheck into a copy of the prior snapshot.
type YtdAccumulator struct{}

// Apply returns a new snapshot; prior is left untouched.
func (YtdAccumulator) Apply(prior domain.YtdSnapshot, year int, u YtdUpdate) domain.YtdSnapshot {
	next := prior.Clone()
	next.Year = year

	for _, e := range u.Earnings {
		next.EarningsByCode[e.Code] = next.EarningsByCode[e.Code].Add(e.Amount)
	}
	for _, t := range u.EmployeeTaxes {
		next.EmployeeTaxesByRule[t.RuleID] = next.EmployeeTaxesByRule[t.RuleID].Add(t.Amount)
	}
	for _, t := range u.EmployerTaxes {
		next.EmployerTaxesByRule[t.RuleID] = next.EmployerTaxesByRule[t.RuleID].Add(t.Amount)
	}
	for _, d := range u.Deductions {
		next.DeductionsByCode[d.Code] = next.DeductionsByCode[d.Code].Add(d.Amount)
	}
	for basis, amount := range u.Bases {
		next.WagesByBasis[basis] = next.WagesByBasis[basis].Add(amount)
	}
	for _, c := range u.EmployerContributions {
		next.EmployerContributionsByCode[c.Code] = next.EmployerContributionsByCode[c.Code].Add(c.Amount)
	}
	return next
}
