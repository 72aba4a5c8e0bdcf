package domain

import "github.com/paycore/payroll-engine/pkg/money"

// YtdSnapshot holds per-tax-year running totals. The caller resets it at year boundaries.
type YtdSnapshot struct {
	EmployeeID                  string                   `json:"employee_id"`
	Year                        int                      `json:"year"`
	EarningsByCode              map[string]money.Money   `json:"earnings_by_code"`
	EmployeeTaxesByRule         map[string]money.Money   `json:"employee_taxes_by_rule"`
	EmployerTaxesByRule         map[string]money.Money   `json:"employer_taxes_by_rule"`
	DeductionsByCode            map[string]money.Money   `json:"deductions_by_code"`
	WagesByBasis                map[TaxBasis]money.Money `json:"wages_by_basis"`
	EmployerContributionsByCode map[string]money.Money   `json:"employer_contributions_by_code"`
}

// NewYtdSnapshot returns an empty snapshot for the year.
func NewYtdSnapshot(employeeID string, year int) YtdSnapshot {
	return YtdSnapshot{
		EmployeeID:                  employeeID,
		Year:                        year,
		EarningsByCode:              map[string]money.Money{},
		EmployeeTaxesByRule:         map[string]money.Money{},
		EmployerTaxesByRule:         map[string]money.Money{},
		DeductionsByCode:            map[string]money.Money{},
		WagesByBasis:                map[TaxBasis]money.Money{},
		EmployerContributionsByCode: map[string]money.Money{},
	}
}

// Wages returns the year-to-date amount for a basis, zero when absent.
func (y YtdSnapshot) Wages(basis TaxBasis) money.Money {
	return y.WagesByBasis[basis]
}

// Deduction returns the year-to-date amount for a deduction code.
func (y YtdSnapshot) Deduction(code string) money.Money {
	return y.DeductionsByCode[code]
}

// Clone deep-copies the maps so the prior snapshot is never mutated.
func (y YtdSnapshot) Clone() YtdSnapshot {
	out := NewYtdSnapshot(y.EmployeeID, y.Year)
	copyInto(out.EarningsByCode, y.EarningsByCode)
	copyInto(out.EmployeeTaxesByRule, y.EmployeeTaxesByRule)
	copyInto(out.EmployerTaxesByRule, y.EmployerTaxesByRule)
	copyInto(out.DeductionsByCode, y.DeductionsByCode)
	copyInto(out.WagesByBasis, y.WagesByBasis)
	copyInto(out.EmployerContributionsByCode, y.EmployerContributionsByCode)
	return out
}

func copyInto[K comparable](dst, src map[K]money.Money) {
	for k, v := range src {
		dst[k] = v
	}
}
