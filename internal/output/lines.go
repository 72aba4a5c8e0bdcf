package output

import (
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// Line item sections, in pay stub order.
const (
	SectionEarning      = "EARNING"
	SectionEmployeeTax  = "EMPLOYEE_TAX"
	SectionDeduction    = "DEDUCTION"
	SectionEmployerTax  = "EMPLOYER_TAX"
	SectionContribution = "EMPLOYER_CONTRIBUTION"
)

// LineItem is one row of a pay stub regardless of its source line type.
type LineItem struct {
	Section     string
	Code        string
	Description string
	Basis       *money.Money
	Rate        *money.Percent
	Amount      money.Money
}

// LineItems flattens a result into pay stub rows: earnings, employee taxes, deductions,
// employer taxes, then employer contributions.
func LineItems(r *domain.PaycheckResult) []LineItem {
	items := make([]LineItem, 0, len(r.Earnings)+len(r.EmployeeTaxes)+len(r.Deductions)+len(r.EmployerTaxes)+len(r.EmployerContributions))
	for _, e := range r.Earnings {
		items = append(items, LineItem{Section: SectionEarning, Code: e.Code, Description: e.Description, Amount: e.Amount})
	}
	for _, t := range r.EmployeeTaxes {
		items = append(items, taxItem(SectionEmployeeTax, t))
	}
	for _, d := range r.Deductions {
		code := d.Code
		if d.OrderID != "" {
			code = d.OrderID
		}
		items = append(items, LineItem{Section: SectionDeduction, Code: code, Description: d.Description, Amount: d.Amount})
	}
	for _, t := range r.EmployerTaxes {
		items = append(items, taxItem(SectionEmployerTax, t))
	}
	for _, c := range r.EmployerContributions {
		items = append(items, LineItem{Section: SectionContribution, Code: c.Code, Description: c.Description, Amount: c.Amount})
	}
	return items
}

func taxItem(section string, t domain.TaxLine) LineItem {
	basis := t.Basis
	return LineItem{
		Section:     section,
		Code:        t.RuleID,
		Description: t.Description,
		Basis:       &basis,
		Rate:        t.Rate,
		Amount:      t.Amount,
	}
}

// Totals is the pay stub footer.
type Totals struct {
	Gross         money.Money
	EmployeeTaxes money.Money
	Deductions    money.Money
	Net           money.Money
	EmployerTaxes money.Money
}

func totalsOf(r *domain.PaycheckResult) Totals {
	return Totals{
		Gross:         r.Gross,
		EmployeeTaxes: r.TotalEmployeeTaxes(),
		Deductions:    r.TotalDeductions(),
		Net:           r.Net,
		EmployerTaxes: r.TotalEmployerTaxes(),
	}
}

func checkDate(r *domain.PaycheckResult) string {
	if r.Period.CheckDate.IsZero() {
		return ""
	}
	return r.Period.CheckDate.Format("2006-01-02")
}
