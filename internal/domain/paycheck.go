package domain

import "github.com/paycore/payroll-engine/pkg/money"

// PaycheckInput gathers everything needed to calculate one paycheck. Master data is
// resolved by the caller through the provider interfaces before calculation starts.
type PaycheckInput struct {
	PaycheckID string
	PayRunID   string
	EmployerID string
	EmployeeID string

	Period     PayPeriod
	Employee   EmployeeSnapshot
	TimeSlice  TimeSlice
	TaxContext TaxContext
	PriorYtd   YtdSnapshot

	EarningDefinitions    []EarningDefinition
	DeductionPlans        []DeductionPlan
	GarnishmentOrders     []GarnishmentOrder
	LaborStandards        *LaborStandards
	SupportCap            *SupportCapContext
	EmployerContributions []EmployerContributionLine
}

// TaxLine is one applied tax.
type TaxLine struct {
	RuleID       string         `json:"rule_id"`
	Jurisdiction Jurisdiction   `json:"jurisdiction"`
	Description  string         `json:"description"`
	Basis        money.Money    `json:"basis"`
	Rate         *money.Percent `json:"rate,omitempty"`
	Amount       money.Money    `json:"amount"`
}

// PaycheckResult is the itemized outcome of a paycheck calculation.
type PaycheckResult struct {
	PaycheckID string    `json:"paycheck_id"`
	PayRunID   string    `json:"pay_run_id"`
	EmployerID string    `json:"employer_id"`
	EmployeeID string    `json:"employee_id"`
	Period     PayPeriod `json:"period"`

	Earnings              []EarningLine              `json:"earnings"`
	EmployeeTaxes         []TaxLine                  `json:"employee_taxes"`
	EmployerTaxes         []TaxLine                  `json:"employer_taxes"`
	Deductions            []DeductionLine            `json:"deductions"`
	EmployerContributions []EmployerContributionLine `json:"employer_contributions"`

	Gross money.Money `json:"gross"`
	Net   money.Money `json:"net"`

	YtdAfter          YtdSnapshot        `json:"ytd_after"`
	Trace             CalculationTrace   `json:"trace"`
	WithholdingEvents []WithholdingEvent `json:"withholding_events,omitempty"`
}

// TotalEmployeeTaxes sums the employee tax lines.
func (r *PaycheckResult) TotalEmployeeTaxes() money.Money {
	total := money.Zero()
	for _, t := range r.EmployeeTaxes {
		total = total.Add(t.Amount)
	}
	return total
}

// TotalEmployerTaxes sums the employer tax lines.
func (r *PaycheckResult) TotalEmployerTaxes() money.Money {
	total := money.Zero()
	for _, t := range r.EmployerTaxes {
		total = total.Add(t.Amount)
	}
	return total
}

// TotalDeductions sums every deduction line, garnishments included.
func (r *PaycheckResult) TotalDeductions() money.Money {
	total := money.Zero()
	for _, d := range r.Deductions {
		total = total.Add(d.Amount)
	}
	return total
}
