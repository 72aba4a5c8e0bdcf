package domain

import "github.com/paycore/payroll-engine/pkg/money"

// DeductionPlan is an employer-configured benefit or voluntary deduction.
// The employee amount is EmployeeRate x gross plus EmployeeFlat, then capped.
type DeductionPlan struct {
	ID              string
	Name            string
	Kind            DeductionKind
	EmployeeRate    *money.Percent
	EmployeeFlat    *money.Money
	AnnualCap       *money.Money
	PerPeriodCap    *money.Money
	EmployeeEffects []DeductionEffect
	// Mandatory deductions (e.g. a required public pension contribution) reduce disposable
	// income for garnishment purposes; voluntary ones do not.
	Mandatory bool
}

// Effects returns the plan's explicit effects or its kind's defaults.
func (p DeductionPlan) Effects() []DeductionEffect {
	if len(p.EmployeeEffects) > 0 {
		return p.EmployeeEffects
	}
	return p.Kind.DefaultEffects()
}

// DeductionLine is one itemized deduction, including garnishments.
type DeductionLine struct {
	Code        string        `json:"code"`
	Description string        `json:"description"`
	Kind        DeductionKind `json:"kind"`
	Amount      money.Money   `json:"amount"`
	OrderID     string        `json:"order_id,omitempty"`
}
