package domain

import (
	"time"

	"github.com/paycore/payroll-engine/pkg/money"
)

// EmployeeSnapshot is the effective-dated view of an employee used for one paycheck.
// The engine treats it as read-only.
type EmployeeSnapshot struct {
	EmployerID      string           `json:"employer_id"`
	EmployeeID      string           `json:"employee_id"`
	HomeState       string           `json:"home_state,omitempty"`
	WorkState       string           `json:"work_state,omitempty"`
	WorkCity        string           `json:"work_city,omitempty"`
	FilingStatus    FilingStatus     `json:"filing_status"`
	EmploymentType  EmploymentType   `json:"employment_type"`
	Compensation    BaseCompensation `json:"-"`
	HireDate        *time.Time       `json:"hire_date,omitempty"`
	TerminationDate *time.Time       `json:"termination_date,omitempty"`

	FederalWithholdingExempt bool `json:"federal_withholding_exempt"`
	NonresidentAlien         bool `json:"nonresident_alien"`
	FICAExempt               bool `json:"fica_exempt"`
	FLSAExempt               bool `json:"flsa_exempt"`

	W4 W4Profile `json:"w4"`
}

// W4Profile carries both the redesigned (2020+) fields and the legacy allowance fields.
// Annual amounts are annual; ExtraWithholdingPerPeriod is per paycheck.
type W4Profile struct {
	Version                   W4Version    `json:"version"`
	Step2MultipleJobs         bool         `json:"step2_multiple_jobs"`
	Step3CreditsAnnual        *money.Money `json:"step3_credits_annual,omitempty"`
	Step4aOtherIncomeAnnual   *money.Money `json:"step4a_other_income_annual,omitempty"`
	Step4bDeductionsAnnual    *money.Money `json:"step4b_deductions_annual,omitempty"`
	ExtraWithholdingPerPeriod *money.Money `json:"extra_withholding_per_period,omitempty"`

	LegacyAllowances            *int         `json:"legacy_allowances,omitempty"`
	LegacyAdditionalWithholding *money.Money `json:"legacy_additional_withholding,omitempty"`

	EffectiveDate       *time.Time `json:"effective_date,omitempty"`
	FirstPaidBefore2020 *bool      `json:"first_paid_before_2020,omitempty"`
}

// IsLegacy reports a pre-2020 allowance-based W-4.
func (w W4Profile) IsLegacy() bool {
	return w.Version == W4Legacy
}

// BaseCompensation is either SalariedCompensation or HourlyCompensation.
type BaseCompensation interface {
	isBaseCompensation()
}

// SalariedCompensation is allocated evenly across the pay periods of a year.
type SalariedCompensation struct {
	AnnualSalary money.Money
}

// HourlyCompensation pays rate x hours worked.
type HourlyCompensation struct {
	HourlyRate money.Money
}

func (SalariedCompensation) isBaseCompensation() {}
func (HourlyCompensation) isBaseCompensation()   {}
