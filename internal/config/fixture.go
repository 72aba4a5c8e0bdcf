package config

import (
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/internal/rules"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// Fixture is a paycheck input file: the employer's master data plus the paychecks to
// calculate. Tax rules are either inline or read from CatalogFile.
type Fixture struct {
	EmployerID  string           `yaml:"employer_id" validate:"required"`
	CatalogFile string           `yaml:"catalog_file,omitempty"`
	TaxRules    []rules.RuleSpec `yaml:"tax_rules,omitempty" validate:"dive"`

	EarningDefinitions []EarningDefinitionConfig `yaml:"earning_definitions,omitempty" validate:"dive"`
	DeductionPlans     []DeductionPlanConfig     `yaml:"deduction_plans,omitempty" validate:"dive"`
	// LaborStandards is keyed by work state; DEFAULT applies to states not listed.
	LaborStandards map[string]LaborStandardsConfig `yaml:"labor_standards,omitempty"`

	Employees []EmployeeConfig `yaml:"employees" validate:"required,min=1,dive"`
	Periods   []PeriodConfig   `yaml:"periods" validate:"required,min=1,dive"`
	Paychecks []PaycheckConfig `yaml:"paychecks" validate:"required,min=1,dive"`
}

type EarningDefinitionConfig struct {
	Code        string                 `yaml:"code" validate:"required"`
	Category    domain.EarningCategory `yaml:"category" validate:"required"`
	DisplayName string                 `yaml:"display_name,omitempty"`
	DefaultRate *money.Money           `yaml:"default_rate,omitempty"`
}

type DeductionPlanConfig struct {
	ID           string                   `yaml:"id" validate:"required"`
	Name         string                   `yaml:"name,omitempty"`
	Kind         domain.DeductionKind     `yaml:"kind" validate:"required"`
	EmployeeRate *money.Percent           `yaml:"employee_rate,omitempty"`
	EmployeeFlat *money.Money             `yaml:"employee_flat,omitempty"`
	AnnualCap    *money.Money             `yaml:"annual_cap,omitempty"`
	PerPeriodCap *money.Money             `yaml:"per_period_cap,omitempty"`
	Effects      []domain.DeductionEffect `yaml:"effects,omitempty"`
	Mandatory    bool                     `yaml:"mandatory,omitempty"`
}

type LaborStandardsConfig struct {
	MinimumWage        money.Money     `yaml:"minimum_wage"`
	OvertimeMultiplier decimal.Decimal `yaml:"overtime_multiplier,omitempty"`
}

type W4Config struct {
	Version                     domain.W4Version `yaml:"version"`
	Step2MultipleJobs           bool             `yaml:"step2_multiple_jobs,omitempty"`
	Step3CreditsAnnual          *money.Money     `yaml:"step3_credits_annual,omitempty"`
	Step4aOtherIncomeAnnual     *money.Money     `yaml:"step4a_other_income_annual,omitempty"`
	Step4bDeductionsAnnual      *money.Money     `yaml:"step4b_deductions_annual,omitempty"`
	ExtraWithholdingPerPeriod   *money.Money     `yaml:"extra_withholding_per_period,omitempty"`
	LegacyAllowances            *int             `yaml:"legacy_allowances,omitempty" validate:"omitempty,min=0"`
	LegacyAdditionalWithholding *money.Money     `yaml:"legacy_additional_withholding,omitempty"`
	EffectiveDate               *time.Time       `yaml:"effective_date,omitempty"`
	FirstPaidBefore2020         *bool            `yaml:"first_paid_before_2020,omitempty"`
}

type EmployeeConfig struct {
	EmployeeID      string                `yaml:"employee_id" validate:"required"`
	HomeState       string                `yaml:"home_state,omitempty"`
	WorkState       string                `yaml:"work_state,omitempty"`
	WorkCity        string                `yaml:"work_city,omitempty"`
	FilingStatus    domain.FilingStatus   `yaml:"filing_status" validate:"required"`
	EmploymentType  domain.EmploymentType `yaml:"employment_type,omitempty"`
	AnnualSalary    *money.Money          `yaml:"annual_salary,omitempty" validate:"required_without=HourlyRate,excluded_with=HourlyRate"`
	HourlyRate      *money.Money          `yaml:"hourly_rate,omitempty" validate:"required_without=AnnualSalary"`
	HireDate        *time.Time            `yaml:"hire_date,omitempty"`
	TerminationDate *time.Time            `yaml:"termination_date,omitempty"`

	FederalWithholdingExempt bool `yaml:"federal_withholding_exempt,omitempty"`
	NonresidentAlien         bool `yaml:"nonresident_alien,omitempty"`
	FICAExempt               bool `yaml:"fica_exempt,omitempty"`
	FLSAExempt               bool `yaml:"flsa_exempt,omitempty"`

	W4 W4Config `yaml:"w4"`

	// DeductionPlans lists the ids of the fixture plans the employee is enrolled in.
	DeductionPlans          []string       `yaml:"deduction_plans,omitempty"`
	GarnishmentOrders       []OrderConfig  `yaml:"garnishment_orders,omitempty" validate:"dive"`
	SupportsOtherDependents bool           `yaml:"supports_other_dependents,omitempty"`
	StateSupportCap         *money.Percent `yaml:"state_support_cap,omitempty"`
}

// Garnishment formula kinds.
const (
	FormulaPercentOfDisposable = "PERCENT_OF_DISPOSABLE"
	FormulaFixedAmount         = "FIXED_AMOUNT"
	FormulaLesserOf            = "LESSER_OF"
	FormulaLevy                = "LEVY"
)

// Protected earnings kinds.
const (
	ProtectedFixedFloor      = "FIXED_FLOOR"
	ProtectedMinWageMultiple = "MIN_WAGE_MULTIPLE"
)

type FormulaConfig struct {
	Kind    string           `yaml:"kind" validate:"required,oneof=PERCENT_OF_DISPOSABLE FIXED_AMOUNT LESSER_OF LEVY"`
	Percent *money.Percent   `yaml:"percent,omitempty"`
	Amount  *money.Money     `yaml:"amount,omitempty"`
	Bands   []LevyBandConfig `yaml:"bands,omitempty"`
}

type LevyBandConfig struct {
	UpTo         *money.Money         `yaml:"up_to,omitempty"`
	ExemptAmount money.Money          `yaml:"exempt_amount"`
	FilingStatus *domain.FilingStatus `yaml:"filing_status,omitempty"`
}

type ProtectedEarningsConfig struct {
	Kind       string          `yaml:"kind" validate:"required,oneof=FIXED_FLOOR MIN_WAGE_MULTIPLE"`
	Amount     *money.Money    `yaml:"amount,omitempty"`
	HourlyRate *money.Money    `yaml:"hourly_rate,omitempty"`
	Hours      decimal.Decimal `yaml:"hours,omitempty"`
	Multiplier decimal.Decimal `yaml:"multiplier,omitempty"`
}

type OrderConfig struct {
	OrderID             string                   `yaml:"order_id" validate:"required"`
	PlanID              string                   `yaml:"plan_id,omitempty"`
	Type                domain.GarnishmentType   `yaml:"type" validate:"required"`
	IssuingJurisdiction *domain.Jurisdiction     `yaml:"issuing_jurisdiction,omitempty"`
	PriorityClass       int                      `yaml:"priority_class" validate:"min=0"`
	SequenceWithinClass int                      `yaml:"sequence_within_class,omitempty" validate:"min=0"`
	Formula             FormulaConfig            `yaml:"formula"`
	ProtectedEarnings   *ProtectedEarningsConfig `yaml:"protected_earnings,omitempty"`
	ArrearsBefore       *money.Money             `yaml:"arrears_before,omitempty"`
	LifetimeCap         *money.Money             `yaml:"lifetime_cap,omitempty"`
	WithheldToDate      money.Money              `yaml:"withheld_to_date,omitempty"`
	CurrentObligation   *money.Money             `yaml:"current_obligation,omitempty"`
	ServedDate          *time.Time               `yaml:"served_date,omitempty"`
}

type PeriodConfig struct {
	ID             string              `yaml:"id" validate:"required"`
	Start          time.Time           `yaml:"start"`
	End            time.Time           `yaml:"end"`
	CheckDate      time.Time           `yaml:"check_date"`
	Frequency      domain.PayFrequency `yaml:"frequency" validate:"required"`
	SequenceInYear *int                `yaml:"sequence_in_year,omitempty" validate:"omitempty,min=1"`
}

type EarningInputConfig struct {
	Code   string          `yaml:"code" validate:"required"`
	Units  decimal.Decimal `yaml:"units,omitempty"`
	Rate   *money.Money    `yaml:"rate,omitempty"`
	Amount *money.Money    `yaml:"amount,omitempty"`
}

type ContributionConfig struct {
	Code        string      `yaml:"code" validate:"required"`
	Description string      `yaml:"description,omitempty"`
	Amount      money.Money `yaml:"amount"`
}

// YtdConfig is a prior year-to-date snapshot. Wage keys are tax basis names.
type YtdConfig struct {
	Year                  int                    `yaml:"year"`
	Earnings              map[string]money.Money `yaml:"earnings,omitempty"`
	EmployeeTaxes         map[string]money.Money `yaml:"employee_taxes,omitempty"`
	EmployerTaxes         map[string]money.Money `yaml:"employer_taxes,omitempty"`
	Deductions            map[string]money.Money `yaml:"deductions,omitempty"`
	Wages                 map[string]money.Money `yaml:"wages,omitempty"`
	EmployerContributions map[string]money.Money `yaml:"employer_contributions,omitempty"`
}

type PaycheckConfig struct {
	PaycheckID            string               `yaml:"paycheck_id" validate:"required"`
	PayRunID              string               `yaml:"pay_run_id,omitempty"`
	EmployeeID            string               `yaml:"employee_id" validate:"required"`
	PeriodID              string               `yaml:"period_id" validate:"required"`
	RegularHours          decimal.Decimal      `yaml:"regular_hours,omitempty"`
	OvertimeHours         decimal.Decimal      `yaml:"overtime_hours,omitempty"`
	OtherEarnings         []EarningInputConfig `yaml:"other_earnings,omitempty" validate:"dive"`
	Proration             *decimal.Decimal     `yaml:"proration,omitempty"`
	PriorYtd              *YtdConfig           `yaml:"prior_ytd,omitempty"`
	EmployerContributions []ContributionConfig `yaml:"employer_contributions,omitempty" validate:"dive"`
}
