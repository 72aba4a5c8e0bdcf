package domain

import (
	"time"

	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// GarnishmentOrder is a court or agency order to withhold from an employee's pay.
// Orders are processed by (PriorityClass, SequenceWithinClass) ascending.
type GarnishmentOrder struct {
	OrderID             string
	PlanID              string
	Type                GarnishmentType
	IssuingJurisdiction *Jurisdiction
	PriorityClass       int
	SequenceWithinClass int
	Formula             GarnishmentFormula
	ProtectedEarnings   ProtectedEarningsRule
	// ArrearsBefore is the unpaid balance before this paycheck; nil means arrears are not tracked.
	ArrearsBefore *money.Money
	// LifetimeCap limits the cumulative amount ever withheld; WithheldToDate is that
	// cumulative amount before this paycheck.
	LifetimeCap    *money.Money
	WithheldToDate money.Money
	// CurrentObligation is the per-period current support amount; withholding beyond it
	// is applied to arrears.
	CurrentObligation *money.Money
	ServedDate        *time.Time
}

// TracksArrears reports whether the order carries an arrears balance.
func (o GarnishmentOrder) TracksArrears() bool {
	return o.ArrearsBefore != nil
}

// IsCompleted reports an order with nothing left to collect: its lifetime cap is reached,
// or it is an arrears-only order whose balance is paid off.
func (o GarnishmentOrder) IsCompleted() bool {
	if o.LifetimeCap != nil && o.WithheldToDate.Cents >= o.LifetimeCap.Cents {
		return true
	}
	return o.ArrearsBefore != nil && !o.ArrearsBefore.IsPositive() && o.CurrentObligation == nil
}

// GarnishmentFormula is one of PercentOfDisposable, FixedAmountPerPeriod,
// LesserOfPercentOrAmount or LevyWithBands.
type GarnishmentFormula interface {
	FormulaName() string
	isGarnishmentFormula()
}

type PercentOfDisposable struct {
	Percent money.Percent
}

type FixedAmountPerPeriod struct {
	Amount money.Money
}

type LesserOfPercentOrAmount struct {
	Percent money.Percent
	Amount  money.Money
}

// LevyBand exempts ExemptAmount for disposable income up to UpTo. Bands may be
// restricted to a filing status.
type LevyBand struct {
	UpTo         *money.Money
	ExemptAmount money.Money
	FilingStatus *FilingStatus
}

// LevyWithBands withholds Percent (default 100%) of disposable income above the
// exempt amount of the matching band.
type LevyWithBands struct {
	Bands   []LevyBand
	Percent *money.Percent
}

func (PercentOfDisposable) FormulaName() string     { return "PercentOfDisposable" }
func (FixedAmountPerPeriod) FormulaName() string    { return "FixedAmountPerPeriod" }
func (LesserOfPercentOrAmount) FormulaName() string { return "LesserOfPercentOrAmount" }
func (LevyWithBands) FormulaName() string           { return "LevyWithBands" }

func (PercentOfDisposable) isGarnishmentFormula()     {}
func (FixedAmountPerPeriod) isGarnishmentFormula()    {}
func (LesserOfPercentOrAmount) isGarnishmentFormula() {}
func (LevyWithBands) isGarnishmentFormula()           {}

// ProtectedEarningsRule is one of FixedFloor or MultipleOfMinimumWage.
type ProtectedEarningsRule interface {
	isProtectedEarningsRule()
}

// FixedFloor protects a fixed amount of disposable income.
type FixedFloor struct {
	Amount money.Money
}

// MultipleOfMinimumWage protects HourlyRate x Hours x Multiplier. A nil HourlyRate
// uses the labor-standards minimum wage.
type MultipleOfMinimumWage struct {
	HourlyRate *money.Money
	Hours      decimal.Decimal
	Multiplier decimal.Decimal
}

func (FixedFloor) isProtectedEarningsRule()            {}
func (MultipleOfMinimumWage) isProtectedEarningsRule() {}

// SupportCapContext carries the facts that set the CCPA support withholding limit.
type SupportCapContext struct {
	SupportsOtherDependents bool
	ArrearsAtLeast12Weeks   bool
	StateAggregateCap       *money.Percent
}
