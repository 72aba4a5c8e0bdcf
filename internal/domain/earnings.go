package domain

import (
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// EarningLine is one itemized earning on the paycheck.
type EarningLine struct {
	Code        string          `json:"code"`
	Category    EarningCategory `json:"category"`
	Description string          `json:"description"`
	Units       decimal.Decimal `json:"units"`
	Rate        *money.Money    `json:"rate,omitempty"`
	Amount      money.Money     `json:"amount"`
}

// EarningInput is an additional earning reported for the period (bonus, commission, ...).
// Amount wins over Rate x Units when both are given.
type EarningInput struct {
	Code   string
	Units  decimal.Decimal
	Rate   *money.Money
	Amount *money.Money
}

// EarningDefinition is employer configuration for an earning code.
type EarningDefinition struct {
	Code        string
	Category    EarningCategory
	DisplayName string
	DefaultRate *money.Money
}

// Proration is a fraction in [0, 1] applied to a salaried period amount.
type Proration struct {
	Fraction decimal.Decimal
}

// TimeSlice carries the hours and extra earnings for the period.
type TimeSlice struct {
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	OtherEarnings []EarningInput
	// Proration overrides any strategy-derived fraction when set.
	Proration *Proration
}

// EmployerContributionLine is an employer-paid benefit amount (401k match, HSA seed).
type EmployerContributionLine struct {
	Code        string      `json:"code"`
	Description string      `json:"description"`
	Amount      money.Money `json:"amount"`
}
