package domain

import (
	"time"

	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// PayPeriod is an immutable schedule entry. Start and End are inclusive dates.
type PayPeriod struct {
	ID             string       `json:"id"`
	EmployerID     string       `json:"employer_id"`
	Start          time.Time    `json:"start"`
	End            time.Time    `json:"end"`
	CheckDate      time.Time    `json:"check_date"`
	Frequency      PayFrequency `json:"frequency"`
	SequenceInYear *int         `json:"sequence_in_year,omitempty"`
}

// LaborStandards are the wage-and-hour facts in force for the work location.
type LaborStandards struct {
	MinimumWage        money.Money     `json:"minimum_wage"`
	OvertimeMultiplier decimal.Decimal `json:"overtime_multiplier"`
}

var defaultOvertimeMultiplier = decimal.RequireFromString("1.5")

// OvertimeFactor returns the configured multiplier or the FLSA 1.5x default.
func (l *LaborStandards) OvertimeFactor() decimal.Decimal {
	if l == nil || !l.OvertimeMultiplier.IsPositive() {
		return defaultOvertimeMultiplier
	}
	return l.OvertimeMultiplier
}
