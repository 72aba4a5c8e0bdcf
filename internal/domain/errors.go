package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnknownFilingStatus = errors.New("unknown filing status")
	ErrUnknownCompensation = errors.New("unknown compensation type")
	ErrInvalidBrackets     = errors.New("invalid bracket table")
	ErrInvalidProration    = errors.New("proration fraction outside [0, 1]")
	ErrInvalidPeriods      = errors.New("invalid periods per year")
	ErrYtdYearMismatch     = errors.New("ytd year does not match check year")
	ErrMissingMinimumWage  = errors.New("minimum wage required for protected earnings")
	ErrMissingNRAEntry     = errors.New("no nonresident alien adjustment for pay frequency")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrInvalidOrder        = errors.New("invalid garnishment order")
)

// CalculationError is a fatal, paycheck-aborting failure. It names every entity involved
// so callers can route the work unit to retry or manual review.
type CalculationError struct {
	Op         string
	EmployerID string
	EmployeeID string
	PaycheckID string
	OrderID    string
	RuleID     string
	Err        error
}

func (e *CalculationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	for _, kv := range [][2]string{
		{"employer", e.EmployerID},
		{"employee", e.EmployeeID},
		{"paycheck", e.PaycheckID},
		{"order", e.OrderID},
		{"rule", e.RuleID},
	} {
		if kv[1] != "" {
			b.WriteString(" ")
			b.WriteString(kv[0])
			b.WriteString("=")
			b.WriteString(kv[1])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CalculationError) Unwrap() error { return e.Err }

// WithIdentity fills in employer/employee/paycheck ids on a CalculationError without
// overwriting ids already set deeper in the call chain. Other errors are wrapped.
func WithIdentity(err error, op, employerID, employeeID, paycheckID string) error {
	if err == nil {
		return nil
	}
	var ce *CalculationError
	if errors.As(err, &ce) {
		if ce.EmployerID == "" {
			ce.EmployerID = employerID
		}
		if ce.EmployeeID == "" {
			ce.EmployeeID = employeeID
		}
		if ce.PaycheckID == "" {
			ce.PaycheckID = paycheckID
		}
		return err
	}
	return &CalculationError{Op: op, EmployerID: employerID, EmployeeID: employeeID, PaycheckID: paycheckID, Err: err}
}
