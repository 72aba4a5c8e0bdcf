package domain

import (
	"time"

	"github.com/paycore/payroll-engine/pkg/money"
)

// LedgerStatus is the lifecycle state of an order's ledger entry.
type LedgerStatus string

const (
	LedgerActive    LedgerStatus = "ACTIVE"
	LedgerCompleted LedgerStatus = "COMPLETED"
)

// LedgerKey identifies one order's running totals.
type LedgerKey struct {
	EmployerID string `json:"employer_id"`
	EmployeeID string `json:"employee_id"`
	OrderID    string `json:"order_id"`
}

func (k LedgerKey) String() string {
	return k.EmployerID + "/" + k.EmployeeID + "/" + k.OrderID
}

// LedgerEntry holds cumulative withholding for one order. When arrears are tracked,
// RemainingArrears = InitialArrears - sum(applied to arrears), never below zero.
type LedgerEntry struct {
	LedgerKey
	TotalWithheld    money.Money  `json:"total_withheld"`
	InitialArrears   *money.Money `json:"initial_arrears,omitempty"`
	RemainingArrears *money.Money `json:"remaining_arrears,omitempty"`
	Status           LedgerStatus `json:"status"`
	LastPaycheckID   string       `json:"last_paycheck_id,omitempty"`
	LastPayRunID     string       `json:"last_pay_run_id,omitempty"`
	LastCheckDate    *time.Time   `json:"last_check_date,omitempty"`
	EventCount       int          `json:"event_count"`
}

// WithholdingEvent records one paycheck's withholding for one order. EventID is unique
// and makes application idempotent.
type WithholdingEvent struct {
	EventID          string       `json:"event_id"`
	EmployerID       string       `json:"employer_id"`
	EmployeeID       string       `json:"employee_id"`
	OrderID          string       `json:"order_id"`
	PaycheckID       string       `json:"paycheck_id"`
	PayRunID         string       `json:"pay_run_id"`
	CheckDate        time.Time    `json:"check_date"`
	Withheld         money.Money  `json:"withheld"`
	AppliedToCurrent money.Money  `json:"applied_to_current"`
	AppliedToArrears money.Money  `json:"applied_to_arrears"`
	InitialArrears   *money.Money `json:"initial_arrears,omitempty"`
	NetPay           money.Money  `json:"net_pay"`
	// LifetimeCap and ArrearsOnly tell the reconciler when the order is finished:
	// a reached cap, or a paid-off balance on an order with no current obligation.
	LifetimeCap *money.Money `json:"lifetime_cap,omitempty"`
	ArrearsOnly bool         `json:"arrears_only"`
}

// Key returns the ledger key the event applies to.
func (e WithholdingEvent) Key() LedgerKey {
	return LedgerKey{EmployerID: e.EmployerID, EmployeeID: e.EmployeeID, OrderID: e.OrderID}
}
