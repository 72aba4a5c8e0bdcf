package domain

import (
	"context"
	"time"
)

// The calculation core consumes master data only through these as-of-date scoped,
// read-only providers.

type EmployeeProvider interface {
	EmployeeSnapshot(ctx context.Context, employerID, employeeID string, asOf time.Time) (*EmployeeSnapshot, error)
}

type PayPeriodProvider interface {
	PayPeriod(ctx context.Context, employerID, periodID string) (*PayPeriod, error)
}

type GarnishmentOrderProvider interface {
	ActiveOrders(ctx context.Context, employerID, employeeID string, asOf time.Time) ([]GarnishmentOrder, error)
}

type LaborStandardsProvider interface {
	LaborStandards(ctx context.Context, employerID, workState string, asOf time.Time) (*LaborStandards, error)
}
