package config

import (
	"context"
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/internal/ledger"
	"github.com/paycore/payroll-engine/internal/rules"
)

// OrderHydrator overlays persisted ledger state on an employee's orders.
// ledger.Reconciler satisfies it.
type OrderHydrator interface {
	HydrateOrders(ctx context.Context, employerID, employeeID string, orders []domain.GarnishmentOrder) ([]domain.GarnishmentOrder, error)
}

// Assembler resolves each paycheck of a fixture into a calculation input through the
// provider interfaces, the rule catalog and, when set, the garnishment ledger.
type Assembler struct {
	Employees domain.EmployeeProvider
	Periods   domain.PayPeriodProvider
	Orders    domain.GarnishmentOrderProvider
	Labor     domain.LaborStandardsProvider
	Catalog   rules.Catalog
	Hydrator  OrderHydrator

	fixture   *Fixture
	providers *FixtureProviders
}

// NewAssembler wires the fixture's own providers. Catalog defaults to the fixture's
// inline rules.
func NewAssembler(f *Fixture, catalog rules.Catalog, hydrator OrderHydrator) (*Assembler, error) {
	providers := NewFixtureProviders(f)
	if catalog == nil {
		static, err := rules.NewStaticCatalog(rules.Document{Rules: f.TaxRules})
		if err != nil {
			return nil, fmt.Errorf("failed to build inline tax rules: %w", err)
		}
		catalog = static
	}
	return &Assembler{
		Employees: providers,
		Periods:   providers,
		Orders:    providers,
		Labor:     providers,
		Catalog:   catalog,
		Hydrator:  hydrator,
		fixture:   f,
		providers: providers,
	}, nil
}

// Inputs resolves every paycheck in file order.
func (a *Assembler) Inputs(ctx context.Context) ([]domain.PaycheckInput, error) {
	out := make([]domain.PaycheckInput, 0, len(a.fixture.Paychecks))
	for _, pc := range a.fixture.Paychecks {
		in, err := a.Input(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("paycheck %s: %w", pc.PaycheckID, err)
		}
		out = append(out, in)
	}
	return out, nil
}

// Input resolves one paycheck.
func (a *Assembler) Input(ctx context.Context, pc PaycheckConfig) (domain.PaycheckInput, error) {
	employerID := a.fixture.EmployerID

	period, err := a.Periods.PayPeriod(ctx, employerID, pc.PeriodID)
	if err != nil {
		return domain.PaycheckInput{}, err
	}
	checkDate := period.CheckDate

	emp, err := a.Employees.EmployeeSnapshot(ctx, employerID, pc.EmployeeID, checkDate)
	if err != nil {
		return domain.PaycheckInput{}, err
	}

	orders, err := a.Orders.ActiveOrders(ctx, employerID, pc.EmployeeID, checkDate)
	if err != nil {
		return domain.PaycheckInput{}, err
	}
	if a.Hydrator != nil && len(orders) > 0 {
		if orders, err = a.Hydrator.HydrateOrders(ctx, employerID, pc.EmployeeID, orders); err != nil {
			return domain.PaycheckInput{}, err
		}
	}

	labor, err := a.Labor.LaborStandards(ctx, employerID, emp.WorkState, checkDate)
	if err != nil {
		return domain.PaycheckInput{}, err
	}

	taxContext, err := a.Catalog.TaxContext(ctx, rules.QueryFor(*emp, checkDate))
	if err != nil {
		return domain.PaycheckInput{}, fmt.Errorf("failed to resolve tax rules: %w", err)
	}

	plans, err := a.providers.DeductionPlans(pc.EmployeeID)
	if err != nil {
		return domain.PaycheckInput{}, err
	}

	prior, err := pc.PriorYtd.snapshot(pc.EmployeeID)
	if err != nil {
		return domain.PaycheckInput{}, err
	}

	var supportCap *domain.SupportCapContext
	if empCfg, ok := a.providers.employees[pc.EmployeeID]; ok {
		supportCap = ledger.SupportCapContext(orders, checkDate, empCfg.SupportsOtherDependents)
		supportCap.StateAggregateCap = empCfg.StateSupportCap
	}

	return domain.PaycheckInput{
		PaycheckID:            pc.PaycheckID,
		PayRunID:              pc.PayRunID,
		EmployerID:            employerID,
		EmployeeID:            pc.EmployeeID,
		Period:                *period,
		Employee:              *emp,
		TimeSlice:             pc.timeSlice(),
		TaxContext:            taxContext,
		PriorYtd:              prior,
		EarningDefinitions:    a.providers.EarningDefinitions(),
		DeductionPlans:        plans,
		GarnishmentOrders:     orders,
		LaborStandards:        labor,
		SupportCap:            supportCap,
		EmployerContributions: pc.contributions(),
	}, nil
}
