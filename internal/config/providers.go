package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
)

// ErrNotFound is returned by the fixture providers for unknown ids.
var ErrNotFound = errors.New("not found in fixture")

// FixtureProviders serves master data from a loaded Fixture through the domain provider
// interfaces.
type FixtureProviders struct {
	fixture   *Fixture
	employees map[string]EmployeeConfig
	periods   map[string]PeriodConfig
}

var (
	_ domain.EmployeeProvider         = (*FixtureProviders)(nil)
	_ domain.PayPeriodProvider        = (*FixtureProviders)(nil)
	_ domain.GarnishmentOrderProvider = (*FixtureProviders)(nil)
	_ domain.LaborStandardsProvider   = (*FixtureProviders)(nil)
)

func NewFixtureProviders(f *Fixture) *FixtureProviders {
	p := &FixtureProviders{
		fixture:   f,
		employees: make(map[string]EmployeeConfig, len(f.Employees)),
		periods:   make(map[string]PeriodConfig, len(f.Periods)),
	}
	for _, e := range f.Employees {
		p.employees[e.EmployeeID] = e
	}
	for _, per := range f.Periods {
		p.periods[per.ID] = per
	}
	return p
}

func (p *FixtureProviders) checkEmployer(employerID string) error {
	if employerID != p.fixture.EmployerID {
		return fmt.Errorf("employer %s: %w", employerID, ErrNotFound)
	}
	return nil
}

func (p *FixtureProviders) EmployeeSnapshot(ctx context.Context, employerID, employeeID string, asOf time.Time) (*domain.EmployeeSnapshot, error) {
	if err := p.checkEmployer(employerID); err != nil {
		return nil, err
	}
	e, ok := p.employees[employeeID]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}
	snap := e.snapshot(employerID)
	return &snap, nil
}

func (p *FixtureProviders) PayPeriod(ctx context.Context, employerID, periodID string) (*domain.PayPeriod, error) {
	if err := p.checkEmployer(employerID); err != nil {
		return nil, err
	}
	per, ok := p.periods[periodID]
	if !ok {
		return nil, fmt.Errorf("pay period %s: %w", periodID, ErrNotFound)
	}
	out := per.period(employerID)
	return &out, nil
}

// ActiveOrders returns the employee's orders served on or before asOf that still have
// something to collect.
func (p *FixtureProviders) ActiveOrders(ctx context.Context, employerID, employeeID string, asOf time.Time) ([]domain.GarnishmentOrder, error) {
	if err := p.checkEmployer(employerID); err != nil {
		return nil, err
	}
	e, ok := p.employees[employeeID]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}
	var out []domain.GarnishmentOrder
	for _, oc := range e.GarnishmentOrders {
		if oc.ServedDate != nil && oc.ServedDate.After(asOf) {
			continue
		}
		o, err := oc.order()
		if err != nil {
			return nil, err
		}
		if o.IsCompleted() {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// LaborStandards returns the work state's entry, the DEFAULT entry, or nil when neither
// is configured.
func (p *FixtureProviders) LaborStandards(ctx context.Context, employerID, workState string, asOf time.Time) (*domain.LaborStandards, error) {
	if err := p.checkEmployer(employerID); err != nil {
		return nil, err
	}
	for _, key := range []string{strings.ToUpper(strings.TrimSpace(workState)), "DEFAULT"} {
		for state, ls := range p.fixture.LaborStandards {
			if strings.EqualFold(state, key) {
				return &domain.LaborStandards{MinimumWage: ls.MinimumWage, OvertimeMultiplier: ls.OvertimeMultiplier}, nil
			}
		}
	}
	return nil, nil
}

// DeductionPlans returns the fixture plans an employee is enrolled in, in enrollment order.
func (p *FixtureProviders) DeductionPlans(employeeID string) ([]domain.DeductionPlan, error) {
	e, ok := p.employees[employeeID]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}
	var out []domain.DeductionPlan
	for _, id := range e.DeductionPlans {
		found := false
		for _, pc := range p.fixture.DeductionPlans {
			if pc.ID == id {
				out = append(out, pc.plan())
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("deduction plan %s for employee %s: %w", id, employeeID, ErrNotFound)
		}
	}
	return out, nil
}

// EarningDefinitions returns the employer's earning code definitions.
func (p *FixtureProviders) EarningDefinitions() []domain.EarningDefinition {
	out := make([]domain.EarningDefinition, 0, len(p.fixture.EarningDefinitions))
	for _, d := range p.fixture.EarningDefinitions {
		out = append(out, d.definition())
	}
	return out
}
