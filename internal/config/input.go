package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paycore/payroll-engine/internal/rules"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var one = decimal.NewFromInt(1)

// InputParser handles parsing of paycheck fixtures and rule catalogs
type InputParser struct {
	validate *validator.Validate
}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// LoadFromFile loads a paycheck fixture from a YAML file. A relative catalog_file is
// resolved against the fixture's directory.
func (ip *InputParser) LoadFromFile(filename string) (*Fixture, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	fixture, err := ip.Parse(data)
	if err != nil {
		return nil, err
	}
	if fixture.CatalogFile != "" && !filepath.IsAbs(fixture.CatalogFile) {
		fixture.CatalogFile = filepath.Join(filepath.Dir(filename), fixture.CatalogFile)
	}
	return fixture, nil
}

// Parse decodes and validates fixture YAML.
func (ip *InputParser) Parse(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ip.ValidateConfiguration(&fixture); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &fixture, nil
}

// ValidateConfiguration runs the struct tag checks and then the cross-reference checks
// the tags cannot express.
func (ip *InputParser) ValidateConfiguration(f *Fixture) error {
	if err := ip.validate.Struct(f); err != nil {
		return describeValidation(err)
	}

	for i, spec := range f.TaxRules {
		if _, err := spec.ToRule(); err != nil {
			return fmt.Errorf("tax rule %d: %w", i, err)
		}
	}

	plans := make(map[string]bool, len(f.DeductionPlans))
	for _, p := range f.DeductionPlans {
		if plans[p.ID] {
			return fmt.Errorf("duplicate deduction plan %s", p.ID)
		}
		plans[p.ID] = true
		if p.EmployeeRate != nil {
			if err := p.EmployeeRate.Validate(); err != nil {
				return fmt.Errorf("deduction plan %s: %w", p.ID, err)
			}
		}
	}

	employees := make(map[string]bool, len(f.Employees))
	for i := range f.Employees {
		e := &f.Employees[i]
		if employees[e.EmployeeID] {
			return fmt.Errorf("duplicate employee %s", e.EmployeeID)
		}
		employees[e.EmployeeID] = true
		if err := ip.validateEmployee(e, plans); err != nil {
			return fmt.Errorf("employee %s validation failed: %w", e.EmployeeID, err)
		}
	}

	periods := make(map[string]bool, len(f.Periods))
	for _, p := range f.Periods {
		if periods[p.ID] {
			return fmt.Errorf("duplicate pay period %s", p.ID)
		}
		periods[p.ID] = true
		if p.Start.IsZero() || p.End.IsZero() || p.CheckDate.IsZero() {
			return fmt.Errorf("pay period %s: start, end and check_date are required", p.ID)
		}
		if p.End.Before(p.Start) {
			return fmt.Errorf("pay period %s: end %s is before start %s", p.ID, p.End.Format("2006-01-02"), p.Start.Format("2006-01-02"))
		}
	}

	paychecks := make(map[string]bool, len(f.Paychecks))
	for _, pc := range f.Paychecks {
		if paychecks[pc.PaycheckID] {
			return fmt.Errorf("duplicate paycheck %s", pc.PaycheckID)
		}
		paychecks[pc.PaycheckID] = true
		if !employees[pc.EmployeeID] {
			return fmt.Errorf("paycheck %s: unknown employee %s", pc.PaycheckID, pc.EmployeeID)
		}
		if !periods[pc.PeriodID] {
			return fmt.Errorf("paycheck %s: unknown pay period %s", pc.PaycheckID, pc.PeriodID)
		}
		if pc.Proration != nil && (pc.Proration.IsNegative() || pc.Proration.GreaterThan(one)) {
			return fmt.Errorf("paycheck %s: proration %s outside [0, 1]", pc.PaycheckID, pc.Proration)
		}
		if pc.RegularHours.IsNegative() || pc.OvertimeHours.IsNegative() {
			return fmt.Errorf("paycheck %s: hours cannot be negative", pc.PaycheckID)
		}
	}

	return nil
}

// validateEmployee validates a single employee's data
func (ip *InputParser) validateEmployee(e *EmployeeConfig, plans map[string]bool) error {
	if e.AnnualSalary != nil && !e.AnnualSalary.IsPositive() {
		return fmt.Errorf("annual salary must be positive")
	}
	if e.HourlyRate != nil && !e.HourlyRate.IsPositive() {
		return fmt.Errorf("hourly rate must be positive")
	}
	if e.HireDate != nil && e.TerminationDate != nil && e.TerminationDate.Before(*e.HireDate) {
		return fmt.Errorf("termination date cannot be before hire date")
	}
	if e.StateSupportCap != nil {
		if err := e.StateSupportCap.Validate(); err != nil {
			return fmt.Errorf("state support cap: %w", err)
		}
	}
	for _, id := range e.DeductionPlans {
		if !plans[id] {
			return fmt.Errorf("unknown deduction plan %s", id)
		}
	}

	orders := make(map[string]bool, len(e.GarnishmentOrders))
	for _, o := range e.GarnishmentOrders {
		if orders[o.OrderID] {
			return fmt.Errorf("duplicate garnishment order %s", o.OrderID)
		}
		orders[o.OrderID] = true
		if _, err := o.order(); err != nil {
			return err
		}
		if o.ArrearsBefore != nil && o.ArrearsBefore.IsNegative() {
			return fmt.Errorf("order %s: arrears cannot be negative", o.OrderID)
		}
	}
	return nil
}

// LoadTaxCatalog reads a rule catalog file and validates every rule.
func (ip *InputParser) LoadTaxCatalog(filename string) (*rules.StaticCatalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var doc rules.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := ip.validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", describeValidation(err))
	}
	catalog, err := rules.NewStaticCatalog(doc)
	if err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}
	return catalog, nil
}

// LoadTaxCatalog reads a rule catalog file with a default parser.
func LoadTaxCatalog(filename string) (*rules.StaticCatalog, error) {
	return NewInputParser().LoadTaxCatalog(filename)
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
