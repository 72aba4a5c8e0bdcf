package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInputParser(t *testing.T) {
	parser := NewInputParser()
	assert.NotNil(t, parser)
	assert.NotNil(t, parser.validate)
}

func TestLoadFromFile_Success(t *testing.T) {
	parser := NewInputParser()
	fixture, err := parser.LoadFromFile(filepath.Join("testdata", "paycheck.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ACME", fixture.EmployerID)
	assert.Equal(t, filepath.Join("testdata", "catalog.yaml"), fixture.CatalogFile)
	require.Len(t, fixture.Employees, 2)
	require.Len(t, fixture.Periods, 1)
	require.Len(t, fixture.Paychecks, 2)

	salaried := fixture.Employees[0]
	assert.Equal(t, "E-100", salaried.EmployeeID)
	assert.Equal(t, domain.FilingSingle, salaried.FilingStatus)
	require.NotNil(t, salaried.AnnualSalary)
	assert.Equal(t, int64(5200000), salaried.AnnualSalary.Cents)
	assert.Equal(t, []string{"401K", "MEDICAL"}, salaried.DeductionPlans)
	require.Len(t, salaried.GarnishmentOrders, 3)
	assert.Equal(t, FormulaPercentOfDisposable, salaried.GarnishmentOrders[0].Formula.Kind)

	hourly := fixture.Employees[1]
	require.NotNil(t, hourly.HourlyRate)
	assert.Equal(t, int64(2000), hourly.HourlyRate.Cents)

	period := fixture.Periods[0]
	assert.Equal(t, domain.Weekly, period.Frequency)
	assert.Equal(t, "2025-03-14", period.CheckDate.Format("2006-01-02"))

	pc := fixture.Paychecks[1]
	assert.Equal(t, "40", pc.RegularHours.String())
	assert.Equal(t, "2.5", pc.OvertimeHours.String())
	require.Len(t, pc.OtherEarnings, 1)
	assert.Equal(t, "BONUS", pc.OtherEarnings[0].Code)
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.LoadFromFile("nonexistent.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("employer_id: [unclosed\n"), 0o600))

	_, err := NewInputParser().LoadFromFile(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

const minimalFixture = `
employer_id: ACME
employees:
  - employee_id: E-1
    filing_status: SINGLE
    annual_salary: "52000"
periods:
  - id: P1
    start: 2025-03-03
    end: 2025-03-09
    check_date: 2025-03-14
    frequency: WEEKLY
paychecks:
  - paycheck_id: PC-1
    employee_id: E-1
    period_id: P1
`

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "minimal fixture is valid",
			yaml: minimalFixture,
		},
		{
			name: "missing employer",
			yaml: `
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "1"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "Fixture.EmployerID failed required",
		},
		{
			name: "missing employee id",
			yaml: `
employer_id: ACME
employees: [{filing_status: SINGLE, annual_salary: "1"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "EmployeeID failed required",
		},
		{
			name: "salary and hourly rate together",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "1", hourly_rate: "20"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "AnnualSalary failed excluded_with=HourlyRate",
		},
		{
			name: "no compensation",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: SINGLE}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "required_without",
		},
		{
			name: "unknown deduction plan",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "1", deduction_plans: [DENTAL]}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "unknown deduction plan DENTAL",
		},
		{
			name: "negative salary",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "-5"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "annual salary must be positive",
		},
		{
			name: "duplicate employee",
			yaml: `
employer_id: ACME
employees:
  - {employee_id: E-1, filing_status: SINGLE, annual_salary: "1"}
  - {employee_id: E-1, filing_status: SINGLE, annual_salary: "1"}
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "duplicate employee E-1",
		},
		{
			name: "period ends before it starts",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "1"}]
periods: [{id: P1, start: 2025-03-09, end: 2025-03-03, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "pay period P1: end 2025-03-03 is before start 2025-03-09",
		},
		{
			name: "unknown period",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "1"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P2}]
`,
			wantErr: "paycheck PC-1: unknown pay period P2",
		},
		{
			name: "proration above one",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "1"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1, proration: "1.2"}]
`,
			wantErr: "proration 1.2 outside [0, 1]",
		},
		{
			name: "garnishment formula missing percent",
			yaml: `
employer_id: ACME
employees:
  - employee_id: E-1
    filing_status: SINGLE
    annual_salary: "1"
    garnishment_orders:
      - {order_id: CS-1, type: CHILD_SUPPORT, priority_class: 1, formula: {kind: PERCENT_OF_DISPOSABLE}}
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "order CS-1: PERCENT_OF_DISPOSABLE formula needs percent",
		},
		{
			name: "inline rule with inverted brackets",
			yaml: `
employer_id: ACME
tax_rules:
  - id: BAD
    kind: BRACKETED
    jurisdiction: {type: FEDERAL, code: US}
    basis: FederalTaxable
    brackets:
      - {up_to: "2000", rate: "0.1"}
      - {up_to: "1000", rate: "0.2"}
employees: [{employee_id: E-1, filing_status: SINGLE, annual_salary: "1"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "tax rule 0",
		},
		{
			name: "unknown filing status",
			yaml: `
employer_id: ACME
employees: [{employee_id: E-1, filing_status: WIDOWED, annual_salary: "1"}]
periods: [{id: P1, start: 2025-03-03, end: 2025-03-09, check_date: 2025-03-14, frequency: WEEKLY}]
paychecks: [{paycheck_id: PC-1, employee_id: E-1, period_id: P1}]
`,
			wantErr: "failed to parse YAML",
		},
	}

	parser := NewInputParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture, err := parser.Parse([]byte(tt.yaml))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotNil(t, fixture)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadTaxCatalog(t *testing.T) {
	catalog, err := LoadTaxCatalog(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "2025.1", catalog.Version())

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTaxCatalog(filepath.Join("testdata", "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("rule without kind", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		body := "rules:\n  - id: X\n    basis: Gross\n    rate: \"0.01\"\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		_, err := LoadTaxCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog validation failed")
		assert.Contains(t, err.Error(), "Kind failed required")
	})

	t.Run("flat rule without rate", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		body := "rules:\n  - id: X\n    kind: FLAT\n    basis: Gross\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		_, err := LoadTaxCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "flat rule needs a rate")
	})
}
