package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func usd(s string) money.Money { return money.MustParse(s) }

func rate(s string) *money.Percent {
	p := money.MustPercent(s)
	return &p
}

var federal = domain.Jurisdiction{Type: domain.JurisdictionFederal, Code: "US"}

func testPeriod() domain.PayPeriod {
	return domain.PayPeriod{
		ID:        "2025-W10",
		Start:     time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		CheckDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Frequency: domain.Weekly,
	}
}

// buildTestResults returns two paychecks out of id order.
func buildTestResults() []*domain.PaycheckResult {
	salaried := &domain.PaycheckResult{
		PaycheckID: "PC-001",
		PayRunID:   "RUN-1",
		EmployerID: "ACME",
		EmployeeID: "E-100",
		Period:     testPeriod(),
		Earnings: []domain.EarningLine{
			{Code: "REG", Category: domain.EarningRegular, Description: "Regular salary", Amount: usd("1000.00")},
		},
		EmployeeTaxes: []domain.TaxLine{
			{RuleID: "US_FIT_SINGLE", Jurisdiction: federal, Description: "Federal income tax withholding", Basis: usd("950.00"), Amount: usd("82.69")},
			{RuleID: "US_FICA_SS", Jurisdiction: federal, Description: "Social Security", Basis: usd("1000.00"), Rate: rate("0.062"), Amount: usd("62.00")},
			{RuleID: "US_FICA_MEDICARE", Jurisdiction: federal, Description: "Medicare", Basis: usd("1000.00"), Rate: rate("0.0145"), Amount: usd("14.50")},
		},
		EmployerTaxes: []domain.TaxLine{
			{RuleID: "US_FUTA", Jurisdiction: federal, Description: "FUTA", Basis: usd("1000.00"), Rate: rate("0.006"), Amount: usd("6.00")},
		},
		Deductions: []domain.DeductionLine{
			{Code: "401K", Description: "401(k)", Kind: domain.DeductionPretaxRetirement, Amount: usd("50.00")},
			{Code: "GARNISHMENT", Description: "Child support", Kind: domain.DeductionGarnishment, Amount: usd("150.00"), OrderID: "CS-1"},
		},
		Gross: usd("1000.00"),
		Net:   usd("640.81"),
		WithholdingEvents: []domain.WithholdingEvent{
			{EventID: "evt-1", EmployerID: "ACME", EmployeeID: "E-100", OrderID: "CS-1", Withheld: usd("150.00")},
		},
	}
	salaried.Trace.Add(
		domain.BasisComputed{Basis: domain.BasisFederalTaxable, Result: usd("950.00")},
		domain.TaxApplied{RuleID: "US_FICA_SS", Jurisdiction: federal, Basis: usd("1000.00"), Rate: rate("0.062"), Amount: usd("62.00")},
		domain.GarnishmentApplied{OrderID: "CS-1", Type: domain.GarnishmentChildSupport, Formula: "PercentOfDisposable", Requested: usd("150.00"), Applied: usd("150.00")},
	)
	salaried.Trace.Notef("prior YTD year %d does not match check year %d", 2024, 2025)

	hourly := &domain.PaycheckResult{
		PaycheckID: "PC-000",
		PayRunID:   "RUN-1",
		EmployerID: "ACME",
		EmployeeID: "E-200",
		Period:     testPeriod(),
		Earnings: []domain.EarningLine{
			{Code: "REG", Category: domain.EarningRegular, Description: "Regular", Units: decimal.NewFromInt(40), Amount: usd("800.00")},
			{Code: "OT", Category: domain.EarningOvertime, Description: "Overtime", Units: decimal.RequireFromString("2.5"), Amount: usd("75.00")},
		},
		EmployeeTaxes: []domain.TaxLine{
			{RuleID: "US_FICA_SS", Jurisdiction: federal, Description: "Social Security", Basis: usd("875.00"), Rate: rate("0.062"), Amount: usd("54.25")},
		},
		Gross: usd("875.00"),
		Net:   usd("820.75"),
	}
	return []*domain.PaycheckResult{salaried, hourly}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t, goldie.WithFixtureDir(filepath.Join("testdata", "golden")), goldie.WithNameSuffix(".golden"))
}

func TestCSVGolden(t *testing.T) {
	tests := []struct {
		name      string
		formatter Formatter
	}{
		{"csv_summary", CSVSummarizer{}},
		{"csv_detailed", CSVDetailedExporter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.formatter.Format(buildTestResults())
			require.NoError(t, err)
			newGoldie(t).Assert(t, tt.name, out)
		})
	}
}

func TestCSVSummarizerEmpty(t *testing.T) {
	out, err := CSVSummarizer{}.Format(nil)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "PaycheckID,"))
}

func TestConsoleLiteFormatter(t *testing.T) {
	out, err := ConsoleFormatter{}.Format(buildTestResults())
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, "PAYCHECK SUMMARY")
	assert.Contains(t, content, "PC-001 E-100 check=2025-03-14 gross=$1,000.00 taxes=$159.19 deductions=$200.00 net=$640.81")
	assert.Contains(t, content, "Paychecks: 2  Gross: $1,875.00  Net: $1,461.56")
}

func TestConsoleVerboseFormatter(t *testing.T) {
	out, err := ConsoleVerboseFormatter{}.Format(buildTestResults())
	require.NoError(t, err)
	content := string(out)

	assert.Contains(t, content, "PAY STUB PC-001")
	assert.Contains(t, content, "PAY STUB PC-000")
	assert.Contains(t, content, "EMPLOYEE TAXES:")
	assert.Contains(t, content, "EMPLOYER TAXES:")
	assert.Contains(t, content, "Period:    2025-03-03 to 2025-03-09 (WEEKLY)")
	assert.Contains(t, content, "CALCULATION TRACE:")
	assert.Contains(t, content, "note: prior YTD year 2024 does not match check year 2025")
	assert.Contains(t, content, "tax US_FICA_SS (FEDERAL:US) on $1,000.00 = $62.00 at 6.20%")
	assert.Regexp(t, `NET PAY\s+\$640\.81`, content)
	assert.Less(t, strings.Index(content, "PAY STUB PC-001"), strings.Index(content, "PAY STUB PC-000"))
}

func TestDescribeStep(t *testing.T) {
	tests := []struct {
		name string
		step domain.TraceStep
		want string
	}{
		{"basis", domain.BasisComputed{Basis: domain.BasisGross, Result: usd("10.00")}, "basis Gross = $10.00"},
		{"deduction capped", domain.DeductionApplied{Code: "401K", Amount: usd("5.00"), CappedAt: money.Ptr(usd("5.00"))}, "deduction 401K = $5.00 capped at $5.00"},
		{"additional withholding", domain.AdditionalWithholdingApplied{RuleID: "FIT", Amount: usd("20.00")}, "additional withholding FIT = $20.00"},
		{"disposable", domain.DisposableIncomeComputed{Disposable: usd("700.00")}, "disposable income $700.00"},
		{"support cap", domain.SupportCapApplied{Rate: money.MustPercent("0.6"), Disposable: usd("100.00"), Cap: usd("60.00"), OrderIDs: []string{"A", "B"}}, "support cap 60.00% of $100.00 = $60.00 for A,B"},
		{"note", domain.Note{Message: "hello"}, "note: hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeStep(tt.step))
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	out, err := JSONFormatter{}.Format(buildTestResults())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "PC-001", decoded[0]["paycheck_id"])
	assert.Equal(t, "640.81", decoded[0]["net"])
	trace, ok := decoded[0]["trace"].([]any)
	require.True(t, ok)
	assert.Len(t, trace, 4)

	empty, err := JSONFormatter{}.Format(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestHTMLFormatter(t *testing.T) {
	out, err := HTMLFormatter{}.Format(buildTestResults())
	require.NoError(t, err)
	content := string(out)
	assert.True(t, strings.HasPrefix(content, "<!DOCTYPE html>"))
	assert.Contains(t, content, "Paycheck PC-001")
	assert.Contains(t, content, "$1,000.00")
	assert.Contains(t, content, `data-section="EMPLOYEE_TAX"`)
	assert.Contains(t, content, "<li>prior YTD year 2024 does not match check year 2025</li>")
	assert.Contains(t, content, "401(k)")
}

func TestXLSXFormatter(t *testing.T) {
	out, err := XLSXFormatter{}.Format(buildTestResults())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "PaycheckID", summary[0][0])
	assert.Equal(t, "PC-000", summary[1][0])
	assert.Equal(t, "PC-001", summary[2][0])
	assert.Equal(t, "2025-03-14", summary[2][2])

	lines, err := f.GetRows(linesSheet)
	require.NoError(t, err)
	assert.Len(t, lines, 11)
	assert.Equal(t, []string{"PC-001", SectionDeduction, "CS-1", "Child support"}, lines[9][:4])
}

func TestPDFFormatter(t *testing.T) {
	out, err := PDFFormatter{}.Format(buildTestResults())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	empty, err := PDFFormatter{}.Format(nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF-")))
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   money.Money
		want string
	}{
		{money.New(123456), "$1,234.56"},
		{money.New(5), "$0.05"},
		{money.New(-123456789), "-$1,234,567.89"},
		{money.NewIn(-1200, "EUR"), "-€12.00"},
		{money.NewIn(100000, "CAD"), "1,000.00 CAD"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.in))
		})
	}
	assert.Equal(t, "6.20%", FormatPercentage(money.MustPercent("0.062")))
}

func TestFormatterAliasResolution(t *testing.T) {
	tests := []struct {
		alias string
		want  string
	}{
		{"console-verbose", "console"},
		{"STUB", "console"},
		{"summary", "console-lite"},
		{"csv-detailed", "detailed-csv"},
		{"excel", "xlsx"},
		{"pdf", "pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			f := GetFormatterByName(tt.alias)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Name())
		})
	}
	assert.Nil(t, GetFormatterByName("definitely-not-a-format"))
	assert.Equal(t, "txt", Extension("verbose"))
	assert.Equal(t, "csv", Extension("csv-detailed"))
	assert.Equal(t, "xlsx", Extension("excel"))
}

func TestGenerateReport(t *testing.T) {
	dir := t.TempDir()

	files, err := GenerateReport(buildTestResults(), "csv", dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, ".csv", filepath.Ext(files[0]))
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "PaycheckID,PayRunID"))

	files, err = GenerateReport(buildTestResults(), "all", dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestUnknownFormatErrorIncludesSuggestions(t *testing.T) {
	_, err := GenerateReport(nil, "definitely-not-a-format", t.TempDir())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "Try one of:")

	err = Render(&bytes.Buffer{}, nil, "nope")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, buildTestResults(), "console-lite"))
	assert.Contains(t, buf.String(), "PAYCHECK SUMMARY")
}

func TestFormatterFunc(t *testing.T) {
	f := FormatterFunc{ID: "count", F: func(r []*domain.PaycheckResult) ([]byte, error) {
		return []byte(intToString(len(r))), nil
	}}
	out, err := f.Format(buildTestResults())
	require.NoError(t, err)
	assert.Equal(t, "2", string(out))
	assert.Equal(t, "count", f.Name())
}
