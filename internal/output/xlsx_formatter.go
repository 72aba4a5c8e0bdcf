package output

import (
	"bytes"
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "summary"
	linesSheet   = "lines"
)

// XLSXFormatter renders a workbook with a summary sheet (one row per paycheck) and a
// lines sheet (one row per pay stub line).
type XLSXFormatter struct{}

func (x XLSXFormatter) Name() string { return "xlsx" }

func (x XLSXFormatter) Format(results []*domain.PaycheckResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, err
	}

	summary := [][]any{{"PaycheckID", "EmployeeID", "CheckDate", "Gross", "EmployeeTaxes", "Deductions", "Net", "EmployerTaxes"}}
	lines := [][]any{{"PaycheckID", "Section", "Code", "Description", "Basis", "Amount"}}
	for _, r := range sortedResults(results) {
		t := totalsOf(r)
		summary = append(summary, []any{
			r.PaycheckID, r.EmployeeID, checkDate(r),
			amount(t.Gross), amount(t.EmployeeTaxes), amount(t.Deductions), amount(t.Net), amount(t.EmployerTaxes),
		})
		for _, item := range LineItems(r) {
			var basis any
			if item.Basis != nil {
				basis = amount(*item.Basis)
			}
			lines = append(lines, []any{r.PaycheckID, item.Section, item.Code, item.Description, basis, amount(item.Amount)})
		}
	}

	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}
	if err := writeRows(f, linesSheet, lines); err != nil {
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	if err := f.SetColStyle(summarySheet, "D:H", style); err != nil {
		return nil, err
	}
	if err := f.SetColStyle(linesSheet, "E:F", style); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// amount is the cell value for money: a float in major units.
func amount(m money.Money) float64 {
	return m.Decimal().InexactFloat64()
}
