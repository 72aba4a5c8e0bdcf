package output

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// PDFFormatter renders one A4 page per paycheck.
type PDFFormatter struct{}

func (p PDFFormatter) Name() string { return "pdf" }

func (p PDFFormatter) Format(results []*domain.PaycheckResult) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Pay Stubs", false)
	if len(results) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, "No paychecks")
	}
	for _, r := range results {
		writePDFStub(pdf, r)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePDFStub(pdf *gofpdf.Fpdf, r *domain.PaycheckResult) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Pay Stub "+r.PaycheckID)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Employer: %s", r.EmployerID))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Employee: %s", r.EmployeeID))
	pdf.Ln(6)
	if !r.Period.Start.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", r.Period.Start.Format("2006-01-02"), r.Period.End.Format("2006-01-02")))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Check date: %s", checkDate(r)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(45, 6, "Section", "1", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, "Code", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, "Basis", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 6, "Amount", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range LineItems(r) {
		basis := ""
		if item.Basis != nil {
			basis = pdfAmount(*item.Basis)
		}
		pdf.CellFormat(45, 6, item.Section, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, item.Code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, basis, "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, pdfAmount(item.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	t := totalsOf(r)
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	for _, row := range []struct {
		label  string
		amount money.Money
	}{
		{"Gross pay", t.Gross},
		{"Employee taxes", t.EmployeeTaxes},
		{"Deductions", t.Deductions},
		{"Net pay", t.Net},
	} {
		pdf.CellFormat(140, 7, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, pdfAmount(row.amount), "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}

// pdfAmount avoids currency symbols outside the core fonts' cp1252 range.
func pdfAmount(m money.Money) string {
	return groupedAmount(m.Cents) + " " + m.CurrencyCode()
}
