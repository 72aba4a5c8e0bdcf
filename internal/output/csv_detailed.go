package output

import (
	"bytes"
	"encoding/csv"

	"github.com/paycore/payroll-engine/internal/domain"
)

// CSVDetailedExporter writes every pay stub line, one row per line item.
type CSVDetailedExporter struct{}

func (c CSVDetailedExporter) Name() string { return "detailed-csv" }

func (c CSVDetailedExporter) Format(results []*domain.PaycheckResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"PaycheckID", "EmployeeID", "Section", "Code", "Description", "Basis", "Rate", "Amount"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range sortedResults(results) {
		for _, item := range LineItems(r) {
			basis, rate := "", ""
			if item.Basis != nil {
				basis = item.Basis.String()
			}
			if item.Rate != nil {
				rate = item.Rate.Decimal.String()
			}
			row := []string{r.PaycheckID, r.EmployeeID, item.Section, item.Code, item.Description, basis, rate, item.Amount.String()}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
