package output

import (
	"bytes"
	"encoding/csv"
	"sort"

	"github.com/paycore/payroll-engine/internal/domain"
)

// CSVSummarizer writes one row per paycheck, ordered by paycheck id.
type CSVSummarizer struct{}

func (c CSVSummarizer) Name() string { return "csv" }

func (c CSVSummarizer) Format(results []*domain.PaycheckResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"PaycheckID", "PayRunID", "EmployeeID", "CheckDate", "Gross", "EmployeeTaxes", "Deductions", "Net", "EmployerTaxes", "Garnishments"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range sortedResults(results) {
		t := totalsOf(r)
		row := []string{
			r.PaycheckID,
			r.PayRunID,
			r.EmployeeID,
			checkDate(r),
			t.Gross.String(),
			t.EmployeeTaxes.String(),
			t.Deductions.String(),
			t.Net.String(),
			t.EmployerTaxes.String(),
			intToString(len(r.WithholdingEvents)),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sortedResults(results []*domain.PaycheckResult) []*domain.PaycheckResult {
	out := append([]*domain.PaycheckResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaycheckID < out[j].PaycheckID })
	return out
}
