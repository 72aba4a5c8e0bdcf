package output

import (
	"bytes"
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// ConsoleFormatter prints one summary line per paycheck and a run total.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console-lite" }

func (c ConsoleFormatter) Format(results []*domain.PaycheckResult) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "PAYCHECK SUMMARY")
	fmt.Fprintln(&buf, "================================")
	gross, net := money.Zero(), money.Zero()
	for _, r := range results {
		t := totalsOf(r)
		fmt.Fprintf(&buf, "%s %s check=%s gross=%s taxes=%s deductions=%s net=%s\n",
			r.PaycheckID,
			r.EmployeeID,
			checkDate(r),
			FormatCurrency(t.Gross),
			FormatCurrency(t.EmployeeTaxes),
			FormatCurrency(t.Deductions),
			FormatCurrency(t.Net),
		)
		gross = gross.Add(t.Gross)
		net = net.Add(t.Net)
	}
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Paychecks: %d  Gross: %s  Net: %s\n", len(results), FormatCurrency(gross), FormatCurrency(net))
	return buf.Bytes(), nil
}
