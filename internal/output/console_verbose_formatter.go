package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/paycore/payroll-engine/internal/domain"
)

// ConsoleVerboseFormatter renders a full pay stub per paycheck followed by its
// calculation trace.
type ConsoleVerboseFormatter struct{}

func (c ConsoleVerboseFormatter) Name() string { return "console" }

var sectionTitles = map[string]string{
	SectionEarning:      "EARNINGS",
	SectionEmployeeTax:  "EMPLOYEE TAXES",
	SectionDeduction:    "DEDUCTIONS",
	SectionEmployerTax:  "EMPLOYER TAXES",
	SectionContribution: "EMPLOYER CONTRIBUTIONS",
}

func (c ConsoleVerboseFormatter) Format(results []*domain.PaycheckResult) ([]byte, error) {
	var buf bytes.Buffer
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(&buf)
		}
		writeStub(&buf, r)
	}
	return buf.Bytes(), nil
}

func writeStub(buf *bytes.Buffer, r *domain.PaycheckResult) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(buf, rule)
	fmt.Fprintf(buf, "PAY STUB %s\n", r.PaycheckID)
	fmt.Fprintln(buf, rule)
	fmt.Fprintf(buf, "Employer:  %s\n", r.EmployerID)
	fmt.Fprintf(buf, "Employee:  %s\n", r.EmployeeID)
	if r.PayRunID != "" {
		fmt.Fprintf(buf, "Pay run:   %s\n", r.PayRunID)
	}
	if !r.Period.Start.IsZero() {
		fmt.Fprintf(buf, "Period:    %s to %s (%s)\n", r.Period.Start.Format("2006-01-02"), r.Period.End.Format("2006-01-02"), r.Period.Frequency)
	}
	fmt.Fprintf(buf, "Check date: %s\n", checkDate(r))

	section := ""
	for _, item := range LineItems(r) {
		if item.Section != section {
			section = item.Section
			fmt.Fprintln(buf)
			fmt.Fprintf(buf, "%s:\n", sectionTitles[section])
		}
		label := item.Code
		if item.Description != "" {
			label = item.Code + " " + item.Description
		}
		if item.Basis != nil {
			fmt.Fprintf(buf, "  %-44s %14s  on %s\n", label, FormatCurrency(item.Amount), FormatCurrency(*item.Basis))
			continue
		}
		fmt.Fprintf(buf, "  %-44s %14s\n", label, FormatCurrency(item.Amount))
	}

	t := totalsOf(r)
	fmt.Fprintln(buf)
	fmt.Fprintln(buf, strings.Repeat("-", 72))
	fmt.Fprintf(buf, "  %-44s %14s\n", "GROSS PAY", FormatCurrency(t.Gross))
	fmt.Fprintf(buf, "  %-44s %14s\n", "EMPLOYEE TAXES", FormatCurrency(t.EmployeeTaxes))
	fmt.Fprintf(buf, "  %-44s %14s\n", "DEDUCTIONS", FormatCurrency(t.Deductions))
	fmt.Fprintf(buf, "  %-44s %14s\n", "NET PAY", FormatCurrency(t.Net))
	fmt.Fprintf(buf, "  %-44s %14s\n", "EMPLOYER TAXES", FormatCurrency(t.EmployerTaxes))

	if len(r.Trace.Steps) > 0 {
		fmt.Fprintln(buf)
		fmt.Fprintln(buf, "CALCULATION TRACE:")
		for i, step := range r.Trace.Steps {
			fmt.Fprintf(buf, "  %3d. %s\n", i+1, DescribeStep(step))
		}
	}
}

// DescribeStep renders one trace step as a single line.
func DescribeStep(step domain.TraceStep) string {
	switch s := step.(type) {
	case domain.BasisComputed:
		return fmt.Sprintf("basis %s = %s", s.Basis, FormatCurrency(s.Result))
	case domain.TaxApplied:
		out := fmt.Sprintf("tax %s (%s) on %s = %s", s.RuleID, s.Jurisdiction, FormatCurrency(s.Basis), FormatCurrency(s.Amount))
		if s.Rate != nil {
			out += " at " + FormatPercentage(*s.Rate)
		}
		if len(s.Brackets) > 0 {
			out += fmt.Sprintf(" across %d brackets", len(s.Brackets))
		}
		return out
	case domain.DeductionApplied:
		out := fmt.Sprintf("deduction %s = %s", s.Code, FormatCurrency(s.Amount))
		if s.CappedAt != nil {
			out += " capped at " + FormatCurrency(*s.CappedAt)
		}
		return out
	case domain.ProrationApplied:
		return fmt.Sprintf("proration %s fraction %s: %s of %s", s.Strategy, s.Fraction.StringFixed(4), FormatCurrency(s.AppliedAmount), FormatCurrency(s.FullAmount))
	case domain.AdditionalWithholdingApplied:
		return fmt.Sprintf("additional withholding %s = %s", s.RuleID, FormatCurrency(s.Amount))
	case domain.ProtectedEarningsApplied:
		return fmt.Sprintf("protected earnings %s floor %s: requested %s applied %s", s.OrderID, FormatCurrency(s.Floor), FormatCurrency(s.Requested), FormatCurrency(s.Applied))
	case domain.GarnishmentApplied:
		out := fmt.Sprintf("garnishment %s %s (%s): requested %s applied %s", s.OrderID, s.Type, s.Formula, FormatCurrency(s.Requested), FormatCurrency(s.Applied))
		if s.Constrained {
			out += " constrained"
		}
		return out
	case domain.DisposableIncomeComputed:
		return fmt.Sprintf("disposable income %s", FormatCurrency(s.Disposable))
	case domain.SupportCapApplied:
		return fmt.Sprintf("support cap %s of %s = %s for %s", FormatPercentage(s.Rate), FormatCurrency(s.Disposable), FormatCurrency(s.Cap), strings.Join(s.OrderIDs, ","))
	case domain.Note:
		return "note: " + s.Message
	}
	return string(step.Kind())
}
