package output

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// HTMLFormatter produces a standalone HTML page with one pay stub per paycheck.
type HTMLFormatter struct{}

func (h HTMLFormatter) Name() string { return "html" }

//go:embed templates/paystub.html.tmpl
var htmlTemplateSource string

var htmlTemplate = template.Must(template.New("paystub").Funcs(template.FuncMap{
	"curr": func(v any) string {
		switch m := v.(type) {
		case money.Money:
			return FormatCurrency(m)
		case *money.Money:
			return FormatCurrency(*m)
		}
		return ""
	},
}).Parse(htmlTemplateSource))

type htmlStub struct {
	Result    *domain.PaycheckResult
	CheckDate string
	Items     []LineItem
	Totals    Totals
	Notes     []string
}

func (h HTMLFormatter) Format(results []*domain.PaycheckResult) ([]byte, error) {
	stubs := make([]htmlStub, 0, len(results))
	for _, r := range results {
		stubs = append(stubs, htmlStub{
			Result:    r,
			CheckDate: checkDate(r),
			Items:     LineItems(r),
			Totals:    totalsOf(r),
			Notes:     r.Trace.Notes(),
		})
	}
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, struct{ Stubs []htmlStub }{stubs}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
