package domain

import (
	"encoding/json"
	"fmt"

	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// TraceKind tags a TraceStep variant.
type TraceKind string

const (
	KindBasisComputed                TraceKind = "BasisComputed"
	KindTaxApplied                   TraceKind = "TaxApplied"
	KindDeductionApplied             TraceKind = "DeductionApplied"
	KindProrationApplied             TraceKind = "ProrationApplied"
	KindAdditionalWithholdingApplied TraceKind = "AdditionalWithholdingApplied"
	KindProtectedEarningsApplied     TraceKind = "ProtectedEarningsApplied"
	KindGarnishmentApplied           TraceKind = "GarnishmentApplied"
	KindDisposableIncomeComputed     TraceKind = "DisposableIncomeComputed"
	KindSupportCapApplied            TraceKind = "SupportCapApplied"
	KindNote                         TraceKind = "Note"
)

// TraceStep is one audit record. Steps are written by the calculators and never read
// back by them.
type TraceStep interface {
	Kind() TraceKind
}

type BasisComputed struct {
	Basis      TaxBasis               `json:"basis"`
	Components map[string]money.Money `json:"components"`
	Result     money.Money            `json:"result"`
}

// BracketApplication is the slice of income one bracket taxed. Amount is rounded for
// display; the rule total is rounded once from the unrounded slice amounts.
type BracketApplication struct {
	UpTo      *money.Money  `json:"up_to,omitempty"`
	Rate      money.Percent `json:"rate"`
	AppliedTo money.Money   `json:"applied_to"`
	Amount    money.Money   `json:"amount"`
}

type TaxApplied struct {
	RuleID       string               `json:"rule_id"`
	Jurisdiction Jurisdiction         `json:"jurisdiction"`
	Basis        money.Money          `json:"basis"`
	Brackets     []BracketApplication `json:"brackets,omitempty"`
	Rate         *money.Percent       `json:"rate,omitempty"`
	Amount       money.Money          `json:"amount"`
}

type DeductionApplied struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Basis       money.Money       `json:"basis"`
	Rate        *money.Percent    `json:"rate,omitempty"`
	Amount      money.Money       `json:"amount"`
	CappedAt    *money.Money      `json:"capped_at,omitempty"`
	Effects     []DeductionEffect `json:"effects"`
}

type ProrationApplied struct {
	Strategy         string          `json:"strategy"`
	ExplicitOverride bool            `json:"explicit_override"`
	Fraction         decimal.Decimal `json:"fraction"`
	FullAmount       money.Money     `json:"full_amount"`
	AppliedAmount    money.Money     `json:"applied_amount"`
}

type AdditionalWithholdingApplied struct {
	RuleID string      `json:"rule_id"`
	Amount money.Money `json:"amount"`
}

type ProtectedEarningsApplied struct {
	OrderID   string      `json:"order_id"`
	Floor     money.Money `json:"floor"`
	Requested money.Money `json:"requested"`
	Applied   money.Money `json:"applied"`
}

type GarnishmentApplied struct {
	OrderID          string          `json:"order_id"`
	Type             GarnishmentType `json:"type"`
	Formula          string          `json:"formula"`
	Requested        money.Money     `json:"requested"`
	Applied          money.Money     `json:"applied"`
	DisposableBefore money.Money     `json:"disposable_before"`
	DisposableAfter  money.Money     `json:"disposable_after"`
	Floor            money.Money     `json:"floor"`
	Constrained      bool            `json:"constrained"`
	ArrearsBefore    *money.Money    `json:"arrears_before,omitempty"`
	ArrearsAfter     *money.Money    `json:"arrears_after,omitempty"`
	AppliedToCurrent money.Money     `json:"applied_to_current"`
	AppliedToArrears money.Money     `json:"applied_to_arrears"`
}

type DisposableIncomeComputed struct {
	Gross           money.Money `json:"gross"`
	MandatoryPreTax money.Money `json:"mandatory_pre_tax"`
	EmployeeTaxes   money.Money `json:"employee_taxes"`
	Disposable      money.Money `json:"disposable"`
}

type SupportCapApplied struct {
	Rate           money.Percent `json:"rate"`
	Disposable     money.Money   `json:"disposable"`
	Cap            money.Money   `json:"cap"`
	RequestedTotal money.Money   `json:"requested_total"`
	AppliedTotal   money.Money   `json:"applied_total"`
	OrderIDs       []string      `json:"order_ids"`
}

type Note struct {
	Message string `json:"message"`
}

func (BasisComputed) Kind() TraceKind                { return KindBasisComputed }
func (TaxApplied) Kind() TraceKind                   { return KindTaxApplied }
func (DeductionApplied) Kind() TraceKind             { return KindDeductionApplied }
func (ProrationApplied) Kind() TraceKind             { return KindProrationApplied }
func (AdditionalWithholdingApplied) Kind() TraceKind { return KindAdditionalWithholdingApplied }
func (ProtectedEarningsApplied) Kind() TraceKind     { return KindProtectedEarningsApplied }
func (GarnishmentApplied) Kind() TraceKind           { return KindGarnishmentApplied }
func (DisposableIncomeComputed) Kind() TraceKind     { return KindDisposableIncomeComputed }
func (SupportCapApplied) Kind() TraceKind            { return KindSupportCapApplied }
func (Note) Kind() TraceKind                         { return KindNote }

// CalculationTrace is an append-only audit log of a paycheck calculation.
type CalculationTrace struct {
	Steps []TraceStep
}

// Add appends steps.
func (t *CalculationTrace) Add(steps ...TraceStep) {
	t.Steps = append(t.Steps, steps...)
}

// Notef appends a free-text note.
func (t *CalculationTrace) Notef(format string, args ...any) {
	t.Steps = append(t.Steps, Note{Message: fmt.Sprintf(format, args...)})
}

// OfKind returns the steps of one kind, in order.
func (t CalculationTrace) OfKind(kind TraceKind) []TraceStep {
	var out []TraceStep
	for _, s := range t.Steps {
		if s.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

// Notes returns the note messages, in order.
func (t CalculationTrace) Notes() []string {
	var out []string
	for _, s := range t.Steps {
		if n, ok := s.(Note); ok {
			out = append(out, n.Message)
		}
	}
	return out
}

// MarshalJSON emits each step as an object tagged with its kind.
func (t CalculationTrace) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(t.Steps))
	for _, s := range t.Steps {
		body, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
		kind, _ := json.Marshal(s.Kind())
		fields["kind"] = kind
		tagged, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, tagged)
	}
	return json.Marshal(out)
}
