package domain

import (
	"fmt"

	"github.com/paycore/payroll-engine/pkg/money"
)

// TaxRule is one of FlatRateTax, BracketedIncomeTax or WageBracketTax.
type TaxRule interface {
	RuleID() string
	RuleJurisdiction() Jurisdiction
	RuleBasis() TaxBasis
	// AppliesTo reports whether the rule's filing-status restriction admits status.
	AppliesTo(status FilingStatus) bool
	isTaxRule()
}

// FlatRateTax taxes the basis at a single rate. AnnualWageCap stops taxation once
// year-to-date wages reach it (Social Security); AnnualWageThreshold starts taxation
// only above it (Additional Medicare).
type FlatRateTax struct {
	ID                  string
	Jurisdiction        Jurisdiction
	Basis               TaxBasis
	Rate                money.Percent
	AnnualWageCap       *money.Money
	AnnualWageThreshold *money.Money
}

// TaxBracket taxes the slice of income between the previous bracket's UpTo and its own.
// A nil UpTo is unbounded.
type TaxBracket struct {
	UpTo *money.Money
	Rate money.Percent
}

// BracketedIncomeTax applies marginal brackets after an optional standard deduction.
type BracketedIncomeTax struct {
	ID                    string
	Jurisdiction          Jurisdiction
	Basis                 TaxBasis
	Brackets              []TaxBracket
	StandardDeduction     *money.Money
	AdditionalWithholding *money.Money
	FilingStatus          *FilingStatus
}

// WageBracketRow maps wages up to UpTo onto a fixed tax amount.
type WageBracketRow struct {
	UpTo *money.Money
	Tax  money.Money
}

// WageBracketTax is a step-function lookup table.
type WageBracketTax struct {
	ID           string
	Jurisdiction Jurisdiction
	Basis        TaxBasis
	Rows         []WageBracketRow
	FilingStatus *FilingStatus
}

func (r FlatRateTax) RuleID() string                 { return r.ID }
func (r FlatRateTax) RuleJurisdiction() Jurisdiction { return r.Jurisdiction }
func (r FlatRateTax) RuleBasis() TaxBasis            { return r.Basis }
func (r FlatRateTax) AppliesTo(FilingStatus) bool    { return true }
func (FlatRateTax) isTaxRule()                       {}

func (r BracketedIncomeTax) RuleID() string                 { return r.ID }
func (r BracketedIncomeTax) RuleJurisdiction() Jurisdiction { return r.Jurisdiction }
func (r BracketedIncomeTax) RuleBasis() TaxBasis            { return r.Basis }
func (r BracketedIncomeTax) AppliesTo(status FilingStatus) bool {
	return r.FilingStatus == nil || *r.FilingStatus == status
}
func (BracketedIncomeTax) isTaxRule() {}

func (r WageBracketTax) RuleID() string                 { return r.ID }
func (r WageBracketTax) RuleJurisdiction() Jurisdiction { return r.Jurisdiction }
func (r WageBracketTax) RuleBasis() TaxBasis            { return r.Basis }
func (r WageBracketTax) AppliesTo(status FilingStatus) bool {
	return r.FilingStatus == nil || *r.FilingStatus == status
}
func (WageBracketTax) isTaxRule() {}

// TaxContext partitions the rules that apply to one employer as of one date.
type TaxContext struct {
	Federal          []TaxRule
	State            []TaxRule
	Local            []TaxRule
	EmployerSpecific []TaxRule
}

// EmployeeRules returns federal, state and local rules in evaluation order.
func (c TaxContext) EmployeeRules() []TaxRule {
	rules := make([]TaxRule, 0, len(c.Federal)+len(c.State)+len(c.Local))
	rules = append(rules, c.Federal...)
	rules = append(rules, c.State...)
	return append(rules, c.Local...)
}

// All returns every rule in the context.
func (c TaxContext) All() []TaxRule {
	return append(c.EmployeeRules(), c.EmployerSpecific...)
}

// Validate checks every rule in the context.
func (c TaxContext) Validate() error {
	for _, r := range c.All() {
		if err := ValidateTaxRule(r); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTaxRule enforces strictly increasing upper bounds with an unbounded final entry
// and rates within [0, 1]. A wage-bracket table may be empty; it then never matches.
func ValidateTaxRule(rule TaxRule) error {
	fail := func(format string, args ...any) error {
		return &CalculationError{
			Op:     "validate tax rule",
			RuleID: rule.RuleID(),
			Err:    fmt.Errorf("%w: %s", ErrInvalidBrackets, fmt.Sprintf(format, args...)),
		}
	}

	switch r := rule.(type) {
	case FlatRateTax:
		if err := r.Rate.Validate(); err != nil {
			return fail("%v", err)
		}
	case BracketedIncomeTax:
		if len(r.Brackets) == 0 {
			return fail("no brackets")
		}
		bounds := make([]*money.Money, len(r.Brackets))
		for i, b := range r.Brackets {
			if err := b.Rate.Validate(); err != nil {
				return fail("bracket %d: %v", i, err)
			}
			bounds[i] = b.UpTo
		}
		if err := validateBounds(bounds); err != nil {
			return fail("%v", err)
		}
	case WageBracketTax:
		if len(r.Rows) == 0 {
			return nil
		}
		bounds := make([]*money.Money, len(r.Rows))
		for i, row := range r.Rows {
			if row.Tax.IsNegative() {
				return fail("row %d: negative tax", i)
			}
			bounds[i] = row.UpTo
		}
		if err := validateBounds(bounds); err != nil {
			return fail("%v", err)
		}
	default:
		return fail("unsupported rule type %T", rule)
	}
	return nil
}

func validateBounds(bounds []*money.Money) error {
	last := len(bounds) - 1
	for i, upTo := range bounds {
		if i == last {
			if upTo != nil {
				return fmt.Errorf("last entry must be unbounded")
			}
			return nil
		}
		if upTo == nil {
			return fmt.Errorf("entry %d is unbounded but is not last", i)
		}
		if i > 0 && upTo.Cents <= bounds[i-1].Cents {
			return fmt.Errorf("entry %d upper bound %s not above %s", i, upTo, bounds[i-1])
		}
	}
	return nil
}
