// Package rules selects the tax rules in force for a paycheck from a rule catalog and
// caches the selection per normalized query.
package rules

import (
	"fmt"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// RuleKind names the TaxRule variant a RuleSpec builds.
type RuleKind string

const (
	KindFlat        RuleKind = "FLAT"
	KindBracketed   RuleKind = "BRACKETED"
	KindWageBracket RuleKind = "WAGE_BRACKET"
)

// BracketSpec is one marginal bracket; a missing up_to is unbounded.
type BracketSpec struct {
	UpTo *money.Money  `yaml:"up_to,omitempty" json:"up_to,omitempty"`
	Rate money.Percent `yaml:"rate" json:"rate"`
}

// RowSpec is one wage-bracket table row.
type RowSpec struct {
	UpTo *money.Money `yaml:"up_to,omitempty" json:"up_to,omitempty"`
	Tax  money.Money  `yaml:"tax" json:"tax"`
}

// RuleSpec is the serialized form of a tax rule together with its selection criteria.
// The same shape is read from catalog files and written to the rule cache.
type RuleSpec struct {
	ID           string              `yaml:"id" json:"id" validate:"required"`
	Kind         RuleKind            `yaml:"kind" json:"kind" validate:"required,oneof=FLAT BRACKETED WAGE_BRACKET"`
	Jurisdiction domain.Jurisdiction `yaml:"jurisdiction" json:"jurisdiction"`
	Basis        domain.TaxBasis     `yaml:"basis" json:"basis" validate:"required"`
	// Employer rules are paid by the employer and land in TaxContext.EmployerSpecific.
	Employer      bool       `yaml:"employer,omitempty" json:"employer,omitempty"`
	Employers     []string   `yaml:"employers,omitempty" json:"employers,omitempty"`
	EffectiveFrom *time.Time `yaml:"effective_from,omitempty" json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `yaml:"effective_to,omitempty" json:"effective_to,omitempty"`

	Rate                *money.Percent `yaml:"rate,omitempty" json:"rate,omitempty"`
	AnnualWageCap       *money.Money   `yaml:"annual_wage_cap,omitempty" json:"annual_wage_cap,omitempty"`
	AnnualWageThreshold *money.Money   `yaml:"annual_wage_threshold,omitempty" json:"annual_wage_threshold,omitempty"`

	Brackets              []BracketSpec        `yaml:"brackets,omitempty" json:"brackets,omitempty"`
	StandardDeduction     *money.Money         `yaml:"standard_deduction,omitempty" json:"standard_deduction,omitempty"`
	AdditionalWithholding *money.Money         `yaml:"additional_withholding,omitempty" json:"additional_withholding,omitempty"`
	FilingStatus          *domain.FilingStatus `yaml:"filing_status,omitempty" json:"filing_status,omitempty"`

	Rows []RowSpec `yaml:"rows,omitempty" json:"rows,omitempty"`
}

// Document is a rule catalog file.
type Document struct {
	Version string     `yaml:"version" json:"version"`
	Rules   []RuleSpec `yaml:"rules" json:"rules" validate:"dive"`
}

// ToRule builds the domain rule and validates its tables.
func (s RuleSpec) ToRule() (domain.TaxRule, error) {
	var rule domain.TaxRule
	switch s.Kind {
	case KindFlat:
		if s.Rate == nil {
			return nil, fmt.Errorf("rule %s: flat rule needs a rate", s.ID)
		}
		rule = domain.FlatRateTax{
			ID:                  s.ID,
			Jurisdiction:        s.Jurisdiction,
			Basis:               s.Basis,
			Rate:                *s.Rate,
			AnnualWageCap:       s.AnnualWageCap,
			AnnualWageThreshold: s.AnnualWageThreshold,
		}
	case KindBracketed:
		brackets := make([]domain.TaxBracket, len(s.Brackets))
		for i, b := range s.Brackets {
			brackets[i] = domain.TaxBracket{UpTo: b.UpTo, Rate: b.Rate}
		}
		rule = domain.BracketedIncomeTax{
			ID:                    s.ID,
			Jurisdiction:          s.Jurisdiction,
			Basis:                 s.Basis,
			Brackets:              brackets,
			StandardDeduction:     s.StandardDeduction,
			AdditionalWithholding: s.AdditionalWithholding,
			FilingStatus:          s.FilingStatus,
		}
	case KindWageBracket:
		rows := make([]domain.WageBracketRow, len(s.Rows))
		for i, r := range s.Rows {
			rows[i] = domain.WageBracketRow{UpTo: r.UpTo, Tax: r.Tax}
		}
		rule = domain.WageBracketTax{
			ID:           s.ID,
			Jurisdiction: s.Jurisdiction,
			Basis:        s.Basis,
			Rows:         rows,
			FilingStatus: s.FilingStatus,
		}
	default:
		return nil, fmt.Errorf("rule %s: unknown kind %q", s.ID, s.Kind)
	}
	if err := domain.ValidateTaxRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// EffectiveOn reports whether the rule is in force on the date. Both bounds are inclusive.
func (s RuleSpec) EffectiveOn(asOf time.Time) bool {
	if s.EffectiveFrom != nil && asOf.Before(*s.EffectiveFrom) {
		return false
	}
	if s.EffectiveTo != nil && asOf.After(*s.EffectiveTo) {
		return false
	}
	return true
}

// BuildContext converts selected specs into a TaxContext, keeping their order within
// each partition.
func BuildContext(specs []RuleSpec) (domain.TaxContext, error) {
	var ctx domain.TaxContext
	for _, s := range specs {
		rule, err := s.ToRule()
		if err != nil {
			return domain.TaxContext{}, err
		}
		switch {
		case s.Employer:
			ctx.EmployerSpecific = append(ctx.EmployerSpecific, rule)
		case s.Jurisdiction.Type == domain.JurisdictionState:
			ctx.State = append(ctx.State, rule)
		case s.Jurisdiction.Type == domain.JurisdictionLocal:
			ctx.Local = append(ctx.Local, rule)
		case s.Jurisdiction.Type == domain.JurisdictionFederal:
			ctx.Federal = append(ctx.Federal, rule)
		default:
			ctx.EmployerSpecific = append(ctx.EmployerSpecific, rule)
		}
	}
	return ctx, nil
}
