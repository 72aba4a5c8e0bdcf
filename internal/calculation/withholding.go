package calculation

import (
	"fmt"
	"strings"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// WithholdingMethod selects the federal income tax withholding computation.
type WithholdingMethod string

const (
	// MethodPercentage annualizes wages and runs the annual bracketed schedule.
	MethodPercentage WithholdingMethod = "PERCENTAGE"
	// MethodWageBracket looks the per-period wage up in a wage-bracket table.
	MethodWageBracket WithholdingMethod = "WAGE_BRACKET"
)

// ParseWithholdingMethod accepts either method name in any case; empty means percentage.
func ParseWithholdingMethod(s string) (WithholdingMethod, error) {
	switch strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))) {
	case "", string(MethodPercentage):
		return MethodPercentage, nil
	case string(MethodWageBracket):
		return MethodWageBracket, nil
	}
	return "", fmt.Errorf("unknown withholding method %q", s)
}

// IsFederalIncomeTaxRule reports rules the withholding engine owns: bracketed or
// wage-bracket rules on the federal taxable basis.
func IsFederalIncomeTaxRule(rule domain.TaxRule) bool {
	if rule.RuleBasis() != domain.BasisFederalTaxable {
		return false
	}
	switch rule.(type) {
	case domain.BracketedIncomeTax, domain.WageBracketTax:
		return true
	}
	return false
}

// WithholdingInput is one paycheck's federal withholding request.
type WithholdingInput struct {
	Employee     domain.EmployeeSnapshot
	Period       domain.PayPeriod
	FederalRules []domain.TaxRule
	Bases        map[domain.TaxBasis]money.Money
}

// WithholdingResult is the per-period federal income tax. Line is nil when nothing is withheld.
type WithholdingResult struct {
	Amount money.Money
	Line   *domain.TaxLine
	Trace  []domain.TraceStep
}

// FederalWithholdingEngine computes federal income tax withholding by either method,
// delegating the schedule evaluation to EvaluateRule.
type FederalWithholdingEngine struct {
	Method WithholdingMethod
	NRA    *NRATable
	Logger Logger
}

// NewFederalWithholdingEngine creates an engine for the method and NRA table.
func NewFederalWithholdingEngine(method WithholdingMethod, nra *NRATable) *FederalWithholdingEngine {
	return &FederalWithholdingEngine{Method: method, NRA: nra, Logger: NopLogger{}}
}

type fitTrace struct {
	steps []domain.TraceStep
}

func (t *fitTrace) note(key string, value any) {
	t.steps = append(t.steps, domain.Note{Message: fmt.Sprintf("fit_%s=%v", key, value)})
}

// Compute returns the per-period withholding. A missing rule for the filing status
// yields zero and a note.
func (e *FederalWithholdingEngine) Compute(in WithholdingInput) (WithholdingResult, error) {
	log := loggerOrNop(e.Logger)
	trace := &fitTrace{}
	profile := ProfileFor(in.Employee)

	if profile.FederalWithholdingExempt {
		trace.note("exempt", true)
		return WithholdingResult{Amount: money.Zero(), Trace: trace.steps}, nil
	}

	periods := in.Period.Frequency.PeriodsPerYear()
	if periods <= 0 {
		return WithholdingResult{}, &domain.CalculationError{
			Op:  "federal withholding",
			Err: fmt.Errorf("%w: frequency %q", domain.ErrInvalidPeriods, in.Period.Frequency),
		}
	}

	nraExtra := money.Zero()
	if profile.NonresidentAlien {
		before2020 := profile.FirstPaidBefore2020 != nil && *profile.FirstPaidBefore2020
		extra, err := e.NRA.ExtraWages(in.Period.Frequency, profile.W4Version, before2020)
		if err != nil {
			return WithholdingResult{}, &domain.CalculationError{Op: "federal withholding", Err: err}
		}
		nraExtra = extra
		trace.note("nra_extra", nraExtra)
	}

	periodBasis := in.Bases[domain.BasisFederalTaxable]
	adjusted := periodBasis.Add(nraExtra).FloorZero()
	trace.note("period_basis", adjusted)

	method := e.Method
	if method == "" {
		method = MethodPercentage
	}

	rule := selectFITRule(in.FederalRules, profile, method)
	if rule == nil {
		log.Warnf("no %s federal withholding rule for filing status %s", method, profile.FilingStatus)
		trace.steps = append(trace.steps, domain.Note{
			Message: fmt.Sprintf("no %s federal withholding rule for filing status %s (step2=%t)", method, profile.FilingStatus, profile.Step2MultipleJobs),
		})
		return WithholdingResult{Amount: money.Zero(), Trace: trace.steps}, nil
	}

	var (
		amount  money.Money
		applied domain.TaxApplied
		err     error
	)
	switch method {
	case MethodPercentage:
		amount, applied, err = percentageMethod(rule, profile, adjusted, int64(periods), trace)
	case MethodWageBracket:
		amount, applied, err = wageBracketMethod(rule, profile, adjusted, trace)
	default:
		err = fmt.Errorf("unknown withholding method %q", method)
	}
	if err != nil {
		return WithholdingResult{}, &domain.CalculationError{Op: "federal withholding", RuleID: rule.RuleID(), Err: err}
	}

	result := WithholdingResult{Amount: amount, Trace: trace.steps}
	if amount.IsPositive() {
		result.Trace = append(result.Trace, applied)
		if extra := money.ValueOrZero(profile.ExtraWithholdingPerPeriod); extra.IsPositive() {
			result.Trace = append(result.Trace, domain.AdditionalWithholdingApplied{RuleID: rule.RuleID(), Amount: extra})
		}
		result.Line = &domain.TaxLine{
			RuleID:       rule.RuleID(),
			Jurisdiction: rule.RuleJurisdiction(),
			Description:  "Federal income tax withholding",
			Basis:        periodBasis,
			Amount:       amount,
		}
	}
	return result, nil
}

// percentageMethod: annualize, adjust for Step 4, run the annual schedule, take the
// Step 3 credit, de-annualize with truncating division, add Step 4(c).
func percentageMethod(rule domain.TaxRule, p WithholdingProfile, periodBasis money.Money, periods int64, trace *fitTrace) (money.Money, domain.TaxApplied, error) {
	annual := periodBasis.MulInt(periods)
	otherIncome := money.ValueOrZero(p.Step4aOtherIncomeAnnual)
	deductions := money.ValueOrZero(p.Step4bDeductionsAnnual)
	adjustedAnnual := annual.Add(otherIncome).Sub(deductions).FloorZero()
	trace.note("annual_wages", annual)
	trace.note("step4a_other_income", otherIncome)
	trace.note("step4b_deductions", deductions)
	trace.note("adjusted_annual_wages", adjustedAnnual)

	eval, err := EvaluateRule(rule, adjustedAnnual, money.Zero())
	if err != nil {
		return money.Money{}, domain.TaxApplied{}, err
	}
	credits := money.ValueOrZero(p.Step3CreditsAnnual)
	netAnnual := eval.Amount.Sub(credits).FloorZero()
	perPeriod := netAnnual.DivInt(periods)
	extra := money.ValueOrZero(p.ExtraWithholdingPerPeriod)
	total := perPeriod.Add(extra)

	trace.note("annual_tax", eval.Amount)
	trace.note("step3_credits", credits)
	trace.note("net_annual_tax", netAnnual)
	trace.note("per_period_tax", perPeriod)
	trace.note("extra_withholding", extra)
	trace.note("total", total)

	return total, domain.TaxApplied{
		RuleID:       rule.RuleID(),
		Jurisdiction: rule.RuleJurisdiction(),
		Basis:        adjustedAnnual,
		Brackets:     eval.Brackets,
		Amount:       total,
	}, nil
}

func wageBracketMethod(rule domain.TaxRule, p WithholdingProfile, periodBasis money.Money, trace *fitTrace) (money.Money, domain.TaxApplied, error) {
	eval, err := EvaluateRule(rule, periodBasis, money.Zero())
	if err != nil {
		return money.Money{}, domain.TaxApplied{}, err
	}
	if !eval.Matched {
		trace.note("wage_bracket_row", "none")
	}
	extra := money.ValueOrZero(p.ExtraWithholdingPerPeriod)
	total := eval.Amount.FloorZero().Add(extra)

	trace.note("wage_bracket_tax", eval.Amount)
	trace.note("extra_withholding", extra)
	trace.note("total", total)

	return total, domain.TaxApplied{
		RuleID:       rule.RuleID(),
		Jurisdiction: rule.RuleJurisdiction(),
		Basis:        periodBasis,
		Amount:       total,
	}, nil
}

// selectFITRule filters candidates by method and filing status, then prefers a Step 2
// variant (id containing STEP2) when the multiple-jobs box is checked and a standard
// variant otherwise, falling back to the first match.
func selectFITRule(rules []domain.TaxRule, p WithholdingProfile, method WithholdingMethod) domain.TaxRule {
	var candidates []domain.TaxRule
	for _, r := range rules {
		if !IsFederalIncomeTaxRule(r) || !r.AppliesTo(p.FilingStatus) {
			continue
		}
		switch r.(type) {
		case domain.BracketedIncomeTax:
			if method != MethodPercentage {
				continue
			}
		case domain.WageBracketTax:
			if method != MethodWageBracket {
				continue
			}
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil
	}
	for _, r := range candidates {
		if isStep2Rule(r) == p.Step2MultipleJobs {
			return r
		}
	}
	return candidates[0]
}

func isStep2Rule(r domain.TaxRule) bool {
	return strings.Contains(strings.ToUpper(r.RuleID()), "STEP2")
}
