package calculation

import (
	"fmt"
	"math"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// TAX RULE EVALUATION
//
// Every amount is integer cents. A flat tax is rounded once; a bracketed tax sums the
// unrounded slice amounts and rounds the total; a wage-bracket table is a step function
// and never interpolates. Half cents always round up.
//
// FICA skips:
//   - FICA-exempt employees pay no Social Security or Medicare.
//   - Household and election workers pay none until year-to-date wages (prior plus this
//     period) reach the thresholds below.

var ficaThresholds = map[domain.EmploymentType]money.Money{
	domain.EmploymentHousehold:      money.FromDollars(2800),
	domain.EmploymentElectionWorker: money.FromDollars(2400),
}

// RuleEvaluation is the outcome of evaluating one rule against one basis amount.
type RuleEvaluation struct {
	Taxable  money.Money
	Amount   money.Money
	Rate     *money.Percent
	Brackets []domain.BracketApplication
	// Matched is false when a wage-bracket table had no row for the basis.
	Matched bool
}

// EvaluateRule applies a single rule to a basis amount. priorBasisYTD is the
// year-to-date amount of the same basis before this period; only flat rules with a
// wage cap or threshold read it.
func EvaluateRule(rule domain.TaxRule, basis, priorBasisYTD money.Money) (RuleEvaluation, error) {
	if err := domain.ValidateTaxRule(rule); err != nil {
		return RuleEvaluation{}, err
	}
	switch r := rule.(type) {
	case domain.FlatRateTax:
		return evaluateFlat(r, basis, priorBasisYTD), nil
	case domain.BracketedIncomeTax:
		return evaluateBracketed(r, basis), nil
	case domain.WageBracketTax:
		return evaluateWageBracket(r, basis), nil
	}
	return RuleEvaluation{}, fmt.Errorf("unsupported rule type %T", rule)
}

func evaluateFlat(r domain.FlatRateTax, basis, prior money.Money) RuleEvaluation {
	rate := r.Rate
	out := RuleEvaluation{Rate: &rate, Matched: true, Taxable: money.Zero()}

	taxable := basis
	if r.AnnualWageCap != nil {
		remaining := r.AnnualWageCap.Sub(prior)
		if !remaining.IsPositive() {
			out.Amount = money.Zero()
			return out
		}
		taxable = money.Min(taxable, remaining)
	}
	if r.AnnualWageThreshold != nil {
		excess := prior.Add(taxable).Sub(*r.AnnualWageThreshold)
		if !excess.IsPositive() {
			out.Amount = money.Zero()
			return out
		}
		taxable = money.Min(taxable, excess)
	}

	out.Taxable = taxable.FloorZero()
	out.Amount = out.Taxable.MulRate(r.Rate)
	return out
}

func evaluateBracketed(r domain.BracketedIncomeTax, basis money.Money) RuleEvaluation {
	taxable := basis
	if r.StandardDeduction != nil {
		taxable = taxable.Sub(*r.StandardDeduction)
	}
	taxable = taxable.FloorZero()

	out := RuleEvaluation{Taxable: taxable, Matched: true}
	remaining := taxable.Cents
	previous := int64(0)
	total := decimal.Zero

	for _, b := range r.Brackets {
		if remaining <= 0 {
			break
		}
		upper := int64(math.MaxInt64)
		if b.UpTo != nil {
			upper = b.UpTo.Cents
		}
		slice := min(remaining, upper-previous)
		exact := decimal.NewFromInt(slice).Mul(b.Rate.Decimal)
		total = total.Add(exact)

		out.Brackets = append(out.Brackets, domain.BracketApplication{
			UpTo:      b.UpTo,
			Rate:      b.Rate,
			AppliedTo: money.NewIn(slice, basis.Currency),
			Amount:    money.FromCentsDecimal(exact),
		})
		remaining -= slice
		previous = upper
	}

	out.Amount = money.FromCentsDecimal(total)
	out.Amount.Currency = basis.Currency
	if r.AdditionalWithholding != nil {
		out.Amount = out.Amount.Add(*r.AdditionalWithholding)
	}
	return out
}

func evaluateWageBracket(r domain.WageBracketTax, basis money.Money) RuleEvaluation {
	for _, row := range r.Rows {
		if row.UpTo == nil || basis.Cents <= row.UpTo.Cents {
			return RuleEvaluation{Taxable: basis, Amount: row.Tax, Matched: true}
		}
	}
	return RuleEvaluation{Taxable: basis, Amount: money.Zero()}
}

// TaxRequest carries one paycheck's rules, bases and prior totals.
type TaxRequest struct {
	Employee domain.EmployeeSnapshot
	Context  domain.TaxContext
	Bases    map[domain.TaxBasis]money.Money
	PriorYtd domain.YtdSnapshot
}

// TaxComputation holds the applied tax lines and their trace.
type TaxComputation struct {
	EmployeeTaxes []domain.TaxLine
	EmployerTaxes []domain.TaxLine
	Trace         []domain.TraceStep
}

// TaxesCalculator evaluates statutory tax rules against computed bases.
type TaxesCalculator struct {
	Logger Logger
}

// NewTaxesCalculator creates a calculator with a no-op logger.
func NewTaxesCalculator() *TaxesCalculator {
	return &TaxesCalculator{Logger: NopLogger{}}
}

// Compute evaluates employee rules (federal, state, local) and employer-specific rules.
// Rules whose basis is missing or whose filing status differs are skipped.
func (tc *TaxesCalculator) Compute(req TaxRequest) (TaxComputation, error) {
	var out TaxComputation
	employee, err := tc.apply(req, req.Context.EmployeeRules(), "Employee tax", &out.Trace)
	if err != nil {
		return TaxComputation{}, err
	}
	employer, err := tc.apply(req, req.Context.EmployerSpecific, "Employer tax", &out.Trace)
	if err != nil {
		return TaxComputation{}, err
	}
	out.EmployeeTaxes = employee
	out.EmployerTaxes = employer
	return out, nil
}

func (tc *TaxesCalculator) apply(req TaxRequest, rules []domain.TaxRule, prefix string, trace *[]domain.TraceStep) ([]domain.TaxLine, error) {
	log := loggerOrNop(tc.Logger)
	var lines []domain.TaxLine

	for _, rule := range rules {
		basisKind := rule.RuleBasis()
		basis, ok := req.Bases[basisKind]
		if !ok {
			log.Debugf("rule %s skipped: no %s basis", rule.RuleID(), basisKind)
			continue
		}
		if !rule.AppliesTo(req.Employee.FilingStatus) {
			log.Debugf("rule %s skipped: filing status %s", rule.RuleID(), req.Employee.FilingStatus)
			continue
		}
		if skipFICA(req.Employee, basisKind, basis, req.PriorYtd.Wages(basisKind)) {
			*trace = append(*trace, domain.Note{
				Message: fmt.Sprintf("%s skipped: FICA does not apply to %s employee", rule.RuleID(), req.Employee.EmploymentType),
			})
			continue
		}

		eval, err := EvaluateRule(rule, basis, req.PriorYtd.Wages(basisKind))
		if err != nil {
			return nil, err
		}
		if !eval.Matched {
			*trace = append(*trace, domain.Note{
				Message: fmt.Sprintf("%s: no wage-bracket row for %s", rule.RuleID(), basis),
			})
			continue
		}
		if eval.Amount.IsZero() {
			continue
		}

		jurisdiction := rule.RuleJurisdiction()
		lines = append(lines, domain.TaxLine{
			RuleID:       rule.RuleID(),
			Jurisdiction: jurisdiction,
			Description:  prefix + " " + jurisdiction.Code,
			Basis:        eval.Taxable,
			Rate:         eval.Rate,
			Amount:       eval.Amount,
		})
		*trace = append(*trace, domain.TaxApplied{
			RuleID:       rule.RuleID(),
			Jurisdiction: jurisdiction,
			Basis:        eval.Taxable,
			Brackets:     eval.Brackets,
			Rate:         eval.Rate,
			Amount:       eval.Amount,
		})
	}
	return lines, nil
}

func skipFICA(emp domain.EmployeeSnapshot, basis domain.TaxBasis, current, prior money.Money) bool {
	if !basis.IsFICA() {
		return false
	}
	if emp.FICAExempt {
		return true
	}
	threshold, ok := ficaThresholds[emp.EmploymentType]
	return ok && prior.Add(current).LessThan(threshold)
}
