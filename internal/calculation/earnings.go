package calculation

import (
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	CodeRegular  = "REGULAR"
	CodeOvertime = "OVERTIME"
)

// standardWorkYearHours converts an annual salary into an hourly equivalent for
// overtime on non-exempt salaried employees.
var standardWorkYearHours = decimal.NewFromInt(2080)

// EarningsRequest is the input to EarningsCalculator.Compute.
type EarningsRequest struct {
	Employee       domain.EmployeeSnapshot
	Period         domain.PayPeriod
	TimeSlice      domain.TimeSlice
	Definitions    []domain.EarningDefinition
	LaborStandards *domain.LaborStandards
}

// EarningsComputation holds the itemized earnings. Gross is cash gross: imputed income
// is itemized but not paid.
type EarningsComputation struct {
	Lines []domain.EarningLine
	Gross money.Money
	Trace []domain.TraceStep
}

// EarningsCalculator itemizes base pay and additional earnings for a period.
type EarningsCalculator struct {
	Proration ProrationStrategy
	Logger    Logger
}

// NewEarningsCalculator uses calendar-day proration unless a strategy is given.
func NewEarningsCalculator(strategy ProrationStrategy) *EarningsCalculator {
	if strategy == nil {
		strategy = CalendarDays{}
	}
	return &EarningsCalculator{Proration: strategy, Logger: NopLogger{}}
}

// Compute itemizes the period's earnings.
func (c *EarningsCalculator) Compute(req EarningsRequest) (EarningsComputation, error) {
	var out EarningsComputation

	switch comp := req.Employee.Compensation.(type) {
	case domain.SalariedCompensation:
		lines, trace, err := c.salaried(comp, req)
		if err != nil {
			return EarningsComputation{}, err
		}
		out.Lines = append(out.Lines, lines...)
		out.Trace = append(out.Trace, trace...)
	case domain.HourlyCompensation:
		lines, trace := hourly(comp, req)
		out.Lines = append(out.Lines, lines...)
		out.Trace = append(out.Trace, trace...)
	case nil:
		return EarningsComputation{}, fmt.Errorf("%w: none given", domain.ErrUnknownCompensation)
	default:
		return EarningsComputation{}, fmt.Errorf("%w: %T", domain.ErrUnknownCompensation, comp)
	}

	defs := make(map[string]domain.EarningDefinition, len(req.Definitions))
	for _, d := range req.Definitions {
		defs[d.Code] = d
	}
	for _, in := range req.TimeSlice.OtherEarnings {
		line, ok := otherEarning(in, defs)
		if !ok {
			out.Trace = append(out.Trace, domain.Note{Message: fmt.Sprintf("earning %s has no amount or rate: skipped", in.Code)})
			continue
		}
		if _, known := defs[in.Code]; !known {
			out.Trace = append(out.Trace, domain.Note{Message: fmt.Sprintf("earning %s has no definition: treated as %s", in.Code, domain.EarningBonus)})
		}
		out.Lines = append(out.Lines, line)
	}

	out.Gross = money.Zero()
	for _, l := range out.Lines {
		if l.Category == domain.EarningImputed {
			continue
		}
		out.Gross = out.Gross.Add(l.Amount)
	}
	return out, nil
}

func (c *EarningsCalculator) salaried(comp domain.SalariedCompensation, req EarningsRequest) ([]domain.EarningLine, []domain.TraceStep, error) {
	alloc, err := NewRemainderAwareAllocation(comp.AnnualSalary, req.Period.Frequency.PeriodsPerYear())
	if err != nil {
		return nil, nil, err
	}
	full := alloc.Base()
	if seq := req.Period.SequenceInYear; seq != nil {
		if full, err = alloc.AmountForPeriod(*seq - 1); err != nil {
			return nil, nil, err
		}
	}

	proration, explicit, err := ResolveProration(c.Proration, req.Period, req.Employee.HireDate, req.Employee.TerminationDate, req.TimeSlice.Proration)
	if err != nil {
		return nil, nil, err
	}

	var trace []domain.TraceStep
	amount := full
	if proration != nil {
		amount = full.MulDecimal(proration.Fraction)
		strategy := "OVERRIDE"
		if !explicit && c.Proration != nil {
			strategy = c.Proration.Name()
		}
		trace = append(trace, domain.ProrationApplied{
			Strategy:         strategy,
			ExplicitOverride: explicit,
			Fraction:         proration.Fraction,
			FullAmount:       full,
			AppliedAmount:    amount,
		})
	}

	lines := []domain.EarningLine{{
		Code:        CodeRegular,
		Category:    domain.EarningRegular,
		Description: "Regular salary",
		Units:       decimal.NewFromInt(1),
		Amount:      amount,
	}}

	if req.TimeSlice.OvertimeHours.IsPositive() && !req.Employee.FLSAExempt {
		// Rate and amount are each rounded once from the annual salary.
		premiumCents := decimal.NewFromInt(comp.AnnualSalary.Cents).Mul(req.LaborStandards.OvertimeFactor())
		rate := money.FromCentsDecimal(premiumCents.Div(standardWorkYearHours))
		rate.Currency = comp.AnnualSalary.Currency
		amount := money.FromCentsDecimal(premiumCents.Mul(req.TimeSlice.OvertimeHours).Div(standardWorkYearHours))
		amount.Currency = comp.AnnualSalary.Currency
		lines = append(lines, domain.EarningLine{
			Code:        CodeOvertime,
			Category:    domain.EarningOvertime,
			Description: "Overtime",
			Units:       req.TimeSlice.OvertimeHours,
			Rate:        money.Ptr(rate),
			Amount:      amount,
		})
	}
	return lines, trace, nil
}

func hourly(comp domain.HourlyCompensation, req EarningsRequest) ([]domain.EarningLine, []domain.TraceStep) {
	var (
		lines []domain.EarningLine
		trace []domain.TraceStep
	)
	ts := req.TimeSlice
	if ts.RegularHours.IsPositive() {
		lines = append(lines, domain.EarningLine{
			Code:        CodeRegular,
			Category:    domain.EarningRegular,
			Description: "Regular hours",
			Units:       ts.RegularHours,
			Rate:        money.Ptr(comp.HourlyRate),
			Amount:      comp.HourlyRate.MulDecimal(ts.RegularHours),
		})
	}
	if ts.OvertimeHours.IsPositive() {
		factor := req.LaborStandards.OvertimeFactor()
		if req.Employee.FLSAExempt {
			factor = decimal.NewFromInt(1)
			trace = append(trace, domain.Note{Message: "FLSA exempt: overtime hours paid at straight time"})
		}
		rate := comp.HourlyRate.MulDecimal(factor)
		lines = append(lines, domain.EarningLine{
			Code:        CodeOvertime,
			Category:    domain.EarningOvertime,
			Description: "Overtime hours",
			Units:       ts.OvertimeHours,
			Rate:        money.Ptr(rate),
			Amount:      comp.HourlyRate.MulDecimal(ts.OvertimeHours.Mul(factor)),
		})
	}
	return lines, trace
}

// otherEarning prices an additional earning: an explicit amount wins, then the input
// rate, then the definition's default rate, each times units. Codes without a definition
// are paid as bonus.
func otherEarning(in domain.EarningInput, defs map[string]domain.EarningDefinition) (domain.EarningLine, bool) {
	def, known := defs[in.Code]
	line := domain.EarningLine{
		Code:        in.Code,
		Category:    def.Category,
		Description: def.DisplayName,
		Units:       in.Units,
	}
	if !known {
		line.Category = domain.EarningBonus
	}
	if line.Description == "" {
		line.Description = in.Code
	}

	switch {
	case in.Amount != nil:
		line.Amount = *in.Amount
	case in.Rate != nil:
		line.Rate = in.Rate
		line.Amount = in.Rate.MulDecimal(in.Units)
	case def.DefaultRate != nil:
		line.Rate = def.DefaultRate
		line.Amount = def.DefaultRate.MulDecimal(in.Units)
	default:
		return domain.EarningLine{}, false
	}
	return line, true
}
