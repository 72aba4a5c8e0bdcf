package calculation

import (
	"context"
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"golang.org/x/sync/errgroup"
)

// CalculationEngine assembles a paycheck from the individual calculators. It holds no
// per-paycheck state and is safe for concurrent use.
type CalculationEngine struct {
	Earnings     *EarningsCalculator
	Deductions   *DeductionsCalculator
	Taxes        *TaxesCalculator
	Withholding  *FederalWithholdingEngine
	Garnishments *GarnishmentEngine
	Ytd          YtdAccumulator
	// StrictYtdYear turns a prior snapshot from another tax year into a fatal error.
	StrictYtdYear bool
	Logger        Logger
}

// NewCalculationEngine creates an engine with default calculators.
func NewCalculationEngine(method WithholdingMethod, nra *NRATable) *CalculationEngine {
	return &CalculationEngine{
		Earnings:     NewEarningsCalculator(CalendarDays{}),
		Deductions:   NewDeductionsCalculator(),
		Taxes:        NewTaxesCalculator(),
		Withholding:  NewFederalWithholdingEngine(method, nra),
		Garnishments: NewGarnishmentEngine(),
		Logger:       NopLogger{},
	}
}

// SetLogger sets the logger for the engine and its calculators. If nil is provided, a
// no-op logger is used.
func (ce *CalculationEngine) SetLogger(l Logger) {
	l = loggerOrNop(l)
	ce.Logger = l
	ce.Earnings.Logger = l
	ce.Deductions.Logger = l
	ce.Taxes.Logger = l
	ce.Withholding.Logger = l
	ce.Garnishments.Logger = l
}

// CalculatePaycheck computes one paycheck. Errors are *domain.CalculationError values
// naming the employer, employee and paycheck.
func (ce *CalculationEngine) CalculatePaycheck(in domain.PaycheckInput) (*domain.PaycheckResult, error) {
	res, err := ce.calculate(in)
	if err != nil {
		ce.Logger.Errorf("paycheck %s for employee %s failed: %v", in.PaycheckID, in.EmployeeID, err)
		return nil, domain.WithIdentity(err, "calculate paycheck", in.EmployerID, in.EmployeeID, in.PaycheckID)
	}
	return res, nil
}

func (ce *CalculationEngine) calculate(in domain.PaycheckInput) (*domain.PaycheckResult, error) {
	var trace domain.CalculationTrace
	emp := in.Employee

	if _, err := domain.ParseFilingStatus(string(emp.FilingStatus)); err != nil {
		return nil, err
	}
	if err := in.TaxContext.Validate(); err != nil {
		return nil, err
	}
	if err := checkPaycheckCurrency(in); err != nil {
		return nil, err
	}

	year := in.Period.CheckDate.Year()
	if in.PriorYtd.Year != 0 && in.PriorYtd.Year != year {
		if ce.StrictYtdYear {
			return nil, fmt.Errorf("%w: prior %d, check date %d", domain.ErrYtdYearMismatch, in.PriorYtd.Year, year)
		}
		trace.Notef("prior YTD year %d does not match check year %d", in.PriorYtd.Year, year)
	}

	earnings, err := ce.Earnings.Compute(EarningsRequest{
		Employee:       emp,
		Period:         in.Period,
		TimeSlice:      in.TimeSlice,
		Definitions:    in.EarningDefinitions,
		LaborStandards: in.LaborStandards,
	})
	if err != nil {
		return nil, err
	}
	trace.Add(earnings.Trace...)

	deductions := ce.Deductions.Compute(DeductionRequest{
		Plans:    in.DeductionPlans,
		Gross:    earnings.Gross,
		PriorYtd: in.PriorYtd,
	})
	trace.Add(deductions.Trace...)

	bases := BuildBases(BasisContext{
		Employee:   emp,
		Earnings:   earnings.Lines,
		Reductions: deductions.Reductions,
	})
	trace.Add(bases.Trace...)

	fitRules, statutory := splitFederalIncomeTax(in.TaxContext)
	fit, err := ce.Withholding.Compute(WithholdingInput{
		Employee:     emp,
		Period:       in.Period,
		FederalRules: fitRules,
		Bases:        bases.Bases,
	})
	if err != nil {
		return nil, err
	}
	trace.Add(fit.Trace...)

	taxes, err := ce.Taxes.Compute(TaxRequest{
		Employee: emp,
		Context:  statutory,
		Bases:    bases.Bases,
		PriorYtd: in.PriorYtd,
	})
	if err != nil {
		return nil, err
	}
	trace.Add(taxes.Trace...)

	employeeTaxes := taxes.EmployeeTaxes
	if fit.Line != nil {
		employeeTaxes = append([]domain.TaxLine{*fit.Line}, employeeTaxes...)
	}
	totalEmployeeTaxes := money.Zero()
	for _, t := range employeeTaxes {
		totalEmployeeTaxes = totalEmployeeTaxes.Add(t.Amount)
	}

	garnishments, err := ce.Garnishments.Compute(GarnishmentRequest{
		EmployerID:      in.EmployerID,
		EmployeeID:      in.EmployeeID,
		PaycheckID:      in.PaycheckID,
		PayRunID:        in.PayRunID,
		CheckDate:       in.Period.CheckDate,
		FilingStatus:    emp.FilingStatus,
		Gross:           earnings.Gross,
		MandatoryPreTax: deductions.MandatoryPreTax,
		EmployeeTaxes:   totalEmployeeTaxes,
		Orders:          in.GarnishmentOrders,
		LaborStandards:  in.LaborStandards,
		SupportCap:      in.SupportCap,
	})
	if err != nil {
		return nil, err
	}
	trace.Add(garnishments.Trace...)

	allDeductions := make([]domain.DeductionLine, 0, len(deductions.PreTax)+len(deductions.PostTax)+len(garnishments.Lines))
	allDeductions = append(allDeductions, deductions.PreTax...)
	allDeductions = append(allDeductions, deductions.PostTax...)
	allDeductions = append(allDeductions, garnishments.Lines...)

	result := &domain.PaycheckResult{
		PaycheckID:            in.PaycheckID,
		PayRunID:              in.PayRunID,
		EmployerID:            in.EmployerID,
		EmployeeID:            in.EmployeeID,
		Period:                in.Period,
		Earnings:              earnings.Lines,
		EmployeeTaxes:         employeeTaxes,
		EmployerTaxes:         taxes.EmployerTaxes,
		Deductions:            allDeductions,
		EmployerContributions: in.EmployerContributions,
		Gross:                 earnings.Gross,
	}
	result.Net = result.Gross.Sub(result.TotalEmployeeTaxes()).Sub(result.TotalDeductions())
	if result.Net.IsNegative() {
		trace.Notef("net pay is negative: %s", result.Net)
	}

	for i := range garnishments.Events {
		garnishments.Events[i].NetPay = result.Net
	}
	result.WithholdingEvents = garnishments.Events

	prior := in.PriorYtd
	if prior.EmployeeID == "" {
		prior.EmployeeID = in.EmployeeID
	}
	result.YtdAfter = ce.Ytd.Apply(prior, year, YtdUpdate{
		Earnings:              earnings.Lines,
		EmployeeTaxes:         employeeTaxes,
		EmployerTaxes:         taxes.EmployerTaxes,
		Deductions:            allDeductions,
		Bases:                 bases.Bases,
		EmployerContributions: in.EmployerContributions,
	})
	result.Trace = trace

	ce.Logger.Debugf("paycheck %s: gross=%s net=%s taxes=%s", in.PaycheckID, result.Gross, result.Net, totalEmployeeTaxes)
	return result, nil
}

// splitFederalIncomeTax separates the federal income tax rules owned by the withholding
// engine from every other rule.
func splitFederalIncomeTax(ctx domain.TaxContext) ([]domain.TaxRule, domain.TaxContext) {
	var fit []domain.TaxRule
	rest := ctx
	rest.Federal = nil
	for _, r := range ctx.Federal {
		if IsFederalIncomeTaxRule(r) {
			fit = append(fit, r)
			continue
		}
		rest.Federal = append(rest.Federal, r)
	}
	return fit, rest
}

// CalculateBatch computes paychecks concurrently with at most workers in flight.
// Results keep input order; the first error cancels the paychecks not yet started.
func (ce *CalculationEngine) CalculateBatch(ctx context.Context, inputs []domain.PaycheckInput, workers int) ([]*domain.PaycheckResult, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*domain.PaycheckResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := ce.CalculatePaycheck(inputs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
