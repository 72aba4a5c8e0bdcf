package config

import (
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
)

func (e EmployeeConfig) snapshot(employerID string) domain.EmployeeSnapshot {
	snap := domain.EmployeeSnapshot{
		EmployerID:               employerID,
		EmployeeID:               e.EmployeeID,
		HomeState:                e.HomeState,
		WorkState:                e.WorkState,
		WorkCity:                 e.WorkCity,
		FilingStatus:             e.FilingStatus,
		EmploymentType:           e.EmploymentType,
		HireDate:                 e.HireDate,
		TerminationDate:          e.TerminationDate,
		FederalWithholdingExempt: e.FederalWithholdingExempt,
		NonresidentAlien:         e.NonresidentAlien,
		FICAExempt:               e.FICAExempt,
		FLSAExempt:               e.FLSAExempt,
		W4: domain.W4Profile{
			Version:                     e.W4.Version,
			Step2MultipleJobs:           e.W4.Step2MultipleJobs,
			Step3CreditsAnnual:          e.W4.Step3CreditsAnnual,
			Step4aOtherIncomeAnnual:     e.W4.Step4aOtherIncomeAnnual,
			Step4bDeductionsAnnual:      e.W4.Step4bDeductionsAnnual,
			ExtraWithholdingPerPeriod:   e.W4.ExtraWithholdingPerPeriod,
			LegacyAllowances:            e.W4.LegacyAllowances,
			LegacyAdditionalWithholding: e.W4.LegacyAdditionalWithholding,
			EffectiveDate:               e.W4.EffectiveDate,
			FirstPaidBefore2020:         e.W4.FirstPaidBefore2020,
		},
	}
	if snap.EmploymentType == "" {
		snap.EmploymentType = domain.EmploymentRegular
	}
	if snap.W4.Version == "" {
		snap.W4.Version = domain.W4Modern
	}
	switch {
	case e.AnnualSalary != nil:
		snap.Compensation = domain.SalariedCompensation{AnnualSalary: *e.AnnualSalary}
	case e.HourlyRate != nil:
		snap.Compensation = domain.HourlyCompensation{HourlyRate: *e.HourlyRate}
	}
	return snap
}

func (p DeductionPlanConfig) plan() domain.DeductionPlan {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return domain.DeductionPlan{
		ID:              p.ID,
		Name:            name,
		Kind:            p.Kind,
		EmployeeRate:    p.EmployeeRate,
		EmployeeFlat:    p.EmployeeFlat,
		AnnualCap:       p.AnnualCap,
		PerPeriodCap:    p.PerPeriodCap,
		EmployeeEffects: p.Effects,
		Mandatory:       p.Mandatory,
	}
}

func (d EarningDefinitionConfig) definition() domain.EarningDefinition {
	return domain.EarningDefinition{
		Code:        d.Code,
		Category:    d.Category,
		DisplayName: d.DisplayName,
		DefaultRate: d.DefaultRate,
	}
}

func (p PeriodConfig) period(employerID string) domain.PayPeriod {
	return domain.PayPeriod{
		ID:             p.ID,
		EmployerID:     employerID,
		Start:          p.Start,
		End:            p.End,
		CheckDate:      p.CheckDate,
		Frequency:      p.Frequency,
		SequenceInYear: p.SequenceInYear,
	}
}

func (f FormulaConfig) formula() (domain.GarnishmentFormula, error) {
	switch f.Kind {
	case FormulaPercentOfDisposable:
		if f.Percent == nil {
			return nil, fmt.Errorf("%s formula needs percent", f.Kind)
		}
		return domain.PercentOfDisposable{Percent: *f.Percent}, nil
	case FormulaFixedAmount:
		if f.Amount == nil {
			return nil, fmt.Errorf("%s formula needs amount", f.Kind)
		}
		return domain.FixedAmountPerPeriod{Amount: *f.Amount}, nil
	case FormulaLesserOf:
		if f.Percent == nil || f.Amount == nil {
			return nil, fmt.Errorf("%s formula needs percent and amount", f.Kind)
		}
		return domain.LesserOfPercentOrAmount{Percent: *f.Percent, Amount: *f.Amount}, nil
	case FormulaLevy:
		if len(f.Bands) == 0 {
			return nil, fmt.Errorf("%s formula needs at least one band", f.Kind)
		}
		bands := make([]domain.LevyBand, len(f.Bands))
		for i, b := range f.Bands {
			bands[i] = domain.LevyBand{UpTo: b.UpTo, ExemptAmount: b.ExemptAmount, FilingStatus: b.FilingStatus}
		}
		return domain.LevyWithBands{Bands: bands, Percent: f.Percent}, nil
	}
	return nil, fmt.Errorf("unknown formula kind %q", f.Kind)
}

func (p *ProtectedEarningsConfig) rule() (domain.ProtectedEarningsRule, error) {
	if p == nil {
		return nil, nil
	}
	switch p.Kind {
	case ProtectedFixedFloor:
		if p.Amount == nil {
			return nil, fmt.Errorf("%s needs amount", p.Kind)
		}
		return domain.FixedFloor{Amount: *p.Amount}, nil
	case ProtectedMinWageMultiple:
		if !p.Hours.IsPositive() {
			return nil, fmt.Errorf("%s needs positive hours", p.Kind)
		}
		multiplier := p.Multiplier
		if multiplier.IsZero() {
			multiplier = decimal.NewFromInt(1)
		}
		return domain.MultipleOfMinimumWage{HourlyRate: p.HourlyRate, Hours: p.Hours, Multiplier: multiplier}, nil
	}
	return nil, fmt.Errorf("unknown protected earnings kind %q", p.Kind)
}

func (o OrderConfig) order() (domain.GarnishmentOrder, error) {
	formula, err := o.Formula.formula()
	if err != nil {
		return domain.GarnishmentOrder{}, fmt.Errorf("order %s: %w", o.OrderID, err)
	}
	protected, err := o.ProtectedEarnings.rule()
	if err != nil {
		return domain.GarnishmentOrder{}, fmt.Errorf("order %s: %w", o.OrderID, err)
	}
	return domain.GarnishmentOrder{
		OrderID:             o.OrderID,
		PlanID:              o.PlanID,
		Type:                o.Type,
		IssuingJurisdiction: o.IssuingJurisdiction,
		PriorityClass:       o.PriorityClass,
		SequenceWithinClass: o.SequenceWithinClass,
		Formula:             formula,
		ProtectedEarnings:   protected,
		ArrearsBefore:       o.ArrearsBefore,
		LifetimeCap:         o.LifetimeCap,
		WithheldToDate:      o.WithheldToDate,
		CurrentObligation:   o.CurrentObligation,
		ServedDate:          o.ServedDate,
	}, nil
}

func (y *YtdConfig) snapshot(employeeID string) (domain.YtdSnapshot, error) {
	if y == nil {
		return domain.YtdSnapshot{EmployeeID: employeeID}, nil
	}
	snap := domain.NewYtdSnapshot(employeeID, y.Year)
	copyAmounts(snap.EarningsByCode, y.Earnings)
	copyAmounts(snap.EmployeeTaxesByRule, y.EmployeeTaxes)
	copyAmounts(snap.EmployerTaxesByRule, y.EmployerTaxes)
	copyAmounts(snap.DeductionsByCode, y.Deductions)
	copyAmounts(snap.EmployerContributionsByCode, y.EmployerContributions)
	for name, amount := range y.Wages {
		basis, err := domain.ParseTaxBasis(name)
		if err != nil {
			return domain.YtdSnapshot{}, fmt.Errorf("prior ytd wages: %w", err)
		}
		snap.WagesByBasis[basis] = amount
	}
	return snap, nil
}

func copyAmounts(dst, src map[string]money.Money) {
	for k, v := range src {
		dst[k] = v
	}
}

func (pc PaycheckConfig) timeSlice() domain.TimeSlice {
	ts := domain.TimeSlice{
		RegularHours:  pc.RegularHours,
		OvertimeHours: pc.OvertimeHours,
	}
	for _, e := range pc.OtherEarnings {
		ts.OtherEarnings = append(ts.OtherEarnings, domain.EarningInput{Code: e.Code, Units: e.Units, Rate: e.Rate, Amount: e.Amount})
	}
	if pc.Proration != nil {
		ts.Proration = &domain.Proration{Fraction: *pc.Proration}
	}
	return ts
}

func (pc PaycheckConfig) contributions() []domain.EmployerContributionLine {
	var out []domain.EmployerContributionLine
	for _, c := range pc.EmployerContributions {
		desc := c.Description
		if desc == "" {
			desc = c.Code
		}
		out = append(out, domain.EmployerContributionLine{Code: c.Code, Description: desc, Amount: c.Amount})
	}
	return out
}
