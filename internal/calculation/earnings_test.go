package calculation

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlyEmployee(rate string) domain.EmployeeSnapshot {
	emp := salariedEmployee("0")
	emp.Compensation = domain.HourlyCompensation{HourlyRate: usd(rate)}
	return emp
}

func hours(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEarningsSalaried(t *testing.T) {
	calc := NewEarningsCalculator(nil)

	got, err := calc.Compute(EarningsRequest{Employee: salariedEmployee("52000"), Period: weeklyPeriod()})
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, CodeRegular, got.Lines[0].Code)
	assert.Equal(t, int64(100000), got.Gross.Cents)
	assert.Empty(t, got.Trace)

	period := weeklyPeriod()
	seq := 1
	period.SequenceInYear = &seq
	got, err = calc.Compute(EarningsRequest{Employee: salariedEmployee("52000.03"), Period: period})
	require.NoError(t, err)
	assert.Equal(t, int64(100001), got.Gross.Cents)
}

func TestEarningsSalariedProration(t *testing.T) {
	emp := salariedEmployee("52000")
	hire := time.Date(2025, time.March, 6, 0, 0, 0, 0, time.UTC)
	emp.HireDate = &hire

	got, err := NewEarningsCalculator(CalendarDays{}).Compute(EarningsRequest{Employee: emp, Period: weeklyPeriod()})
	require.NoError(t, err)
	// March 6-9 of a March 3-9 week: 4/7 of 1000
	assert.Equal(t, int64(57143), got.Gross.Cents)

	require.Len(t, got.Trace, 1)
	step, ok := got.Trace[0].(domain.ProrationApplied)
	require.True(t, ok)
	assert.Equal(t, "CALENDAR_DAYS", step.Strategy)
	assert.False(t, step.ExplicitOverride)
	assert.Equal(t, int64(100000), step.FullAmount.Cents)

	got, err = NewEarningsCalculator(CalendarDays{}).Compute(EarningsRequest{
		Employee:  emp,
		Period:    weeklyPeriod(),
		TimeSlice: domain.TimeSlice{Proration: &domain.Proration{Fraction: hours("0.5")}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.Gross.Cents)
	step = got.Trace[0].(domain.ProrationApplied)
	assert.Equal(t, "OVERRIDE", step.Strategy)
	assert.True(t, step.ExplicitOverride)
}

func TestEarningsSalariedOvertime(t *testing.T) {
	ts := domain.TimeSlice{OvertimeHours: hours("4")}

	got, err := NewEarningsCalculator(nil).Compute(EarningsRequest{Employee: salariedEmployee("52000"), Period: weeklyPeriod(), TimeSlice: ts})
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	// 52000 / 2080 = 25.00, x1.5 = 37.50, x4 = 150
	assert.Equal(t, int64(3750), got.Lines[1].Rate.Cents)
	assert.Equal(t, int64(15000), got.Lines[1].Amount.Cents)

	// 50000 x 1.5 x 3 / 2080 = 108.173..., rounded once
	got, err = NewEarningsCalculator(nil).Compute(EarningsRequest{
		Employee:  salariedEmployee("50000"),
		Period:    weeklyPeriod(),
		TimeSlice: domain.TimeSlice{OvertimeHours: hours("3")},
	})
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, int64(3606), got.Lines[1].Rate.Cents)
	assert.Equal(t, int64(10817), got.Lines[1].Amount.Cents)

	exempt := salariedEmployee("52000")
	exempt.FLSAExempt = true
	got, err = NewEarningsCalculator(nil).Compute(EarningsRequest{Employee: exempt, Period: weeklyPeriod(), TimeSlice: ts})
	require.NoError(t, err)
	assert.Len(t, got.Lines, 1)
}

func TestEarningsHourly(t *testing.T) {
	tests := []struct {
		name       string
		flsaExempt bool
		labor      *domain.LaborStandards
		wantOT     int64
		wantNotes  int
	}{
		{"default multiplier", false, nil, 9000, 0},
		{"state multiplier", false, &domain.LaborStandards{OvertimeMultiplier: hours("2")}, 12000, 0},
		{"flsa exempt straight time", true, nil, 6000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emp := hourlyEmployee("15")
			emp.FLSAExempt = tt.flsaExempt
			got, err := NewEarningsCalculator(nil).Compute(EarningsRequest{
				Employee:       emp,
				Period:         weeklyPeriod(),
				TimeSlice:      domain.TimeSlice{RegularHours: hours("40"), OvertimeHours: hours("4")},
				LaborStandards: tt.labor,
			})
			require.NoError(t, err)
			require.Len(t, got.Lines, 2)
			assert.Equal(t, int64(60000), got.Lines[0].Amount.Cents)
			assert.Equal(t, tt.wantOT, got.Lines[1].Amount.Cents)
			assert.Equal(t, 60000+tt.wantOT, got.Gross.Cents)
			assert.Len(t, got.Trace, tt.wantNotes)
		})
	}
}

func TestEarningsOtherEarnings(t *testing.T) {
	defs := []domain.EarningDefinition{
		{Code: "BONUS", Category: domain.EarningBonus, DisplayName: "Bonus"},
		{Code: "SHIFT", Category: domain.EarningRegular, DisplayName: "Shift differential", DefaultRate: usdPtr("2.50")},
		{Code: "GTL", Category: domain.EarningImputed, DisplayName: "Group term life"},
	}
	ts := domain.TimeSlice{
		RegularHours: hours("10"),
		OtherEarnings: []domain.EarningInput{
			{Code: "BONUS", Amount: usdPtr("500")},
			{Code: "SHIFT", Units: hours("8")},
			{Code: "GTL", Amount: usdPtr("12.34")},
			{Code: "STIPEND", Units: hours("2"), Rate: usdPtr("10")},
			{Code: "MYSTERY", Units: hours("3")},
		},
	}

	got, err := NewEarningsCalculator(nil).Compute(EarningsRequest{
		Employee:    hourlyEmployee("20"),
		Period:      weeklyPeriod(),
		TimeSlice:   ts,
		Definitions: defs,
	})
	require.NoError(t, err)
	require.Len(t, got.Lines, 5)

	byCode := map[string]domain.EarningLine{}
	for _, l := range got.Lines {
		byCode[l.Code] = l
	}
	assert.Equal(t, domain.EarningBonus, byCode["BONUS"].Category)
	assert.Equal(t, int64(2000), byCode["SHIFT"].Amount.Cents)
	assert.Equal(t, domain.EarningBonus, byCode["STIPEND"].Category)
	assert.Equal(t, int64(2000), byCode["STIPEND"].Amount.Cents)

	// 200 regular + 500 bonus + 20 shift + 20 stipend; imputed GTL is not paid
	assert.Equal(t, int64(74000), got.Gross.Cents)

	require.Len(t, got.Trace, 2)
	assert.Contains(t, got.Trace[0].(domain.Note).Message, "STIPEND has no definition")
	assert.Contains(t, got.Trace[1].(domain.Note).Message, "MYSTERY")
}

func TestUndefinedEarningIsTaxedAsBonus(t *testing.T) {
	ts := domain.TimeSlice{OtherEarnings: []domain.EarningInput{{Code: "SIGNON", Amount: usdPtr("500")}}}

	got, err := NewEarningsCalculator(nil).Compute(EarningsRequest{
		Employee:  salariedEmployee("52000"),
		Period:    weeklyPeriod(),
		TimeSlice: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), got.Gross.Cents)

	bases := BuildBases(BasisContext{Employee: salariedEmployee("52000"), Earnings: got.Lines})
	for _, basis := range []domain.TaxBasis{domain.BasisFederalTaxable, domain.BasisSocialSecurityWages, domain.BasisMedicareWages} {
		assert.Equal(t, int64(150000), bases.Bases[basis].Cents, string(basis))
	}
}

func TestEarningsRejectsUnknownCompensation(t *testing.T) {
	emp := salariedEmployee("1")
	emp.Compensation = nil
	_, err := NewEarningsCalculator(nil).Compute(EarningsRequest{Employee: emp, Period: weeklyPeriod()})
	assert.True(t, errors.Is(err, domain.ErrUnknownCompensation))

	period := weeklyPeriod()
	period.Frequency = "DAILY"
	_, err = NewEarningsCalculator(nil).Compute(EarningsRequest{Employee: salariedEmployee("52000"), Period: period})
	assert.True(t, errors.Is(err, domain.ErrInvalidPeriods))
}

func TestBuildBases(t *testing.T) {
	earnings := []domain.EarningLine{
		{Code: CodeRegular, Category: domain.EarningRegular, Amount: usd("1000")},
		{Code: "BONUS", Category: domain.EarningBonus, Amount: usd("200")},
		{Code: "GTL", Category: domain.EarningImputed, Amount: usd("10")},
		{Code: "MILEAGE", Category: domain.EarningReimbursement, Amount: usd("40")},
		{Code: "ODD", Category: "SIGNING_GIFT", Amount: usd("5")},
	}
	reductions := []BasisReduction{
		{Code: "401K", Amount: usd("50"), Effects: domain.DeductionPretaxRetirement.DefaultEffects()},
		{Code: "HSA", Amount: usd("20"), Effects: domain.DeductionHSA.DefaultEffects()},
	}

	got := BuildBases(BasisContext{Employee: salariedEmployee("0"), Earnings: earnings, Reductions: reductions})

	tests := []struct {
		basis domain.TaxBasis
		want  string
	}{
		{domain.BasisGross, "1245"},
		{domain.BasisFederalTaxable, "1140"},
		{domain.BasisStateTaxable, "1140"},
		{domain.BasisSocialSecurityWages, "1190"},
		{domain.BasisMedicareWages, "1190"},
		{domain.BasisSupplementalWages, "200"},
		{domain.BasisFutaWages, "1200"},
	}
	for _, tt := range tests {
		t.Run(string(tt.basis), func(t *testing.T) {
			assert.Equal(t, usd(tt.want).Cents, got.Amount(tt.basis).Cents)
		})
	}

	assert.Equal(t, int64(-5000), got.Components[domain.BasisFederalTaxable]["401K"].Cents)
	trace := domain.CalculationTrace{Steps: got.Trace}
	require.Len(t, trace.Notes(), 1)
	assert.Contains(t, trace.Notes()[0], "SIGNING_GIFT")
	assert.Len(t, trace.OfKind(domain.KindBasisComputed), len(domain.AllTaxBases))
}

func TestBuildBasesExemptionsAndFloor(t *testing.T) {
	emp := salariedEmployee("0")
	emp.FICAExempt = true
	emp.FederalWithholdingExempt = true

	got := BuildBases(BasisContext{
		Employee:   emp,
		Earnings:   []domain.EarningLine{{Code: CodeRegular, Category: domain.EarningRegular, Amount: usd("100")}},
		Reductions: []BasisReduction{{Code: "HSA", Amount: usd("150"), Effects: domain.DeductionHSA.DefaultEffects()}},
	})

	assert.True(t, got.Amount(domain.BasisSocialSecurityWages).IsZero())
	assert.True(t, got.Amount(domain.BasisMedicareWages).IsZero())
	assert.True(t, got.Amount(domain.BasisFederalTaxable).IsZero())
	assert.True(t, got.Amount(domain.BasisStateTaxable).IsZero(), "floored at zero")
	assert.Equal(t, int64(10000), got.Amount(domain.BasisGross).Cents)
	for _, b := range domain.AllTaxBases {
		assert.False(t, got.Amount(b).IsNegative(), b)
	}
}

func TestDeductionsCalculator(t *testing.T) {
	prior := domain.NewYtdSnapshot("EE-1", 2025)
	prior.DeductionsByCode["HSA"] = usd("4250")

	plans := []domain.DeductionPlan{
		{ID: "ROTH", Name: "Roth 401(k)", Kind: domain.DeductionRothRetirement, EmployeeRate: pctPtr("0.03")},
		{ID: "401K", Name: "401(k)", Kind: domain.DeductionPretaxRetirement, EmployeeRate: pctPtr("0.10"), PerPeriodCap: usdPtr("80")},
		{ID: "HSA", Name: "HSA", Kind: domain.DeductionHSA, EmployeeFlat: usdPtr("100"), AnnualCap: usdPtr("4300")},
		{ID: "PENSION", Name: "Public pension", Kind: domain.DeductionPretaxRetirement, EmployeeRate: pctPtr("0.02"), Mandatory: true},
		{ID: "CS", Name: "Support", Kind: domain.DeductionGarnishment, EmployeeFlat: usdPtr("999")},
		{ID: "GYM", Name: "Gym", Kind: domain.DeductionPosttaxVoluntary, EmployeeFlat: usdPtr("0")},
	}

	got := NewDeductionsCalculator().Compute(DeductionRequest{Plans: plans, Gross: usd("1000"), PriorYtd: prior})

	require.Len(t, got.PreTax, 3)
	assert.Equal(t, []string{"401K", "HSA", "PENSION"}, []string{got.PreTax[0].Code, got.PreTax[1].Code, got.PreTax[2].Code})
	assert.Equal(t, int64(8000), got.PreTax[0].Amount.Cents)
	assert.Equal(t, int64(5000), got.PreTax[1].Amount.Cents)
	assert.Equal(t, int64(2000), got.PreTax[2].Amount.Cents)

	require.Len(t, got.PostTax, 1)
	assert.Equal(t, "ROTH", got.PostTax[0].Code)
	assert.Equal(t, int64(3000), got.PostTax[0].Amount.Cents)

	assert.Equal(t, int64(2000), got.MandatoryPreTax.Cents)
	require.Len(t, got.Reductions, 3)

	var capped []money.Money
	for _, s := range got.Trace {
		if d, ok := s.(domain.DeductionApplied); ok && d.CappedAt != nil {
			capped = append(capped, *d.CappedAt)
		}
	}
	require.Len(t, capped, 2)
	assert.Equal(t, int64(8000), capped[0].Cents)
	assert.Equal(t, int64(430000), capped[1].Cents)
}

func TestYtdAccumulatorLeavesPriorUntouched(t *testing.T) {
	prior := domain.NewYtdSnapshot("EE-1", 2025)
	prior.EarningsByCode[CodeRegular] = usd("100")

	next := YtdAccumulator{}.Apply(prior, 2025, YtdUpdate{
		Earnings:              []domain.EarningLine{{Code: CodeRegular, Amount: usd("50")}},
		EmployerTaxes:         []domain.TaxLine{{RuleID: "US_FUTA", Amount: usd("3")}},
		Bases:                 map[domain.TaxBasis]money.Money{domain.BasisFutaWages: usd("50")},
		EmployerContributions: []domain.EmployerContributionLine{{Code: "MATCH", Amount: usd("25")}},
	})

	assert.Equal(t, int64(15000), next.EarningsByCode[CodeRegular].Cents)
	assert.Equal(t, int64(300), next.EmployerTaxesByRule["US_FUTA"].Cents)
	assert.Equal(t, int64(5000), next.Wages(domain.BasisFutaWages).Cents)
	assert.Equal(t, int64(2500), next.EmployerContributionsByCode["MATCH"].Cents)
	assert.Equal(t, int64(10000), prior.EarningsByCode[CodeRegular].Cents)
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	l.Debugf("hidden %d", 1)
	l.Infof("paycheck %s done", "PC-1")
	l.Warnf("careful")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "paycheck PC-1 done")
	assert.Contains(t, out, "level=WARN")
}
