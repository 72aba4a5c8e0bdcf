package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFilingStatus(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    FilingStatus
		wantErr bool
	}{
		{name: "canonical", in: "SINGLE", want: FilingSingle},
		{name: "lower case", in: "married", want: FilingMarried},
		{name: "spaces", in: "head of household", want: FilingHeadOfHousehold},
		{name: "unknown", in: "WIDOWED", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilingStatus(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFilingStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnumsDecodeFromYAML(t *testing.T) {
	var doc struct {
		Status    FilingStatus    `yaml:"status"`
		Frequency PayFrequency    `yaml:"frequency"`
		Basis     TaxBasis        `yaml:"basis"`
		Category  EarningCategory `yaml:"category"`
	}
	err := yaml.Unmarshal([]byte("status: married\nfrequency: semi-monthly\nbasis: federal_taxable\ncategory: stock grant\n"), &doc)
	require.NoError(t, err)
	assert.Equal(t, FilingMarried, doc.Status)
	assert.Equal(t, SemiMonthly, doc.Frequency)
	assert.Equal(t, 24, doc.Frequency.PeriodsPerYear())
	assert.Equal(t, BasisFederalTaxable, doc.Basis)
	assert.Equal(t, EarningCategory("STOCK_GRANT"), doc.Category)

	err = yaml.Unmarshal([]byte("status: widowed\n"), &doc)
	assert.Error(t, err)
}

func TestPeriodsPerYear(t *testing.T) {
	expected := map[PayFrequency]int{
		Weekly: 52, Biweekly: 26, FourWeekly: 13, SemiMonthly: 24, Monthly: 12, Quarterly: 4, Annual: 1,
	}
	for freq, n := range expected {
		assert.Equal(t, n, freq.PeriodsPerYear(), string(freq))
	}
	assert.Equal(t, 0, PayFrequency("DAILY").PeriodsPerYear())
}

func TestDeductionDefaultEffects(t *testing.T) {
	assert.ElementsMatch(t, []DeductionEffect{ReducesFederalTaxable, ReducesStateTaxable}, DeductionPretaxRetirement.DefaultEffects())
	assert.Len(t, DeductionHSA.DefaultEffects(), 4)
	assert.Equal(t, []DeductionEffect{NoTaxEffect}, DeductionRothRetirement.DefaultEffects())

	plan := DeductionPlan{Kind: DeductionHSA, EmployeeEffects: []DeductionEffect{ReducesFederalTaxable}}
	assert.Equal(t, []DeductionEffect{ReducesFederalTaxable}, plan.Effects())
}

func TestValidateTaxRule(t *testing.T) {
	m := func(s string) *money.Money {
		v := money.MustParse(s)
		return &v
	}
	rate := money.MustPercent("0.10")

	tests := []struct {
		name    string
		rule    TaxRule
		wantErr bool
	}{
		{
			name: "valid brackets",
			rule: BracketedIncomeTax{ID: "FED", Brackets: []TaxBracket{{UpTo: m("1000"), Rate: rate}, {Rate: rate}}},
		},
		{
			name:    "non increasing bounds",
			rule:    BracketedIncomeTax{ID: "FED", Brackets: []TaxBracket{{UpTo: m("1000"), Rate: rate}, {UpTo: m("1000"), Rate: rate}, {Rate: rate}}},
			wantErr: true,
		},
		{
			name:    "last bracket bounded",
			rule:    BracketedIncomeTax{ID: "FED", Brackets: []TaxBracket{{UpTo: m("1000"), Rate: rate}}},
			wantErr: true,
		},
		{
			name:    "empty brackets",
			rule:    BracketedIncomeTax{ID: "FED"},
			wantErr: true,
		},
		{
			name: "empty wage bracket table is allowed",
			rule: WageBracketTax{ID: "WB"},
		},
		{
			name:    "unbounded row in the middle",
			rule:    WageBracketTax{ID: "WB", Rows: []WageBracketRow{{Tax: money.New(100)}, {UpTo: m("10"), Tax: money.New(200)}}},
			wantErr: true,
		},
		{
			name:    "flat rate above one",
			rule:    FlatRateTax{ID: "BAD", Rate: money.MustPercent("1.2")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTaxRule(tt.rule)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBrackets))
			var ce *CalculationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.rule.RuleID(), ce.RuleID)
		})
	}
}

func TestRuleFilingStatusFilter(t *testing.T) {
	married := FilingMarried
	rule := BracketedIncomeTax{ID: "FED_MFJ", FilingStatus: &married}
	assert.True(t, rule.AppliesTo(FilingMarried))
	assert.False(t, rule.AppliesTo(FilingSingle))
	assert.True(t, WageBracketTax{ID: "ANY"}.AppliesTo(FilingSingle))
}

func TestGarnishmentOrderCompletion(t *testing.T) {
	zero := money.Zero()
	owed := money.MustParse("50")
	lifetime := money.MustParse("1000")

	tests := []struct {
		name  string
		order GarnishmentOrder
		want  bool
	}{
		{name: "no arrears tracking", order: GarnishmentOrder{OrderID: "A"}, want: false},
		{name: "arrears paid off", order: GarnishmentOrder{OrderID: "B", ArrearsBefore: &zero}, want: true},
		{name: "arrears outstanding", order: GarnishmentOrder{OrderID: "C", ArrearsBefore: &owed}, want: false},
		{name: "current support continues", order: GarnishmentOrder{OrderID: "D", ArrearsBefore: &zero, CurrentObligation: &owed}, want: false},
		{name: "lifetime cap reached", order: GarnishmentOrder{OrderID: "E", LifetimeCap: &lifetime, WithheldToDate: lifetime}, want: true},
		{name: "lifetime cap not reached", order: GarnishmentOrder{OrderID: "F", LifetimeCap: &lifetime, WithheldToDate: owed}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.IsCompleted())
		})
	}
}

func TestCalculationErrorNamesEntities(t *testing.T) {
	err := &CalculationError{Op: "garnishment", EmployerID: "EMP1", EmployeeID: "E42", OrderID: "ORD-7", Err: ErrMissingMinimumWage}
	assert.Equal(t, "garnishment employer=EMP1 employee=E42 order=ORD-7: minimum wage required for protected earnings", err.Error())
	assert.ErrorIs(t, err, ErrMissingMinimumWage)

	wrapped := WithIdentity(&CalculationError{Op: "fit", RuleID: "R1", EmployerID: "KEEP", Err: ErrMissingNRAEntry}, "paycheck", "EMP1", "E42", "PC1")
	var ce *CalculationError
	require.ErrorAs(t, wrapped, &ce)
	assert.Equal(t, "KEEP", ce.EmployerID)
	assert.Equal(t, "E42", ce.EmployeeID)
	assert.Equal(t, "PC1", ce.PaycheckID)

	plain := WithIdentity(errors.New("boom"), "paycheck", "EMP1", "E42", "PC1")
	require.ErrorAs(t, plain, &ce)
	assert.Equal(t, "paycheck", ce.Op)
	assert.Nil(t, WithIdentity(nil, "x", "", "", ""))
}

func TestTraceJSONIsTagged(t *testing.T) {
	var trace CalculationTrace
	trace.Notef("fit_method=%s", "PERCENTAGE")
	trace.Add(TaxApplied{RuleID: "US_FIT", Amount: money.MustParse("100")})

	assert.Equal(t, []string{"fit_method=PERCENTAGE"}, trace.Notes())
	assert.Len(t, trace.OfKind(KindTaxApplied), 1)

	out, err := json.Marshal(trace)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Note", decoded[0]["kind"])
	assert.Equal(t, "TaxApplied", decoded[1]["kind"])
	assert.Equal(t, "100.00", decoded[1]["amount"])
}

func TestYtdClone(t *testing.T) {
	prior := NewYtdSnapshot("E1", 2025)
	prior.WagesByBasis[BasisGross] = money.MustParse("10")

	next := prior.Clone()
	next.WagesByBasis[BasisGross] = money.MustParse("20")

	assert.Equal(t, int64(1000), prior.Wages(BasisGross).Cents)
	assert.Equal(t, int64(2000), next.Wages(BasisGross).Cents)
	assert.True(t, next.Deduction("401K").IsZero())
}
