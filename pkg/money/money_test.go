package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		cents    int64
		currency string
		wantErr  bool
	}{
		{name: "plain", in: "1234.56", cents: 123456},
		{name: "whole dollars", in: "52000", cents: 5200000},
		{name: "dollar sign and commas", in: "$1,040.00", cents: 104000},
		{name: "explicit currency", in: "10.5 eur", cents: 1050, currency: "EUR"},
		{name: "negative", in: "-3.01", cents: -301},
		{name: "fractional cents rejected", in: "1.005", wantErr: true},
		{name: "garbage", in: "ten dollars", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cents, m.Cents)
			assert.Equal(t, tt.currency, m.Currency)
		})
	}
}

func TestFromDecimalRoundsHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"2.344", 234},
		{"2.345", 235},
		{"2.355", 236},
		{"2.365", 237},
		{"0.004", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromDecimal(decimal.RequireFromString(tt.in)).Cents, tt.in)
	}
}

func TestMulRate(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		rate  string
		want  int64
	}{
		{name: "social security", cents: 100000, rate: "0.062", want: 6200},
		{name: "half cent rounds up", cents: 150, rate: "0.01", want: 2},
		{name: "below half cent rounds down", cents: 140, rate: "0.01", want: 1},
		{name: "percent literal", cents: 400000, rate: "25%", want: 100000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.cents).MulRate(MustPercent(tt.rate))
			assert.Equal(t, tt.want, got.Cents)
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := MustParse("100.00")
	b := MustParse("30.25")

	assert.Equal(t, int64(13025), a.Add(b).Cents)
	assert.Equal(t, int64(6975), a.Sub(b).Cents)
	assert.Equal(t, int64(-3025), b.Neg().Cents)
	assert.Equal(t, int64(30000), a.MulInt(3).Cents)
	assert.Equal(t, int64(3333), a.DivInt(3).Cents)
	assert.True(t, b.Sub(a).FloorZero().IsZero())
	assert.Equal(t, b, Min(a, b))
	assert.Equal(t, a, Max(a, b))
	assert.Equal(t, int64(26050), Sum(a, b, a, b).Cents)
	assert.True(t, a.GreaterThan(b))
	assert.True(t, b.LessThan(a))
	assert.Equal(t, Money{}, ValueOrZero(nil))
}

func TestCurrencyMismatchPanics(t *testing.T) {
	usd := NewIn(100, "USD")
	eur := NewIn(100, "EUR")

	assert.True(t, usd.SameCurrency(New(5)))
	assert.False(t, usd.SameCurrency(eur))
	assert.Panics(t, func() { usd.Add(eur) })
	assert.NotPanics(t, func() { usd.Add(New(5)) })
	assert.Equal(t, "USD", New(5).Add(usd).Currency)
}

func TestMoneyEncoding(t *testing.T) {
	var wrapper struct {
		A Money `json:"a" yaml:"a"`
		B Money `json:"b" yaml:"b"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.34","b":56}`), &wrapper))
	assert.Equal(t, int64(1234), wrapper.A.Cents)
	assert.Equal(t, int64(5600), wrapper.B.Cents)

	out, err := json.Marshal(wrapper)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"12.34","b":"56.00"}`, string(out))

	require.NoError(t, yaml.Unmarshal([]byte("a: 1000.5\nb: \"7 EUR\"\n"), &wrapper))
	assert.Equal(t, int64(100050), wrapper.A.Cents)
	assert.Equal(t, "EUR", wrapper.B.Currency)
	assert.Equal(t, "7.00 EUR", wrapper.B.String())
}

func TestPercentValidation(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		valid     bool
		validOver bool
	}{
		{name: "zero", in: "0", valid: true, validOver: true},
		{name: "one", in: "1", valid: true, validOver: true},
		{name: "fraction", in: "0.0145", valid: true, validOver: true},
		{name: "over one", in: "1.5", valid: false, validOver: true},
		{name: "negative", in: "-0.1", valid: false, validOver: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustPercent(tt.in)
			assert.Equal(t, tt.valid, p.Validate() == nil)
			assert.Equal(t, tt.validOver, p.ValidateAllowingOver() == nil)
		})
	}
}

func TestPercentHelpers(t *testing.T) {
	p, err := NewPercent("6.2%")
	require.NoError(t, err)
	assert.True(t, p.Decimal.Equal(decimal.RequireFromString("0.062")))
	assert.Equal(t, "6.2%", p.String())
	assert.Equal(t, MustPercent("0.5"), MinPercent(MustPercent("0.5"), MustPercent("0.6")))
	assert.True(t, MustPercent("0.5").Add(MustPercent("0.05")).Decimal.Equal(decimal.RequireFromString("0.55")))

	_, err = NewPercent("abc")
	assert.Error(t, err)
}
