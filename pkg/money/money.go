// Package money holds the integer-cents amount and fractional percent types used by the
// payroll calculators. Amounts never carry fractional cents; rounding happens only in the
// explicit conversion helpers (FromDecimal, MulRate) and always rounds half cents up.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultCurrency is assumed when an amount carries no currency code.
const DefaultCurrency = "USD"

var hundred = decimal.NewFromInt(100)

// Money is an amount in minor units (cents) plus an ISO currency code.
type Money struct {
	Cents    int64
	Currency string
}

// New creates a Money from cents in the default currency.
func New(cents int64) Money {
	return Money{Cents: cents}
}

// NewIn creates a Money from cents in the given currency.
func NewIn(cents int64, currency string) Money {
	return Money{Cents: cents, Currency: currency}
}

// Zero returns a zero amount in the default currency.
func Zero() Money {
	return Money{}
}

// FromDollars creates a Money from whole major units.
func FromDollars(dollars int64) Money {
	return Money{Cents: dollars * 100}
}

// FromDecimal converts a major-unit decimal to cents, rounding half cents up.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// FromCentsDecimal rounds a decimal amount of cents half-up.
func FromCentsDecimal(cents decimal.Decimal) Money {
	return Money{Cents: cents.Round(0).IntPart()}
}

// Parse reads "1234.56" or "1234.56 EUR".
func Parse(s string) (Money, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if len(fields) == 0 || len(fields) > 2 {
		return Money{}, fmt.Errorf("invalid money amount %q", s)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	if cents := d.Mul(hundred); !cents.Equal(cents.Truncate(0)) {
		return Money{}, fmt.Errorf("invalid money amount %q: fractional cents", s)
	}
	m := FromDecimal(d)
	if len(fields) == 2 {
		m.Currency = strings.ToUpper(fields[1])
	}
	return m, nil
}

// MustParse is Parse for literals in tests and tables.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// CurrencyCode returns the currency, defaulting to USD.
func (m Money) CurrencyCode() string {
	if m.Currency == "" {
		return DefaultCurrency
	}
	return m.Currency
}

func (m Money) merge(other Money) string {
	switch {
	case m.Currency == "":
		return other.Currency
	case other.Currency == "" || m.CurrencyCode() == other.CurrencyCode():
		return m.Currency
	default:
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.Currency, other.Currency))
	}
}

// SameCurrency reports whether two amounts can be combined.
func (m Money) SameCurrency(other Money) bool {
	return m.Currency == "" || other.Currency == "" || m.CurrencyCode() == other.CurrencyCode()
}

// Add returns m + other. Mixing two explicit, different currencies panics.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents, Currency: m.merge(other)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents, Currency: m.merge(other)}
}

// Neg flips the sign.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents, Currency: m.Currency}
}

// MulInt multiplies by a whole number.
func (m Money) MulInt(n int64) Money {
	return Money{Cents: m.Cents * n, Currency: m.Currency}
}

// DivInt divides by a whole number, truncating toward zero.
func (m Money) DivInt(n int64) Money {
	return Money{Cents: m.Cents / n, Currency: m.Currency}
}

// MulRate multiplies by a percent and rounds half cents up.
func (m Money) MulRate(p Percent) Money {
	return Money{Cents: m.MulRateExact(p).Round(0).IntPart(), Currency: m.Currency}
}

// MulRateExact multiplies by a percent without rounding; the result is in cents.
func (m Money) MulRateExact(p Percent) decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Mul(p.Decimal)
}

// MulDecimal multiplies by an arbitrary factor and rounds half cents up.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	return Money{Cents: decimal.NewFromInt(m.Cents).Mul(factor).Round(0).IntPart(), Currency: m.Currency}
}

// FloorZero clamps negative amounts to zero.
func (m Money) FloorZero() Money {
	if m.Cents < 0 {
		return Money{Currency: m.Currency}
	}
	return m
}

// Min returns the smaller amount
func Min(a, b Money) Money {
	if a.Cents <= b.Cents {
		return a
	}
	return b
}

// Max returns the larger amount
func Max(a, b Money) Money {
	if a.Cents >= b.Cents {
		return a
	}
	return b
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	total := Money{}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// IsZero checks if the amount is zero
func (m Money) IsZero() bool { return m.Cents == 0 }

// IsPositive checks if the amount is greater than zero
func (m Money) IsPositive() bool { return m.Cents > 0 }

// IsNegative checks if the amount is below zero
func (m Money) IsNegative() bool { return m.Cents < 0 }

// GreaterThan checks if this amount is greater than another
func (m Money) GreaterThan(other Money) bool { return m.Cents > other.Cents }

// LessThan checks if this amount is less than another
func (m Money) LessThan(other Money) bool { return m.Cents < other.Cents }

// Equal compares cents and currency.
func (m Money) Equal(other Money) bool {
	return m.Cents == other.Cents && m.CurrencyCode() == other.CurrencyCode()
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals, plus the currency when not USD.
func (m Money) String() string {
	s := m.Decimal().StringFixed(2)
	if m.Currency != "" && m.Currency != DefaultCurrency {
		return s + " " + m.Currency
	}
	return s
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid money amount %s", string(data))
		}
		s = n.String()
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML encodes the amount as a decimal string.
func (m Money) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML accepts scalars such as 1000, 1000.50 or "1000.50 EUR".
func (m *Money) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: money must be a scalar", value.Line)
	}
	parsed, err := Parse(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*m = parsed
	return nil
}

// Ptr returns a pointer to a copy of m.
func Ptr(m Money) *Money {
	return &m
}

// ValueOrZero dereferences an optional amount.
func ValueOrZero(m *Money) Money {
	if m == nil {
		return Money{}
	}
	return *m
}
