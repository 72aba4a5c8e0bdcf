package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Percent is a fraction; 0.25 means 25%.
type Percent struct {
	decimal.Decimal
}

// NewPercent parses a fraction ("0.062") or a percentage literal ("6.2%").
func NewPercent(s string) (Percent, error) {
	s = strings.TrimSpace(s)
	scale := false
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		scale = true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Percent{}, fmt.Errorf("invalid percent %q: %w", s, err)
	}
	if scale {
		d = d.Div(hundred)
	}
	return Percent{d}, nil
}

// MustPercent is NewPercent for literals.
func MustPercent(s string) Percent {
	p, err := NewPercent(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PercentFromDecimal wraps a fraction.
func PercentFromDecimal(d decimal.Decimal) Percent {
	return Percent{d}
}

// Validate requires the fraction to lie in [0, 1].
func (p Percent) Validate() error {
	if p.Decimal.IsNegative() || p.Decimal.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("percent %s outside [0, 1]", p.Decimal.String())
	}
	return nil
}

// ValidateAllowingOver only rejects negative values.
func (p Percent) ValidateAllowingOver() error {
	if p.Decimal.IsNegative() {
		return fmt.Errorf("percent %s is negative", p.Decimal.String())
	}
	return nil
}

// Add returns p + other.
func (p Percent) Add(other Percent) Percent {
	return Percent{p.Decimal.Add(other.Decimal)}
}

// MinPercent returns the smaller fraction.
func MinPercent(a, b Percent) Percent {
	if a.Decimal.LessThanOrEqual(b.Decimal) {
		return a
	}
	return b
}

// String renders the fraction as a percentage, e.g. "6.2%".
func (p Percent) String() string {
	return p.Decimal.Mul(hundred).String() + "%"
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Decimal.String())
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid percent %s", string(data))
		}
		s = n.String()
	}
	parsed, err := NewPercent(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Percent) MarshalYAML() (interface{}, error) {
	return p.Decimal.String(), nil
}

func (p *Percent) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := NewPercent(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*p = parsed
	return nil
}
