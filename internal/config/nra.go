package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/paycore/payroll-engine/internal/calculation"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
	"gopkg.in/yaml.v3"
)

//go:embed nra_2025.yaml
var defaultNRATable []byte

type nraFile struct {
	Year   int                    `yaml:"year"`
	Modern map[string]money.Money `yaml:"modern"`
	Legacy map[string]money.Money `yaml:"legacy"`
}

// DefaultNRATable returns the built-in nonresident alien adjustment table.
func DefaultNRATable() *calculation.NRATable {
	table, err := ParseNRATable(defaultNRATable)
	if err != nil {
		panic(fmt.Sprintf("embedded NRA table: %v", err))
	}
	return table
}

// LoadNRATable reads an NRA table from a YAML file.
func LoadNRATable(filename string) (*calculation.NRATable, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ParseNRATable(data)
}

// ParseNRATable decodes an NRA table. Frequencies are validated; a frequency missing
// from a column is reported only when a paycheck needs it.
func ParseNRATable(data []byte) (*calculation.NRATable, error) {
	var f nraFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse NRA table: %w", err)
	}
	if f.Year == 0 {
		return nil, fmt.Errorf("NRA table: year is required")
	}
	modern, err := nraColumn("modern", f.Modern)
	if err != nil {
		return nil, err
	}
	legacy, err := nraColumn("legacy", f.Legacy)
	if err != nil {
		return nil, err
	}
	return &calculation.NRATable{Year: f.Year, Modern: modern, Legacy: legacy}, nil
}

func nraColumn(name string, in map[string]money.Money) (map[domain.PayFrequency]money.Money, error) {
	out := make(map[domain.PayFrequency]money.Money, len(in))
	for key, amount := range in {
		freq, err := domain.ParsePayFrequency(key)
		if err != nil {
			return nil, fmt.Errorf("NRA table %s column: %w", name, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("NRA table %s column: negative amount for %s", name, freq)
		}
		out[freq] = amount
	}
	return out, nil
}
