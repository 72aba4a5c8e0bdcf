package calculation

import (
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// NRATable holds the per-period amounts added to a nonresident alien's wages before
// withholding is figured. Modern applies to redesigned W-4s and to anyone first paid in
// 2020 or later; Legacy applies to pre-2020 W-4s of employees first paid before 2020.
type NRATable struct {
	Year   int
	Modern map[domain.PayFrequency]money.Money
	Legacy map[domain.PayFrequency]money.Money
}

// ExtraWages looks up the adjustment. A missing frequency is a configuration defect.
func (t *NRATable) ExtraWages(freq domain.PayFrequency, version domain.W4Version, firstPaidBefore2020 bool) (money.Money, error) {
	if t == nil {
		return money.Money{}, fmt.Errorf("%w: no table loaded", domain.ErrMissingNRAEntry)
	}
	column, name := t.Modern, "modern"
	if version == domain.W4Legacy && firstPaidBefore2020 {
		column, name = t.Legacy, "legacy"
	}
	amount, ok := column[freq]
	if !ok {
		return money.Money{}, fmt.Errorf("%w: %s column has no %s entry", domain.ErrMissingNRAEntry, name, freq)
	}
	return amount, nil
}
