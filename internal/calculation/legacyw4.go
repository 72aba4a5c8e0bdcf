package calculation

import (
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/dateutil"
	"github.com/paycore/payroll-engine/pkg/money"
)

// Computational bridge constants for treating a pre-2020 W-4 as a redesigned one.
var (
	legacyPerAllowance      = money.FromDollars(4300)
	legacyStep4aMarried     = money.FromDollars(12900)
	legacyStep4aOther       = money.FromDollars(8600)
	legacyStep4aNonresident = money.FromDollars(4300)
	w4RedesignDate          = dateutil.Date(2020, time.January, 1)
)

// WithholdingProfile is the normalized W-4 the withholding methods read. Annual amounts
// are annual; ExtraWithholdingPerPeriod is per paycheck.
type WithholdingProfile struct {
	FilingStatus              domain.FilingStatus
	W4Version                 domain.W4Version
	Step2MultipleJobs         bool
	Step3CreditsAnnual        *money.Money
	Step4aOtherIncomeAnnual   *money.Money
	Step4bDeductionsAnnual    *money.Money
	ExtraWithholdingPerPeriod *money.Money
	FederalWithholdingExempt  bool
	NonresidentAlien          bool
	FirstPaidBefore2020       *bool
}

// ProfileFor bridges legacy W-4s and passes modern ones through.
func ProfileFor(emp domain.EmployeeSnapshot) WithholdingProfile {
	if emp.W4.IsLegacy() {
		return BridgeLegacyW4(emp)
	}
	version := emp.W4.Version
	if version == "" {
		version = domain.W4Modern
	}
	return WithholdingProfile{
		FilingStatus:              emp.FilingStatus,
		W4Version:                 version,
		Step2MultipleJobs:         emp.W4.Step2MultipleJobs,
		Step3CreditsAnnual:        emp.W4.Step3CreditsAnnual,
		Step4aOtherIncomeAnnual:   emp.W4.Step4aOtherIncomeAnnual,
		Step4bDeductionsAnnual:    emp.W4.Step4bDeductionsAnnual,
		ExtraWithholdingPerPeriod: emp.W4.ExtraWithholdingPerPeriod,
		FederalWithholdingExempt:  emp.FederalWithholdingExempt,
		NonresidentAlien:          emp.NonresidentAlien,
		FirstPaidBefore2020:       firstPaidBefore2020(emp),
	}
}

// BridgeLegacyW4 synthesizes a modern profile from allowance-based W-4 fields.
// Step 4(a) is a fixed amount by filing status, Step 4(b) is allowances times the
// per-allowance amount, and no Step 3 credit is produced.
func BridgeLegacyW4(emp domain.EmployeeSnapshot) WithholdingProfile {
	step4a := legacyStep4aOther
	switch {
	case emp.NonresidentAlien:
		step4a = legacyStep4aNonresident
	case emp.FilingStatus == domain.FilingMarried:
		step4a = legacyStep4aMarried
	}

	var step4b *money.Money
	if emp.W4.LegacyAllowances != nil && *emp.W4.LegacyAllowances > 0 {
		step4b = money.Ptr(legacyPerAllowance.MulInt(int64(*emp.W4.LegacyAllowances)))
	}

	extra := emp.W4.LegacyAdditionalWithholding
	if extra == nil {
		extra = emp.W4.ExtraWithholdingPerPeriod
	}

	return WithholdingProfile{
		FilingStatus:              emp.FilingStatus,
		W4Version:                 domain.W4Legacy,
		Step2MultipleJobs:         emp.W4.Step2MultipleJobs,
		Step3CreditsAnnual:        nil,
		Step4aOtherIncomeAnnual:   money.Ptr(step4a),
		Step4bDeductionsAnnual:    step4b,
		ExtraWithholdingPerPeriod: extra,
		FederalWithholdingExempt:  emp.FederalWithholdingExempt,
		NonresidentAlien:          emp.NonresidentAlien,
		FirstPaidBefore2020:       firstPaidBefore2020(emp),
	}
}

// firstPaidBefore2020 prefers the explicit flag, then the W-4 effective date, then the
// hire date.
func firstPaidBefore2020(emp domain.EmployeeSnapshot) *bool {
	if emp.W4.FirstPaidBefore2020 != nil {
		v := *emp.W4.FirstPaidBefore2020
		return &v
	}
	for _, d := range []*time.Time{emp.W4.EffectiveDate, emp.HireDate} {
		if d != nil {
			v := dateutil.DateOnly(*d).Before(w4RedesignDate)
			return &v
		}
	}
	return nil
}
