package calculation

import (
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/dateutil"
	"github.com/paycore/payroll-engine/pkg/money"
)

var federalUS = domain.Jurisdiction{Type: domain.JurisdictionFederal, Code: "US"}

func usd(s string) money.Money { return money.MustParse(s) }

func usdPtr(s string) *money.Money { return money.Ptr(money.MustParse(s)) }

func pct(s string) money.Percent { return money.MustPercent(s) }

func pctPtr(s string) *money.Percent {
	p := money.MustPercent(s)
	return &p
}

func statusPtr(s domain.FilingStatus) *domain.FilingStatus { return &s }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := dateutil.Date(y, m, d)
	return &t
}

func weeklyPeriod() domain.PayPeriod {
	return domain.PayPeriod{
		ID:         "2025-W10",
		EmployerID: "EMP-1",
		Start:      dateutil.Date(2025, time.March, 3),
		End:        dateutil.Date(2025, time.March, 9),
		CheckDate:  dateutil.Date(2025, time.March, 14),
		Frequency:  domain.Weekly,
	}
}

func salariedEmployee(annual string) domain.EmployeeSnapshot {
	return domain.EmployeeSnapshot{
		EmployerID:     "EMP-1",
		EmployeeID:     "EE-1",
		FilingStatus:   domain.FilingSingle,
		EmploymentType: domain.EmploymentRegular,
		Compensation:   domain.SalariedCompensation{AnnualSalary: usd(annual)},
		W4:             domain.W4Profile{Version: domain.W4Modern},
	}
}

// flatFIT is a single 10% bracket for SINGLE filers with no standard deduction.
func flatFIT(id string, rate string) domain.BracketedIncomeTax {
	return domain.BracketedIncomeTax{
		ID:           id,
		Jurisdiction: federalUS,
		Basis:        domain.BasisFederalTaxable,
		Brackets:     []domain.TaxBracket{{Rate: pct(rate)}},
		FilingStatus: statusPtr(domain.FilingSingle),
	}
}

func socialSecurity() domain.FlatRateTax {
	return domain.FlatRateTax{
		ID:            "US_FICA_SS",
		Jurisdiction:  federalUS,
		Basis:         domain.BasisSocialSecurityWages,
		Rate:          pct("0.062"),
		AnnualWageCap: usdPtr("176100"),
	}
}

func medicare() domain.FlatRateTax {
	return domain.FlatRateTax{
		ID:           "US_FICA_MEDICARE",
		Jurisdiction: federalUS,
		Basis:        domain.BasisMedicareWages,
		Rate:         pct("0.0145"),
	}
}

func testNRATable() *NRATable {
	return &NRATable{
		Year: 2025,
		Modern: map[domain.PayFrequency]money.Money{
			domain.Weekly:      usd("310.60"),
			domain.Biweekly:    usd("621.20"),
			domain.SemiMonthly: usd("672.90"),
			domain.Monthly:     usd("1345.80"),
		},
		Legacy: map[domain.PayFrequency]money.Money{
			domain.Weekly:   usd("288.50"),
			domain.Biweekly: usd("576.90"),
		},
	}
}
