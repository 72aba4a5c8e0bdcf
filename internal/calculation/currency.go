package calculation

import (
	"fmt"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/money"
)

// currencyCheck remembers the first explicit currency it sees and reports the first
// amount that carries a different one. Amounts without a currency code match anything.
type currencyCheck struct {
	code   string
	source string
}

func (c *currencyCheck) fail(m money.Money, what string) error {
	return fmt.Errorf("%w: %s is in %s but %s is in %s", domain.ErrCurrencyMismatch, what, m.Currency, c.source, c.code)
}

// see records m under the name what. It returns a bare error; callers attach the entity.
func (c *currencyCheck) see(m money.Money, what string) error {
	if m.Currency == "" {
		return nil
	}
	if c.code == "" {
		c.code, c.source = m.CurrencyCode(), what
		return nil
	}
	if m.CurrencyCode() != c.code {
		return c.fail(m, what)
	}
	return nil
}

func (c *currencyCheck) seePtr(m *money.Money, what string) error {
	if m == nil {
		return nil
	}
	return c.see(*m, what)
}

func (c *currencyCheck) all(what string, amounts ...*money.Money) error {
	for _, m := range amounts {
		if err := c.seePtr(m, what); err != nil {
			return err
		}
	}
	return nil
}

func currencyError(err error, orderID, ruleID string) error {
	return &domain.CalculationError{Op: "check currency", OrderID: orderID, RuleID: ruleID, Err: err}
}

// checkPaycheckCurrency verifies that every amount feeding one paycheck shares a single
// currency, so arithmetic further down never mixes two.
func checkPaycheckCurrency(in domain.PaycheckInput) error {
	var c currencyCheck
	if err := c.compensation(in.Employee.Compensation); err != nil {
		return currencyError(err, "", "")
	}

	w4 := in.Employee.W4
	if err := c.all("W-4 amounts", w4.Step3CreditsAnnual, w4.Step4aOtherIncomeAnnual,
		w4.Step4bDeductionsAnnual, w4.ExtraWithholdingPerPeriod, w4.LegacyAdditionalWithholding); err != nil {
		return currencyError(err, "", "")
	}

	for _, e := range in.TimeSlice.OtherEarnings {
		if err := c.all("earning "+e.Code, e.Amount, e.Rate); err != nil {
			return currencyError(err, "", "")
		}
	}
	for _, d := range in.EarningDefinitions {
		if err := c.seePtr(d.DefaultRate, "earning definition "+d.Code); err != nil {
			return currencyError(err, "", "")
		}
	}
	for _, p := range in.DeductionPlans {
		if err := c.all("deduction plan "+p.ID, p.EmployeeFlat, p.AnnualCap, p.PerPeriodCap); err != nil {
			return currencyError(err, "", "")
		}
	}
	for _, ec := range in.EmployerContributions {
		if err := c.see(ec.Amount, "employer contribution "+ec.Code); err != nil {
			return currencyError(err, "", "")
		}
	}

	if err := c.ytd(in.PriorYtd); err != nil {
		return currencyError(err, "", "")
	}

	for _, r := range in.TaxContext.All() {
		if err := c.rule(r); err != nil {
			return currencyError(err, "", r.RuleID())
		}
	}
	if err := c.garnishments(in.GarnishmentOrders, in.LaborStandards); err != nil {
		return err
	}
	return nil
}

// checkOrderCurrency verifies the garnishment inputs against the gross pay's currency.
func checkOrderCurrency(req GarnishmentRequest) error {
	var c currencyCheck
	if err := c.see(req.Gross, "gross pay"); err != nil {
		return currencyError(err, "", "")
	}
	return c.garnishments(req.Orders, req.LaborStandards)
}

func (c *currencyCheck) compensation(comp domain.BaseCompensation) error {
	switch v := comp.(type) {
	case domain.SalariedCompensation:
		return c.see(v.AnnualSalary, "annual salary")
	case domain.HourlyCompensation:
		return c.see(v.HourlyRate, "hourly rate")
	}
	return nil
}

func (c *currencyCheck) rule(rule domain.TaxRule) error {
	what := "tax rule " + rule.RuleID()
	switch r := rule.(type) {
	case domain.FlatRateTax:
		return c.all(what, r.AnnualWageCap, r.AnnualWageThreshold)
	case domain.BracketedIncomeTax:
		if err := c.all(what, r.StandardDeduction, r.AdditionalWithholding); err != nil {
			return err
		}
		for _, b := range r.Brackets {
			if err := c.seePtr(b.UpTo, what); err != nil {
				return err
			}
		}
	case domain.WageBracketTax:
		for _, row := range r.Rows {
			if err := c.all(what, row.UpTo, &row.Tax); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *currencyCheck) garnishments(orders []domain.GarnishmentOrder, labor *domain.LaborStandards) error {
	if labor != nil {
		if err := c.see(labor.MinimumWage, "minimum wage"); err != nil {
			return currencyError(err, "", "")
		}
	}
	for _, o := range orders {
		if err := c.order(o); err != nil {
			return currencyError(err, o.OrderID, "")
		}
	}
	return nil
}

func (c *currencyCheck) order(o domain.GarnishmentOrder) error {
	what := "garnishment order " + o.OrderID
	if err := c.all(what, o.ArrearsBefore, o.LifetimeCap, &o.WithheldToDate, o.CurrentObligation); err != nil {
		return err
	}
	switch f := o.Formula.(type) {
	case domain.FixedAmountPerPeriod:
		if err := c.see(f.Amount, what); err != nil {
			return err
		}
	case domain.LesserOfPercentOrAmount:
		if err := c.see(f.Amount, what); err != nil {
			return err
		}
	case domain.LevyWithBands:
		for _, b := range f.Bands {
			if err := c.all(what, b.UpTo, &b.ExemptAmount); err != nil {
				return err
			}
		}
	}
	switch p := o.ProtectedEarnings.(type) {
	case domain.FixedFloor:
		return c.see(p.Amount, what+" protected earnings")
	case domain.MultipleOfMinimumWage:
		return c.seePtr(p.HourlyRate, what+" protected earnings")
	}
	return nil
}

func (c *currencyCheck) ytd(y domain.YtdSnapshot) error {
	for _, byCode := range []map[string]money.Money{y.EarningsByCode, y.EmployeeTaxesByRule,
		y.EmployerTaxesByRule, y.DeductionsByCode, y.EmployerContributionsByCode} {
		for code, m := range byCode {
			if err := c.see(m, "prior YTD "+code); err != nil {
				return err
			}
		}
	}
	for basis, m := range y.WagesByBasis {
		if err := c.see(m, "prior YTD "+string(basis)+" wages"); err != nil {
			return err
		}
	}
	return nil
}
