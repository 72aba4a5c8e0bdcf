package output

import (
	"fmt"
	"strconv"

	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.AmericanEnglish)
	hundred = decimal.NewFromInt(100)
)

// FormatCurrency formats an amount with digit grouping, e.g. "$1,234.56" or "-€12.00".
// Currencies without a known symbol are suffixed with their code.
func FormatCurrency(m money.Money) string {
	amount := groupedAmount(m.Cents)
	sign := ""
	if m.Cents < 0 {
		sign, amount = "-", amount[1:]
	}
	switch code := m.CurrencyCode(); code {
	case "USD":
		return sign + "$" + amount
	case "EUR":
		return sign + "€" + amount
	case "GBP":
		return sign + "£" + amount
	default:
		return sign + amount + " " + code
	}
}

// groupedAmount renders cents as a grouped decimal, e.g. "-1,234.56".
func groupedAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + printer.Sprintf("%d", cents/100) + fmt.Sprintf(".%02d", cents%100)
}

// FormatPercentage formats a rate as a percentage with 2 decimals.
func FormatPercentage(p money.Percent) string {
	return p.Decimal.Mul(hundred).StringFixed(2) + "%"
}

func intToString(i int) string { return strconv.Itoa(i) }
