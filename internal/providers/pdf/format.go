package pdf

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money formats an amount the French way: "1 234,50 €".
func Money(amount decimal.Decimal) string {
	return Number(amount, 2) + " €"
}

// Percent formats a rate such as 20 as "20 %" and 5.5 as "5,5 %".
func Percent(rate decimal.Decimal) string {
	return strings.Replace(rate.String(), ".", ",", 1) + " %"
}

// Number formats a decimal with a fixed number of places, a comma separator
// and thin grouping of thousands.
func Number(amount decimal.Decimal, places int32) string {
	raw := amount.StringFixedBank(places)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	intPart, fracPart, _ := strings.Cut(raw, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if fracPart != "" {
		out += "," + fracPart
	}
	if negative {
		out = "-" + out
	}
	return out
}
