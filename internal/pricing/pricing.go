package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineAmounts is the priced breakdown of one order or invoice line.
type LineAmounts struct {
	AmountHT  decimal.Decimal
	AmountTVA decimal.Decimal
	AmountTTC decimal.Decimal
}

// Totals is the sum of a set of lines.
type Totals struct {
	TotalHT  decimal.Decimal
	TotalTVA decimal.Decimal
	TotalTTC decimal.Decimal
}

// Round quantizes a monetary amount to cents, rounding half to even.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// Line prices qty units at unitPrice less discountPct percent, then applies
// taxRate percent on the rounded net amount.
func Line(qty int64, unitPrice, discountPct, taxRate decimal.Decimal) LineAmounts {
	gross := unitPrice.Mul(decimal.NewFromInt(qty))
	net := gross
	if discountPct.IsPositive() {
		net = gross.Mul(hundred.Sub(discountPct)).Div(hundred)
	}
	ht := Round(net)
	tva := Round(ht.Mul(taxRate).Div(hundred))
	return LineAmounts{
		AmountHT:  ht,
		AmountTVA: tva,
		AmountTTC: ht.Add(tva),
	}
}

func Sum(lines []LineAmounts) Totals {
	totals := Totals{
		TotalHT:  decimal.Zero,
		TotalTVA: decimal.Zero,
		TotalTTC: decimal.Zero,
	}
	for _, line := range lines {
		totals.TotalHT = totals.TotalHT.Add(line.AmountHT)
		totals.TotalTVA = totals.TotalTVA.Add(line.AmountTVA)
	}
	totals.TotalTTC = totals.TotalHT.Add(totals.TotalTVA)
	return totals
}

// ValidPercent reports whether p lies within [0, 100].
func ValidPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// IsCents reports whether d carries at most two decimal places.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
