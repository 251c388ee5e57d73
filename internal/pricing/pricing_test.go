package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineAppliesDiscountThenTax(t *testing.T) {
	amounts := Line(3, dec("19.99"), dec("10"), dec("20"))

	assert.Equal(t, "53.97", amounts.AmountHT.StringFixed(2))
	assert.Equal(t, "10.79", amounts.AmountTVA.StringFixed(2))
	assert.Equal(t, "64.76", amounts.AmountTTC.StringFixed(2))
}

func TestLineRoundsHalfToEven(t *testing.T) {
	// 0.125 rounds down to 0.12, 0.135 rounds up to 0.14.
	assert.Equal(t, "0.12", Line(1, dec("0.125"), decimal.Zero, decimal.Zero).AmountHT.StringFixed(2))
	assert.Equal(t, "0.14", Line(1, dec("0.135"), decimal.Zero, decimal.Zero).AmountHT.StringFixed(2))
}

func TestSumAddsLineAmounts(t *testing.T) {
	totals := Sum([]LineAmounts{
		Line(1, dec("100"), decimal.Zero, dec("20")),
		Line(2, dec("10"), decimal.Zero, dec("5.5")),
	})

	assert.Equal(t, "120.00", totals.TotalHT.StringFixed(2))
	assert.Equal(t, "21.10", totals.TotalTVA.StringFixed(2))
	assert.Equal(t, "141.10", totals.TotalTTC.StringFixed(2))
}

func TestValidPercentAndCents(t *testing.T) {
	assert.True(t, ValidPercent(dec("0")))
	assert.True(t, ValidPercent(dec("100")))
	assert.False(t, ValidPercent(dec("100.01")))
	assert.False(t, ValidPercent(dec("-1")))

	assert.True(t, IsCents(dec("50.10")))
	assert.False(t, IsCents(dec("50.105")))
}
