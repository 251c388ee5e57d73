package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	issued := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	due := DueDate(issued, 30)
	sent := issued.Add(time.Hour)
	onTime := due.Add(23 * time.Hour)
	late := due.AddDate(0, 0, 1)

	base := Invoice{
		Status:        StatusIssued,
		TotalTTC:      decimal.RequireFromString("120.00"),
		AmountSettled: decimal.Zero,
		DueDate:       &due,
	}
	with := func(mut func(*Invoice)) Invoice {
		inv := base
		mut(&inv)
		return inv
	}

	cases := []struct {
		name string
		inv  Invoice
		now  time.Time
		want Status
	}{
		{"issued", base, issued, StatusIssued},
		{"sent", with(func(i *Invoice) { i.SentAt = &sent }), issued, StatusSent},
		{"partial", with(func(i *Invoice) { i.AmountSettled = decimal.NewFromInt(50) }), issued, StatusPartiallyPaid},
		{"paid", with(func(i *Invoice) { i.AmountSettled = decimal.NewFromInt(120) }), late, StatusPaid},
		{"due day is on time", base, onTime, StatusIssued},
		{"overdue", base, late, StatusOverdue},
		{"overdue beats partial", with(func(i *Invoice) { i.AmountSettled = decimal.NewFromInt(50) }), late, StatusOverdue},
		{"overdue beats sent", with(func(i *Invoice) { i.SentAt = &sent }), late, StatusOverdue},
		{"draft untouched", with(func(i *Invoice) { i.Status = StatusDraft }), late, StatusDraft},
		{"cancelled untouched", with(func(i *Invoice) { i.Status = StatusCancelled }), late, StatusCancelled},
		{"credit note untouched", with(func(i *Invoice) { i.Status = StatusCredited }), late, StatusCredited},
		{"overdue recovers when paid", with(func(i *Invoice) {
			i.Status = StatusOverdue
			i.AmountSettled = decimal.NewFromInt(120)
		}), late, StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.inv, tc.now))
		})
	}
}

func TestDueDateUsesCalendarDays(t *testing.T) {
	issued := time.Date(2026, 1, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), DueDate(issued, 30))
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), DueDate(issued, 0))
}

func TestBreakdownVAT(t *testing.T) {
	d := decimal.RequireFromString
	lines := []Line{
		{TaxRate: d("20"), AmountHT: d("100.00"), AmountTVA: d("20.00")},
		{TaxRate: d("5.5"), AmountHT: d("10.00"), AmountTVA: d("0.55")},
		{TaxRate: d("20.00"), AmountHT: d("3.33"), AmountTVA: d("0.67")},
	}

	got := BreakdownVAT(lines)
	if assert.Len(t, got, 2) {
		assert.True(t, got[0].Rate.Equal(d("20")))
		assert.Equal(t, "103.33", got[0].Base.StringFixed(2))
		assert.Equal(t, "20.67", got[0].Amount.StringFixed(2))
		assert.True(t, got[1].Rate.Equal(d("5.5")))
		assert.Equal(t, "0.55", got[1].Amount.StringFixed(2))
	}
}
