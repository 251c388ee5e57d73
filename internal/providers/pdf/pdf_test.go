package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"0":       "0,00 €",
		"120":     "120,00 €",
		"1234.5":  "1 234,50 €",
		"-99.999": "-100,00 €",
		"1000000": "1 000 000,00 €",
		"12.345":  "12,34 €",
	}
	for in, want := range cases {
		assert.Equal(t, want, Money(decimal.RequireFromString(in)), in)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "20 %", Percent(decimal.NewFromInt(20)))
	assert.Equal(t, "5,5 %", Percent(decimal.RequireFromString("5.5")))
}

func TestRenderInvoice(t *testing.T) {
	provider := New()
	out, err := provider.RenderInvoice(context.Background(), InvoiceDocument{
		Title:       "FACTURE",
		Numero:      "FAC-000001",
		InvoiceDate: "15/10/2026",
		DueDate:     "14/11/2026",
		Seller:      Party{Name: "Ma Société", Lines: []string{"1 rue de la Paix", "75002 Paris"}},
		Client:      Party{Name: "Dupont SARL", Lines: []string{"", "69001 Lyon"}},
		Lines: []InvoiceLine{
			{Reference: "ART-1", Designation: "Vis inox", Quantity: "10", UnitPriceHT: "1,00 €", Discount: "0 %", AmountHT: "10,00 €"},
		},
		VAT:         []VATLine{{Rate: "20 %", Base: "10,00 €", Amount: "2,00 €"}},
		TotalHT:     "10,00 €",
		TotalTVA:    "2,00 €",
		TotalTTC:    "12,00 €",
		AlreadyPaid: "5,00 €",
		BalanceDue:  "7,00 €",
		Notes:       "Merci pour votre confiance",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderReceipt(t *testing.T) {
	out, err := New().RenderReceipt(context.Background(), ReceiptDocument{
		Reference:     "01J0000000000000000000000",
		InvoiceNumero: "FAC-000001",
		DatePaid:      "15/10/2026",
		Method:        "virement",
		Amount:        "50,00 €",
		InvoiceTotal:  "120,00 €",
		TotalSettled:  "50,00 €",
		BalanceDue:    "70,00 €",
		Seller:        Party{Name: "Ma Société"},
		Client:        Party{Name: "Dupont SARL"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderDeliveryNote(t *testing.T) {
	out, err := New().RenderDeliveryNote(context.Background(), DeliveryDocument{
		Numero:      "BL-000001",
		OrderNumero: "CMD-000001",
		ShippedDate: "15/10/2026",
		Carrier:     "Geodis",
		Packages:    "2",
		Seller:      Party{Name: "Ma Société"},
		Client:      Party{Name: "Dupont SARL", Lines: []string{"3 quai Perrache", "69002 Lyon"}},
		Lines: []DeliveryLine{
			{Reference: "ART-1", Designation: "Vis inox", Quantity: "10"},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
