package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Document is the frozen content of an issued invoice. It is written once at
// issue and is what the PDF export prints.
type Document struct {
	Kind           Kind            `json:"kind"`
	Numero         string          `json:"numero"`
	CreditedNumero string          `json:"credited_numero,omitempty"`
	InvoiceDate    time.Time       `json:"invoice_date"`
	IssuedAt       time.Time       `json:"issued_at"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Seller         DocumentSeller  `json:"seller"`
	Client         DocumentClient  `json:"client"`
	OrderNumeros   []string        `json:"order_numeros,omitempty"`
	Lines          []DocumentLine  `json:"lines"`
	VAT            []VATBreakdown  `json:"vat"`
	TotalHT        decimal.Decimal `json:"total_ht"`
	TotalTVA       decimal.Decimal `json:"total_tva"`
	TotalTTC       decimal.Decimal `json:"total_ttc"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentTerms   int             `json:"payment_terms_days"`
	Notes          string          `json:"notes,omitempty"`
}

type DocumentSeller struct {
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Email      string `json:"email,omitempty"`
	SIRET      string `json:"siret,omitempty"`
	VATNumber  string `json:"vat_number,omitempty"`
	BankIBAN   string `json:"bank_iban,omitempty"`
}

type DocumentClient struct {
	Code       string `json:"code"`
	LegalName  string `json:"legal_name"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Email      string `json:"email,omitempty"`
}

type DocumentLine struct {
	Reference   string          `json:"reference"`
	Designation string          `json:"designation"`
	Quantity    int64           `json:"quantity"`
	UnitPriceHT decimal.Decimal `json:"unit_price_ht"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	AmountHT    decimal.Decimal `json:"amount_ht"`
}

// VATBreakdown totals the lines sharing one tax rate.
type VATBreakdown struct {
	Rate   decimal.Decimal `json:"rate"`
	Base   decimal.Decimal `json:"base"`
	Amount decimal.Decimal `json:"amount"`
}

// BreakdownVAT groups line amounts by tax rate, highest rate first. The sum
// of the breakdown equals the invoice totals because it reuses the rounded
// line amounts.
func BreakdownVAT(lines []Line) []VATBreakdown {
	byRate := make(map[string]*VATBreakdown)
	for _, line := range lines {
		key := line.TaxRate.String()
		entry, ok := byRate[key]
		if !ok {
			entry = &VATBreakdown{Rate: line.TaxRate, Base: decimal.Zero, Amount: decimal.Zero}
			byRate[key] = entry
		}
		entry.Base = entry.Base.Add(line.AmountHT)
		entry.Amount = entry.Amount.Add(line.AmountTVA)
	}

	out := make([]VATBreakdown, 0, len(byRate))
	for _, entry := range byRate {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Rate.GreaterThan(out[j].Rate)
	})
	return out
}
