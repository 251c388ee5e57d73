// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Kind separates invoices from the credit notes that reverse them.
type Kind string

const (
	KindInvoice    Kind = "invoice"
	KindCreditNote Kind = "credit_note"
)

func (k Kind) Valid() bool {
	return k == KindInvoice || k == KindCreditNote
}

// Status represents invoice lifecycle states.
type Status string

const (
	StatusDraft         Status = "brouillon"
	StatusIssued        Status = "emise"
	StatusSent          Status = "envoyee"
	StatusPartiallyPaid Status = "payee_partiellement"
	StatusPaid          Status = "payee"
	StatusOverdue       Status = "en_retard"
	StatusCancelled     Status = "annulee"
	StatusCredited      Status = "avoir"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusSent, StatusPartiallyPaid,
		StatusPaid, StatusOverdue, StatusCancelled, StatusCredited:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCredited
}

// OpenStatuses are the issued, not fully paid states the overdue sweep visits.
var OpenStatuses = []Status{StatusIssued, StatusSent, StatusPartiallyPaid, StatusOverdue}

// Invoice represents a generated invoice or credit note.
type Invoice struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	Seq               int64           `gorm:"not null" json:"-"`
	Numero            string          `gorm:"not null" json:"numero"`
	Kind              Kind            `gorm:"not null" json:"kind"`
	ClientID          snowflake.ID    `gorm:"not null" json:"client_id"`
	Status            Status          `gorm:"not null" json:"status"`
	PaymentMethod     string          `json:"payment_method"`
	Notes             string          `json:"notes"`
	InvoiceDate       time.Time       `gorm:"not null" json:"invoice_date"`
	IssuedAt          *time.Time      `json:"issued_at,omitempty"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	TotalHT           decimal.Decimal `gorm:"column:total_ht;type:numeric(14,2)" json:"total_ht"`
	TotalTVA          decimal.Decimal `gorm:"column:total_tva;type:numeric(14,2)" json:"total_tva"`
	TotalTTC          decimal.Decimal `gorm:"column:total_ttc;type:numeric(14,2)" json:"total_ttc"`
	AmountSettled     decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount_settled"`
	Snapshot          datatypes.JSON  `json:"-"`
	CreditedInvoiceID *snowflake.ID   `json:"credited_invoice_id,omitempty"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
	Lines             []Line          `gorm:"-" json:"lines"`
	OrderIDs          []snowflake.ID  `gorm:"-" json:"order_ids"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Balance is what remains to be paid.
func (i Invoice) Balance() decimal.Decimal {
	return i.TotalTTC.Sub(i.AmountSettled)
}

// Line is copied from an order line when the invoice is generated.
type Line struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	OrderID     *snowflake.ID   `json:"order_id,omitempty"`
	ArticleID   snowflake.ID    `gorm:"not null" json:"article_id"`
	Reference   string          `gorm:"not null" json:"reference"`
	Designation string          `gorm:"not null" json:"designation"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	UnitPriceHT decimal.Decimal `gorm:"column:unit_price_ht;type:numeric(14,2)" json:"unit_price_ht"`
	DiscountPct decimal.Decimal `gorm:"column:discount_pct;type:numeric(5,2)" json:"discount_pct"`
	TaxRate     decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2)" json:"tax_rate"`
	AmountHT    decimal.Decimal `gorm:"column:amount_ht;type:numeric(14,2)" json:"amount_ht"`
	AmountTVA   decimal.Decimal `gorm:"column:amount_tva;type:numeric(14,2)" json:"amount_tva"`
	AmountTTC   decimal.Decimal `gorm:"column:amount_ttc;type:numeric(14,2)" json:"amount_ttc"`
}

// TableName sets the database table name.
func (Line) TableName() string { return "invoice_lines" }
