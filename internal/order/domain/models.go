package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "brouillon"
	StatusValidated Status = "validee"
	StatusPreparing Status = "en_preparation"
	StatusPrepared  Status = "preparee"
	StatusShipped   Status = "expediee"
	StatusDelivered Status = "livree"
	StatusInvoiced  Status = "facturee"
	StatusCancelled Status = "annulee"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusValidated, StatusPreparing, StatusPrepared,
		StatusShipped, StatusDelivered, StatusInvoiced, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s == StatusInvoiced || s == StatusCancelled
}

// Invoiceable reports whether an invoice may be generated from the order.
func (s Status) Invoiceable() bool {
	switch s {
	case StatusValidated, StatusPreparing, StatusPrepared:
		return true
	default:
		return false
	}
}

// transitions lists the edges Transition accepts. Reaching facturee is left
// to invoice generation.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusValidated, StatusCancelled},
	StatusValidated: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusPrepared, StatusCancelled},
	StatusPrepared:  {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Seq         int64           `gorm:"not null" json:"-"`
	Numero      string          `gorm:"not null" json:"numero"`
	ClientID    snowflake.ID    `gorm:"not null" json:"client_id"`
	Status      Status          `gorm:"not null" json:"status"`
	Notes       string          `json:"notes"`
	TotalHT     decimal.Decimal `gorm:"column:total_ht;type:numeric(14,2)" json:"total_ht"`
	TotalTVA    decimal.Decimal `gorm:"column:total_tva;type:numeric(14,2)" json:"total_tva"`
	TotalTTC    decimal.Decimal `gorm:"column:total_ttc;type:numeric(14,2)" json:"total_ttc"`
	ValidatedAt *time.Time      `json:"validated_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	InvoicedAt  *time.Time      `json:"invoiced_at,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
	Lines       []Line          `gorm:"-" json:"lines"`
}

func (Order) TableName() string { return "orders" }

// Line snapshots the article and its price at order time.
type Line struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID    `gorm:"not null" json:"order_id"`
	Position    int             `gorm:"not null" json:"position"`
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

func (Line) TableName() string { return "order_lines" }

// ArticleIDs returns the distinct article ids of lines in line order.
func ArticleIDs(lines []Line) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(lines))
	ids := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ArticleID]; ok {
			continue
		}
		seen[line.ArticleID] = struct{}{}
		ids = append(ids, line.ArticleID)
	}
	return ids
}

// Stamp moves order to status and records the matching milestone time.
func (o *Order) Stamp(status Status, at time.Time) {
	o.Status = status
	o.UpdatedAt = at
	switch status {
	case StatusValidated:
		o.ValidatedAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
	case StatusInvoiced:
		o.InvoicedAt = &at
	}
}
