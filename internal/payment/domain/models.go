package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is an append-only settlement against one invoice.
type Payment struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID    `gorm:"not null" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	PaidAt    time.Time       `gorm:"not null" json:"paid_at"`
	Method    string          `gorm:"not null" json:"method"`
	Reference string          `gorm:"not null" json:"reference"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
