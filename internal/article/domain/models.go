package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Article struct {
	ID           snowflake.ID        `gorm:"primaryKey" json:"id"`
	Reference    string              `gorm:"not null;uniqueIndex" json:"reference"`
	Designation  string              `gorm:"not null" json:"designation"`
	Family       string              `gorm:"not null" json:"family"`
	SellPriceHT  decimal.Decimal     `gorm:"column:sell_price_ht;type:numeric(14,2);not null" json:"sell_price_ht"`
	TaxRate      decimal.NullDecimal `gorm:"column:tax_rate;type:numeric(5,2)" json:"tax_rate"`
	OnHand       int64               `gorm:"not null" json:"on_hand"`
	StockMinimum int64               `gorm:"not null" json:"stock_minimum"`
	Active       bool                `gorm:"not null" json:"active"`
	CreatedAt    time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"not null" json:"updated_at"`
}

func (Article) TableName() string { return "articles" }

// LowStock reports whether an active article sits at or below its threshold.
func (a Article) LowStock() bool {
	return a.Active && a.OnHand <= a.StockMinimum
}
