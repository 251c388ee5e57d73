package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Reason classifies a stock movement and fixes the sign of its quantity.
type Reason string

const (
	ReasonReservation Reason = "reservation"
	ReasonConsumption Reason = "consumption"
	ReasonRelease     Reason = "release"
	ReasonAdjustment  Reason = "adjustment"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonReservation, ReasonConsumption, ReasonRelease, ReasonAdjustment:
		return true
	default:
		return false
	}
}

// AcceptsQuantity reports whether qty has the sign the reason requires.
func (r Reason) AcceptsQuantity(qty int64) bool {
	if qty == 0 {
		return false
	}
	switch r {
	case ReasonReservation, ReasonConsumption:
		return qty < 0
	case ReasonRelease:
		return qty > 0
	case ReasonAdjustment:
		return true
	default:
		return false
	}
}

// Movement is one append-only ledger entry.
type Movement struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Seq       int64         `gorm:"not null" json:"-"`
	Numero    string        `gorm:"not null" json:"numero"`
	ArticleID snowflake.ID  `gorm:"not null" json:"article_id"`
	Quantity  int64         `gorm:"not null" json:"quantity"`
	Reason    Reason        `gorm:"not null" json:"reason"`
	OrderID   *snowflake.ID `json:"order_id,omitempty"`
	Note      string        `json:"note"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
}

func (Movement) TableName() string { return "stock_movements" }

// Outstanding is the reservation an order still holds on one article.
type Outstanding struct {
	ArticleID snowflake.ID
	Quantity  int64
}
