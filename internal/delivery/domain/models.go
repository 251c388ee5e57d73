// Package domain contains the delivery note (bon de livraison) model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Note documents the shipment of one order. The ship-to block is copied from
// the client when the order ships, so later client edits do not rewrite it.
type Note struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Seq              int64        `gorm:"not null" json:"-"`
	Numero           string       `gorm:"not null" json:"numero"`
	OrderID          snowflake.ID `gorm:"not null" json:"order_id"`
	OrderNumero      string       `gorm:"not null" json:"order_numero"`
	ClientID         snowflake.ID `gorm:"not null" json:"client_id"`
	ShipToName       string       `gorm:"not null" json:"ship_to_name"`
	ShipToAddress    string       `json:"ship_to_address"`
	ShipToPostalCode string       `json:"ship_to_postal_code"`
	ShipToCity       string       `json:"ship_to_city"`
	Carrier          string       `json:"carrier"`
	Packages         int          `gorm:"not null" json:"packages"`
	Notes            string       `json:"notes"`
	ShippedAt        time.Time    `gorm:"not null" json:"shipped_at"`
	DeliveredAt      *time.Time   `json:"delivered_at,omitempty"`
	ReceivedBy       string       `json:"received_by"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
	Lines            []Line       `gorm:"-" json:"lines"`
}

func (Note) TableName() string { return "delivery_notes" }

type Line struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	NoteID      snowflake.ID `gorm:"not null" json:"note_id"`
	Position    int          `gorm:"not null" json:"position"`
	ArticleID   snowflake.ID `gorm:"not null" json:"article_id"`
	Reference   string       `gorm:"not null" json:"reference"`
	Designation string       `gorm:"not null" json:"designation"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
}

func (Line) TableName() string { return "delivery_note_lines" }

func (n *Note) Delivered() bool {
	return n.DeliveredAt != nil
}
