package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Client struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Code             string       `gorm:"not null;uniqueIndex" json:"code"`
	LegalName        string       `gorm:"not null" json:"legal_name"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone"`
	Address          string       `json:"address"`
	PostalCode       string       `json:"postal_code"`
	City             string       `json:"city"`
	PaymentTermsDays int          `gorm:"not null" json:"payment_terms_days"`
	PaymentMethod    string       `gorm:"not null" json:"payment_method"`
	Active           bool         `gorm:"not null" json:"active"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

// Payment methods accepted on clients, invoices and payments.
const (
	MethodVirement    = "virement"
	MethodCheque      = "cheque"
	MethodEspeces     = "especes"
	MethodCarte       = "carte"
	MethodPrelevement = "prelevement"
	MethodTraite      = "traite"
)

func ValidPaymentMethod(method string) bool {
	switch method {
	case MethodVirement, MethodCheque, MethodEspeces, MethodCarte, MethodPrelevement, MethodTraite:
		return true
	default:
		return false
	}
}
