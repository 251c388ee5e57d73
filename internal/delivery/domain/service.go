package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type ShipRequest struct {
	OrderID  string
	Carrier  string
	Packages int
	Notes    string
}

type DeliverRequest struct {
	ID         string
	ReceivedBy string
}

type ListNoteRequest struct {
	PageToken string
	ClientID  string
	OrderID   string
}

type ListNoteFilter struct {
	ClientID snowflake.ID
	OrderID  snowflake.ID
}

type ListNoteResponse struct {
	pagination.PageInfo
	Notes []Note `json:"delivery_notes"`
}

type PDFExport struct {
	Filename string
	Content  []byte
}

// Service issues delivery notes. Ship and Deliver move the order along
// preparee -> expediee -> livree in the same transaction as the note.
type Service interface {
	Ship(context.Context, ShipRequest) (Note, error)
	Deliver(context.Context, DeliverRequest) (Note, error)
	GetByID(ctx context.Context, id string) (Note, error)
	List(context.Context, ListNoteRequest) (ListNoteResponse, error)
	ExportPDF(ctx context.Context, id string) (PDFExport, error)
}

var (
	ErrInvalidID        = apperror.New(apperror.KindInvalidInput, "invalid_id")
	ErrInvalidPackages  = apperror.New(apperror.KindInvalidInput, "invalid_packages")
	ErrNotFound         = apperror.New(apperror.KindNotFound, "delivery_note_not_found")
	ErrAlreadyShipped   = apperror.New(apperror.KindInvalidTransition, "order_already_shipped")
	ErrAlreadyDelivered = apperror.New(apperror.KindAlreadyTerminal, "delivery_note_delivered")
)
