package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type GenerateInvoiceRequest struct {
	OrderIDs      []string
	PaymentMethod string
	Notes         string
}

type ListInvoiceRequest struct {
	PageToken string
	ClientID  string
	Status    string
	Kind      string
}

type ListInvoiceFilter struct {
	ClientID snowflake.ID
	Status   Status
	Kind     Kind
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// PDFExport is a rendered invoice document.
type PDFExport struct {
	Filename string
	Content  []byte
}

type Service interface {
	Generate(context.Context, GenerateInvoiceRequest) (Invoice, error)
	Issue(ctx context.Context, id string) (Invoice, error)
	MarkSent(ctx context.Context, id string) (Invoice, error)
	Cancel(ctx context.Context, id string) (Invoice, error)
	CreditNote(ctx context.Context, id string) (Invoice, error)
	ExportPDF(ctx context.Context, id string) (PDFExport, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
}

var (
	ErrInvalidID            = apperror.New(apperror.KindInvalidInput, "invalid_id")
	ErrNoOrders             = apperror.New(apperror.KindInvalidInput, "no_orders")
	ErrDuplicateOrder       = apperror.New(apperror.KindInvalidInput, "duplicate_order")
	ErrMixedClients         = apperror.New(apperror.KindInvalidInput, "mixed_clients")
	ErrInvalidStatus        = apperror.New(apperror.KindInvalidInput, "invalid_status")
	ErrInvalidPaymentMethod = apperror.New(apperror.KindInvalidInput, "invalid_payment_method")
	ErrInvalidKind          = apperror.New(apperror.KindInvalidInput, "invalid_kind")
	ErrNotIssued            = apperror.New(apperror.KindInvalidInput, "invoice_not_issued")
	ErrNotFound             = apperror.New(apperror.KindNotFound, "invoice_not_found")
	ErrInvalidTransition    = apperror.New(apperror.KindInvalidTransition, "invalid_invoice_transition")
	ErrHasPayments          = apperror.New(apperror.KindInvalidTransition, "invoice_has_payments")
	ErrNotPaid              = apperror.New(apperror.KindInvalidTransition, "invoice_not_paid")
	ErrCreditNoteExists     = apperror.New(apperror.KindInvalidTransition, "credit_note_exists")
	ErrAlreadyInvoiced      = apperror.New(apperror.KindInvalidInput, "order_already_invoiced")
	ErrTerminal             = apperror.New(apperror.KindAlreadyTerminal, "invoice_terminal")
)
