package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gescom/internal/apperror"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
)

type RecordPaymentRequest struct {
	InvoiceID string
	Amount    decimal.Decimal
	// PaidAt defaults to now when zero.
	PaidAt time.Time
	Method string
}

// RecordPaymentResponse carries the payment and the invoice it settled.
type RecordPaymentResponse struct {
	Payment Payment               `json:"payment"`
	Invoice invoicedomain.Invoice `json:"invoice"`
}

// Receipt is a rendered payment receipt.
type Receipt struct {
	Filename string
	Content  []byte
}

type Service interface {
	Record(context.Context, RecordPaymentRequest) (RecordPaymentResponse, error)
	List(ctx context.Context, invoiceID string) ([]Payment, error)
	// RecomputeOverdue rewrites the stored status of every open invoice whose
	// derived status at now differs, and returns how many changed.
	RecomputeOverdue(ctx context.Context, now time.Time) (int, error)
	Receipt(ctx context.Context, reference string) (Receipt, error)
}

var (
	ErrInvalidID     = apperror.New(apperror.KindInvalidInput, "invalid_id")
	ErrInvalidAmount = apperror.New(apperror.KindInvalidInput, "invalid_amount")
	ErrInvalidMethod = apperror.New(apperror.KindInvalidInput, "invalid_payment_method")
	ErrNotIssued     = apperror.New(apperror.KindInvalidTransition, "invoice_not_issued")
	ErrNotPayable    = apperror.New(apperror.KindAlreadyTerminal, "invoice_not_payable")
	ErrOverPayment   = apperror.New(apperror.KindOverPayment, "over_payment")
	ErrNotFound      = apperror.New(apperror.KindNotFound, "payment_not_found")
)
