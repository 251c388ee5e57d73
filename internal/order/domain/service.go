package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateLineRequest struct {
	ArticleID   string
	Quantity    int64
	DiscountPct decimal.Decimal
}

type CreateOrderRequest struct {
	ClientID string
	Lines    []CreateLineRequest
	Notes    string
}

type TransitionOrderRequest struct {
	ID     string
	Target Status
}

type ListOrderRequest struct {
	PageToken string
	ClientID  string
	Status    string
	Query     string
}

type ListOrderFilter struct {
	ClientID snowflake.ID
	Status   Status
	Query    string
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type Service interface {
	Create(context.Context, CreateOrderRequest) (Order, error)
	Transition(context.Context, TransitionOrderRequest) (Order, error)
	Validate(ctx context.Context, id string) (Order, error)
	Cancel(ctx context.Context, id string) (Order, error)
	GetByID(ctx context.Context, id string) (Order, error)
	List(context.Context, ListOrderRequest) (ListOrderResponse, error)

	// LoadForInvoicing reads orders inside tx for invoice generation. The
	// caller holds the order locks.
	LoadForInvoicing(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]*Order, error)
	// MarkInvoicedTx converts the order's reservation into consumption and
	// moves it to facturee. The caller holds the order and article locks.
	MarkInvoicedTx(ctx context.Context, tx *gorm.DB, order *Order) error
	// FulfilTx moves the order to expediee or livree inside tx, with no stock
	// effect. The caller holds the order lock.
	FulfilTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, target Status) (*Order, error)
}

var (
	ErrInvalidID         = apperror.New(apperror.KindInvalidInput, "invalid_id")
	ErrNoLines           = apperror.New(apperror.KindInvalidInput, "no_lines")
	ErrInvalidQuantity   = apperror.New(apperror.KindInvalidInput, "invalid_quantity")
	ErrInvalidDiscount   = apperror.New(apperror.KindInvalidInput, "invalid_discount")
	ErrDuplicateArticle  = apperror.New(apperror.KindInvalidInput, "duplicate_article")
	ErrInvalidStatus     = apperror.New(apperror.KindInvalidInput, "invalid_status")
	ErrNotFound          = apperror.New(apperror.KindNotFound, "order_not_found")
	ErrInvalidTransition = apperror.New(apperror.KindInvalidTransition, "invalid_order_transition")
	ErrInvoiceRequired   = apperror.New(apperror.KindInvalidTransition, "invoice_required")
	ErrTerminal          = apperror.New(apperror.KindAlreadyTerminal, "order_terminal")
	ErrNotInvoiceable    = apperror.New(apperror.KindInvalidInput, "order_not_invoiceable")
)
