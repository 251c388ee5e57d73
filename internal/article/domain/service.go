package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type CreateArticleRequest struct {
	Reference    string
	Designation  string
	Family       string
	SellPriceHT  decimal.Decimal
	TaxRate      decimal.NullDecimal
	StockMinimum int64
}

// UpdateArticleRequest patches the editable fields. Nil pointers are left
// untouched. ClearTaxRate drops the override back to the family rate.
type UpdateArticleRequest struct {
	ID           string
	Designation  *string
	Family       *string
	SellPriceHT  *decimal.Decimal
	TaxRate      *decimal.Decimal
	ClearTaxRate bool
	StockMinimum *int64
}

type ListArticleRequest struct {
	PageToken string
	Query     string
	Family    string
	Active    *bool
	LowStock  bool
}

type ListArticleFilter struct {
	Query    string
	Family   string
	Active   *bool
	LowStock bool
}

type ListArticleResponse struct {
	pagination.PageInfo
	Articles []Article `json:"articles"`
}

type Service interface {
	Create(context.Context, CreateArticleRequest) (Article, error)
	Update(context.Context, UpdateArticleRequest) (Article, error)
	Retire(ctx context.Context, id string) (Article, error)
	GetByID(ctx context.Context, id string) (Article, error)
	List(context.Context, ListArticleRequest) (ListArticleResponse, error)
}

var (
	ErrInvalidID           = apperror.New(apperror.KindInvalidInput, "invalid_id")
	ErrInvalidReference    = apperror.New(apperror.KindInvalidInput, "invalid_reference")
	ErrInvalidDesignation  = apperror.New(apperror.KindInvalidInput, "invalid_designation")
	ErrInvalidPrice        = apperror.New(apperror.KindInvalidInput, "invalid_price")
	ErrInvalidTaxRate      = apperror.New(apperror.KindInvalidInput, "invalid_tax_rate")
	ErrInvalidStockMinimum = apperror.New(apperror.KindInvalidInput, "invalid_stock_minimum")
	ErrDuplicateReference  = apperror.New(apperror.KindInvalidInput, "duplicate_reference")
	ErrRetired             = apperror.New(apperror.KindInvalidInput, "article_retired")
	ErrNotFound            = apperror.New(apperror.KindNotFound, "article_not_found")
)
