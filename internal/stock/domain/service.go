package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

type PostMovementRequest struct {
	ArticleID snowflake.ID
	Quantity  int64
	Reason    Reason
	OrderID   *snowflake.ID
	Note      string
}

type AdjustRequest struct {
	ArticleID string
	Delta     int64
	Note      string
}

type InventoryRequest struct {
	ArticleID string
	Counted   int64
	Note      string
}

// InventoryResult carries the adjustment posted by a count, nil when the count
// matched the cached quantity.
type InventoryResult struct {
	Movement *Movement `json:"movement,omitempty"`
	OnHand   int64     `json:"on_hand"`
}

type ListMovementRequest struct {
	PageToken string
	ArticleID string
	OrderID   string
	Reason    string
}

type ListMovementFilter struct {
	ArticleID snowflake.ID
	OrderID   snowflake.ID
	Reason    Reason
}

type ListMovementResponse struct {
	pagination.PageInfo
	Movements []Movement `json:"movements"`
}

type Service interface {
	// Post appends a movement in its own transaction, holding the article lock.
	Post(context.Context, PostMovementRequest) (Movement, error)
	// PostTx appends a movement inside tx. The caller must already hold
	// LockKeys for the article.
	PostTx(ctx context.Context, tx *gorm.DB, req PostMovementRequest) (Movement, error)
	OnHand(ctx context.Context, articleID snowflake.ID) (int64, error)
	Fold(ctx context.Context, articleID snowflake.ID) (int64, error)
	Outstanding(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) ([]Outstanding, error)
	Adjust(context.Context, AdjustRequest) (Movement, error)
	Inventory(context.Context, InventoryRequest) (InventoryResult, error)
	ListMovements(context.Context, ListMovementRequest) (ListMovementResponse, error)
}

var (
	ErrInvalidID         = apperror.New(apperror.KindInvalidInput, "invalid_id")
	ErrInvalidQuantity   = apperror.New(apperror.KindInvalidInput, "invalid_quantity")
	ErrInvalidReason     = apperror.New(apperror.KindInvalidInput, "invalid_reason")
	ErrInvalidCount      = apperror.New(apperror.KindInvalidInput, "invalid_count")
	ErrInsufficientStock = apperror.New(apperror.KindInsufficientStock, "insufficient_stock")
)
