package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindLines(ctx context.Context, db *gorm.DB, orderIDs ...snowflake.ID) ([]Line, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, order *Order) error
	List(ctx context.Context, db *gorm.DB, filter ListOrderFilter, pageToken string) ([]*Order, error)
	CountOpen(ctx context.Context, db *gorm.DB) (int64, error)
}
