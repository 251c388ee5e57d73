package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, article *Article) error
	Update(ctx context.Context, db *gorm.DB, article *Article) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Article, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Article, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Article, error)
	List(ctx context.Context, db *gorm.DB, filter ListArticleFilter, pageToken string) ([]*Article, error)
	// SetOnHand rewrites the cached stock level. Only the stock ledger calls it,
	// inside the transaction that appends the movement.
	SetOnHand(ctx context.Context, db *gorm.DB, id snowflake.ID, onHand int64, at time.Time) error
}
