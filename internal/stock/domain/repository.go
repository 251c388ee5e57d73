package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, movement *Movement) error
	SumByArticle(ctx context.Context, db *gorm.DB, articleID snowflake.ID) (int64, error)
	OutstandingByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Outstanding, error)
	List(ctx context.Context, db *gorm.DB, filter ListMovementFilter, pageToken string) ([]*Movement, error)
}
