package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, note *Note) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Note, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Note, error)
	MarkDelivered(ctx context.Context, db *gorm.DB, note *Note) error
	List(ctx context.Context, db *gorm.DB, filter ListNoteFilter, pageToken string) ([]*Note, error)
}
