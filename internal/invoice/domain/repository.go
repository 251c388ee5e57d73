package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindCreditNote(ctx context.Context, db *gorm.DB, creditedID snowflake.ID) (*Invoice, error)
	UpdateState(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	List(ctx context.Context, db *gorm.DB, filter ListInvoiceFilter, pageToken string) ([]*Invoice, error)
	// ListOpen returns issued invoices that are not fully paid, without lines.
	ListOpen(ctx context.Context, db *gorm.DB) ([]*Invoice, error)
}
