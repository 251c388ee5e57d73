package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/article/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

const articleColumns = `id, reference, designation, family, sell_price_ht, tax_rate, on_hand,
	stock_minimum, active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, article *domain.Article) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO articles (`+articleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.Reference,
		article.Designation,
		article.Family,
		article.SellPriceHT,
		article.TaxRate,
		article.OnHand,
		article.StockMinimum,
		article.Active,
		article.CreatedAt,
		article.UpdatedAt,
	).Error
}

// Update rewrites the catalog fields. on_hand is owned by SetOnHand.
func (r *repo) Update(ctx context.Context, db *gorm.DB, article *domain.Article) error {
	return db.WithContext(ctx).Exec(
		`UPDATE articles
		 SET designation = ?, family = ?, sell_price_ht = ?, tax_rate = ?, stock_minimum = ?,
		     active = ?, updated_at = ?
		 WHERE id = ?`,
		article.Designation,
		article.Family,
		article.SellPriceHT,
		article.TaxRate,
		article.StockMinimum,
		article.Active,
		article.UpdatedAt,
		article.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Article, error) {
	return r.findByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Article, error) {
	return r.findByID(ctx, db, id, true)
}

func (r *repo) findByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = ?`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}
	var article domain.Article
	if err := db.WithContext(ctx).Raw(query, id).Scan(&article).Error; err != nil {
		return nil, err
	}
	if article.ID == 0 {
		return nil, nil
	}
	return &article, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var articles []*domain.Article
	err := db.WithContext(ctx).Raw(
		`SELECT `+articleColumns+` FROM articles WHERE id IN ?`,
		ids,
	).Scan(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListArticleFilter, pageToken string) ([]*domain.Article, error) {
	var articles []*domain.Article
	stmt := db.WithContext(ctx).Model(&domain.Article{})
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where("(LOWER(reference) LIKE ? OR LOWER(designation) LIKE ?)", like, like)
	}
	if filter.Family != "" {
		stmt = stmt.Where("family = ?", filter.Family)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.LowStock {
		stmt = stmt.Where("active = ? AND on_hand <= stock_minimum", true)
	}
	stmt, err := pagination.Apply(stmt, "", pageToken)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *repo) SetOnHand(ctx context.Context, db *gorm.DB, id snowflake.ID, onHand int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE articles SET on_hand = ?, updated_at = ? WHERE id = ?`,
		onHand,
		at,
		id,
	).Error
}
