package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/stock/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, movement *domain.Movement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stock_movements (id, seq, numero, article_id, quantity, reason, order_id, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movement.ID,
		movement.Seq,
		movement.Numero,
		movement.ArticleID,
		movement.Quantity,
		movement.Reason,
		movement.OrderID,
		movement.Note,
		movement.CreatedAt,
	).Error
}

func (r *repo) SumByArticle(ctx context.Context, db *gorm.DB, articleID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_movements WHERE article_id = ?`,
		articleID,
	).Scan(&total).Error
	return total, err
}

// OutstandingByOrder nets reservations against releases per article and keeps
// the articles still holding stock for the order.
func (r *repo) OutstandingByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Outstanding, error) {
	var rows []struct {
		ArticleID snowflake.ID
		Net       int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT article_id, SUM(quantity) AS net
		 FROM stock_movements
		 WHERE order_id = ? AND reason IN (?, ?)
		 GROUP BY article_id
		 HAVING SUM(quantity) < 0
		 ORDER BY article_id`,
		orderID,
		domain.ReasonReservation,
		domain.ReasonRelease,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Outstanding, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Outstanding{ArticleID: row.ArticleID, Quantity: -row.Net})
	}
	return out, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListMovementFilter, pageToken string) ([]*domain.Movement, error) {
	var movements []*domain.Movement
	stmt := db.WithContext(ctx).Model(&domain.Movement{})
	if filter.ArticleID != 0 {
		stmt = stmt.Where("article_id = ?", filter.ArticleID)
	}
	if filter.OrderID != 0 {
		stmt = stmt.Where("order_id = ?", filter.OrderID)
	}
	if filter.Reason != "" {
		stmt = stmt.Where("reason = ?", filter.Reason)
	}
	stmt, err := pagination.Apply(stmt, "", pageToken)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
