package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/order/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

const orderColumns = `id, seq, numero, client_id, status, notes, total_ht, total_tva, total_ttc,
	validated_at, cancelled_at, invoiced_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Seq,
		order.Numero,
		order.ClientID,
		order.Status,
		order.Notes,
		order.TotalHT,
		order.TotalTVA,
		order.TotalTTC,
		order.ValidatedAt,
		order.CancelledAt,
		order.InvoicedAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, line := range order.Lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_lines (id, order_id, position, article_id, reference, designation, quantity,
			   unit_price_ht, discount_pct, tax_rate, amount_ht, amount_tva, amount_ttc)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.OrderID,
			line.Position,
			line.ArticleID,
			line.Reference,
			line.Designation,
			line.Quantity,
			line.UnitPriceHT,
			line.DiscountPct,
			line.TaxRate,
			line.AmountHT,
			line.AmountTVA,
			line.AmountTTC,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findByID(ctx, db, id, true)
}

func (r *repo) findByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}
	var order domain.Order
	if err := db.WithContext(ctx).Raw(query, id).Scan(&order).Error; err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	lines, err := r.FindLines(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (r *repo) FindLines(ctx context.Context, db *gorm.DB, orderIDs ...snowflake.ID) ([]domain.Line, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var lines []domain.Line
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, position, article_id, reference, designation, quantity,
		   unit_price_ht, discount_pct, tax_rate, amount_ht, amount_tva, amount_ttc
		 FROM order_lines
		 WHERE order_id IN ?
		 ORDER BY order_id, position`,
		orderIDs,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, validated_at = ?, cancelled_at = ?, invoiced_at = ?, updated_at = ?
		 WHERE id = ?`,
		order.Status,
		order.ValidatedAt,
		order.CancelledAt,
		order.InvoicedAt,
		order.UpdatedAt,
		order.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOrderFilter, pageToken string) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		stmt = stmt.Where("LOWER(numero) LIKE ?", "%"+q+"%")
	}
	stmt, err := pagination.Apply(stmt, "", pageToken)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CountOpen counts orders still moving through fulfilment.
func (r *repo) CountOpen(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM orders WHERE status NOT IN (?, ?)`,
		domain.StatusInvoiced,
		domain.StatusCancelled,
	).Scan(&count).Error
	return count, err
}
