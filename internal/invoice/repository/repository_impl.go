package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/invoice/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

const invoiceColumns = `id, seq, numero, kind, client_id, status, payment_method, notes,
	invoice_date, issued_at, due_date, sent_at, cancelled_at,
	total_ht, total_tva, total_ttc, amount_settled, snapshot, credited_invoice_id,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.Seq,
		invoice.Numero,
		invoice.Kind,
		invoice.ClientID,
		invoice.Status,
		invoice.PaymentMethod,
		invoice.Notes,
		invoice.InvoiceDate,
		invoice.IssuedAt,
		invoice.DueDate,
		invoice.SentAt,
		invoice.CancelledAt,
		invoice.TotalHT,
		invoice.TotalTVA,
		invoice.TotalTTC,
		invoice.AmountSettled,
		invoice.Snapshot,
		invoice.CreditedInvoiceID,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, line := range invoice.Lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_lines (id, invoice_id, position, order_id, article_id, reference, designation,
			   quantity, unit_price_ht, discount_pct, tax_rate, amount_ht, amount_tva, amount_ttc)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.InvoiceID,
			line.Position,
			line.OrderID,
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

	for _, orderID := range invoice.OrderIDs {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_orders (invoice_id, order_id) VALUES (?, ?)`,
			invoice.ID,
			orderID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `id = ?`, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `id = ?`, id, true)
}

func (r *repo) FindCreditNote(ctx context.Context, db *gorm.DB, creditedID snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `credited_invoice_id = ?`, creditedID, false)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg snowflake.ID, forUpdate bool) (*domain.Invoice, error) {
	if arg == 0 {
		return nil, nil
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + where
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}
	var invoice domain.Invoice
	if err := db.WithContext(ctx).Raw(query, arg).Scan(&invoice).Error; err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	if err := r.loadChildren(ctx, db, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) loadChildren(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	var lines []domain.Line
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, position, order_id, article_id, reference, designation, quantity,
		   unit_price_ht, discount_pct, tax_rate, amount_ht, amount_tva, amount_ttc
		 FROM invoice_lines
		 WHERE invoice_id = ?
		 ORDER BY position`,
		invoice.ID,
	).Scan(&lines).Error
	if err != nil {
		return err
	}
	invoice.Lines = lines

	var orderIDs []snowflake.ID
	err = db.WithContext(ctx).Raw(
		`SELECT order_id FROM invoice_orders WHERE invoice_id = ? ORDER BY order_id`,
		invoice.ID,
	).Scan(&orderIDs).Error
	if err != nil {
		return err
	}
	invoice.OrderIDs = orderIDs
	return nil
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, issued_at = ?, due_date = ?, sent_at = ?, cancelled_at = ?,
		     amount_settled = ?, snapshot = ?, updated_at = ?
		 WHERE id = ?`,
		invoice.Status,
		invoice.IssuedAt,
		invoice.DueDate,
		invoice.SentAt,
		invoice.CancelledAt,
		invoice.AmountSettled,
		invoice.Snapshot,
		invoice.UpdatedAt,
		invoice.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListInvoiceFilter, pageToken string) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{}).Omit("snapshot")
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	stmt, err := pagination.Apply(stmt, "", pageToken)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListOpen(ctx context.Context, db *gorm.DB) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE kind = ? AND status IN ?
		 ORDER BY id`,
		domain.KindInvoice,
		domain.OpenStatuses,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
