package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/delivery/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

const noteColumns = `id, seq, numero, order_id, order_numero, client_id, ship_to_name, ship_to_address,
	ship_to_postal_code, ship_to_city, carrier, packages, notes, shipped_at, delivered_at, received_by,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO delivery_notes (`+noteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.Seq,
		note.Numero,
		note.OrderID,
		note.OrderNumero,
		note.ClientID,
		note.ShipToName,
		note.ShipToAddress,
		note.ShipToPostalCode,
		note.ShipToCity,
		note.Carrier,
		note.Packages,
		note.Notes,
		note.ShippedAt,
		note.DeliveredAt,
		note.ReceivedBy,
		note.CreatedAt,
		note.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, line := range note.Lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO delivery_note_lines (id, note_id, position, article_id, reference, designation, quantity)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.NoteID,
			line.Position,
			line.ArticleID,
			line.Reference,
			line.Designation,
			line.Quantity,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Note, error) {
	return r.findByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Note, error) {
	return r.findByID(ctx, db, id, true)
}

func (r *repo) findByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM delivery_notes WHERE id = ?`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}
	var note domain.Note
	if err := db.WithContext(ctx).Raw(query, id).Scan(&note).Error; err != nil {
		return nil, err
	}
	if note.ID == 0 {
		return nil, nil
	}

	var lines []domain.Line
	err := db.WithContext(ctx).Raw(
		`SELECT id, note_id, position, article_id, reference, designation, quantity
		 FROM delivery_note_lines
		 WHERE note_id = ?
		 ORDER BY position`,
		note.ID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	note.Lines = lines
	return &note, nil
}

func (r *repo) MarkDelivered(ctx context.Context, db *gorm.DB, note *domain.Note) error {
	return db.WithContext(ctx).Exec(
		`UPDATE delivery_notes SET delivered_at = ?, received_by = ?, updated_at = ? WHERE id = ?`,
		note.DeliveredAt,
		note.ReceivedBy,
		note.UpdatedAt,
		note.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListNoteFilter, pageToken string) ([]*domain.Note, error) {
	var notes []*domain.Note
	stmt := db.WithContext(ctx).Model(&domain.Note{})
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.OrderID != 0 {
		stmt = stmt.Where("order_id = ?", filter.OrderID)
	}
	stmt, err := pagination.Apply(stmt, "", pageToken)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
