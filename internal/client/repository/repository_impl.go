package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, code, legal_name, email, phone, address, postal_code, city,
		   payment_terms_days, payment_method, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Code,
		client.LegalName,
		client.Email,
		client.Phone,
		client.Address,
		client.PostalCode,
		client.City,
		client.PaymentTermsDays,
		client.PaymentMethod,
		client.Active,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET legal_name = ?, email = ?, phone = ?, address = ?, postal_code = ?, city = ?,
		     payment_terms_days = ?, payment_method = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		client.LegalName,
		client.Email,
		client.Phone,
		client.Address,
		client.PostalCode,
		client.City,
		client.PaymentTermsDays,
		client.PaymentMethod,
		client.Active,
		client.UpdatedAt,
		client.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, legal_name, email, phone, address, postal_code, city,
		   payment_terms_days, payment_method, active, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListClientFilter, pageToken string) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := db.WithContext(ctx).Model(&domain.Client{})
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where("(LOWER(code) LIKE ? OR LOWER(legal_name) LIKE ? OR LOWER(city) LIKE ?)", like, like, like)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	stmt, err := pagination.Apply(stmt, "", pageToken)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}
