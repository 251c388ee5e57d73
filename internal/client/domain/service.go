package domain

import (
	"context"

	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type CreateClientRequest struct {
	Code             string
	LegalName        string
	Email            string
	Phone            string
	Address          string
	PostalCode       string
	City             string
	PaymentTermsDays *int
	PaymentMethod    string
}

// UpdateClientRequest edits contact and terms fields. The code is immutable.
type UpdateClientRequest struct {
	ID               string
	LegalName        *string
	Email            *string
	Phone            *string
	Address          *string
	PostalCode       *string
	City             *string
	PaymentTermsDays *int
	PaymentMethod    *string
	Active           *bool
}

type ListClientRequest struct {
	PageToken string
	Query     string
	Active    *bool
}

type ListClientFilter struct {
	Query  string
	Active *bool
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	Update(context.Context, UpdateClientRequest) (Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
}

var (
	ErrInvalidID            = apperror.New(apperror.KindInvalidInput, "invalid_id")
	ErrInvalidCode          = apperror.New(apperror.KindInvalidInput, "invalid_code")
	ErrInvalidName          = apperror.New(apperror.KindInvalidInput, "invalid_name")
	ErrInvalidEmail         = apperror.New(apperror.KindInvalidInput, "invalid_email")
	ErrInvalidPaymentTerms  = apperror.New(apperror.KindInvalidInput, "invalid_payment_terms")
	ErrInvalidPaymentMethod = apperror.New(apperror.KindInvalidInput, "invalid_payment_method")
	ErrDuplicateCode        = apperror.New(apperror.KindInvalidInput, "duplicate_code")
	ErrInactive             = apperror.New(apperror.KindInvalidInput, "client_inactive")
	ErrNotFound             = apperror.New(apperror.KindNotFound, "client_not_found")
)
