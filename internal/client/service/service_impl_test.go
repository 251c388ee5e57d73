package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/client/repository"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	"github.com/smallbiznis/gescom/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:     testdb.Open(t),
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Config: config.Config{Billing: config.BillingConfig{DefaultPaymentTermsDays: 45}},
		Repo:   repository.Provide(),
	})
}

func TestCreateClientDefaults(t *testing.T) {
	svc := newTestService(t)

	client, err := svc.Create(context.Background(), domain.CreateClientRequest{
		Code:      "cli001",
		LegalName: "Boulangerie Martin",
		Email:     "contact@martin.fr",
		City:      "Lyon",
	})
	require.NoError(t, err)
	assert.Equal(t, "CLI001", client.Code)
	assert.Equal(t, 45, client.PaymentTermsDays)
	assert.Equal(t, domain.MethodVirement, client.PaymentMethod)
	assert.True(t, client.Active)
}

func TestCreateClientValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	negative := -1

	_, err := svc.Create(ctx, domain.CreateClientRequest{LegalName: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Code: "A", LegalName: "x", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Code: "A", LegalName: "x", PaymentTermsDays: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentTerms)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Code: "A", LegalName: "x", PaymentMethod: "bitcoin"})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
}

func TestCreateClientDuplicateCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateClientRequest{Code: "DUP", LegalName: "One"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateClientRequest{Code: "dup", LegalName: "Two"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestUpdateClientKeepsCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	client, err := svc.Create(ctx, domain.CreateClientRequest{Code: "C1", LegalName: "Atelier"})
	require.NoError(t, err)

	city := "Nantes"
	terms := 60
	method := "cheque"
	inactive := false
	updated, err := svc.Update(ctx, domain.UpdateClientRequest{
		ID:               client.ID.String(),
		City:             &city,
		PaymentTermsDays: &terms,
		PaymentMethod:    &method,
		Active:           &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "C1", updated.Code)
	assert.Equal(t, "Nantes", updated.City)
	assert.Equal(t, 60, updated.PaymentTermsDays)
	assert.False(t, updated.Active)

	active := false
	resp, err := svc.List(ctx, domain.ListClientRequest{Active: &active})
	require.NoError(t, err)
	require.Len(t, resp.Clients, 1)
	assert.Equal(t, client.ID, resp.Clients[0].ID)
}

func TestGetClientNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetByID(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
