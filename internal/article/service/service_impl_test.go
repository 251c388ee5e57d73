package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/internal/article/domain"
	"github.com/smallbiznis/gescom/internal/article/repository"
	"github.com/smallbiznis/gescom/internal/clock"
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
		DB:    testdb.Open(t),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateArticle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, domain.CreateArticleRequest{
		Reference:    " VIS-M6 ",
		Designation:  "Vis M6 inox",
		Family:       "Quincaillerie",
		SellPriceHT:  decimal.RequireFromString("0.45"),
		StockMinimum: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "VIS-M6", article.Reference)
	assert.True(t, article.Active)
	assert.Zero(t, article.OnHand)

	got, err := svc.GetByID(ctx, article.ID.String())
	require.NoError(t, err)
	assert.True(t, got.SellPriceHT.Equal(decimal.RequireFromString("0.45")))
	assert.False(t, got.TaxRate.Valid)
	assert.True(t, got.LowStock())
}

func TestCreateArticleValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateArticleRequest
		want error
	}{
		{name: "missing reference", req: domain.CreateArticleRequest{Designation: "x"}, want: domain.ErrInvalidReference},
		{name: "missing designation", req: domain.CreateArticleRequest{Reference: "A"}, want: domain.ErrInvalidDesignation},
		{name: "negative price", req: domain.CreateArticleRequest{Reference: "A", Designation: "x", SellPriceHT: decimal.NewFromInt(-1)}, want: domain.ErrInvalidPrice},
		{name: "sub-cent price", req: domain.CreateArticleRequest{Reference: "A", Designation: "x", SellPriceHT: decimal.RequireFromString("1.005")}, want: domain.ErrInvalidPrice},
		{name: "tax rate over 100", req: domain.CreateArticleRequest{Reference: "A", Designation: "x", TaxRate: decimal.NewNullDecimal(decimal.NewFromInt(120))}, want: domain.ErrInvalidTaxRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
		})
	}
}

func TestCreateArticleDuplicateReference(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	req := domain.CreateArticleRequest{Reference: "REF-1", Designation: "Premier", SellPriceHT: decimal.NewFromInt(10)}

	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, domain.ErrDuplicateReference)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "REF-1", appErr.Entity)
}

func TestUpdateAndRetireArticle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, domain.CreateArticleRequest{
		Reference:   "LIVRE-1",
		Designation: "Livre",
		SellPriceHT: decimal.NewFromInt(12),
		TaxRate:     decimal.NewNullDecimal(decimal.RequireFromString("5.5")),
	})
	require.NoError(t, err)

	price := decimal.RequireFromString("13.50")
	minimum := int64(3)
	updated, err := svc.Update(ctx, domain.UpdateArticleRequest{
		ID:           article.ID.String(),
		SellPriceHT:  &price,
		ClearTaxRate: true,
		StockMinimum: &minimum,
	})
	require.NoError(t, err)
	assert.True(t, updated.SellPriceHT.Equal(price))
	assert.False(t, updated.TaxRate.Valid)
	assert.Equal(t, int64(3), updated.StockMinimum)

	retired, err := svc.Retire(ctx, article.ID.String())
	require.NoError(t, err)
	assert.False(t, retired.Active)

	got, err := svc.GetByID(ctx, article.ID.String())
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.False(t, got.LowStock())
}

func TestGetArticleErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.GetByID(ctx, "123456")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestListArticlesFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, ref := range []string{"CABLE-1", "CABLE-2", "PRISE-1"} {
		_, err := svc.Create(ctx, domain.CreateArticleRequest{
			Reference:   ref,
			Designation: "Article " + ref,
			Family:      "Electricite",
			SellPriceHT: decimal.NewFromInt(5),
		})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListArticleRequest{Query: "cable"})
	require.NoError(t, err)
	require.Len(t, resp.Articles, 2)
	assert.Equal(t, "CABLE-2", resp.Articles[0].Reference)
	assert.False(t, resp.HasMore)

	_, err = svc.List(ctx, domain.ListArticleRequest{PageToken: "%%%"})
	assert.Error(t, err)
}
