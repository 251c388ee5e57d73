package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gescom/internal/article/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/pricing"
	dbpkg "github.com/smallbiznis/gescom/pkg/db"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("article.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateArticleRequest) (domain.Article, error) {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return domain.Article{}, domain.ErrInvalidReference
	}
	designation := strings.TrimSpace(req.Designation)
	if designation == "" {
		return domain.Article{}, domain.ErrInvalidDesignation
	}
	if err := validatePrice(req.SellPriceHT); err != nil {
		return domain.Article{}, err
	}
	if req.TaxRate.Valid && !pricing.ValidPercent(req.TaxRate.Decimal) {
		return domain.Article{}, domain.ErrInvalidTaxRate
	}
	if req.StockMinimum < 0 {
		return domain.Article{}, domain.ErrInvalidStockMinimum
	}

	now := s.clock.Now()
	article := domain.Article{
		ID:           s.genID.Generate(),
		Reference:    reference,
		Designation:  designation,
		Family:       strings.TrimSpace(req.Family),
		SellPriceHT:  req.SellPriceHT,
		TaxRate:      req.TaxRate,
		StockMinimum: req.StockMinimum,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &article); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Article{}, domain.ErrDuplicateReference.WithEntity(reference)
		}
		return domain.Article{}, err
	}

	s.log.Info("article created",
		zap.String("article_id", article.ID.String()),
		zap.String("reference", article.Reference),
	)
	return article, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateArticleRequest) (domain.Article, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Article{}, err
	}

	article, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}

	if req.Designation != nil {
		designation := strings.TrimSpace(*req.Designation)
		if designation == "" {
			return domain.Article{}, domain.ErrInvalidDesignation
		}
		article.Designation = designation
	}
	if req.Family != nil {
		article.Family = strings.TrimSpace(*req.Family)
	}
	if req.SellPriceHT != nil {
		if err := validatePrice(*req.SellPriceHT); err != nil {
			return domain.Article{}, err
		}
		article.SellPriceHT = *req.SellPriceHT
	}
	switch {
	case req.ClearTaxRate:
		article.TaxRate = decimal.NullDecimal{}
	case req.TaxRate != nil:
		if !pricing.ValidPercent(*req.TaxRate) {
			return domain.Article{}, domain.ErrInvalidTaxRate
		}
		article.TaxRate = decimal.NewNullDecimal(*req.TaxRate)
	}
	if req.StockMinimum != nil {
		if *req.StockMinimum < 0 {
			return domain.Article{}, domain.ErrInvalidStockMinimum
		}
		article.StockMinimum = *req.StockMinimum
	}
	article.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, article); err != nil {
		return domain.Article{}, err
	}
	return *article, nil
}

// Retire hides the article from new order lines. Existing orders, invoices
// and the stock ledger keep referencing it.
func (s *Service) Retire(ctx context.Context, rawID string) (domain.Article, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Article{}, err
	}

	article, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}
	if !article.Active {
		return *article, nil
	}

	article.Active = false
	article.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, article); err != nil {
		return domain.Article{}, err
	}

	s.log.Info("article retired", zap.String("reference", article.Reference))
	return *article, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Article, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Article{}, err
	}
	article, err := s.mustFind(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}
	return *article, nil
}

func (s *Service) List(ctx context.Context, req domain.ListArticleRequest) (domain.ListArticleResponse, error) {
	filter := domain.ListArticleFilter{
		Query:    strings.TrimSpace(req.Query),
		Family:   strings.TrimSpace(req.Family),
		Active:   req.Active,
		LowStock: req.LowStock,
	}

	items, err := s.repo.List(ctx, s.db, filter, req.PageToken)
	if err != nil {
		return domain.ListArticleResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pagination.PageSize, func(article *domain.Article) string {
		return pagination.TokenForID(article.ID.String())
	})

	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, *item)
	}
	return domain.ListArticleResponse{PageInfo: *pageInfo, Articles: articles}, nil
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.Article, error) {
	article, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, domain.ErrNotFound.WithEntity(id.String())
	}
	return article, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() || !pricing.IsCents(price) {
		return domain.ErrInvalidPrice
	}
	return nil
}
