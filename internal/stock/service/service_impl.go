package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	articledomain "github.com/smallbiznis/gescom/internal/article/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/lock"
	"github.com/smallbiznis/gescom/internal/numbering"
	"github.com/smallbiznis/gescom/internal/observability/metrics"
	"github.com/smallbiznis/gescom/internal/stock/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Locker   lock.Locker
	Repo     domain.Repository
	Articles articledomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	locker   lock.Locker
	repo     domain.Repository
	articles articledomain.Repository
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("stock.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		locker:   p.Locker,
		repo:     p.Repo,
		articles: p.Articles,
		metrics:  p.Metrics,
	}
}

// LockKeys lists the keys a caller of PostTx must hold for articleIDs.
func LockKeys(articleIDs ...snowflake.ID) []string {
	keys := make([]string, 0, len(articleIDs)+1)
	for _, id := range articleIDs {
		keys = append(keys, lock.Key("article", id.String()))
	}
	return append(keys, numbering.Movements.LockKey())
}

func (s *Service) Post(ctx context.Context, req domain.PostMovementRequest) (domain.Movement, error) {
	if err := validateMovement(req); err != nil {
		return domain.Movement{}, err
	}

	release, err := s.locker.Acquire(ctx, LockKeys(req.ArticleID)...)
	if err != nil {
		return domain.Movement{}, err
	}
	defer release()

	var movement domain.Movement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		movement, err = s.PostTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return domain.Movement{}, err
	}
	return movement, nil
}

func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, req domain.PostMovementRequest) (domain.Movement, error) {
	if err := validateMovement(req); err != nil {
		return domain.Movement{}, err
	}

	article, err := s.articles.FindByIDForUpdate(ctx, tx, req.ArticleID)
	if err != nil {
		return domain.Movement{}, err
	}
	if article == nil {
		return domain.Movement{}, articledomain.ErrNotFound.WithEntity(req.ArticleID.String())
	}

	onHand := article.OnHand + req.Quantity
	if onHand < 0 {
		return domain.Movement{}, domain.ErrInsufficientStock.WithEntity(article.Reference)
	}

	now := s.clock.Now()
	seq, numero, err := numbering.Movements.Next(ctx, tx, now)
	if err != nil {
		return domain.Movement{}, err
	}

	movement := domain.Movement{
		ID:        s.genID.Generate(),
		Seq:       seq,
		Numero:    numero,
		ArticleID: article.ID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		OrderID:   req.OrderID,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, &movement); err != nil {
		return domain.Movement{}, err
	}
	if err := s.articles.SetOnHand(ctx, tx, article.ID, onHand, now); err != nil {
		return domain.Movement{}, err
	}

	s.metrics.RecordStockMovement(ctx, string(req.Reason), 1)
	s.log.Debug("stock movement posted",
		zap.String("numero", numero),
		zap.String("reference", article.Reference),
		zap.String("reason", string(req.Reason)),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("on_hand", onHand),
	)
	return movement, nil
}

func (s *Service) OnHand(ctx context.Context, articleID snowflake.ID) (int64, error) {
	article, err := s.articles.FindByID(ctx, s.db, articleID)
	if err != nil {
		return 0, err
	}
	if article == nil {
		return 0, articledomain.ErrNotFound.WithEntity(articleID.String())
	}
	return article.OnHand, nil
}

func (s *Service) Fold(ctx context.Context, articleID snowflake.ID) (int64, error) {
	return s.repo.SumByArticle(ctx, s.db, articleID)
}

func (s *Service) Outstanding(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) ([]domain.Outstanding, error) {
	if tx == nil {
		tx = s.db
	}
	return s.repo.OutstandingByOrder(ctx, tx, orderID)
}

func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (domain.Movement, error) {
	articleID, err := parseID(req.ArticleID)
	if err != nil {
		return domain.Movement{}, err
	}
	return s.Post(ctx, domain.PostMovementRequest{
		ArticleID: articleID,
		Quantity:  req.Delta,
		Reason:    domain.ReasonAdjustment,
		Note:      req.Note,
	})
}

// Inventory aligns the cached quantity with a physical count by posting the
// difference as an adjustment.
func (s *Service) Inventory(ctx context.Context, req domain.InventoryRequest) (domain.InventoryResult, error) {
	articleID, err := parseID(req.ArticleID)
	if err != nil {
		return domain.InventoryResult{}, err
	}
	if req.Counted < 0 {
		return domain.InventoryResult{}, domain.ErrInvalidCount
	}

	release, err := s.locker.Acquire(ctx, LockKeys(articleID)...)
	if err != nil {
		return domain.InventoryResult{}, err
	}
	defer release()

	var result domain.InventoryResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		article, err := s.articles.FindByIDForUpdate(ctx, tx, articleID)
		if err != nil {
			return err
		}
		if article == nil {
			return articledomain.ErrNotFound.WithEntity(articleID.String())
		}

		result.OnHand = article.OnHand
		delta := req.Counted - article.OnHand
		if delta == 0 {
			return nil
		}

		note := strings.TrimSpace(req.Note)
		if note == "" {
			note = "inventaire"
		}
		movement, err := s.PostTx(ctx, tx, domain.PostMovementRequest{
			ArticleID: articleID,
			Quantity:  delta,
			Reason:    domain.ReasonAdjustment,
			Note:      note,
		})
		if err != nil {
			return err
		}
		result.Movement = &movement
		result.OnHand = req.Counted
		return nil
	})
	if err != nil {
		return domain.InventoryResult{}, err
	}
	return result, nil
}

func (s *Service) ListMovements(ctx context.Context, req domain.ListMovementRequest) (domain.ListMovementResponse, error) {
	var filter domain.ListMovementFilter
	if strings.TrimSpace(req.ArticleID) != "" {
		id, err := parseID(req.ArticleID)
		if err != nil {
			return domain.ListMovementResponse{}, err
		}
		filter.ArticleID = id
	}
	if strings.TrimSpace(req.OrderID) != "" {
		id, err := parseID(req.OrderID)
		if err != nil {
			return domain.ListMovementResponse{}, err
		}
		filter.OrderID = id
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		filter.Reason = domain.Reason(reason)
		if !filter.Reason.Valid() {
			return domain.ListMovementResponse{}, domain.ErrInvalidReason
		}
	}

	items, err := s.repo.List(ctx, s.db, filter, req.PageToken)
	if err != nil {
		return domain.ListMovementResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, pagination.PageSize, func(m *domain.Movement) string {
		return pagination.TokenForID(m.ID.String())
	})

	movements := make([]domain.Movement, 0, len(items))
	for _, item := range items {
		movements = append(movements, *item)
	}
	return domain.ListMovementResponse{PageInfo: *pageInfo, Movements: movements}, nil
}

func validateMovement(req domain.PostMovementRequest) error {
	if !req.Reason.Valid() {
		return domain.ErrInvalidReason
	}
	if !req.Reason.AcceptsQuantity(req.Quantity) {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
