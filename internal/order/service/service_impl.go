package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	articledomain "github.com/smallbiznis/gescom/internal/article/domain"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	"github.com/smallbiznis/gescom/internal/lock"
	"github.com/smallbiznis/gescom/internal/numbering"
	obscontext "github.com/smallbiznis/gescom/internal/observability/context"
	obslogger "github.com/smallbiznis/gescom/internal/observability/logger"
	"github.com/smallbiznis/gescom/internal/observability/metrics"
	"github.com/smallbiznis/gescom/internal/order/domain"
	"github.com/smallbiznis/gescom/internal/pricing"
	stockdomain "github.com/smallbiznis/gescom/internal/stock/domain"
	stockservice "github.com/smallbiznis/gescom/internal/stock/service"
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
	Tax      *config.TaxPolicyHolder
	Repo     domain.Repository
	Articles articledomain.Repository
	Clients  clientdomain.Repository
	Stock    stockdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	locker   lock.Locker
	tax      *config.TaxPolicyHolder
	repo     domain.Repository
	articles articledomain.Repository
	clients  clientdomain.Repository
	stock    stockdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		locker:   p.Locker,
		tax:      p.Tax,
		repo:     p.Repo,
		articles: p.Articles,
		clients:  p.Clients,
		stock:    p.Stock,
		metrics:  p.Metrics,
	}
}

// LockKey is the key serializing writers of one order.
func LockKey(id snowflake.ID) string {
	return lock.Key("order", id.String())
}

type parsedLine struct {
	articleID snowflake.ID
	quantity  int64
	discount  decimal.Decimal
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	clientID, err := parseID(req.ClientID)
	if err != nil {
		return domain.Order{}, err
	}
	parsed, err := parseLines(req.Lines)
	if err != nil {
		return domain.Order{}, err
	}

	client, err := s.clients.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Order{}, err
	}
	if client == nil {
		return domain.Order{}, clientdomain.ErrNotFound.WithEntity(clientID.String())
	}
	if !client.Active {
		return domain.Order{}, clientdomain.ErrInactive.WithEntity(client.Code)
	}

	ids := make([]snowflake.ID, 0, len(parsed))
	for _, line := range parsed {
		ids = append(ids, line.articleID)
	}
	found, err := s.articles.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return domain.Order{}, err
	}
	byID := make(map[snowflake.ID]*articledomain.Article, len(found))
	for _, article := range found {
		byID[article.ID] = article
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:        s.genID.Generate(),
		ClientID:  client.ID,
		Status:    domain.StatusDraft,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	amounts := make([]pricing.LineAmounts, 0, len(parsed))
	for i, line := range parsed {
		article, ok := byID[line.articleID]
		if !ok {
			return domain.Order{}, articledomain.ErrNotFound.WithEntity(line.articleID.String())
		}
		if !article.Active {
			return domain.Order{}, articledomain.ErrRetired.WithEntity(article.Reference)
		}

		rate := s.tax.RateFor(article.Family, article.TaxRate)
		priced := pricing.Line(line.quantity, article.SellPriceHT, line.discount, rate)
		amounts = append(amounts, priced)
		order.Lines = append(order.Lines, domain.Line{
			ID:          s.genID.Generate(),
			OrderID:     order.ID,
			Position:    i + 1,
			ArticleID:   article.ID,
			Reference:   article.Reference,
			Designation: article.Designation,
			Quantity:    line.quantity,
			UnitPriceHT: article.SellPriceHT,
			DiscountPct: line.discount,
			TaxRate:     rate,
			AmountHT:    priced.AmountHT,
			AmountTVA:   priced.AmountTVA,
			AmountTTC:   priced.AmountTTC,
		})
	}
	totals := pricing.Sum(amounts)
	order.TotalHT = totals.TotalHT
	order.TotalTVA = totals.TotalTVA
	order.TotalTTC = totals.TotalTTC

	release, err := s.locker.Acquire(ctx, numbering.Orders.LockKey())
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, numero, err := numbering.Orders.Next(ctx, tx, now)
		if err != nil {
			return err
		}
		order.Seq = seq
		order.Numero = numero
		return s.repo.Insert(ctx, tx, &order)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("numero", order.Numero),
		zap.Int("lines", len(order.Lines)),
		zap.String("total_ttc", order.TotalTTC.StringFixed(2)),
	)
	return order, nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionOrderRequest) (domain.Order, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Order{}, err
	}
	target := domain.Status(strings.TrimSpace(string(req.Target)))
	if !target.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus.WithEntity(string(req.Target))
	}

	// Read unlocked to learn which articles the locks must cover; the status
	// is checked again under the locks.
	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if current == nil {
		return domain.Order{}, domain.ErrNotFound.WithEntity(id.String())
	}
	ctx = obscontext.WithDocument(ctx, current.Numero)
	if err := checkTransition(current, target); err != nil {
		return domain.Order{}, err
	}

	keys := []string{LockKey(id)}
	if target == domain.StatusValidated || target == domain.StatusCancelled {
		keys = append(keys, stockservice.LockKeys(domain.ArticleIDs(current.Lines)...)...)
	}
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	var (
		order *domain.Order
		from  domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound.WithEntity(id.String())
		}
		if err := checkTransition(order, target); err != nil {
			return err
		}
		from = order.Status

		switch target {
		case domain.StatusValidated:
			if err := s.reserve(ctx, tx, order); err != nil {
				return err
			}
		case domain.StatusCancelled:
			if err := s.releaseOutstanding(ctx, tx, order, "annulation "+order.Numero); err != nil {
				return err
			}
		}

		order.Stamp(target, s.clock.Now())
		return s.repo.UpdateStatus(ctx, tx, order)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordOrderTransition(ctx, string(from), string(target))
	obslogger.WithContext(ctx, s.log).Info("order transitioned",
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	return *order, nil
}

func (s *Service) Validate(ctx context.Context, id string) (domain.Order, error) {
	return s.Transition(ctx, domain.TransitionOrderRequest{ID: id, Target: domain.StatusValidated})
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.Order, error) {
	return s.Transition(ctx, domain.TransitionOrderRequest{ID: id, Target: domain.StatusCancelled})
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Order, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound.WithEntity(id.String())
	}
	return *order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	filter := domain.ListOrderFilter{Query: strings.TrimSpace(req.Query)}
	if strings.TrimSpace(req.ClientID) != "" {
		id, err := parseID(req.ClientID)
		if err != nil {
			return domain.ListOrderResponse{}, err
		}
		filter.ClientID = id
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = domain.Status(status)
		if !filter.Status.Valid() {
			return domain.ListOrderResponse{}, domain.ErrInvalidStatus.WithEntity(status)
		}
	}

	items, err := s.repo.List(ctx, s.db, filter, req.PageToken)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, pagination.PageSize, func(order *domain.Order) string {
		return pagination.TokenForID(order.ID.String())
	})

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		orders = append(orders, *item)
	}
	return domain.ListOrderResponse{PageInfo: *pageInfo, Orders: orders}, nil
}

func (s *Service) LoadForInvoicing(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, domain.ErrNotFound.WithEntity(id.String())
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *Service) MarkInvoicedTx(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	if !order.Status.Invoiceable() {
		return domain.ErrNotInvoiceable.WithEntity(order.Numero).WithMessage(string(order.Status))
	}

	// Reserved units go back on hand before being consumed, so on_hand is
	// unchanged overall and every article's ledger shows the conversion.
	if err := s.releaseOutstanding(ctx, tx, order, "facturation "+order.Numero); err != nil {
		return err
	}
	for _, line := range order.Lines {
		orderID := order.ID
		_, err := s.stock.PostTx(ctx, tx, stockdomain.PostMovementRequest{
			ArticleID: line.ArticleID,
			Quantity:  -line.Quantity,
			Reason:    stockdomain.ReasonConsumption,
			OrderID:   &orderID,
			Note:      "facturation " + order.Numero,
		})
		if err != nil {
			return err
		}
	}

	from := order.Status
	order.Stamp(domain.StatusInvoiced, s.clock.Now())
	if err := s.repo.UpdateStatus(ctx, tx, order); err != nil {
		return err
	}
	s.metrics.RecordOrderTransition(ctx, string(from), string(domain.StatusInvoiced))
	return nil
}

func (s *Service) FulfilTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, target domain.Status) (*domain.Order, error) {
	if target != domain.StatusShipped && target != domain.StatusDelivered {
		return nil, domain.ErrInvalidTransition.WithEntity(id.String()).WithMessage(string(target))
	}
	order, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound.WithEntity(id.String())
	}
	if err := checkTransition(order, target); err != nil {
		return nil, err
	}

	from := order.Status
	order.Stamp(target, s.clock.Now())
	if err := s.repo.UpdateStatus(ctx, tx, order); err != nil {
		return nil, err
	}
	s.metrics.RecordOrderTransition(ctx, string(from), string(target))
	return order, nil
}

// reserve posts one reservation per line in line order. The first shortfall
// aborts the transaction and names the article.
func (s *Service) reserve(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	for _, line := range order.Lines {
		orderID := order.ID
		_, err := s.stock.PostTx(ctx, tx, stockdomain.PostMovementRequest{
			ArticleID: line.ArticleID,
			Quantity:  -line.Quantity,
			Reason:    stockdomain.ReasonReservation,
			OrderID:   &orderID,
			Note:      "validation " + order.Numero,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) releaseOutstanding(ctx context.Context, tx *gorm.DB, order *domain.Order, note string) error {
	outstanding, err := s.stock.Outstanding(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	for _, held := range outstanding {
		orderID := order.ID
		_, err := s.stock.PostTx(ctx, tx, stockdomain.PostMovementRequest{
			ArticleID: held.ArticleID,
			Quantity:  held.Quantity,
			Reason:    stockdomain.ReasonRelease,
			OrderID:   &orderID,
			Note:      note,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func checkTransition(order *domain.Order, target domain.Status) error {
	if order.Status.Terminal() {
		return domain.ErrTerminal.WithEntity(order.Numero).WithMessage(string(order.Status))
	}
	if target == domain.StatusInvoiced {
		return domain.ErrInvoiceRequired.WithEntity(order.Numero)
	}
	if !domain.CanTransition(order.Status, target) {
		return domain.ErrInvalidTransition.WithEntity(order.Numero).
			WithMessage(string(order.Status) + " -> " + string(target))
	}
	return nil
}

func parseLines(lines []domain.CreateLineRequest) ([]parsedLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrNoLines
	}
	out := make([]parsedLine, 0, len(lines))
	seen := make(map[snowflake.ID]struct{}, len(lines))
	for _, line := range lines {
		articleID, err := parseID(line.ArticleID)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[articleID]; ok {
			return nil, domain.ErrDuplicateArticle.WithEntity(articleID.String())
		}
		seen[articleID] = struct{}{}
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity.WithEntity(articleID.String())
		}
		if !pricing.ValidPercent(line.DiscountPct) {
			return nil, domain.ErrInvalidDiscount.WithEntity(articleID.String())
		}
		out = append(out, parsedLine{articleID: articleID, quantity: line.Quantity, discount: line.DiscountPct})
	}
	return out, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
