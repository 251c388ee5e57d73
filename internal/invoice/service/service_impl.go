package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	"github.com/smallbiznis/gescom/internal/invoice/domain"
	"github.com/smallbiznis/gescom/internal/lock"
	"github.com/smallbiznis/gescom/internal/numbering"
	"github.com/smallbiznis/gescom/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/gescom/internal/order/domain"
	orderservice "github.com/smallbiznis/gescom/internal/order/service"
	"github.com/smallbiznis/gescom/internal/pricing"
	"github.com/smallbiznis/gescom/internal/providers/email"
	"github.com/smallbiznis/gescom/internal/providers/pdf"
	stockservice "github.com/smallbiznis/gescom/internal/stock/service"
	"github.com/smallbiznis/gescom/pkg/db"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	GenID     *snowflake.Node
	Clock     clock.Clock
	Locker    lock.Locker
	Repo      domain.Repository
	Orders    orderdomain.Service
	OrderRepo orderdomain.Repository
	Clients   clientdomain.Repository
	PDF       pdf.Provider
	Mailer    email.Provider   `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	seller    config.SellerConfig
	genID     *snowflake.Node
	clock     clock.Clock
	locker    lock.Locker
	repo      domain.Repository
	orders    orderdomain.Service
	orderRepo orderdomain.Repository
	clients   clientdomain.Repository
	pdf       pdf.Provider
	mailer    email.Provider
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		seller:    p.Config.Seller,
		genID:     p.GenID,
		clock:     p.Clock,
		locker:    p.Locker,
		repo:      p.Repo,
		orders:    p.Orders,
		orderRepo: p.OrderRepo,
		clients:   p.Clients,
		pdf:       p.PDF,
		mailer:    p.Mailer,
		metrics:   p.Metrics,
	}
}

// LockKey is the key serializing writers of one invoice.
func LockKey(id snowflake.ID) string {
	return lock.Key("invoice", id.String())
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateInvoiceRequest) (domain.Invoice, error) {
	ids, err := parseOrderIDs(req.OrderIDs)
	if err != nil {
		return domain.Invoice{}, err
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method != "" && !clientdomain.ValidPaymentMethod(method) {
		return domain.Invoice{}, domain.ErrInvalidPaymentMethod.WithEntity(method)
	}

	// Unlocked read to validate early and learn the articles to lock. The
	// same checks run again under the locks.
	candidates := make([]*orderdomain.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.orderRepo.FindByID(ctx, s.db, id)
		if err != nil {
			return domain.Invoice{}, err
		}
		if order == nil {
			return domain.Invoice{}, orderdomain.ErrNotFound.WithEntity(id.String())
		}
		candidates = append(candidates, order)
	}
	if err := checkInvoiceable(candidates); err != nil {
		return domain.Invoice{}, err
	}

	keys := []string{numbering.Invoices.LockKey()}
	var articleIDs []snowflake.ID
	for _, order := range candidates {
		keys = append(keys, orderservice.LockKey(order.ID))
		articleIDs = append(articleIDs, orderdomain.ArticleIDs(order.Lines)...)
	}
	keys = append(keys, stockservice.LockKeys(articleIDs...)...)
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		return domain.Invoice{}, err
	}
	defer release()

	var invoice domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders, err := s.orders.LoadForInvoicing(ctx, tx, ids)
		if err != nil {
			return err
		}
		if err := checkInvoiceable(orders); err != nil {
			return err
		}

		client, err := s.clients.FindByID(ctx, tx, orders[0].ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrNotFound.WithEntity(orders[0].ClientID.String())
		}

		now := s.clock.Now()
		seq, numero, err := numbering.Invoices.Next(ctx, tx, now)
		if err != nil {
			return err
		}
		if method == "" {
			method = client.PaymentMethod
		}
		invoice = domain.Invoice{
			ID:            s.genID.Generate(),
			Seq:           seq,
			Numero:        numero,
			Kind:          domain.KindInvoice,
			ClientID:      client.ID,
			Status:        domain.StatusDraft,
			PaymentMethod: method,
			Notes:         strings.TrimSpace(req.Notes),
			InvoiceDate:   now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		invoice.Lines, invoice.OrderIDs = s.copyLines(invoice.ID, orders)
		applyTotals(&invoice)

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyInvoiced
			}
			return err
		}
		for _, order := range orders {
			if err := s.orders.MarkInvoicedTx(ctx, tx, order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceEvent(ctx, "generated")
	s.log.Info("invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("numero", invoice.Numero),
		zap.Int("orders", len(invoice.OrderIDs)),
		zap.String("total_ttc", invoice.TotalTTC.StringFixed(2)),
	)
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Invoice, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound.WithEntity(id.String())
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	var filter domain.ListInvoiceFilter
	if strings.TrimSpace(req.ClientID) != "" {
		id, err := parseID(req.ClientID)
		if err != nil {
			return domain.ListInvoiceResponse{}, err
		}
		filter.ClientID = id
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = domain.Status(status)
		if !filter.Status.Valid() {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus.WithEntity(status)
		}
	}
	if kind := strings.TrimSpace(req.Kind); kind != "" {
		filter.Kind = domain.Kind(kind)
		if !filter.Kind.Valid() {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidKind.WithEntity(kind)
		}
	}

	items, err := s.repo.List(ctx, s.db, filter, req.PageToken)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, pagination.PageSize, func(invoice *domain.Invoice) string {
		return pagination.TokenForID(invoice.ID.String())
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		invoices = append(invoices, *item)
	}
	return domain.ListInvoiceResponse{PageInfo: *pageInfo, Invoices: invoices}, nil
}

// copyLines numbers the lines of every order, in request order, as one
// invoice.
func (s *Service) copyLines(invoiceID snowflake.ID, orders []*orderdomain.Order) ([]domain.Line, []snowflake.ID) {
	var lines []domain.Line
	orderIDs := make([]snowflake.ID, 0, len(orders))
	for _, order := range orders {
		orderID := order.ID
		orderIDs = append(orderIDs, orderID)
		for _, line := range order.Lines {
			lines = append(lines, domain.Line{
				ID:          s.genID.Generate(),
				InvoiceID:   invoiceID,
				Position:    len(lines) + 1,
				OrderID:     &orderID,
				ArticleID:   line.ArticleID,
				Reference:   line.Reference,
				Designation: line.Designation,
				Quantity:    line.Quantity,
				UnitPriceHT: line.UnitPriceHT,
				DiscountPct: line.DiscountPct,
				TaxRate:     line.TaxRate,
				AmountHT:    line.AmountHT,
				AmountTVA:   line.AmountTVA,
				AmountTTC:   line.AmountTTC,
			})
		}
	}
	return lines, orderIDs
}

func applyTotals(invoice *domain.Invoice) {
	amounts := make([]pricing.LineAmounts, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		amounts = append(amounts, pricing.LineAmounts{
			AmountHT:  line.AmountHT,
			AmountTVA: line.AmountTVA,
			AmountTTC: line.AmountTTC,
		})
	}
	totals := pricing.Sum(amounts)
	invoice.TotalHT = totals.TotalHT
	invoice.TotalTVA = totals.TotalTVA
	invoice.TotalTTC = totals.TotalTTC
}

func checkInvoiceable(orders []*orderdomain.Order) error {
	for _, order := range orders {
		if order.ClientID != orders[0].ClientID {
			return domain.ErrMixedClients.WithEntity(order.Numero)
		}
		if order.Status == orderdomain.StatusInvoiced {
			return domain.ErrAlreadyInvoiced.WithEntity(order.Numero)
		}
		if !order.Status.Invoiceable() {
			return orderdomain.ErrNotInvoiceable.WithEntity(order.Numero).WithMessage(string(order.Status))
		}
	}
	return nil
}

func parseOrderIDs(raw []string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, domain.ErrNoOrders
	}
	ids := make([]snowflake.ID, 0, len(raw))
	seen := make(map[snowflake.ID]struct{}, len(raw))
	for _, value := range raw {
		id, err := parseID(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			return nil, domain.ErrDuplicateOrder.WithEntity(id.String())
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
