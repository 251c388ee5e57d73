package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/gescom/internal/invoice/service"
	"github.com/smallbiznis/gescom/internal/lock"
	"github.com/smallbiznis/gescom/internal/observability/metrics"
	"github.com/smallbiznis/gescom/internal/payment/domain"
	"github.com/smallbiznis/gescom/internal/pricing"
	"github.com/smallbiznis/gescom/internal/providers/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Locker   lock.Locker
	Repo     domain.Repository
	Invoices invoicedomain.Repository
	Clients  clientdomain.Repository
	PDF      pdf.Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	seller   config.SellerConfig
	genID    *snowflake.Node
	clock    clock.Clock
	locker   lock.Locker
	repo     domain.Repository
	invoices invoicedomain.Repository
	clients  clientdomain.Repository
	pdf      pdf.Provider
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		seller:   p.Config.Seller,
		genID:    p.GenID,
		clock:    p.Clock,
		locker:   p.Locker,
		repo:     p.Repo,
		invoices: p.Invoices,
		clients:  p.Clients,
		pdf:      p.PDF,
		metrics:  p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordPaymentRequest) (domain.RecordPaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return domain.RecordPaymentResponse{}, domain.ErrInvalidAmount.WithMessage("amount must be positive")
	}
	if !pricing.IsCents(req.Amount) {
		return domain.RecordPaymentResponse{}, domain.ErrInvalidAmount.WithMessage("amount has more than two decimals")
	}
	method := strings.TrimSpace(req.Method)
	if !clientdomain.ValidPaymentMethod(method) {
		return domain.RecordPaymentResponse{}, domain.ErrInvalidMethod.WithEntity(method)
	}
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.RecordPaymentResponse{}, err
	}

	release, err := s.locker.Acquire(ctx, invoiceservice.LockKey(invoiceID))
	if err != nil {
		return domain.RecordPaymentResponse{}, err
	}
	defer release()

	var (
		payment domain.Payment
		invoice *invoicedomain.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.invoices.FindByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound.WithEntity(invoiceID.String())
		}
		if invoice.Status.Terminal() || invoice.Kind != invoicedomain.KindInvoice {
			return domain.ErrNotPayable.WithEntity(invoice.Numero).WithMessage(string(invoice.Status))
		}
		if invoice.Status == invoicedomain.StatusDraft {
			return domain.ErrNotIssued.WithEntity(invoice.Numero)
		}
		if invoice.AmountSettled.Add(req.Amount).GreaterThan(invoice.TotalTTC) {
			return domain.ErrOverPayment.WithEntity(invoice.Numero).
				WithMessage("balance due is " + invoice.Balance().StringFixed(2))
		}

		now := s.clock.Now()
		paidAt := req.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}
		payment = domain.Payment{
			ID:        s.genID.Generate(),
			InvoiceID: invoice.ID,
			Amount:    req.Amount,
			PaidAt:    paidAt,
			Method:    method,
			Reference: ulid.Make().String(),
			CreatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}

		invoice.AmountSettled = invoice.AmountSettled.Add(req.Amount)
		invoice.Status = invoicedomain.DeriveStatus(*invoice, now)
		invoice.UpdatedAt = now
		return s.invoices.UpdateState(ctx, tx, invoice)
	})
	if err != nil {
		return domain.RecordPaymentResponse{}, err
	}

	s.metrics.RecordPayment(ctx, method)
	if invoice.Status == invoicedomain.StatusPaid {
		s.metrics.RecordInvoiceEvent(ctx, "paid")
	}
	s.log.Info("payment recorded",
		zap.String("reference", payment.Reference),
		zap.String("invoice", invoice.Numero),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("status", string(invoice.Status)),
	)
	return domain.RecordPaymentResponse{Payment: payment, Invoice: *invoice}, nil
}

func (s *Service) List(ctx context.Context, rawInvoiceID string) ([]domain.Payment, error) {
	invoiceID, err := parseID(rawInvoiceID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoices.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound.WithEntity(invoiceID.String())
	}
	payments, err := s.repo.ListByInvoice(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	return payments, nil
}

func (s *Service) RecomputeOverdue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.invoices.ListOpen(ctx, s.db)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, candidate := range candidates {
		if invoicedomain.DeriveStatus(*candidate, now) == candidate.Status {
			continue
		}
		updated, err := s.recompute(ctx, candidate.ID, now)
		if err != nil {
			return changed, err
		}
		if updated {
			changed++
		}
	}

	if changed > 0 {
		s.log.Info("overdue statuses recomputed", zap.Int("changed", changed), zap.Int("scanned", len(candidates)))
	}
	return changed, nil
}

// recompute rederives one invoice under its lock, since a payment may have
// landed after the unlocked scan.
func (s *Service) recompute(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	release, err := s.locker.Acquire(ctx, invoiceservice.LockKey(id))
	if err != nil {
		return false, err
	}
	defer release()

	updated, overdue := false, false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoices.FindByIDForUpdate(ctx, tx, id)
		if err != nil || invoice == nil {
			return err
		}
		status := invoicedomain.DeriveStatus(*invoice, now)
		if status == invoice.Status {
			return nil
		}
		invoice.Status = status
		invoice.UpdatedAt = s.clock.Now()
		updated = true
		overdue = status == invoicedomain.StatusOverdue
		return s.invoices.UpdateState(ctx, tx, invoice)
	})
	if err != nil {
		return false, err
	}
	if overdue {
		s.metrics.RecordInvoiceEvent(ctx, "overdue")
	}
	return updated, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
