package service

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/invoice/domain"
	"github.com/smallbiznis/gescom/internal/numbering"
	"github.com/smallbiznis/gescom/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// mutate runs fn on the locked invoice and persists its state.
func (s *Service) mutate(ctx context.Context, rawID string, extraKeys []string, fn func(tx *gorm.DB, invoice *domain.Invoice) error) (*domain.Invoice, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, append([]string{LockKey(id)}, extraKeys...)...)
	if err != nil {
		return nil, err
	}
	defer release()

	var invoice *domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound.WithEntity(id.String())
		}
		if invoice.Status.Terminal() {
			return domain.ErrTerminal.WithEntity(invoice.Numero).WithMessage(string(invoice.Status))
		}
		if err := fn(tx, invoice); err != nil {
			return err
		}
		invoice.UpdatedAt = s.clock.Now()
		return s.repo.UpdateState(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) Issue(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.mutate(ctx, id, nil, func(tx *gorm.DB, invoice *domain.Invoice) error {
		if invoice.Status != domain.StatusDraft {
			return domain.ErrInvalidTransition.WithEntity(invoice.Numero).
				WithMessage(string(invoice.Status) + " -> " + string(domain.StatusIssued))
		}
		client, err := s.clients.FindByID(ctx, tx, invoice.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrNotFound.WithEntity(invoice.ClientID.String())
		}

		now := s.clock.Now()
		due := domain.DueDate(now, client.PaymentTermsDays)
		invoice.IssuedAt = &now
		invoice.DueDate = &due
		invoice.Status = domain.StatusIssued
		invoice.Status = domain.DeriveStatus(*invoice, now)

		numeros, err := s.orderNumeros(ctx, tx, invoice.OrderIDs)
		if err != nil {
			return err
		}
		doc := s.buildDocument(invoice, client, numeros, "")
		doc.PaymentTerms = client.PaymentTermsDays
		snapshot, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		invoice.Snapshot = datatypes.JSON(snapshot)
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceEvent(ctx, "issued")
	s.log.Info("invoice issued",
		zap.String("numero", invoice.Numero),
		zap.Time("due_date", *invoice.DueDate),
	)
	return *invoice, nil
}

func (s *Service) MarkSent(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.mutate(ctx, id, nil, func(tx *gorm.DB, invoice *domain.Invoice) error {
		switch invoice.Status {
		case domain.StatusIssued, domain.StatusSent, domain.StatusOverdue:
		default:
			return domain.ErrInvalidTransition.WithEntity(invoice.Numero).
				WithMessage(string(invoice.Status) + " -> " + string(domain.StatusSent))
		}
		now := s.clock.Now()
		invoice.SentAt = &now
		invoice.Status = domain.DeriveStatus(*invoice, now)
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceEvent(ctx, "sent")
	s.log.Info("invoice sent", zap.String("numero", invoice.Numero), zap.String("status", string(invoice.Status)))

	// The status change stands even when delivery fails; sending can be retried.
	if err := s.deliver(ctx, *invoice); err != nil {
		s.log.Warn("invoice email delivery failed", zap.String("numero", invoice.Numero), zap.Error(err))
	}
	return *invoice, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.mutate(ctx, id, nil, func(tx *gorm.DB, invoice *domain.Invoice) error {
		// A zero-total invoice is payee from issue without any payment; it
		// can only be reversed by a credit note.
		if invoice.Status == domain.StatusPaid {
			return domain.ErrInvalidTransition.WithEntity(invoice.Numero).
				WithMessage(string(invoice.Status) + " -> " + string(domain.StatusCancelled))
		}
		if !invoice.AmountSettled.IsZero() {
			return domain.ErrHasPayments.WithEntity(invoice.Numero)
		}
		now := s.clock.Now()
		invoice.Status = domain.StatusCancelled
		invoice.CancelledAt = &now
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceEvent(ctx, "cancelled")
	s.log.Info("invoice cancelled", zap.String("numero", invoice.Numero))
	return *invoice, nil
}

// CreditNote reverses a paid invoice with a new negated document. The
// original keeps its lines, totals and payments.
func (s *Service) CreditNote(ctx context.Context, id string) (domain.Invoice, error) {
	var note domain.Invoice
	original, err := s.mutate(ctx, id, []string{numbering.Invoices.LockKey()}, func(tx *gorm.DB, invoice *domain.Invoice) error {
		if invoice.Kind != domain.KindInvoice || invoice.Status != domain.StatusPaid {
			return domain.ErrNotPaid.WithEntity(invoice.Numero).WithMessage(string(invoice.Status))
		}
		existing, err := s.repo.FindCreditNote(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrCreditNoteExists.WithEntity(invoice.Numero).WithMessage(existing.Numero)
		}
		client, err := s.clients.FindByID(ctx, tx, invoice.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrNotFound.WithEntity(invoice.ClientID.String())
		}

		now := s.clock.Now()
		seq, numero, err := numbering.Invoices.Next(ctx, tx, now)
		if err != nil {
			return err
		}
		creditedID := invoice.ID
		note = domain.Invoice{
			ID:                s.genID.Generate(),
			Seq:               seq,
			Numero:            numero,
			Kind:              domain.KindCreditNote,
			ClientID:          invoice.ClientID,
			Status:            domain.StatusCredited,
			PaymentMethod:     invoice.PaymentMethod,
			Notes:             "Avoir sur facture " + invoice.Numero,
			InvoiceDate:       now,
			IssuedAt:          &now,
			TotalHT:           invoice.TotalHT.Neg(),
			TotalTVA:          invoice.TotalTVA.Neg(),
			TotalTTC:          invoice.TotalTTC.Neg(),
			AmountSettled:     decimal.Zero,
			CreditedInvoiceID: &creditedID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		note.Lines = negateLines(s.genID, note.ID, invoice.Lines)

		doc := s.buildDocument(&note, client, nil, invoice.Numero)
		snapshot, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		note.Snapshot = datatypes.JSON(snapshot)

		if err := s.repo.Insert(ctx, tx, &note); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrCreditNoteExists.WithEntity(invoice.Numero)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceEvent(ctx, "credited")
	s.log.Info("credit note created",
		zap.String("numero", note.Numero),
		zap.String("credited", original.Numero),
		zap.String("total_ttc", note.TotalTTC.StringFixed(2)),
	)
	return note, nil
}

func negateLines(genID *snowflake.Node, invoiceID snowflake.ID, lines []domain.Line) []domain.Line {
	out := make([]domain.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, domain.Line{
			ID:          genID.Generate(),
			InvoiceID:   invoiceID,
			Position:    line.Position,
			OrderID:     line.OrderID,
			ArticleID:   line.ArticleID,
			Reference:   line.Reference,
			Designation: line.Designation,
			Quantity:    -line.Quantity,
			UnitPriceHT: line.UnitPriceHT,
			DiscountPct: line.DiscountPct,
			TaxRate:     line.TaxRate,
			AmountHT:    line.AmountHT.Neg(),
			AmountTVA:   line.AmountTVA.Neg(),
			AmountTTC:   line.AmountTTC.Neg(),
		})
	}
	return out
}

func (s *Service) orderNumeros(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]string, error) {
	numeros := make([]string, 0, len(ids))
	for _, id := range ids {
		order, err := s.orderRepo.FindByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if order != nil {
			numeros = append(numeros, order.Numero)
		}
	}
	return numeros, nil
}
