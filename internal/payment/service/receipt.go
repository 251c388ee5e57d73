package service

import (
	"context"
	"strings"

	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	"github.com/smallbiznis/gescom/internal/payment/domain"
	"github.com/smallbiznis/gescom/internal/providers/pdf"
)

// Receipt renders the acknowledgement of one payment.
func (s *Service) Receipt(ctx context.Context, reference string) (domain.Receipt, error) {
	payment, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return domain.Receipt{}, err
	}
	if payment == nil {
		return domain.Receipt{}, domain.ErrNotFound.WithEntity(strings.TrimSpace(reference))
	}
	invoice, err := s.invoices.FindByID(ctx, s.db, payment.InvoiceID)
	if err != nil {
		return domain.Receipt{}, err
	}
	if invoice == nil {
		return domain.Receipt{}, invoicedomain.ErrNotFound.WithEntity(payment.InvoiceID.String())
	}
	client, err := s.clients.FindByID(ctx, s.db, invoice.ClientID)
	if err != nil {
		return domain.Receipt{}, err
	}
	if client == nil {
		return domain.Receipt{}, clientdomain.ErrNotFound.WithEntity(invoice.ClientID.String())
	}

	content, err := s.pdf.RenderReceipt(ctx, pdf.ReceiptDocument{
		Reference:     payment.Reference,
		InvoiceNumero: invoice.Numero,
		DatePaid:      payment.PaidAt.UTC().Format("02/01/2006"),
		Method:        payment.Method,
		Amount:        pdf.Money(payment.Amount),
		InvoiceTotal:  pdf.Money(invoice.TotalTTC),
		TotalSettled:  pdf.Money(invoice.AmountSettled),
		BalanceDue:    pdf.Money(invoice.Balance()),
		Seller: pdf.Party{
			Name:  s.seller.Name,
			Lines: []string{s.seller.Address, strings.TrimSpace(s.seller.PostalCode + " " + s.seller.City)},
		},
		Client: pdf.Party{
			Name:  client.LegalName,
			Lines: []string{client.Address, strings.TrimSpace(client.PostalCode + " " + client.City)},
		},
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	return domain.Receipt{Filename: "recu-" + payment.Reference + ".pdf", Content: content}, nil
}
