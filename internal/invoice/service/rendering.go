package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/internal/invoice/domain"
	"github.com/smallbiznis/gescom/internal/providers/email"
	"github.com/smallbiznis/gescom/internal/providers/pdf"
	"go.uber.org/zap"
)

const dateLayout = "02/01/2006"

func (s *Service) ExportPDF(ctx context.Context, rawID string) (domain.PDFExport, error) {
	invoice, err := s.GetByID(ctx, rawID)
	if err != nil {
		return domain.PDFExport{}, err
	}
	_, content, err := s.render(ctx, invoice)
	if err != nil {
		return domain.PDFExport{}, err
	}
	return domain.PDFExport{
		Filename: invoice.Numero + ".pdf",
		Content:  content,
	}, nil
}

// render prints the frozen document of an issued invoice.
func (s *Service) render(ctx context.Context, invoice domain.Invoice) (domain.Document, []byte, error) {
	if invoice.Status == domain.StatusDraft || len(invoice.Snapshot) == 0 {
		return domain.Document{}, nil, domain.ErrNotIssued.WithEntity(invoice.Numero)
	}

	var doc domain.Document
	if err := json.Unmarshal(invoice.Snapshot, &doc); err != nil {
		return domain.Document{}, nil, fmt.Errorf("decode invoice snapshot %s: %w", invoice.Numero, err)
	}

	content, err := s.pdf.RenderInvoice(ctx, printable(doc, invoice))
	if err != nil {
		return domain.Document{}, nil, err
	}
	return doc, content, nil
}

// deliver emails the printed document to the address frozen at issue.
// Documents without a client email are skipped.
func (s *Service) deliver(ctx context.Context, invoice domain.Invoice) error {
	if s.mailer == nil {
		return nil
	}
	doc, content, err := s.render(ctx, invoice)
	if err != nil {
		return err
	}
	to := strings.TrimSpace(doc.Client.Email)
	if to == "" {
		s.log.Debug("client has no email, invoice not delivered", zap.String("numero", doc.Numero))
		return nil
	}

	data := email.InvoiceSentData{
		SellerName: doc.Seller.Name,
		ClientName: doc.Client.LegalName,
		Numero:     doc.Numero,
		CreditNote: doc.Kind == domain.KindCreditNote,
		TotalTTC:   pdf.Money(doc.TotalTTC),
		BankIBAN:   doc.Seller.BankIBAN,
	}
	if doc.DueDate != nil {
		data.DueDate = formatDate(*doc.DueDate)
	}
	body, err := email.Render(email.TemplateInvoiceSent, data)
	if err != nil {
		return err
	}

	subject := "Facture " + doc.Numero
	if data.CreditNote {
		subject = "Avoir " + doc.Numero
	}
	if doc.Seller.Name != "" {
		subject += " - " + doc.Seller.Name
	}
	return s.mailer.Send(ctx, email.Message{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: body,
		Attachments: []email.Attachment{{
			Filename:    doc.Numero + ".pdf",
			ContentType: "application/pdf",
			Content:     content,
		}},
	})
}

func (s *Service) buildDocument(invoice *domain.Invoice, client *clientdomain.Client, orderNumeros []string, creditedNumero string) domain.Document {
	doc := domain.Document{
		Kind:           invoice.Kind,
		Numero:         invoice.Numero,
		CreditedNumero: creditedNumero,
		InvoiceDate:    invoice.InvoiceDate,
		DueDate:        invoice.DueDate,
		Seller: domain.DocumentSeller{
			Name:       s.seller.Name,
			Address:    s.seller.Address,
			PostalCode: s.seller.PostalCode,
			City:       s.seller.City,
			Email:      s.seller.Email,
			SIRET:      s.seller.SIRET,
			VATNumber:  s.seller.VATNumber,
			BankIBAN:   s.seller.BankIBAN,
		},
		Client: domain.DocumentClient{
			Code:       client.Code,
			LegalName:  client.LegalName,
			Address:    client.Address,
			PostalCode: client.PostalCode,
			City:       client.City,
			Email:      client.Email,
		},
		OrderNumeros:  orderNumeros,
		VAT:           domain.BreakdownVAT(invoice.Lines),
		TotalHT:       invoice.TotalHT,
		TotalTVA:      invoice.TotalTVA,
		TotalTTC:      invoice.TotalTTC,
		PaymentMethod: invoice.PaymentMethod,
		Notes:         invoice.Notes,
	}
	if invoice.IssuedAt != nil {
		doc.IssuedAt = *invoice.IssuedAt
	}
	for _, line := range invoice.Lines {
		doc.Lines = append(doc.Lines, domain.DocumentLine{
			Reference:   line.Reference,
			Designation: line.Designation,
			Quantity:    line.Quantity,
			UnitPriceHT: line.UnitPriceHT,
			DiscountPct: line.DiscountPct,
			TaxRate:     line.TaxRate,
			AmountHT:    line.AmountHT,
		})
	}
	return doc
}

// printable formats the frozen document for print. Settlement figures come
// from the live invoice because payments arrive after issue.
func printable(doc domain.Document, invoice domain.Invoice) pdf.InvoiceDocument {
	out := pdf.InvoiceDocument{
		Title:       "FACTURE",
		Numero:      doc.Numero,
		InvoiceDate: formatDate(doc.InvoiceDate),
		IssueDate:   formatDate(doc.IssuedAt),
		OrderRefs:   strings.Join(doc.OrderNumeros, ", "),
		Seller: pdf.Party{
			Name: doc.Seller.Name,
			Lines: []string{
				doc.Seller.Address,
				strings.TrimSpace(doc.Seller.PostalCode + " " + doc.Seller.City),
				doc.Seller.Email,
				prefixed("SIRET : ", doc.Seller.SIRET),
				prefixed("TVA intracom. : ", doc.Seller.VATNumber),
			},
		},
		Client: pdf.Party{
			Name: doc.Client.LegalName,
			Lines: []string{
				doc.Client.Address,
				strings.TrimSpace(doc.Client.PostalCode + " " + doc.Client.City),
				doc.Client.Email,
				prefixed("Code client : ", doc.Client.Code),
			},
		},
		TotalHT:     pdf.Money(doc.TotalHT),
		TotalTVA:    pdf.Money(doc.TotalTVA),
		TotalTTC:    pdf.Money(doc.TotalTTC),
		BankDetails: prefixed("IBAN : ", doc.Seller.BankIBAN),
		Notes:       doc.Notes,
	}
	if doc.Kind == domain.KindCreditNote {
		out.Title = "AVOIR"
		out.OrderRefs = prefixed("Facture ", doc.CreditedNumero)
	}
	if doc.DueDate != nil {
		out.DueDate = formatDate(*doc.DueDate)
	}
	if doc.Kind == domain.KindInvoice && doc.PaymentMethod != "" {
		out.PaymentTerms = fmt.Sprintf("Règlement par %s à %d jours.", doc.PaymentMethod, doc.PaymentTerms)
	}

	for _, line := range doc.Lines {
		out.Lines = append(out.Lines, pdf.InvoiceLine{
			Reference:   line.Reference,
			Designation: line.Designation,
			Quantity:    fmt.Sprintf("%d", line.Quantity),
			UnitPriceHT: pdf.Money(line.UnitPriceHT),
			Discount:    pdf.Percent(line.DiscountPct),
			AmountHT:    pdf.Money(line.AmountHT),
		})
	}
	for _, vat := range doc.VAT {
		out.VAT = append(out.VAT, pdf.VATLine{
			Rate:   pdf.Percent(vat.Rate),
			Base:   pdf.Money(vat.Base),
			Amount: pdf.Money(vat.Amount),
		})
	}

	if invoice.AmountSettled.IsPositive() {
		out.AlreadyPaid = pdf.Money(invoice.AmountSettled)
		out.BalanceDue = pdf.Money(invoice.Balance())
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func prefixed(prefix, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return prefix + value
}
