package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

const contentTypePDF = "application/pdf"

type generateInvoiceRequest struct {
	OrderIDs      []string `json:"order_ids"`
	PaymentMethod string   `json:"payment_method"`
	Notes         string   `json:"notes"`
}

func (s *Server) GenerateInvoice(c *gin.Context) {
	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orderIDs := make([]string, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		orderIDs = append(orderIDs, strings.TrimSpace(id))
	}

	resp, err := s.invoiceSvc.Generate(c.Request.Context(), invoicedomain.GenerateInvoiceRequest{
		OrderIDs:      orderIDs,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Notes:         strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditInvoice(c, "invoice.generate", resp)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		Status   string `form:"status"`
		Kind     string `form:"kind"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		ClientID:  strings.TrimSpace(query.ClientID),
		Status:    strings.TrimSpace(query.Status),
		Kind:      strings.TrimSpace(query.Kind),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IssueInvoice(c *gin.Context) {
	s.invoiceAction(c, "invoice.issue", s.invoiceSvc.Issue)
}

func (s *Server) SendInvoice(c *gin.Context) {
	s.invoiceAction(c, "invoice.send", s.invoiceSvc.MarkSent)
}

func (s *Server) CancelInvoice(c *gin.Context) {
	s.invoiceAction(c, "invoice.cancel", s.invoiceSvc.Cancel)
}

func (s *Server) CreditInvoice(c *gin.Context) {
	s.invoiceAction(c, "invoice.credit_note", s.invoiceSvc.CreditNote)
}

func (s *Server) invoiceAction(c *gin.Context, name string, action func(ctx context.Context, id string) (invoicedomain.Invoice, error)) {
	resp, err := action(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditInvoice(c, name, resp)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportInvoicePDF(c *gin.Context) {
	export, err := s.invoiceSvc.ExportPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, export.Filename, export.Content)
}

func (s *Server) auditInvoice(c *gin.Context, action string, invoice invoicedomain.Invoice) {
	s.audit(c, action, "invoice", invoice.ID.String(), map[string]any{
		"numero":    invoice.Numero,
		"kind":      string(invoice.Kind),
		"status":    string(invoice.Status),
		"total_ttc": invoice.TotalTTC.String(),
	})
}

func writePDF(c *gin.Context, filename string, content []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentTypePDF, content)
}
