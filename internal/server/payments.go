package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/gescom/internal/payment/domain"
	"go.uber.org/zap"
)

type recordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt string          `json:"paid_at"`
	Method string          `json:"method"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paidAt, ok := parseOptionalDate(req.PaidAt)
	if !ok {
		AbortWithError(c, newValidationError("paid_at", "invalid_paid_at", "invalid paid_at"))
		return
	}

	resp, err := s.paymentSvc.Record(c.Request.Context(), paymentdomain.RecordPaymentRequest{
		InvoiceID: strings.TrimSpace(c.Param("id")),
		Amount:    req.Amount,
		PaidAt:    paidAt,
		Method:    strings.TrimSpace(req.Method),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "payment.record", "invoice", resp.Invoice.ID.String(), map[string]any{
		"reference": resp.Payment.Reference,
		"amount":    resp.Payment.Amount.String(),
		"method":    resp.Payment.Method,
		"status":    string(resp.Invoice.Status),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.paymentSvc.List(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentReceipt(c *gin.Context) {
	receipt, err := s.paymentSvc.Receipt(c.Request.Context(), strings.TrimSpace(c.Param("reference")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, receipt.Filename, receipt.Content)
}

// RecomputeOverdue runs the overdue sweep immediately instead of waiting for
// the scheduler tick.
func (s *Server) RecomputeOverdue(c *gin.Context) {
	ctx := c.Request.Context()
	updated, err := s.paymentSvc.RecomputeOverdue(ctx, s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("overdue sweep triggered", zap.Int("updated", updated))
	s.audit(c, "invoice.overdue_recompute", "invoice", "", map[string]any{"updated": updated})
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": updated}})
}
