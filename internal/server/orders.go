package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/gescom/internal/order/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type createOrderLineRequest struct {
	ArticleID   string          `json:"article_id"`
	Quantity    int64           `json:"quantity"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

type createOrderRequest struct {
	ClientID string                   `json:"client_id"`
	Lines    []createOrderLineRequest `json:"lines"`
	Notes    string                   `json:"notes"`
}

type transitionOrderRequest struct {
	Target string `json:"target"`
}

type invoiceOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lines := make([]orderdomain.CreateLineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, orderdomain.CreateLineRequest{
			ArticleID:   strings.TrimSpace(line.ArticleID),
			Quantity:    line.Quantity,
			DiscountPct: line.DiscountPct,
		})
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		ClientID: strings.TrimSpace(req.ClientID),
		Lines:    lines,
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "order.create", "order", resp.ID.String(), map[string]any{
		"numero": resp.Numero,
		"status": string(resp.Status),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		Status   string `form:"status"`
		Query    string `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrderRequest{
		PageToken: query.PageToken,
		ClientID:  strings.TrimSpace(query.ClientID),
		Status:    strings.TrimSpace(query.Status),
		Query:     strings.TrimSpace(query.Query),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	resp, err := s.orderSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionOrder(c *gin.Context) {
	var req transitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	target := strings.TrimSpace(req.Target)
	if target == "" {
		AbortWithError(c, newValidationError("target", "required", "target is required"))
		return
	}

	resp, err := s.orderSvc.Transition(c.Request.Context(), orderdomain.TransitionOrderRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Target: orderdomain.Status(target),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "order.transition", "order", resp.ID.String(), map[string]any{
		"numero": resp.Numero,
		"status": string(resp.Status),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ValidateOrder(c *gin.Context) {
	resp, err := s.orderSvc.Validate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "order.validate", "order", resp.ID.String(), map[string]any{
		"numero": resp.Numero,
		"status": string(resp.Status),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelOrder(c *gin.Context) {
	resp, err := s.orderSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "order.cancel", "order", resp.ID.String(), map[string]any{
		"numero": resp.Numero,
		"status": string(resp.Status),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// InvoiceOrder generates a draft invoice from a single order. The body is
// optional.
func (s *Server) InvoiceOrder(c *gin.Context) {
	var req invoiceOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.invoiceSvc.Generate(c.Request.Context(), invoicedomain.GenerateInvoiceRequest{
		OrderIDs:      []string{strings.TrimSpace(c.Param("id"))},
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
