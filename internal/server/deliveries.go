package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/smallbiznis/gescom/internal/delivery/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type shipOrderRequest struct {
	Carrier  string `json:"carrier"`
	Packages int    `json:"packages"`
	Notes    string `json:"notes"`
}

type deliverRequest struct {
	ReceivedBy string `json:"received_by"`
}

// ShipOrder prints the delivery note of a prepared order. The body is
// optional.
func (s *Server) ShipOrder(c *gin.Context) {
	var req shipOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.deliverySvc.Ship(c.Request.Context(), deliverydomain.ShipRequest{
		OrderID:  strings.TrimSpace(c.Param("id")),
		Carrier:  req.Carrier,
		Packages: req.Packages,
		Notes:    req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditDelivery(c, "delivery.ship", resp)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeliverNote(c *gin.Context) {
	var req deliverRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.deliverySvc.Deliver(c.Request.Context(), deliverydomain.DeliverRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		ReceivedBy: req.ReceivedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditDelivery(c, "delivery.deliver", resp)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDeliveryNotes(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		OrderID  string `form:"order_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deliverySvc.List(c.Request.Context(), deliverydomain.ListNoteRequest{
		PageToken: query.PageToken,
		ClientID:  strings.TrimSpace(query.ClientID),
		OrderID:   strings.TrimSpace(query.OrderID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDeliveryNoteByID(c *gin.Context) {
	resp, err := s.deliverySvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportDeliveryNotePDF(c *gin.Context) {
	export, err := s.deliverySvc.ExportPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, export.Filename, export.Content)
}

func (s *Server) auditDelivery(c *gin.Context, action string, note deliverydomain.Note) {
	s.audit(c, action, "delivery_note", note.ID.String(), map[string]any{
		"numero":       note.Numero,
		"order_numero": note.OrderNumero,
	})
}
