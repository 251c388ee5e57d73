package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type createClientRequest struct {
	Code             string `json:"code"`
	LegalName        string `json:"legal_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	PostalCode       string `json:"postal_code"`
	City             string `json:"city"`
	PaymentTermsDays *int   `json:"payment_terms_days"`
	PaymentMethod    string `json:"payment_method"`
}

type updateClientRequest struct {
	LegalName        *string `json:"legal_name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	PostalCode       *string `json:"postal_code"`
	City             *string `json:"city"`
	PaymentTermsDays *int    `json:"payment_terms_days"`
	PaymentMethod    *string `json:"payment_method"`
	Active           *bool   `json:"active"`
}

func (s *Server) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clientSvc.Create(c.Request.Context(), clientdomain.CreateClientRequest{
		Code:             strings.TrimSpace(req.Code),
		LegalName:        strings.TrimSpace(req.LegalName),
		Email:            strings.TrimSpace(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		Address:          strings.TrimSpace(req.Address),
		PostalCode:       strings.TrimSpace(req.PostalCode),
		City:             strings.TrimSpace(req.City),
		PaymentTermsDays: req.PaymentTermsDays,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "client.create", "client", resp.ID.String(), map[string]any{
		"code":  resp.Code,
		"email": resp.Email,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListClients(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Query  string `form:"q"`
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.clientSvc.List(c.Request.Context(), clientdomain.ListClientRequest{
		PageToken: query.PageToken,
		Query:     strings.TrimSpace(query.Query),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetClientByID(c *gin.Context) {
	resp, err := s.clientSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateClient(c *gin.Context) {
	var req updateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clientSvc.Update(c.Request.Context(), clientdomain.UpdateClientRequest{
		ID:               strings.TrimSpace(c.Param("id")),
		LegalName:        req.LegalName,
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
		PostalCode:       req.PostalCode,
		City:             req.City,
		PaymentTermsDays: req.PaymentTermsDays,
		PaymentMethod:    req.PaymentMethod,
		Active:           req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "client.update", "client", resp.ID.String(), map[string]any{
		"code":   resp.Code,
		"active": resp.Active,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
