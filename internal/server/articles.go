package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	articledomain "github.com/smallbiznis/gescom/internal/article/domain"
	stockdomain "github.com/smallbiznis/gescom/internal/stock/domain"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type createArticleRequest struct {
	Reference    string           `json:"reference"`
	Designation  string           `json:"designation"`
	Family       string           `json:"family"`
	SellPriceHT  decimal.Decimal  `json:"sell_price_ht"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	StockMinimum int64            `json:"stock_minimum"`
}

type updateArticleRequest struct {
	Designation  *string          `json:"designation"`
	Family       *string          `json:"family"`
	SellPriceHT  *decimal.Decimal `json:"sell_price_ht"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	ClearTaxRate bool             `json:"clear_tax_rate"`
	StockMinimum *int64           `json:"stock_minimum"`
}

type stockAdjustmentRequest struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note"`
}

type inventoryCountRequest struct {
	Counted *int64 `json:"counted"`
	Note    string `json:"note"`
}

func (s *Server) CreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var taxRate decimal.NullDecimal
	if req.TaxRate != nil {
		taxRate = decimal.NewNullDecimal(*req.TaxRate)
	}

	resp, err := s.articleSvc.Create(c.Request.Context(), articledomain.CreateArticleRequest{
		Reference:    strings.TrimSpace(req.Reference),
		Designation:  strings.TrimSpace(req.Designation),
		Family:       strings.TrimSpace(req.Family),
		SellPriceHT:  req.SellPriceHT,
		TaxRate:      taxRate,
		StockMinimum: req.StockMinimum,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "article.create", "article", resp.ID.String(), map[string]any{
		"reference":     resp.Reference,
		"sell_price_ht": resp.SellPriceHT.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListArticles(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Query    string `form:"q"`
		Family   string `form:"family"`
		Active   string `form:"active"`
		LowStock string `form:"low_stock"`
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
	lowStock, err := parseOptionalBool(query.LowStock)
	if err != nil {
		AbortWithError(c, newValidationError("low_stock", "invalid_low_stock", "invalid low_stock"))
		return
	}

	resp, err := s.articleSvc.List(c.Request.Context(), articledomain.ListArticleRequest{
		PageToken: query.PageToken,
		Query:     strings.TrimSpace(query.Query),
		Family:    strings.TrimSpace(query.Family),
		Active:    active,
		LowStock:  lowStock != nil && *lowStock,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetArticleByID(c *gin.Context) {
	resp, err := s.articleSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateArticle(c *gin.Context) {
	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.articleSvc.Update(c.Request.Context(), articledomain.UpdateArticleRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		Designation:  req.Designation,
		Family:       req.Family,
		SellPriceHT:  req.SellPriceHT,
		TaxRate:      req.TaxRate,
		ClearTaxRate: req.ClearTaxRate,
		StockMinimum: req.StockMinimum,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "article.update", "article", resp.ID.String(), map[string]any{
		"reference":     resp.Reference,
		"sell_price_ht": resp.SellPriceHT.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RetireArticle(c *gin.Context) {
	resp, err := s.articleSvc.Retire(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "article.retire", "article", resp.ID.String(), map[string]any{"reference": resp.Reference})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListArticleMovements(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Reason string `form:"reason"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.stockSvc.ListMovements(c.Request.Context(), stockdomain.ListMovementRequest{
		PageToken: query.PageToken,
		ArticleID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(query.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdjustArticleStock(c *gin.Context) {
	var req stockAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.stockSvc.Adjust(c.Request.Context(), stockdomain.AdjustRequest{
		ArticleID: strings.TrimSpace(c.Param("id")),
		Delta:     req.Delta,
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "stock.adjust", "article", resp.ArticleID.String(), map[string]any{"quantity": resp.Quantity})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CountArticleStock(c *gin.Context) {
	var req inventoryCountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Counted == nil {
		AbortWithError(c, newValidationError("counted", "required", "counted is required"))
		return
	}

	resp, err := s.stockSvc.Inventory(c.Request.Context(), stockdomain.InventoryRequest{
		ArticleID: strings.TrimSpace(c.Param("id")),
		Counted:   *req.Counted,
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "stock.inventory", "article", strings.TrimSpace(c.Param("id")), map[string]any{"on_hand": resp.OnHand})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
