package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	reportingdomain "github.com/smallbiznis/gescom/internal/reporting/domain"
	"go.uber.org/zap"
)

const contentTypeCSV = "text/csv; charset=utf-8"

// maxRevenueMonths caps the revenue series at ten years.
const maxRevenueMonths = 120

func (s *Server) GetDashboard(c *gin.Context) {
	resp, err := s.reportingSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRevenue(c *gin.Context) {
	months, ok := parseBoundedInt(c.Query("months"), reportingdomain.DefaultMonths, maxRevenueMonths)
	if !ok {
		AbortWithError(c, newValidationError("months", "invalid_months", "invalid months"))
		return
	}

	resp, err := s.reportingSvc.Revenue(c.Request.Context(), months)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTopClients(c *gin.Context) {
	limit, ok := parseBoundedInt(c.Query("limit"), reportingdomain.DefaultLimit, reportingdomain.MaxLimit)
	if !ok {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	resp, err := s.reportingSvc.TopClients(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTopArticles(c *gin.Context) {
	limit, ok := parseBoundedInt(c.Query("limit"), reportingdomain.DefaultLimit, reportingdomain.MaxLimit)
	if !ok {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	resp, err := s.reportingSvc.TopArticles(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRevenueByFamily(c *gin.Context) {
	resp, err := s.reportingSvc.RevenueByFamily(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRevenueByRegion(c *gin.Context) {
	year, ok := parseBoundedInt(c.Query("year"), 0, 9999)
	if !ok {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}

	resp, err := s.reportingSvc.RevenueByRegion(c.Request.Context(), year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExportTopClients streams the top clients ranking as a spreadsheet-ready
// CSV file.
func (s *Server) ExportTopClients(c *gin.Context) {
	limit, ok := parseBoundedInt(c.Query("limit"), reportingdomain.MaxLimit, reportingdomain.MaxLimit)
	if !ok {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	rows, err := s.reportingSvc.TopClients(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records := [][]string{{"rank", "code", "legal_name", "total_ht", "invoices"}}
	for i, row := range rows {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			csvSafe(row.Code),
			csvSafe(row.LegalName),
			row.TotalHT.StringFixed(2),
			strconv.FormatInt(row.Invoices, 10),
		})
	}
	s.writeCSV(c, "top-clients", records)
}

func (s *Server) ExportTopArticles(c *gin.Context) {
	limit, ok := parseBoundedInt(c.Query("limit"), reportingdomain.MaxLimit, reportingdomain.MaxLimit)
	if !ok {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	rows, err := s.reportingSvc.TopArticles(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records := [][]string{{"rank", "reference", "designation", "quantity", "total_ht"}}
	for i, row := range rows {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			csvSafe(row.Reference),
			csvSafe(row.Designation),
			strconv.FormatInt(row.Quantity, 10),
			row.TotalHT.StringFixed(2),
		})
	}
	s.writeCSV(c, "top-articles", records)
}

// writeCSV uses ';' separators so French spreadsheet locales split columns
// on open.
func (s *Server) writeCSV(c *gin.Context, name string, records [][]string) {
	filename := fmt.Sprintf("%s-%s.csv", name, s.clock.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", contentTypeCSV)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	w.Comma = ';'
	if err := w.WriteAll(records); err != nil {
		s.log.Warn("failed to write csv export", zap.String("export", name), zap.Error(err))
	}
}

// csvSafe prefixes cells starting with a formula trigger with a single quote.
func csvSafe(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}
