package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/gescom/internal/audit/domain"
	obsmiddleware "github.com/smallbiznis/gescom/internal/observability/logger"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

// audit records an accepted write. A failed audit write never fails the
// request; the audit service logs it.
func (s *Server) audit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if numero, ok := metadata["numero"].(string); ok {
		obsmiddleware.SetDocument(c, numero)
	}
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(c.Request.Context(), action, targetType, targetID, metadata)
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if s.auditSvc == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		PageToken:  query.PageToken,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
