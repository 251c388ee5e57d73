package domain

import (
	"context"

	"github.com/smallbiznis/gescom/internal/apperror"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	PageToken  string
	Action     string
	TargetType string
	TargetID   string
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var ErrInvalidAction = apperror.New(apperror.KindInvalidInput, "invalid_action")
