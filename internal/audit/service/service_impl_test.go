package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/audit/domain"
	"github.com/smallbiznis/gescom/internal/audit/repository"
	"github.com/smallbiznis/gescom/internal/audit/service"
	"github.com/smallbiznis/gescom/internal/clock"
	obscontext "github.com/smallbiznis/gescom/internal/observability/context"
	"github.com/smallbiznis/gescom/internal/testdb"
	"github.com/smallbiznis/gescom/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return service.NewService(service.Params{
		DB:    testdb.Open(t),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(testkit.Epoch),
		Repo:  repository.Provide(),
	})
}

func TestAuditLogStoresRedactedEntry(t *testing.T) {
	svc := newService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-42")

	require.NoError(t, svc.AuditLog(ctx, "client.create", "client", "1001", map[string]any{
		"code":  "DUPONT",
		"email": "compta@dupont.example",
	}))

	resp, err := svc.List(context.Background(), domain.ListAuditLogRequest{TargetType: "client"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "client.create", entry.Action)
	assert.Equal(t, "1001", entry.TargetID)
	assert.Equal(t, "req-42", entry.RequestID)
	assert.Equal(t, "DUPONT", entry.Metadata["code"])
	assert.Equal(t, "****mple", entry.Metadata["email"])
	assert.True(t, entry.CreatedAt.Equal(testkit.Epoch))
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc := newService(t)
	err := svc.AuditLog(context.Background(), " ", "order", "1", nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidAction))
}

func TestListFiltersAndOrdersNewestFirst(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.AuditLog(ctx, "order.validate", "order", "1", nil))
	require.NoError(t, svc.AuditLog(ctx, "order.cancel", "order", "1", nil))
	require.NoError(t, svc.AuditLog(ctx, "invoice.issue", "invoice", "2", nil))

	resp, err := svc.List(ctx, domain.ListAuditLogRequest{TargetType: "order", TargetID: "1"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 2)
	assert.Equal(t, "order.cancel", resp.AuditLogs[0].Action)
	assert.False(t, resp.HasMore)

	resp, err = svc.List(ctx, domain.ListAuditLogRequest{Action: "invoice.issue"})
	require.NoError(t, err)
	assert.Len(t, resp.AuditLogs, 1)
	assert.Empty(t, resp.AuditLogs[0].Metadata)
}
