package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/gescom/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewReplacesGlobalLogger(t *testing.T) {
	defer zap.ReplaceGlobals(zap.L())

	log, err := New(nil, Config{Level: "info", Company: "12345678900011"})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Same(t, log, zap.L())

	_, err = New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestBaseFieldsCarryCompany(t *testing.T) {
	fields := baseFields("gescom", Config{Environment: "production", Company: " 12345678900011 "})
	keys := make(map[string]string, len(fields))
	for _, field := range fields {
		keys[field.Key] = field.String
	}
	assert.Equal(t, "12345678900011", keys["company"])
	assert.Equal(t, "production", keys["env"])

	assert.Len(t, baseFields("gescom", Config{}), 3)
}

func TestWithContextAddsDocumentAndRequest(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	WithContext(context.Background(), base).Info("bare")

	ctx := obscontext.WithRequestID(context.Background(), "job-17")
	ctx = obscontext.WithDocument(ctx, "FAC-000007")
	WithContext(ctx, base).Info("tagged")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, "job-17", entries[1].ContextMap()["request_id"])
	assert.Equal(t, "FAC-000007", entries[1].ContextMap()["document"])
}
