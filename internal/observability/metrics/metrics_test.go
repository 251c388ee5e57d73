package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("from", "brouillon"),
		attribute.String("client_id", "456"),
		attribute.String("to", "validee"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "from" || attrs[1].Key != "to" {
		t.Fatalf("expected from and to to be retained, got %v", attrs)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordOrderTransition(context.Background(), "brouillon", "validee")
	m.RecordPayment(context.Background(), "virement")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordStockMovement(context.Background(), "reservation", 2)
	m.RecordInvoiceEvent(context.Background(), "issued")
	m.RecordLockConflict(context.Background(), "article")
}
