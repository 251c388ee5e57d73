package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/gescom/internal/clock"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/gescom/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/gescom/internal/payment/domain"
	"github.com/smallbiznis/gescom/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePayments struct {
	paymentdomain.Service

	changed int
	err     error
	block   bool
	calls   int
	seenNow time.Time
}

func (f *fakePayments) RecomputeOverdue(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	f.seenNow = now
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return f.changed, f.err
}

func newTestScheduler(t *testing.T, payments paymentdomain.Service, cfg Config) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	s, err := New(Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(testkit.Epoch),
		Payments: payments,
		Jobs:     obsmetrics.NewJobMetrics(registry, obsmetrics.Config{ServiceName: "gescom", Environment: "test"}),
		Config:   cfg,
	})
	require.NoError(t, err)
	return s, registry
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	payments := &fakePayments{block: true}
	s, registry := newTestScheduler(t, payments, Config{SweepTimeout: 5 * time.Millisecond})

	err := s.RunOnce(context.Background())
	require.NoError(t, err)

	labels := map[string]string{"service": "gescom", "env": "test", "job": JobOverdueSweep}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "gescom_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "gescom",
		"env":     "test",
		"job":     JobOverdueSweep,
		"reason":  obsmetrics.JobReasonDeadlineExceeded,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "gescom_job_errors_total", errorLabels))
}

func TestOverdueSweepCountsChangedInvoices(t *testing.T) {
	payments := &fakePayments{changed: 3}
	s, registry := newTestScheduler(t, payments, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, payments.calls)
	assert.Equal(t, testkit.Epoch, payments.seenNow)

	labels := map[string]string{"service": "gescom", "env": "test", "job": JobOverdueSweep, "resource": "invoice"}
	assert.Equal(t, float64(3), getCounterValue(t, registry, "gescom_job_batch_processed_total", labels))
	runLabels := map[string]string{"service": "gescom", "env": "test", "job": JobOverdueSweep}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "gescom_job_runs_total", runLabels))
}

func TestRunOnceWrapsJobErrors(t *testing.T) {
	boom := errors.New("boom")
	payments := &fakePayments{err: boom}
	s, _ := newTestScheduler(t, payments, Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), JobOverdueSweep)
}

func TestDisabledJobIsSkipped(t *testing.T) {
	payments := &fakePayments{}
	s, _ := newTestScheduler(t, payments, Config{EnabledJobs: []string{"something_else"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 0, payments.calls)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOverdueSweepMarksInvoicesLate(t *testing.T) {
	kit := testkit.New(t)
	article := kit.Article(t, "VIS-01", "10.00", 5)
	client := kit.Client(t, "DUPONT")
	invoice := kit.IssuedInvoice(t, kit.ValidatedOrder(t, client, testkit.Line(article, 1)))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	s, err := New(Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    kit.Clock,
		Payments: kit.Payments,
		Jobs:     obsmetrics.NewJobMetrics(prometheus.NewRegistry(), obsmetrics.Config{}),
	})
	require.NoError(t, err)

	kit.Clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, s.RunOnce(context.Background()))

	stored, err := kit.Invoices.GetByID(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusOverdue, stored.Status)
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}

func TestJobFinishLogsSweptInvoicesAtInfo(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	payments := &fakePayments{}
	s, err := New(Params{
		Log:      zap.New(core),
		GenID:    node,
		Clock:    clock.NewFakeClock(testkit.Epoch),
		Payments: payments,
		Jobs:     obsmetrics.NewJobMetrics(prometheus.NewRegistry(), obsmetrics.Config{}),
	})
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	payments.changed = 2
	require.NoError(t, s.RunOnce(context.Background()))

	finished := logs.FilterMessage("scheduler.job.finish").All()
	require.Len(t, finished, 2)
	assert.Equal(t, zapcore.DebugLevel, finished[0].Level)
	assert.Equal(t, zapcore.InfoLevel, finished[1].Level)

	fields := finished[1].ContextMap()
	assert.Equal(t, "2026-03-02", fields["as_of"])
	assert.Equal(t, "invoice", fields["resource"])
	assert.EqualValues(t, 2, fields["processed_count"])
	assert.Contains(t, fields["request_id"], JobOverdueSweep+"-")
}
