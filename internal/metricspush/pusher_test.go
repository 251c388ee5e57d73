package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gescom/internal/config"
	reportingdomain "github.com/smallbiznis/gescom/internal/reporting/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReporting struct {
	reportingdomain.Service
	dashboard reportingdomain.Dashboard
}

func (f fakeReporting) Dashboard(context.Context) (reportingdomain.Dashboard, error) {
	return f.dashboard, nil
}

func refreshedGauges(t *testing.T) *Gauges {
	t.Helper()
	gauges := NewGauges("gescom", "test")
	gauges.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	err := gauges.Refresh(context.Background(), fakeReporting{dashboard: reportingdomain.Dashboard{
		OpenOrders:       4,
		UnpaidInvoices:   2,
		UnpaidTotal:      decimal.RequireFromString("1234.50"),
		OverdueInvoices:  1,
		LowStockArticles: 3,
	}})
	require.NoError(t, err)
	return gauges
}

func TestRemoteWritePusherSendsGauges(t *testing.T) {
	var got prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret", map[string]string{"job": "gescom", "company": "12345678900011", "service": "other"})
	require.NoError(t, pusher.Push(context.Background(), refreshedGauges(t)))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))

	values := map[string]float64{}
	for _, series := range got.Timeseries {
		var name string
		for i, label := range series.Labels {
			if i > 0 {
				assert.LessOrEqual(t, series.Labels[i-1].Name, label.Name)
			}
			switch label.Name {
			case "__name__":
				name = label.Value
			case "company":
				assert.Equal(t, "12345678900011", label.Value)
			case "service":
				assert.Equal(t, "gescom", label.Value)
			}
		}
		assert.Len(t, series.Labels, 5)
		require.Len(t, series.Samples, 1)
		assert.Equal(t, int64(1_700_000_000_000), series.Samples[0].Timestamp)
		values[name] = series.Samples[0].Value
	}
	assert.Equal(t, map[string]float64{
		"gescom_open_orders":        4,
		"gescom_unpaid_invoices":    2,
		"gescom_unpaid_total_euros": 1234.5,
		"gescom_overdue_invoices":   1,
		"gescom_low_stock_articles": 3,
	}, values)
}

func TestRemoteWritePusherReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "", nil).Push(context.Background(), refreshedGauges(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPushgatewayPusherUsesJobAndGrouping(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "gescom", map[string]string{"environment": "test", "company": ""})
	require.NoError(t, pusher.Push(context.Background(), refreshedGauges(t)))
	assert.True(t, strings.HasPrefix(path, "/metrics/job/gescom"), path)
	assert.Contains(t, path, "environment/test")
	assert.NotContains(t, path, "company")
}

func TestPushersSkipGaugesNeverRefreshed(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fresh := NewGauges("gescom", "test")
	require.NoError(t, NewRemoteWritePusher(srv.URL, "", nil).Push(context.Background(), fresh))
	require.NoError(t, NewPushgatewayPusher(srv.URL, "gescom", nil).Push(context.Background(), fresh))
	require.NoError(t, NewRemoteWritePusher(srv.URL, "", nil).Push(context.Background(), nil))
	assert.Equal(t, 0, calls)
	assert.False(t, fresh.Refreshed())
}

func TestNewPusherFromConfig(t *testing.T) {
	log := zap.NewNop()
	cases := []struct {
		name string
		push config.MetricsPushConfig
		want any
	}{
		{name: "disabled", push: config.MetricsPushConfig{}, want: nil},
		{name: "missing endpoint", push: config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite}, want: nil},
		{name: "unknown exporter", push: config.MetricsPushConfig{Enabled: true, Exporter: "statsd", Endpoint: "http://x"}, want: nil},
		{name: "remote write", push: config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "http://prom/api/v1/write"}, want: &RemoteWritePusher{}},
		{name: "pushgateway", push: config.MetricsPushConfig{Enabled: true, Exporter: ExporterPushgateway, Endpoint: "http://gw:9091"}, want: &PushgatewayPusher{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pusher := NewPusher(config.Config{AppName: "gescom", Push: tc.push}, log)
			if tc.want == nil {
				assert.Nil(t, pusher)
				return
			}
			assert.IsType(t, tc.want, pusher)
		})
	}
}

func TestBuildRemoteWriteSeriesKeepsGaugesOnly(t *testing.T) {
	registry := prometheus.NewRegistry()
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "latency_seconds"})
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "events_total"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "stock_value_euros"})
	registry.MustRegister(histogram, counter, gauge)
	histogram.Observe(0.2)
	counter.Add(2)
	gauge.Set(1520.75)

	families, err := registry.Gather()
	require.NoError(t, err)
	series := buildRemoteWriteSeries(families, 1, map[string]string{"job": "gescom"})
	require.Len(t, series, 1)
	assert.Equal(t, "stock_value_euros", series[0].Labels[0].Value)
	assert.Equal(t, "job", series[0].Labels[1].Name)
	assert.Equal(t, 1520.75, series[0].Samples[0].Value)
}
