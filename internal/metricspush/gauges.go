package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	reportingdomain "github.com/smallbiznis/gescom/internal/reporting/domain"
)

// Gauges are the business figures pushed on every tick. They live on their
// own registry so a push never carries process or HTTP series.
type Gauges struct {
	registry        *prometheus.Registry
	openOrders      prometheus.Gauge
	unpaidInvoices  prometheus.Gauge
	unpaidTotal     prometheus.Gauge
	overdueInvoices prometheus.Gauge
	lowStock        prometheus.Gauge

	now         func() time.Time
	refreshedAt time.Time
}

func NewGauges(service, environment string) *Gauges {
	constLabels := prometheus.Labels{"service": service, "env": environment}
	if constLabels["service"] == "" {
		constLabels["service"] = "gescom"
	}
	if constLabels["env"] == "" {
		constLabels["env"] = "unknown"
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help, ConstLabels: constLabels})
	}

	g := &Gauges{
		registry:        prometheus.NewRegistry(),
		openOrders:      gauge("gescom_open_orders", "Orders neither invoiced nor cancelled."),
		unpaidInvoices:  gauge("gescom_unpaid_invoices", "Issued invoices with a balance due."),
		unpaidTotal:     gauge("gescom_unpaid_total_euros", "Sum of balances due on open invoices."),
		overdueInvoices: gauge("gescom_overdue_invoices", "Invoices past their due day."),
		lowStock:        gauge("gescom_low_stock_articles", "Active articles at or below their stock minimum."),
		now:             time.Now,
	}
	g.registry.MustRegister(g.openOrders, g.unpaidInvoices, g.unpaidTotal, g.overdueInvoices, g.lowStock)
	return g
}

func (g *Gauges) Registry() *prometheus.Registry {
	return g.registry
}

// Refresh reloads every gauge from the dashboard aggregates.
func (g *Gauges) Refresh(ctx context.Context, reporting reportingdomain.Service) error {
	dashboard, err := reporting.Dashboard(ctx)
	if err != nil {
		return err
	}
	g.openOrders.Set(float64(dashboard.OpenOrders))
	g.unpaidInvoices.Set(float64(dashboard.UnpaidInvoices))
	g.unpaidTotal.Set(dashboard.UnpaidTotal.InexactFloat64())
	g.overdueInvoices.Set(float64(dashboard.OverdueInvoices))
	g.lowStock.Set(float64(dashboard.LowStockArticles))
	g.refreshedAt = g.now()
	return nil
}

func (g *Gauges) Refreshed() bool {
	return g != nil && !g.refreshedAt.IsZero()
}

// RefreshedAt is when the dashboard figures were last read.
func (g *Gauges) RefreshedAt() time.Time {
	return g.refreshedAt
}
