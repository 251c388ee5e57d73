package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Dashboard is the headline view of the current month.
type Dashboard struct {
	Month            string          `json:"month"`
	MonthRevenueHT   decimal.Decimal `json:"month_revenue_ht"`
	MonthRevenueTTC  decimal.Decimal `json:"month_revenue_ttc"`
	MonthOrders      int64           `json:"month_orders"`
	OpenOrders       int64           `json:"open_orders"`
	UnpaidInvoices   int64           `json:"unpaid_invoices"`
	UnpaidTotal      decimal.Decimal `json:"unpaid_total"`
	OverdueInvoices  int64           `json:"overdue_invoices"`
	ActiveClients    int64           `json:"active_clients"`
	LowStockArticles int64           `json:"low_stock_articles"`
}

type RevenuePoint struct {
	Period   string          `json:"period"`
	TotalHT  decimal.Decimal `json:"total_ht"`
	TotalTTC decimal.Decimal `json:"total_ttc"`
	Invoices int64           `json:"invoices"`
}

type ClientRevenue struct {
	ClientID  snowflake.ID    `json:"client_id"`
	Code      string          `json:"code"`
	LegalName string          `json:"legal_name"`
	TotalHT   decimal.Decimal `json:"total_ht"`
	Invoices  int64           `json:"invoices"`
}

type ArticleSales struct {
	ArticleID   snowflake.ID    `json:"article_id"`
	Reference   string          `json:"reference"`
	Designation string          `json:"designation"`
	Quantity    int64           `json:"quantity"`
	TotalHT     decimal.Decimal `json:"total_ht"`
}

type FamilyRevenue struct {
	Key     string          `json:"key"`
	Family  string          `json:"family"`
	TotalHT decimal.Decimal `json:"total_ht"`
}

// RegionRevenue groups revenue by département, the first two characters of
// the client postal code. Clients without a postal code fall under "??".
type RegionRevenue struct {
	Department string          `json:"department"`
	TotalHT    decimal.Decimal `json:"total_ht"`
	TotalTTC   decimal.Decimal `json:"total_ttc"`
	Clients    int64           `json:"clients"`
	Invoices   int64           `json:"invoices"`
}

// Service reads aggregates without taking locks. Revenue counts invoices
// and credit notes that are neither drafts nor cancelled.
type Service interface {
	Dashboard(ctx context.Context) (Dashboard, error)
	// Revenue returns one point per calendar month, oldest first, ending with
	// the current month.
	Revenue(ctx context.Context, months int) ([]RevenuePoint, error)
	TopClients(ctx context.Context, limit int) ([]ClientRevenue, error)
	TopArticles(ctx context.Context, limit int) ([]ArticleSales, error)
	RevenueByFamily(ctx context.Context) ([]FamilyRevenue, error)
	// RevenueByRegion is ordered by TTC revenue, highest first. A zero year
	// covers every invoice date.
	RevenueByRegion(ctx context.Context, year int) ([]RegionRevenue, error)
}

const UnknownDepartment = "??"

const (
	DefaultMonths = 12
	DefaultLimit  = 10
	MaxLimit      = 100
)
