package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/gescom/internal/order/domain"
	"github.com/smallbiznis/gescom/internal/pricing"
	"github.com/smallbiznis/gescom/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const periodLayout = "2006-01"

// excluded are the invoice statuses that carry no revenue.
var excluded = []invoicedomain.Status{invoicedomain.StatusDraft, invoicedomain.StatusCancelled}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Orders orderdomain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	orders orderdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("reporting.service"),
		clock:  p.Clock,
		orders: p.Orders,
	}
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	now := s.clock.Now()
	start := truncateToMonth(now)
	end := start.AddDate(0, 1, 0)
	db := s.db.WithContext(ctx)

	out := domain.Dashboard{Month: start.Format(periodLayout)}

	var revenue struct {
		TotalHT  decimal.Decimal
		TotalTTC decimal.Decimal
	}
	err := db.Raw(
		`SELECT COALESCE(SUM(total_ht), 0) AS total_ht, COALESCE(SUM(total_ttc), 0) AS total_ttc
		 FROM invoices
		 WHERE status NOT IN ? AND invoice_date >= ? AND invoice_date < ?`,
		excluded,
		start,
		end,
	).Scan(&revenue).Error
	if err != nil {
		return domain.Dashboard{}, err
	}
	out.MonthRevenueHT = pricing.Round(revenue.TotalHT)
	out.MonthRevenueTTC = pricing.Round(revenue.TotalTTC)

	if err := db.Raw(
		`SELECT COUNT(*) FROM orders WHERE created_at >= ? AND created_at < ?`,
		start,
		end,
	).Scan(&out.MonthOrders).Error; err != nil {
		return domain.Dashboard{}, err
	}

	open, err := s.orders.CountOpen(ctx, s.db)
	if err != nil {
		return domain.Dashboard{}, err
	}
	out.OpenOrders = open

	var unpaid struct {
		Count   int64
		Overdue int64
		Balance decimal.Decimal
	}
	err = db.Raw(
		`SELECT COUNT(*) AS count,
		   COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS overdue,
		   COALESCE(SUM(total_ttc - amount_settled), 0) AS balance
		 FROM invoices
		 WHERE kind = ? AND status IN ?`,
		invoicedomain.StatusOverdue,
		invoicedomain.KindInvoice,
		invoicedomain.OpenStatuses,
	).Scan(&unpaid).Error
	if err != nil {
		return domain.Dashboard{}, err
	}
	out.UnpaidInvoices = unpaid.Count
	out.OverdueInvoices = unpaid.Overdue
	out.UnpaidTotal = pricing.Round(unpaid.Balance)

	if err := db.Raw(
		`SELECT COUNT(*) FROM clients WHERE active = ?`, true,
	).Scan(&out.ActiveClients).Error; err != nil {
		return domain.Dashboard{}, err
	}
	if err := db.Raw(
		`SELECT COUNT(*) FROM articles WHERE active = ? AND on_hand <= stock_minimum`, true,
	).Scan(&out.LowStockArticles).Error; err != nil {
		return domain.Dashboard{}, err
	}
	return out, nil
}

func (s *Service) Revenue(ctx context.Context, months int) ([]domain.RevenuePoint, error) {
	if months <= 0 || months > 120 {
		months = domain.DefaultMonths
	}
	end := truncateToMonth(s.clock.Now()).AddDate(0, 1, 0)
	start := end.AddDate(0, -months, 0)

	var rows []struct {
		InvoiceDate time.Time
		TotalHT     decimal.Decimal
		TotalTTC    decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT invoice_date, total_ht, total_ttc
		 FROM invoices
		 WHERE status NOT IN ? AND invoice_date >= ? AND invoice_date < ?`,
		excluded,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	points := make([]domain.RevenuePoint, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		period := start.AddDate(0, i, 0).Format(periodLayout)
		points[i] = domain.RevenuePoint{Period: period, TotalHT: decimal.Zero, TotalTTC: decimal.Zero}
		index[period] = i
	}
	for _, row := range rows {
		i, ok := index[row.InvoiceDate.UTC().Format(periodLayout)]
		if !ok {
			continue
		}
		points[i].TotalHT = points[i].TotalHT.Add(row.TotalHT)
		points[i].TotalTTC = points[i].TotalTTC.Add(row.TotalTTC)
		points[i].Invoices++
	}
	for i := range points {
		points[i].TotalHT = pricing.Round(points[i].TotalHT)
		points[i].TotalTTC = pricing.Round(points[i].TotalTTC)
	}
	return points, nil
}

func (s *Service) TopClients(ctx context.Context, limit int) ([]domain.ClientRevenue, error) {
	var rows []domain.ClientRevenue
	err := s.db.WithContext(ctx).Raw(
		`SELECT c.id AS client_id, c.code, c.legal_name,
		   COALESCE(SUM(i.total_ht), 0) AS total_ht, COUNT(i.id) AS invoices
		 FROM invoices i
		 JOIN clients c ON c.id = i.client_id
		 WHERE i.status NOT IN ?
		 GROUP BY c.id, c.code, c.legal_name
		 ORDER BY SUM(i.total_ht) DESC, c.id
		 LIMIT ?`,
		excluded,
		clampLimit(limit),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].TotalHT = pricing.Round(rows[i].TotalHT)
	}
	return nonNil(rows), nil
}

func (s *Service) TopArticles(ctx context.Context, limit int) ([]domain.ArticleSales, error) {
	var rows []domain.ArticleSales
	err := s.db.WithContext(ctx).Raw(
		`SELECT l.article_id, MAX(l.reference) AS reference, MAX(l.designation) AS designation,
		   COALESCE(SUM(l.quantity), 0) AS quantity, COALESCE(SUM(l.amount_ht), 0) AS total_ht
		 FROM invoice_lines l
		 JOIN invoices i ON i.id = l.invoice_id
		 WHERE i.status NOT IN ?
		 GROUP BY l.article_id
		 ORDER BY SUM(l.quantity) DESC, SUM(l.amount_ht) DESC, l.article_id
		 LIMIT ?`,
		excluded,
		clampLimit(limit),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].TotalHT = pricing.Round(rows[i].TotalHT)
	}
	return nonNil(rows), nil
}

// RevenueByFamily merges families whose names differ only in case or
// accents, using the same key as the tax policy.
func (s *Service) RevenueByFamily(ctx context.Context) ([]domain.FamilyRevenue, error) {
	var rows []struct {
		Family  string
		TotalHT decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT a.family, COALESCE(SUM(l.amount_ht), 0) AS total_ht
		 FROM invoice_lines l
		 JOIN invoices i ON i.id = l.invoice_id
		 JOIN articles a ON a.id = l.article_id
		 WHERE i.status NOT IN ?
		 GROUP BY a.family
		 ORDER BY a.family`,
		excluded,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*domain.FamilyRevenue)
	for _, row := range rows {
		key := config.FamilyKey(row.Family)
		entry, ok := byKey[key]
		if !ok {
			entry = &domain.FamilyRevenue{Key: key, Family: row.Family, TotalHT: decimal.Zero}
			byKey[key] = entry
		}
		entry.TotalHT = entry.TotalHT.Add(row.TotalHT)
	}

	out := make([]domain.FamilyRevenue, 0, len(byKey))
	for _, entry := range byKey {
		entry.TotalHT = pricing.Round(entry.TotalHT)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalHT.Equal(out[j].TotalHT) {
			return out[i].TotalHT.GreaterThan(out[j].TotalHT)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *Service) RevenueByRegion(ctx context.Context, year int) ([]domain.RegionRevenue, error) {
	query := s.db.WithContext(ctx).
		Table("invoices AS i").
		Select(`c.id AS client_id, c.postal_code,
		   COALESCE(SUM(i.total_ht), 0) AS total_ht, COALESCE(SUM(i.total_ttc), 0) AS total_ttc,
		   COUNT(i.id) AS invoices`).
		Joins("JOIN clients c ON c.id = i.client_id").
		Where("i.status NOT IN ?", excluded)
	if year > 0 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("i.invoice_date >= ? AND i.invoice_date < ?", start, start.AddDate(1, 0, 0))
	}

	var rows []struct {
		ClientID   int64
		PostalCode string
		TotalHT    decimal.Decimal
		TotalTTC   decimal.Decimal
		Invoices   int64
	}
	if err := query.Group("c.id, c.postal_code").Scan(&rows).Error; err != nil {
		return nil, err
	}

	byDepartment := make(map[string]*domain.RegionRevenue)
	for _, row := range rows {
		department := departmentOf(row.PostalCode)
		entry, ok := byDepartment[department]
		if !ok {
			entry = &domain.RegionRevenue{Department: department, TotalHT: decimal.Zero, TotalTTC: decimal.Zero}
			byDepartment[department] = entry
		}
		entry.TotalHT = entry.TotalHT.Add(row.TotalHT)
		entry.TotalTTC = entry.TotalTTC.Add(row.TotalTTC)
		entry.Invoices += row.Invoices
		entry.Clients++
	}

	out := make([]domain.RegionRevenue, 0, len(byDepartment))
	for _, entry := range byDepartment {
		entry.TotalHT = pricing.Round(entry.TotalHT)
		entry.TotalTTC = pricing.Round(entry.TotalTTC)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalTTC.Equal(out[j].TotalTTC) {
			return out[i].TotalTTC.GreaterThan(out[j].TotalTTC)
		}
		return out[i].Department < out[j].Department
	})
	return out, nil
}

func departmentOf(postalCode string) string {
	postalCode = strings.ToUpper(strings.TrimSpace(postalCode))
	if len(postalCode) < 2 {
		return domain.UnknownDepartment
	}
	return postalCode[:2]
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return domain.DefaultLimit
	case limit > domain.MaxLimit:
		return domain.MaxLimit
	default:
		return limit
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func truncateToMonth(value time.Time) time.Time {
	value = value.UTC()
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, time.UTC)
}
