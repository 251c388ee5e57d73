package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	articledomain "github.com/smallbiznis/gescom/internal/article/domain"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/gescom/internal/payment/domain"
	reportingdomain "github.com/smallbiznis/gescom/internal/reporting/domain"
	stockdomain "github.com/smallbiznis/gescom/internal/stock/domain"
	"github.com/smallbiznis/gescom/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	kit     *testkit.Kit
	dupont  clientdomain.Client
	martin  clientdomain.Client
	vis     articledomain.Article
	marteau articledomain.Article
	issued  invoicedomain.Invoice
}

// seed books one issued invoice for DUPONT (200 HT), one draft and one
// cancelled invoice for MARTIN, and leaves one validated order open.
func seed(t *testing.T) fixture {
	t.Helper()
	kit := testkit.New(t)
	ctx := context.Background()

	vis := kit.Article(t, "VIS-01", "100.00", 10)
	marteau, err := kit.Articles.Create(ctx, articledomain.CreateArticleRequest{
		Reference:   "MAR-01",
		Designation: "Marteau",
		Family:      "QUINCAILLERIE",
		SellPriceHT: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)
	_, err = kit.Stock.Adjust(ctx, stockdomain.AdjustRequest{ArticleID: marteau.ID.String(), Delta: 5})
	require.NoError(t, err)
	_, err = kit.Articles.Create(ctx, articledomain.CreateArticleRequest{
		Reference:   "CLE-01",
		Designation: "Clé plate",
		Family:      "Outillage",
		SellPriceHT: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	dupont := kit.Client(t, "DUPONT")
	martin := kit.Client(t, "MARTIN")

	issued := kit.IssuedInvoice(t, kit.ValidatedOrder(t, dupont, testkit.Line(vis, 1), testkit.Line(marteau, 2)))

	_, err = kit.Invoices.Generate(ctx, invoicedomain.GenerateInvoiceRequest{
		OrderIDs: []string{kit.ValidatedOrder(t, martin, testkit.Line(vis, 1)).ID.String()},
	})
	require.NoError(t, err)
	cancelled, err := kit.Invoices.Generate(ctx, invoicedomain.GenerateInvoiceRequest{
		OrderIDs: []string{kit.ValidatedOrder(t, martin, testkit.Line(marteau, 1)).ID.String()},
	})
	require.NoError(t, err)
	_, err = kit.Invoices.Cancel(ctx, cancelled.ID.String())
	require.NoError(t, err)

	kit.ValidatedOrder(t, martin, testkit.Line(vis, 1))

	return fixture{kit: kit, dupont: dupont, martin: martin, vis: vis, marteau: marteau, issued: issued}
}

func TestDashboard(t *testing.T) {
	f := seed(t)

	dashboard, err := f.kit.Reporting.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2026-03", dashboard.Month)
	assert.Equal(t, "200.00", dashboard.MonthRevenueHT.StringFixed(2))
	assert.Equal(t, "240.00", dashboard.MonthRevenueTTC.StringFixed(2))
	assert.Equal(t, int64(4), dashboard.MonthOrders)
	assert.Equal(t, int64(1), dashboard.OpenOrders)
	assert.Equal(t, int64(1), dashboard.UnpaidInvoices)
	assert.Equal(t, "240.00", dashboard.UnpaidTotal.StringFixed(2))
	assert.Equal(t, int64(0), dashboard.OverdueInvoices)
	assert.Equal(t, int64(2), dashboard.ActiveClients)
	assert.Equal(t, int64(1), dashboard.LowStockArticles)
}

func TestRevenueBucketsByMonth(t *testing.T) {
	f := seed(t)

	points, err := f.kit.Reporting.Revenue(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []string{"2026-01", "2026-02", "2026-03"}, []string{points[0].Period, points[1].Period, points[2].Period})
	assert.True(t, points[0].TotalHT.IsZero())
	assert.Equal(t, int64(0), points[1].Invoices)
	assert.Equal(t, "200.00", points[2].TotalHT.StringFixed(2))
	assert.Equal(t, int64(1), points[2].Invoices)

	points, err = f.kit.Reporting.Revenue(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, points, 12)
}

func TestCreditNoteNetsRevenue(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	_, err := f.kit.Payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID: f.issued.ID.String(),
		Amount:    f.issued.TotalTTC,
		Method:    clientdomain.MethodVirement,
	})
	require.NoError(t, err)
	_, err = f.kit.Invoices.CreditNote(ctx, f.issued.ID.String())
	require.NoError(t, err)

	dashboard, err := f.kit.Reporting.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, dashboard.MonthRevenueHT.IsZero(), dashboard.MonthRevenueHT.String())
	assert.Equal(t, int64(0), dashboard.UnpaidInvoices)

	points, err := f.kit.Reporting.Revenue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(2), points[0].Invoices)
}

func TestTopClientsAndArticles(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	clients, err := f.kit.Reporting.TopClients(ctx, 5)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, f.dupont.ID, clients[0].ClientID)
	assert.Equal(t, "200.00", clients[0].TotalHT.StringFixed(2))
	assert.Equal(t, int64(1), clients[0].Invoices)

	articles, err := f.kit.Reporting.TopArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, f.marteau.ID, articles[0].ArticleID)
	assert.Equal(t, int64(2), articles[0].Quantity)
	assert.Equal(t, "100.00", articles[0].TotalHT.StringFixed(2))
	assert.Equal(t, f.vis.ID, articles[1].ArticleID)
}

func TestRevenueByFamilyMergesSpellings(t *testing.T) {
	f := seed(t)

	families, err := f.kit.Reporting.RevenueByFamily(context.Background())
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "quincaillerie", families[0].Key)
	assert.Equal(t, "200.00", families[0].TotalHT.StringFixed(2))
}

func TestEmptyReportsAreNotNil(t *testing.T) {
	kit := testkit.New(t)
	ctx := context.Background()

	clients, err := kit.Reporting.TopClients(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, clients)
	assert.Empty(t, clients)

	families, err := kit.Reporting.RevenueByFamily(ctx)
	require.NoError(t, err)
	assert.NotNil(t, families)
}

func TestRevenueByRegionGroupsByDepartment(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	postal := "69003"
	_, err := f.kit.Clients.Update(ctx, clientdomain.UpdateClientRequest{ID: f.dupont.ID.String(), PostalCode: &postal})
	require.NoError(t, err)

	durand, err := f.kit.Clients.Create(ctx, clientdomain.CreateClientRequest{
		Code:       "DURAND",
		LegalName:  "Durand SARL",
		PostalCode: "75011",
		City:       "Paris",
	})
	require.NoError(t, err)
	f.kit.IssuedInvoice(t, f.kit.ValidatedOrder(t, durand, testkit.Line(f.vis, 3)))

	bernard := f.kit.Client(t, "BERNARD")
	f.kit.IssuedInvoice(t, f.kit.ValidatedOrder(t, bernard, testkit.Line(f.vis, 1)))

	regions, err := f.kit.Reporting.RevenueByRegion(ctx, 0)
	require.NoError(t, err)
	require.Len(t, regions, 3)

	assert.Equal(t, "75", regions[0].Department)
	assert.Equal(t, "300.00", regions[0].TotalHT.StringFixed(2))
	assert.Equal(t, "360.00", regions[0].TotalTTC.StringFixed(2))
	assert.Equal(t, int64(1), regions[0].Clients)

	// MARTIN only has a draft and a cancelled invoice.
	assert.Equal(t, "69", regions[1].Department)
	assert.Equal(t, "240.00", regions[1].TotalTTC.StringFixed(2))
	assert.Equal(t, int64(1), regions[1].Invoices)

	assert.Equal(t, reportingdomain.UnknownDepartment, regions[2].Department)
	assert.Equal(t, "120.00", regions[2].TotalTTC.StringFixed(2))

	current, err := f.kit.Reporting.RevenueByRegion(ctx, 2026)
	require.NoError(t, err)
	assert.Len(t, current, 3)
	past, err := f.kit.Reporting.RevenueByRegion(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, past)
}
