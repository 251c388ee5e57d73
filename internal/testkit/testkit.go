// Package testkit wires the full service graph on an in-memory database for
// cross-package scenario tests.
package testkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	articledomain "github.com/smallbiznis/gescom/internal/article/domain"
	articlerepo "github.com/smallbiznis/gescom/internal/article/repository"
	articleservice "github.com/smallbiznis/gescom/internal/article/service"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	clientrepo "github.com/smallbiznis/gescom/internal/client/repository"
	clientservice "github.com/smallbiznis/gescom/internal/client/service"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	deliverydomain "github.com/smallbiznis/gescom/internal/delivery/domain"
	deliveryrepo "github.com/smallbiznis/gescom/internal/delivery/repository"
	deliveryservice "github.com/smallbiznis/gescom/internal/delivery/service"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/gescom/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/gescom/internal/invoice/service"
	"github.com/smallbiznis/gescom/internal/lock"
	orderdomain "github.com/smallbiznis/gescom/internal/order/domain"
	orderrepo "github.com/smallbiznis/gescom/internal/order/repository"
	orderservice "github.com/smallbiznis/gescom/internal/order/service"
	paymentdomain "github.com/smallbiznis/gescom/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/gescom/internal/payment/repository"
	paymentservice "github.com/smallbiznis/gescom/internal/payment/service"
	"github.com/smallbiznis/gescom/internal/providers/email"
	"github.com/smallbiznis/gescom/internal/providers/pdf"
	reportingdomain "github.com/smallbiznis/gescom/internal/reporting/domain"
	reportingservice "github.com/smallbiznis/gescom/internal/reporting/service"
	stockdomain "github.com/smallbiznis/gescom/internal/stock/domain"
	stockrepo "github.com/smallbiznis/gescom/internal/stock/repository"
	stockservice "github.com/smallbiznis/gescom/internal/stock/service"
	"github.com/smallbiznis/gescom/internal/testdb"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the instant the fake clock starts at.
var Epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type Kit struct {
	DB     *gorm.DB
	Clock  *clock.FakeClock
	Config config.Config
	Outbox *Outbox

	ArticleRepo articledomain.Repository
	OrderRepo   orderdomain.Repository
	InvoiceRepo invoicedomain.Repository

	Articles   articledomain.Service
	Clients    clientdomain.Service
	Stock      stockdomain.Service
	Orders     orderdomain.Service
	Invoices   invoicedomain.Service
	Payments   paymentdomain.Service
	Reporting  reportingdomain.Service
	Deliveries deliverydomain.Service
}

func New(t *testing.T) *Kit {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	db := testdb.Open(t)
	log := zap.NewNop()
	fake := clock.NewFakeClock(Epoch)
	locker := lock.NewLocalLocker(5 * time.Second)
	cfg := config.Config{
		Billing: config.BillingConfig{DefaultPaymentTermsDays: 30},
		Seller:  config.SellerConfig{Name: "Atelier Test", City: "Paris", BankIBAN: "FR76 0000 0000 0000"},
	}
	tax := config.NewStaticTaxPolicyHolder(config.DefaultTaxPolicy())
	renderer := pdf.New()
	outbox := &Outbox{}

	articleRepo := articlerepo.Provide()
	clientRepo := clientrepo.Provide()
	stockRepo := stockrepo.Provide()
	orderRepo := orderrepo.Provide()
	invoiceRepo := invoicerepo.Provide()

	stock := stockservice.New(stockservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Locker:   locker,
		Repo:     stockRepo,
		Articles: articleRepo,
	})
	orders := orderservice.New(orderservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Locker:   locker,
		Tax:      tax,
		Repo:     orderRepo,
		Articles: articleRepo,
		Clients:  clientRepo,
		Stock:    stock,
	})
	invoices := invoiceservice.New(invoiceservice.Params{
		DB:        db,
		Log:       log,
		Config:    cfg,
		GenID:     node,
		Clock:     fake,
		Locker:    locker,
		Repo:      invoiceRepo,
		Orders:    orders,
		OrderRepo: orderRepo,
		Clients:   clientRepo,
		PDF:       renderer,
		Mailer:    outbox,
	})

	return &Kit{
		DB:          db,
		Clock:       fake,
		Config:      cfg,
		Outbox:      outbox,
		ArticleRepo: articleRepo,
		OrderRepo:   orderRepo,
		InvoiceRepo: invoiceRepo,
		Articles: articleservice.New(articleservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Clock: fake,
			Repo:  articleRepo,
		}),
		Clients: clientservice.New(clientservice.Params{
			DB:     db,
			Log:    log,
			GenID:  node,
			Clock:  fake,
			Config: cfg,
			Repo:   clientRepo,
		}),
		Stock:    stock,
		Orders:   orders,
		Invoices: invoices,
		Payments: paymentservice.New(paymentservice.Params{
			DB:       db,
			Log:      log,
			Config:   cfg,
			GenID:    node,
			Clock:    fake,
			Locker:   locker,
			Repo:     paymentrepo.Provide(),
			Invoices: invoiceRepo,
			Clients:  clientRepo,
			PDF:      renderer,
		}),
		Reporting: reportingservice.New(reportingservice.Params{
			DB:     db,
			Log:    log,
			Clock:  fake,
			Orders: orderRepo,
		}),
		Deliveries: deliveryservice.New(deliveryservice.Params{
			DB:      db,
			Log:     log,
			Config:  cfg,
			GenID:   node,
			Clock:   fake,
			Locker:  locker,
			Repo:    deliveryrepo.Provide(),
			Orders:  orders,
			Clients: clientRepo,
			PDF:     renderer,
		}),
	}
}

// PreparedOrder creates an order and walks it to preparee.
func (k *Kit) PreparedOrder(t *testing.T, client clientdomain.Client, lines ...orderdomain.CreateLineRequest) orderdomain.Order {
	t.Helper()
	order := k.ValidatedOrder(t, client, lines...)
	for _, target := range []orderdomain.Status{orderdomain.StatusPreparing, orderdomain.StatusPrepared} {
		var err error
		order, err = k.Orders.Transition(context.Background(), orderdomain.TransitionOrderRequest{
			ID:     order.ID.String(),
			Target: target,
		})
		require.NoError(t, err)
	}
	return order
}

// Article creates an article priced at price (HT) with onHand units in stock.
func (k *Kit) Article(t *testing.T, reference, price string, onHand int64) articledomain.Article {
	t.Helper()
	ctx := context.Background()
	article, err := k.Articles.Create(ctx, articledomain.CreateArticleRequest{
		Reference:   reference,
		Designation: "Article " + reference,
		Family:      "Quincaillerie",
		SellPriceHT: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	if onHand > 0 {
		_, err = k.Stock.Adjust(ctx, stockdomain.AdjustRequest{
			ArticleID: article.ID.String(),
			Delta:     onHand,
			Note:      "stock initial",
		})
		require.NoError(t, err)
		article.OnHand = onHand
	}
	return article
}

func (k *Kit) Client(t *testing.T, code string) clientdomain.Client {
	t.Helper()
	client, err := k.Clients.Create(context.Background(), clientdomain.CreateClientRequest{
		Code:      code,
		LegalName: "Client " + code,
		Email:     "compta@" + code + ".example",
		City:      "Lyon",
	})
	require.NoError(t, err)
	return client
}

// Line is shorthand for one order line without discount.
func Line(article articledomain.Article, quantity int64) orderdomain.CreateLineRequest {
	return orderdomain.CreateLineRequest{
		ArticleID:   article.ID.String(),
		Quantity:    quantity,
		DiscountPct: decimal.Zero,
	}
}

func (k *Kit) Order(t *testing.T, client clientdomain.Client, lines ...orderdomain.CreateLineRequest) orderdomain.Order {
	t.Helper()
	order, err := k.Orders.Create(context.Background(), orderdomain.CreateOrderRequest{
		ClientID: client.ID.String(),
		Lines:    lines,
	})
	require.NoError(t, err)
	return order
}

// ValidatedOrder creates and validates an order.
func (k *Kit) ValidatedOrder(t *testing.T, client clientdomain.Client, lines ...orderdomain.CreateLineRequest) orderdomain.Order {
	t.Helper()
	order := k.Order(t, client, lines...)
	validated, err := k.Orders.Validate(context.Background(), order.ID.String())
	require.NoError(t, err)
	return validated
}

// IssuedInvoice generates and issues an invoice for orders.
func (k *Kit) IssuedInvoice(t *testing.T, orders ...orderdomain.Order) invoicedomain.Invoice {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID.String())
	}
	invoice, err := k.Invoices.Generate(ctx, invoicedomain.GenerateInvoiceRequest{OrderIDs: ids})
	require.NoError(t, err)
	issued, err := k.Invoices.Issue(ctx, invoice.ID.String())
	require.NoError(t, err)
	return issued
}

// RequireLedgerConsistent asserts the cached on_hand equals the fold of the
// ledger for every article.
func (k *Kit) RequireLedgerConsistent(t *testing.T, articles ...articledomain.Article) {
	t.Helper()
	ctx := context.Background()
	for _, article := range articles {
		onHand, err := k.Stock.OnHand(ctx, article.ID)
		require.NoError(t, err)
		fold, err := k.Stock.Fold(ctx, article.ID)
		require.NoError(t, err)
		require.Equal(t, fold, onHand, "article %s", article.Reference)
	}
}

// OnHand reads the cached quantity of article.
func (k *Kit) OnHand(t *testing.T, article articledomain.Article) int64 {
	t.Helper()
	onHand, err := k.Stock.OnHand(context.Background(), article.ID)
	require.NoError(t, err)
	return onHand
}

// Outbox records outgoing email instead of sending it.
type Outbox struct {
	mu       sync.Mutex
	messages []email.Message
}

func (o *Outbox) Send(ctx context.Context, msg email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

func (o *Outbox) Messages() []email.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]email.Message(nil), o.messages...)
}
