package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	articledomain "github.com/smallbiznis/gescom/internal/article/domain"
	auditdomain "github.com/smallbiznis/gescom/internal/audit/domain"
	clientdomain "github.com/smallbiznis/gescom/internal/client/domain"
	deliverydomain "github.com/smallbiznis/gescom/internal/delivery/domain"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	invoicedomain "github.com/smallbiznis/gescom/internal/invoice/domain"
	"github.com/smallbiznis/gescom/internal/observability"
	obsmiddleware "github.com/smallbiznis/gescom/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gescom/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gescom/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/gescom/internal/order/domain"
	paymentdomain "github.com/smallbiznis/gescom/internal/payment/domain"
	reportingdomain "github.com/smallbiznis/gescom/internal/reporting/domain"
	stockdomain "github.com/smallbiznis/gescom/internal/stock/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	log          *zap.Logger
	clock        clock.Clock
	articleSvc   articledomain.Service
	clientSvc    clientdomain.Service
	stockSvc     stockdomain.Service
	orderSvc     orderdomain.Service
	invoiceSvc   invoicedomain.Service
	deliverySvc  deliverydomain.Service
	paymentSvc   paymentdomain.Service
	reportingSvc reportingdomain.Service
	auditSvc     auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Log          *zap.Logger
	Clock        clock.Clock
	ArticleSvc   articledomain.Service
	ClientSvc    clientdomain.Service
	StockSvc     stockdomain.Service
	OrderSvc     orderdomain.Service
	InvoiceSvc   invoicedomain.Service
	DeliverySvc  deliverydomain.Service
	PaymentSvc   paymentdomain.Service
	ReportingSvc reportingdomain.Service
	AuditSvc     auditdomain.Service `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		log:          p.Log.Named("http"),
		clock:        p.Clock,
		articleSvc:   p.ArticleSvc,
		clientSvc:    p.ClientSvc,
		stockSvc:     p.StockSvc,
		orderSvc:     p.OrderSvc,
		invoiceSvc:   p.InvoiceSvc,
		deliverySvc:  p.DeliverySvc,
		paymentSvc:   p.PaymentSvc,
		reportingSvc: p.ReportingSvc,
		auditSvc:     p.AuditSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Articles --------
	api.GET("/articles", s.ListArticles)
	api.POST("/articles", s.CreateArticle)
	api.GET("/articles/:id", s.GetArticleByID)
	api.PATCH("/articles/:id", s.UpdateArticle)
	api.POST("/articles/:id/retire", s.RetireArticle)
	api.GET("/articles/:id/movements", s.ListArticleMovements)
	api.POST("/articles/:id/adjustments", s.AdjustArticleStock)
	api.POST("/articles/:id/inventory", s.CountArticleStock)

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)
	api.PATCH("/clients/:id", s.UpdateClient)

	// -------- Orders --------
	api.GET("/orders", s.ListOrders)
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/:id", s.GetOrderByID)
	api.POST("/orders/:id/transitions", s.TransitionOrder)
	api.POST("/orders/:id/validate", s.ValidateOrder)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.POST("/orders/:id/invoice", s.InvoiceOrder)
	api.POST("/orders/:id/ship", s.ShipOrder)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.GenerateInvoice)
	api.POST("/invoices/overdue/recompute", s.RecomputeOverdue)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/issue", s.IssueInvoice)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)
	api.POST("/invoices/:id/credit-note", s.CreditInvoice)
	api.GET("/invoices/:id/pdf", s.ExportInvoicePDF)

	// -------- Delivery notes --------
	api.GET("/delivery-notes", s.ListDeliveryNotes)
	api.GET("/delivery-notes/:id", s.GetDeliveryNoteByID)
	api.POST("/delivery-notes/:id/deliver", s.DeliverNote)
	api.GET("/delivery-notes/:id/pdf", s.ExportDeliveryNotePDF)

	// -------- Payments --------
	api.GET("/invoices/:id/payments", s.ListPayments)
	api.POST("/invoices/:id/payments", s.RecordPayment)
	api.GET("/payments/:reference/receipt", s.GetPaymentReceipt)

	// -------- Reporting --------
	api.GET("/reporting/dashboard", s.GetDashboard)
	api.GET("/reporting/revenue", s.GetRevenue)
	api.GET("/reporting/top-clients", s.GetTopClients)
	api.GET("/reporting/top-articles", s.GetTopArticles)
	api.GET("/reporting/revenue-by-family", s.GetRevenueByFamily)
	api.GET("/reporting/revenue-by-region", s.GetRevenueByRegion)
	api.GET("/reporting/export/top-clients", s.ExportTopClients)
	api.GET("/reporting/export/top-articles", s.ExportTopArticles)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
