package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gescom/internal/article"
	"github.com/smallbiznis/gescom/internal/audit"
	"github.com/smallbiznis/gescom/internal/client"
	"github.com/smallbiznis/gescom/internal/clock"
	"github.com/smallbiznis/gescom/internal/config"
	"github.com/smallbiznis/gescom/internal/delivery"
	"github.com/smallbiznis/gescom/internal/invoice"
	"github.com/smallbiznis/gescom/internal/lock"
	"github.com/smallbiznis/gescom/internal/metricspush"
	"github.com/smallbiznis/gescom/internal/migration"
	"github.com/smallbiznis/gescom/internal/observability"
	"github.com/smallbiznis/gescom/internal/order"
	"github.com/smallbiznis/gescom/internal/payment"
	"github.com/smallbiznis/gescom/internal/providers"
	"github.com/smallbiznis/gescom/internal/reporting"
	"github.com/smallbiznis/gescom/internal/scheduler"
	"github.com/smallbiznis/gescom/internal/server"
	"github.com/smallbiznis/gescom/internal/stock"
	"github.com/smallbiznis/gescom/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,
		providers.Module,

		// Functional Domains
		article.Module,
		client.Module,
		stock.Module,
		order.Module,
		invoice.Module,
		delivery.Module,
		payment.Module,
		reporting.Module,
		audit.Module,

		// Background work and HTTP
		scheduler.Module,
		metricspush.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
