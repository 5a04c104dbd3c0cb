package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fastbillsync/internal/clock"
	"github.com/smallbiznis/fastbillsync/internal/config"
	"github.com/smallbiznis/fastbillsync/internal/events"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	"github.com/smallbiznis/fastbillsync/internal/integration"
	"github.com/smallbiznis/fastbillsync/internal/migration"
	"github.com/smallbiznis/fastbillsync/internal/observability"
	"github.com/smallbiznis/fastbillsync/internal/order"
	"github.com/smallbiznis/fastbillsync/internal/server"
	"github.com/smallbiznis/fastbillsync/internal/settings"
	"github.com/smallbiznis/fastbillsync/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Host store and settings
		order.Module,
		settings.Module,

		// FastBill integration
		fastbill.Module,
		events.Module,
		integration.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
