package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/ferrolab/certline/internal/audit"
	"github.com/ferrolab/certline/internal/authorization"
	"github.com/ferrolab/certline/internal/clock"
	"github.com/ferrolab/certline/internal/config"
	"github.com/ferrolab/certline/internal/document"
	"github.com/ferrolab/certline/internal/logger"
	"github.com/ferrolab/certline/internal/lot"
	"github.com/ferrolab/certline/internal/migration"
	"github.com/ferrolab/certline/internal/notification"
	"github.com/ferrolab/certline/internal/observability/metrics"
	"github.com/ferrolab/certline/internal/providers/telegram"
	"github.com/ferrolab/certline/internal/ratelimit"
	"github.com/ferrolab/certline/internal/server"
	"github.com/ferrolab/certline/internal/workflow"
	"github.com/ferrolab/certline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		metrics.Module,
		migration.Module,

		// Certification domain
		workflow.Module,
		audit.Module,
		document.Module,
		telegram.Module,
		notification.Module,
		authorization.Module,
		ratelimit.Module,
		lot.Module,

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
