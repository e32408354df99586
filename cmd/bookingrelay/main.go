package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingrelay/internal/accounting"
	"github.com/smallbiznis/bookingrelay/internal/apikey"
	"github.com/smallbiznis/bookingrelay/internal/auth/oauth2provider"
	"github.com/smallbiznis/bookingrelay/internal/booking/engine"
	"github.com/smallbiznis/bookingrelay/internal/booking/orchestrator"
	"github.com/smallbiznis/bookingrelay/internal/clock"
	"github.com/smallbiznis/bookingrelay/internal/config"
	"github.com/smallbiznis/bookingrelay/internal/credential"
	"github.com/smallbiznis/bookingrelay/internal/migration"
	"github.com/smallbiznis/bookingrelay/internal/observability"
	"github.com/smallbiznis/bookingrelay/internal/partner"
	"github.com/smallbiznis/bookingrelay/internal/redislock"
	"github.com/smallbiznis/bookingrelay/internal/requestcontext"
	"github.com/smallbiznis/bookingrelay/internal/server"
	"github.com/smallbiznis/bookingrelay/internal/usage"
	"github.com/smallbiznis/bookingrelay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		redislock.Module,

		// Resolution
		apikey.Module,
		oauth2provider.Module,
		credential.Module,
		partner.Module,
		requestcontext.Module,

		// Booking
		usage.Module,
		accounting.Module,
		engine.Module,
		orchestrator.Module,

		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
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
