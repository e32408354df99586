package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingrelay/internal/admin"
	"github.com/smallbiznis/bookingrelay/internal/apikey"
	"github.com/smallbiznis/bookingrelay/internal/auth/oauth2provider"
	"github.com/smallbiznis/bookingrelay/internal/clock"
	"github.com/smallbiznis/bookingrelay/internal/config"
	"github.com/smallbiznis/bookingrelay/internal/migration"
	"github.com/smallbiznis/bookingrelay/internal/observability"
	"github.com/smallbiznis/bookingrelay/internal/partner"
	"github.com/smallbiznis/bookingrelay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	var runner *admin.Runner
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		apikey.Module,
		oauth2provider.Module,
		partner.Module,
		admin.Module,

		fx.NopLogger,
		fx.Populate(&runner),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	runErr := runner.Run(ctx, os.Args[1:], os.Stdout)
	_ = app.Stop(ctx)

	if runErr != nil {
		if errors.Is(runErr, admin.ErrUnknownCommand) {
			fmt.Fprint(os.Stderr, admin.Usage)
		}
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
