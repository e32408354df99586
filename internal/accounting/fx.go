package accounting

import (
	"context"

	usagedomain "github.com/smallbiznis/bookingrelay/internal/usage/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("accounting",
	fx.Provide(
		func(svc usagedomain.Service) Ledger { return svc },
		NewCoordinator,
	),
	fx.Invoke(registerDrain),
)

func registerDrain(lc fx.Lifecycle, c *Coordinator) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Drain(ctx)
		},
	})
}
