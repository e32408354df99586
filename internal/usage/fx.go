package usage

import (
	"github.com/smallbiznis/bookingrelay/internal/usage/repository"
	"github.com/smallbiznis/bookingrelay/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
