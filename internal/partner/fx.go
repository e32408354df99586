package partner

import (
	"github.com/smallbiznis/bookingrelay/internal/partner/repository"
	"github.com/smallbiznis/bookingrelay/internal/partner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("partner.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
