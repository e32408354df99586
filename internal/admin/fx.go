package admin

import (
	apikeydomain "github.com/smallbiznis/bookingrelay/internal/apikey/domain"
	"github.com/smallbiznis/bookingrelay/internal/auth/oauth2provider"
	partnerdomain "github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("admin",
	fx.Provide(
		func(svc apikeydomain.Service) KeyIssuer { return svc },
		func(svc *oauth2provider.Service) TokenIssuer { return svc },
		func(svc partnerdomain.Service) PartnerRegistrar { return svc },
		NewRunner,
	),
)
