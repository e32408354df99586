package credential

import (
	apikeydomain "github.com/smallbiznis/bookingrelay/internal/apikey/domain"
	"github.com/smallbiznis/bookingrelay/internal/auth/oauth2provider"
	"go.uber.org/fx"
)

var Module = fx.Module("credential",
	fx.Provide(
		func(svc apikeydomain.Service) KeyStore { return svc },
		func(svc *oauth2provider.Service) TokenIntrospector { return svc },
		NewResolver,
	),
)
