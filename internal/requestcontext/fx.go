package requestcontext

import (
	"github.com/smallbiznis/bookingrelay/internal/credential"
	partnerdomain "github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("requestcontext",
	fx.Provide(
		func(r *credential.Resolver) CredentialResolver { return r },
		func(s partnerdomain.Service) PartnerResolver { return s },
		NewAssembler,
	),
)
