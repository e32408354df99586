package requestcontext

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/smallbiznis/bookingrelay/internal/config"
	obscontext "github.com/smallbiznis/bookingrelay/internal/observability/context"
	partnerdomain "github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// AbsencePolicy decides what an unresolved principal becomes.
type AbsencePolicy int

const (
	// LeaveAbsent keeps an unresolved principal absent.
	LeaveAbsent AbsencePolicy = iota
	// UseSentinel replaces an unresolved principal with UnknownPrincipalID.
	UseSentinel
)

type CredentialResolver interface {
	ResolveOwner(ctx context.Context, credential, keyPrefix string) *int64
}

type PartnerResolver interface {
	ResolvePartnerConfig(ctx context.Context, partnerID string) partnerdomain.PartnerConfig
}

// Input is everything the assembler reads from an inbound request.
type Input struct {
	Payload    json.RawMessage
	Credential string
	PartnerID  string
	IsEmbed    bool
	// LocationOverride wins over the partner's default booking location.
	LocationOverride string
	Policy           AbsencePolicy
}

type Params struct {
	fx.In

	Credentials CredentialResolver
	Partners    PartnerResolver
	Gateway     *config.GatewayConfigHolder
	Log         *zap.Logger
}

type Assembler struct {
	credentials CredentialResolver
	partners    PartnerResolver
	gateway     *config.GatewayConfigHolder
	log         *zap.Logger
}

func NewAssembler(p Params) *Assembler {
	return &Assembler{
		credentials: p.Credentials,
		partners:    p.Partners,
		gateway:     p.Gateway,
		log:         p.Log.Named("requestcontext.assembler"),
	}
}

// Assemble resolves the caller and partner and returns a new RequestContext.
// Resolution failures degrade to absent or default values.
func (a *Assembler) Assemble(ctx context.Context, in Input) RequestContext {
	gw := a.gateway.Get()

	principal := PrincipalOf(a.credentials.ResolveOwner(ctx, in.Credential, gw.APIKeyPrefix))
	if _, ok := principal.ID(); !ok && in.Policy == UseSentinel {
		principal = Principal{id: UnknownPrincipalID, known: true}
	}

	partner := partnerdomain.DefaultPartnerConfig()
	if id := strings.TrimSpace(in.PartnerID); id != "" {
		partner = a.partners.ResolvePartnerConfig(ctx, id)
	}
	if in.IsEmbed && gw.EmbedSuppressRedirects {
		partner = partner.WithoutRedirects()
	}

	location := strings.TrimSpace(in.LocationOverride)
	if location == "" {
		location = partner.DefaultLocation
	}

	return RequestContext{
		payload:         bytes.Clone(in.Payload),
		principal:       principal,
		partner:         partner,
		suppressEmail:   !partner.EmailsEnabled,
		orgSlug:         orgSlugOf(in.Payload),
		bookingLocation: location,
		embedded:        in.IsEmbed,
		requestID:       obscontext.RequestIDFromContext(ctx),
	}
}

type slugCarrier struct {
	OrgSlug string `json:"orgSlug"`
}

// orgSlugOf reads orgSlug from an object payload or from the first element of an array payload.
func orgSlugOf(payload json.RawMessage) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ""
	}

	var carrier slugCarrier
	if trimmed[0] == '[' {
		var items []slugCarrier
		if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
			return ""
		}
		carrier = items[0]
	} else if err := json.Unmarshal(trimmed, &carrier); err != nil {
		return ""
	}
	return carrier.OrgSlug
}
