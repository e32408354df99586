// Package credential maps an inbound credential to the booking user it acts for.
package credential

import (
	"context"
	"strings"

	apikeydomain "github.com/smallbiznis/bookingrelay/internal/apikey/domain"
	"github.com/smallbiznis/bookingrelay/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// KeyStore looks up usable API keys by the hash of their secret part.
type KeyStore interface {
	FindByKeyHash(ctx context.Context, keyHash string) (*apikeydomain.APIKey, error)
}

// TokenIntrospector resolves opaque access tokens to their owner.
type TokenIntrospector interface {
	ResolveOwner(ctx context.Context, accessToken string) (int64, error)
}

type Params struct {
	fx.In

	Keys   KeyStore
	Tokens TokenIntrospector
	Log    *zap.Logger
}

type Resolver struct {
	keys   KeyStore
	tokens TokenIntrospector
	log    *zap.Logger
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		keys:   p.Keys,
		tokens: p.Tokens,
		log:    p.Log.Named("credential.resolver"),
	}
}

// ResolveOwner returns the owner id for credential, or nil when it cannot be
// resolved. Lookup failures are logged and never returned.
func (r *Resolver) ResolveOwner(ctx context.Context, credential, keyPrefix string) *int64 {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), bearerPrefix))
	if token == "" {
		return nil
	}

	log := logger.WithContext(ctx, r.log)

	if secret, ok := apikeydomain.SplitKey(token, keyPrefix); ok {
		key, err := r.keys.FindByKeyHash(ctx, apikeydomain.HashSecret(secret))
		if err != nil {
			log.Warn("api key lookup failed", zap.Error(err))
			return nil
		}
		if key == nil {
			log.Debug("api key not recognised")
			return nil
		}
		owner := key.OwnerID
		return &owner
	}

	owner, err := r.tokens.ResolveOwner(ctx, token)
	if err != nil {
		log.Warn("access token introspection failed", zap.Error(err))
		return nil
	}
	return &owner
}
