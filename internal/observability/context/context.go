// Package context carries request-scoped observability identifiers.
package context

import (
	"context"
	"strconv"
)

type requestIDKey struct{}
type partnerIDKey struct{}
type principalKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func WithPartnerID(ctx context.Context, partnerID string) context.Context {
	if partnerID == "" {
		return ctx
	}
	return context.WithValue(ctx, partnerIDKey{}, partnerID)
}

func PartnerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(partnerIDKey{}).(string)
	return value
}

// WithPrincipal records the resolved caller id for log enrichment only.
func WithPrincipal(ctx context.Context, principalID int64) context.Context {
	return context.WithValue(ctx, principalKey{}, principalID)
}

func PrincipalFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, ok := ctx.Value(principalKey{}).(int64)
	if !ok {
		return ""
	}
	return strconv.FormatInt(value, 10)
}
