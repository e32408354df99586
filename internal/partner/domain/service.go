package domain

import (
	"context"
	"errors"
)

type Repository interface {
	// FindByID returns nil, nil when no partner has the id.
	FindByID(ctx context.Context, id string) (*Partner, error)
	Upsert(ctx context.Context, partner *Partner) error
}

type Service interface {
	// ResolvePartnerConfig never fails; unknown partners and lookup errors
	// yield DefaultPartnerConfig.
	ResolvePartnerConfig(ctx context.Context, partnerID string) PartnerConfig
	Register(ctx context.Context, req RegisterRequest) (*Partner, error)
}

type RegisterRequest struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name"`
	CancelRedirectURL      *string        `json:"cancel_redirect_url"`
	RescheduleRedirectURL  *string        `json:"reschedule_redirect_url"`
	BookingRedirectURL     *string        `json:"booking_redirect_url"`
	EmailsEnabled          *bool          `json:"emails_enabled"`
	DefaultBookingLocation *string        `json:"default_booking_location"`
	Metadata               map[string]any `json:"metadata"`
}

var (
	ErrInvalidID   = errors.New("invalid_partner_id")
	ErrInvalidName = errors.New("invalid_name")
)
