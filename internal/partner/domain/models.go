// Package domain contains the partner directory model and the per-request
// configuration derived from it.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Partner is a platform client integrating bookings on behalf of its users.
// Nullable columns are coalesced when a PartnerConfig is derived.
type Partner struct {
	ID                     string            `gorm:"primaryKey;type:text" json:"id"`
	Name                   string            `gorm:"type:text;not null" json:"name"`
	CancelRedirectURL      *string           `gorm:"column:cancel_redirect_url;type:text" json:"cancel_redirect_url"`
	RescheduleRedirectURL  *string           `gorm:"column:reschedule_redirect_url;type:text" json:"reschedule_redirect_url"`
	BookingRedirectURL     *string           `gorm:"column:booking_redirect_url;type:text" json:"booking_redirect_url"`
	EmailsEnabled          *bool             `gorm:"column:emails_enabled" json:"emails_enabled"`
	DefaultBookingLocation *string           `gorm:"column:default_booking_location;type:text" json:"default_booking_location"`
	Metadata               datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt              time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"not null" json:"updated_at"`
}

func (Partner) TableName() string { return "partners" }

// PartnerConfig is the immutable per-request view of a partner.
type PartnerConfig struct {
	PartnerID             string
	CancelRedirectURL     string
	RescheduleRedirectURL string
	BookingRedirectURL    string
	EmailsEnabled         bool
	DefaultLocation       string
}

// DefaultPartnerConfig is used when no partner is named or the lookup fails.
func DefaultPartnerConfig() PartnerConfig {
	return PartnerConfig{}
}

// ConfigFromPartner coalesces nullable fields to empty values.
func ConfigFromPartner(p *Partner) PartnerConfig {
	if p == nil {
		return DefaultPartnerConfig()
	}
	return PartnerConfig{
		PartnerID:             p.ID,
		CancelRedirectURL:     deref(p.CancelRedirectURL),
		RescheduleRedirectURL: deref(p.RescheduleRedirectURL),
		BookingRedirectURL:    deref(p.BookingRedirectURL),
		EmailsEnabled:         p.EmailsEnabled != nil && *p.EmailsEnabled,
		DefaultLocation:       deref(p.DefaultBookingLocation),
	}
}

// WithoutRedirects returns a copy with all redirect URLs blanked.
func (c PartnerConfig) WithoutRedirects() PartnerConfig {
	c.CancelRedirectURL = ""
	c.RescheduleRedirectURL = ""
	c.BookingRedirectURL = ""
	return c
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
