package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const ScopeBookingsWrite = "bookings:write"

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	Update(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByKeyID(ctx context.Context, db *gorm.DB, keyID string) (*APIKey, error)
	FindByKeyHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error
	// FindByKeyHash returns the usable key with the given hash, or nil when
	// none exists or it is revoked or expired.
	FindByKeyHash(ctx context.Context, keyHash string) (*APIKey, error)
}

type CreateRequest struct {
	OwnerID   int64      `json:"owner_id"`
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	APIKey string `json:"api_key"`
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidKeyID = errors.New("invalid_key_id")
	ErrNotFound     = errors.New("not_found")
	ErrDuplicateKey = errors.New("duplicate_key")
)
