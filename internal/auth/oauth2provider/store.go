package oauth2provider

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Store persists issued access tokens.
type Store interface {
	CreateAccessToken(ctx context.Context, token *AccessToken) error
	GetAccessToken(ctx context.Context, tokenHash string) (*AccessToken, error)
	RevokeAccessToken(ctx context.Context, tokenHash string, revokedAt time.Time) (bool, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) CreateAccessToken(ctx context.Context, token *AccessToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *gormStore) GetAccessToken(ctx context.Context, tokenHash string) (*AccessToken, error) {
	var token AccessToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *gormStore) RevokeAccessToken(ctx context.Context, tokenHash string, revokedAt time.Time) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&AccessToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", revokedAt)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
