package repository

import (
	"context"
	"errors"

	apikeydomain "github.com/smallbiznis/bookingrelay/internal/apikey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Create(key).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).
		Model(&apikeydomain.APIKey{}).
		Where("key_id = ?", key.KeyID).
		Updates(map[string]any{
			"name":         key.Name,
			"is_active":    key.IsActive,
			"updated_at":   key.UpdatedAt,
			"last_used_at": key.LastUsedAt,
			"expires_at":   key.ExpiresAt,
		}).Error
}

func (r *repo) FindByKeyID(ctx context.Context, db *gorm.DB, keyID string) (*apikeydomain.APIKey, error) {
	return first(db.WithContext(ctx).Where("key_id = ?", keyID))
}

func (r *repo) FindByKeyHash(ctx context.Context, db *gorm.DB, keyHash string) (*apikeydomain.APIKey, error) {
	return first(db.WithContext(ctx).Where("key_hash = ?", keyHash))
}

func first(q *gorm.DB) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	if err := q.Take(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}
