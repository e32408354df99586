package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// APIKey stores a hashed static credential owned by a booking user.
type APIKey struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	KeyID      string         `gorm:"column:key_id;type:text;not null;uniqueIndex"`
	OwnerID    int64          `gorm:"column:owner_id;not null;index"`
	Name       string         `gorm:"type:text;not null"`
	Scopes     pq.StringArray `gorm:"type:text"`
	KeyHash    string         `gorm:"column:key_hash;type:text;not null;uniqueIndex"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
	LastUsedAt *time.Time     `gorm:"column:last_used_at"`
	ExpiresAt  *time.Time     `gorm:"column:expires_at"`
}

func (APIKey) TableName() string { return "api_keys" }

// Usable reports whether the key may authenticate a request at now.
func (k *APIKey) Usable(now time.Time) bool {
	if k == nil || !k.IsActive {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}
