package oauth2provider

import "time"

// AccessToken stores an issued access token by hash. The plaintext is never persisted.
type AccessToken struct {
	TokenHash string     `gorm:"column:token_hash;type:text;primaryKey"`
	ClientID  string     `gorm:"column:client_id;type:text;not null;index"`
	OwnerID   int64      `gorm:"column:owner_id;not null;index"`
	Scopes    []string   `gorm:"column:scopes;type:jsonb;serializer:json"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
}

func (AccessToken) TableName() string { return "oauth_access_tokens" }
