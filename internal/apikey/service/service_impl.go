package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/bookingrelay/internal/apikey/domain"
	"github.com/smallbiznis/bookingrelay/internal/clock"
	"github.com/smallbiznis/bookingrelay/internal/config"
	"github.com/smallbiznis/bookingrelay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const apiKeySecretBytes = 32

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    apikeydomain.Repository
	Gateway *config.GatewayConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    apikeydomain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	gateway *config.GatewayConfigHolder
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("apikey.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   p.Clock,
		gateway: p.Gateway,
	}
}

// Create issues a new key for the owner. The plaintext key is only returned here.
func (s *Service) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	if req.OwnerID <= 0 {
		return nil, apikeydomain.ErrInvalidOwner
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}

	secret, err := newSecret()
	if err != nil {
		return nil, err
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = []string{apikeydomain.ScopeBookingsWrite}
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	key := &apikeydomain.APIKey{
		ID:        id,
		KeyID:     "key_" + strings.ToUpper(strconv.FormatInt(int64(id), 36)),
		OwnerID:   req.OwnerID,
		Name:      name,
		Scopes:    scopes,
		KeyHash:   apikeydomain.HashSecret(secret),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, apikeydomain.ErrDuplicateKey
		}
		return nil, err
	}

	s.log.Info("api key created", zap.String("key_id", key.KeyID), zap.Int64("owner_id", key.OwnerID))
	return &apikeydomain.SecretResponse{
		KeyID:  key.KeyID,
		APIKey: s.gateway.Get().APIKeyPrefix + secret,
	}, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return apikeydomain.ErrInvalidKeyID
	}

	key, err := s.repo.FindByKeyID(ctx, s.db, trimmed)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrNotFound
	}

	now := s.clock.Now()
	key.IsActive = false
	key.UpdatedAt = now
	if key.ExpiresAt == nil || key.ExpiresAt.After(now) {
		key.ExpiresAt = &now
	}
	return s.repo.Update(ctx, s.db, key)
}

func (s *Service) FindByKeyHash(ctx context.Context, keyHash string) (*apikeydomain.APIKey, error) {
	key, err := s.repo.FindByKeyHash(ctx, s.db, keyHash)
	if err != nil {
		return nil, err
	}
	if !key.Usable(s.clock.Now()) {
		return nil, nil
	}
	return key, nil
}

func newSecret() (string, error) {
	buf := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
