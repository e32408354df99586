package oauth2provider

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/smallbiznis/bookingrelay/internal/clock"
	"go.uber.org/zap"
)

type TokenGenerator interface {
	NewToken() (string, error)
}

type defaultTokenGenerator struct{}

func (defaultTokenGenerator) NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Service issues access tokens for partner clients and introspects them.
type Service struct {
	cfg      Config
	store    Store
	clock    clock.Clock
	tokenGen TokenGenerator
	log      *zap.Logger
}

func NewService(cfg Config, store Store, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		clock:    clk,
		tokenGen: defaultTokenGenerator{},
		log:      log.Named("auth.oauth2.provider"),
	}
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issue mints a bearer token acting on behalf of ownerID for clientID.
func (s *Service) Issue(ctx context.Context, ownerID int64, clientID string, scopes ...string) (*TokenResponse, error) {
	if ownerID <= 0 {
		return nil, ErrInvalidRequest
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrInvalidClient
	}

	raw, err := s.tokenGen.NewToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	token := &AccessToken{
		TokenHash: hashToken(raw),
		ClientID:  clientID,
		OwnerID:   ownerID,
		Scopes:    scopes,
		ExpiresAt: now.Add(s.cfg.AccessTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateAccessToken(ctx, token); err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.AccessTTL.Seconds()),
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

func (s *Service) Revoke(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return ErrInvalidToken
	}
	revoked, err := s.store.RevokeAccessToken(ctx, hashToken(accessToken), s.clock.Now())
	if err != nil {
		return err
	}
	if !revoked {
		return ErrInvalidToken
	}
	return nil
}

// ResolveOwner returns the owner the token acts for. Unknown, revoked and
// expired tokens are errors.
func (s *Service) ResolveOwner(ctx context.Context, accessToken string) (int64, error) {
	if strings.TrimSpace(accessToken) == "" {
		return 0, ErrInvalidToken
	}

	stored, err := s.store.GetAccessToken(ctx, hashToken(accessToken))
	if err != nil {
		return 0, err
	}
	if stored.RevokedAt != nil {
		return 0, ErrTokenRevoked
	}
	if !s.clock.Now().Before(stored.ExpiresAt) {
		return 0, ErrTokenExpired
	}
	return stored.OwnerID, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
