package oauth2provider

import (
	"time"

	"github.com/smallbiznis/bookingrelay/internal/config"
)

type Config struct {
	AccessTTL time.Duration
}

func NewConfig(cfg config.Config) Config {
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return Config{AccessTTL: ttl}
}
