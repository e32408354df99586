package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GatewayConfig holds runtime policy switches that can change without a restart.
type GatewayConfig struct {
	APIKeyPrefix           string `mapstructure:"apiKeyPrefix"`
	BillingEnabled         bool   `mapstructure:"billingEnabled"`
	EmbedSuppressRedirects bool   `mapstructure:"embedSuppressRedirects"`
}

func DefaultGatewayConfig(cfg Config) GatewayConfig {
	return GatewayConfig{
		APIKeyPrefix:           cfg.APIKeyPrefix,
		BillingEnabled:         getenvBool("BILLING_ENABLED", true),
		EmbedSuppressRedirects: getenvBool("EMBED_SUPPRESS_REDIRECTS", true),
	}
}

type GatewayConfigHolder struct {
	current atomic.Value // holds GatewayConfig
}

// NewStaticGatewayConfigHolder returns a holder that never reloads.
func NewStaticGatewayConfigHolder(cfg GatewayConfig) *GatewayConfigHolder {
	holder := &GatewayConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewGatewayConfigHolder(appCfg Config) (*GatewayConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("gateway")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/bookingrelay/config")
	v.AddConfigPath("/etc/bookingrelay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOOKINGRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGatewayConfig(appCfg)
	v.SetDefault("gateway.apiKeyPrefix", defaults.APIKeyPrefix)
	v.SetDefault("gateway.billingEnabled", defaults.BillingEnabled)
	v.SetDefault("gateway.embedSuppressRedirects", defaults.EmbedSuppressRedirects)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg GatewayConfig
	if err := v.UnmarshalKey("gateway", &cfg); err != nil {
		return nil, err
	}
	if err := validateGatewayConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticGatewayConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated GatewayConfig
		if err := v.UnmarshalKey("gateway", &updated); err != nil {
			log.Printf("[gateway-config] reload failed: %v", err)
			return
		}
		if err := validateGatewayConfig(updated); err != nil {
			log.Printf("[gateway-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[gateway-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *GatewayConfigHolder) Get() GatewayConfig {
	return h.current.Load().(GatewayConfig)
}

func validateGatewayConfig(cfg GatewayConfig) error {
	if strings.TrimSpace(cfg.APIKeyPrefix) == "" {
		return errors.New("gateway.apiKeyPrefix cannot be empty")
	}
	return nil
}
