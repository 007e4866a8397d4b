package core

import (
	"fmt"
	"strings"
	"time"
)

type OAuthConfig struct {
	StateTTLMinutes      int  `koanf:"state_ttl_minutes" mapstructure:"state_ttl_minutes"`
	RequireCallbackMatch bool `koanf:"require_callback_match" mapstructure:"require_callback_match"`
}

func (c OAuthConfig) StateTTL() time.Duration {
	if c.StateTTLMinutes <= 0 {
		return defaultOAuthStateTTL
	}
	return time.Duration(c.StateTTLMinutes) * time.Minute
}

type RefreshConfig struct {
	LeadWindowSeconds int `koanf:"lead_window_seconds" mapstructure:"lead_window_seconds"`
	MaxAttempts       int `koanf:"max_attempts" mapstructure:"max_attempts"`
}

// LeadWindow is how far ahead of expiry getValidToken refreshes. Zero keeps
// the strict behavior of refreshing only once the token has expired.
func (c RefreshConfig) LeadWindow() time.Duration {
	if c.LeadWindowSeconds <= 0 {
		return 0
	}
	return time.Duration(c.LeadWindowSeconds) * time.Second
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	OAuth       OAuthConfig   `koanf:"oauth" mapstructure:"oauth"`
	Refresh     RefreshConfig `koanf:"refresh" mapstructure:"refresh"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "broadcast",
		OAuth: OAuthConfig{
			StateTTLMinutes: 10,
		},
		Refresh: RefreshConfig{
			MaxAttempts: defaultRefreshMaxAttempts,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.OAuth.StateTTLMinutes < 0 {
		return fmt.Errorf("core: oauth.state_ttl_minutes must not be negative")
	}
	if c.Refresh.MaxAttempts < 0 {
		return fmt.Errorf("core: refresh.max_attempts must not be negative")
	}
	return nil
}
