package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "http://localhost:8000"

type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay" mapstructure:"max_delay"`
}

type RefreshConfig struct {
	Path               string        `koanf:"path" mapstructure:"path"`
	LeadWindow         time.Duration `koanf:"lead_window" mapstructure:"lead_window"`
	ExpiringSoonWindow time.Duration `koanf:"expiring_soon_window" mapstructure:"expiring_soon_window"`
}

type SanitizeConfig struct {
	Disabled       bool     `koanf:"disabled" mapstructure:"disabled"`
	ExcludedFields []string `koanf:"excluded_fields" mapstructure:"excluded_fields"`
	SkipPaths      []string `koanf:"skip_paths" mapstructure:"skip_paths"`
}

type RealtimeConfig struct {
	Path              string        `koanf:"path" mapstructure:"path"`
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout" mapstructure:"handshake_timeout"`
	ReconnectAttempts int           `koanf:"reconnect_attempts" mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `koanf:"reconnect_delay" mapstructure:"reconnect_delay"`
	ReconnectMaxDelay time.Duration `koanf:"reconnect_max_delay" mapstructure:"reconnect_max_delay"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string         `koanf:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration  `koanf:"timeout" mapstructure:"timeout"`
	Retry       RetryConfig    `koanf:"retry" mapstructure:"retry"`
	Refresh     RefreshConfig  `koanf:"refresh" mapstructure:"refresh"`
	Sanitize    SanitizeConfig `koanf:"sanitize" mapstructure:"sanitize"`
	Realtime    RealtimeConfig `koanf:"realtime" mapstructure:"realtime"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "agriclient",
		BaseURL:     DefaultBaseURL,
		Timeout:     30 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
		},
		Refresh: RefreshConfig{
			Path:               "/api/v1/auth/refresh",
			LeadWindow:         DefaultTokenRefreshLeadWindow,
			ExpiringSoonWindow: DefaultTokenExpiringSoonWindow,
		},
		Realtime: RealtimeConfig{
			Path:              "/ws",
			HandshakeTimeout:  10 * time.Second,
			ReconnectAttempts: 3,
			ReconnectDelay:    2 * time.Second,
			ReconnectMaxDelay: 10 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("core: base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: base_url %q is not an absolute url", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("core: timeout must not be negative")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("core: retry max_attempts must not be negative")
	}
	if c.Realtime.ReconnectAttempts < 0 {
		return fmt.Errorf("core: realtime reconnect_attempts must not be negative")
	}
	return nil
}
