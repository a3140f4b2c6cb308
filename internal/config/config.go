// Package config loads server configuration from defaults, an optional YAML
// file, and USASPENDING_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration. It is built once at startup and
// passed into constructors explicitly.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Search   SearchConfig   `mapstructure:"search"`
	Log      LogConfig      `mapstructure:"log"`
}

// UpstreamConfig holds the USAspending endpoint settings.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// RetryConfig bounds retries of transient upstream failures.
type RetryConfig struct {
	MaxAttempts uint          `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// SearchConfig bounds search traversal.
type SearchConfig struct {
	// MaxRecords caps the total records fetched across pages per call.
	MaxRecords int `mapstructure:"max_records"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply. Environment variables use the
// USASPENDING prefix with underscores, e.g. USASPENDING_UPSTREAM_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("upstream.base_url", "https://api.usaspending.gov/api/v2")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.user_agent", "usaspending-mcp/1.0")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.max_delay", 5*time.Second)
	v.SetDefault("search.max_records", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix("USASPENDING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url must not be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Retry.MaxAttempts == 0 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Search.MaxRecords <= 0 {
		return fmt.Errorf("search.max_records must be positive")
	}
	return nil
}
