// Package config loads audit settings: the terminology endpoint, the
// exclusion rules and transport tuning.
//
// The file layout is the one used by the IG test-data tooling:
//
//	{
//	  "init": [{"endpoint": "https://tx.example.org/fhir"}],
//	  "codesystem-excluded": [
//	    {"uri": "http://loinc.org", "result": "EXCLUDED", "reason": "manual review"}
//	  ]
//	}
//
// JSON, YAML and TOML files are accepted. Every scalar can be overridden
// with a TXAUDIT_ environment variable, e.g. TXAUDIT_ENDPOINT or
// TXAUDIT_RATE_LIMIT.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gofhir/txaudit/pkg/exclusion"
	"github.com/gofhir/txaudit/pkg/terminology"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "TXAUDIT"

// Config is the resolved audit configuration.
type Config struct {
	Endpoint  string
	Excluded  exclusion.Rules
	Timeout   time.Duration
	Workers   int
	RateLimit float64
	RateBurst int
	CacheSize int
	UserAgent string
}

type initEntry struct {
	Endpoint string `mapstructure:"endpoint"`
}

type fileConfig struct {
	Init      []initEntry     `mapstructure:"init"`
	Excluded  exclusion.Rules `mapstructure:"codesystem-excluded"`
	Endpoint  string          `mapstructure:"endpoint"`
	Timeout   string          `mapstructure:"timeout"`
	Workers   int             `mapstructure:"workers"`
	RateLimit float64         `mapstructure:"rate-limit"`
	RateBurst int             `mapstructure:"rate-burst"`
	CacheSize int             `mapstructure:"cache-size"`
	UserAgent string          `mapstructure:"user-agent"`
}

var envKeys = []string{"endpoint", "timeout", "workers", "rate-limit", "rate-burst", "cache-size", "user-agent"}

// Load reads the file at path (optional when empty), applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("timeout", terminology.DefaultTimeout.String())
	v.SetDefault("workers", 1)
	v.SetDefault("rate-limit", 0)
	v.SetDefault("rate-burst", 1)
	v.SetDefault("cache-size", 0)
	v.SetDefault("user-agent", terminology.DefaultUserAgent)

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	timeout, err := time.ParseDuration(raw.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
	}

	cfg := &Config{
		Endpoint:  raw.Endpoint,
		Excluded:  raw.Excluded,
		Timeout:   timeout,
		Workers:   raw.Workers,
		RateLimit: raw.RateLimit,
		RateBurst: raw.RateBurst,
		CacheSize: raw.CacheSize,
		UserAgent: raw.UserAgent,
	}
	if cfg.Endpoint == "" && len(raw.Init) > 0 {
		cfg.Endpoint = raw.Init[0].Endpoint
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and normalises the exclusion rules.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Endpoint) == "" {
		errs = append(errs, errors.New("terminology endpoint is required (init[0].endpoint or TXAUDIT_ENDPOINT)"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate-limit must not be negative, got %v", c.RateLimit))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache-size must not be negative, got %d", c.CacheSize))
	}

	rules, err := c.Excluded.Normalize()
	if err != nil {
		errs = append(errs, fmt.Errorf("codesystem-excluded: %w", err))
	}
	c.Excluded = rules

	return errors.Join(errs...)
}
