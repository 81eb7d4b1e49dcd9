// Package config loads and validates the correction layer's
// configuration from YAML and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/scriptorlabs/corrigo/pkg/consensus"
	"github.com/scriptorlabs/corrigo/pkg/ledger"
	"github.com/scriptorlabs/corrigo/pkg/provider"
)

// envPrefix namespaces the environment overrides, e.g.
// CORRIGO_CACHE_TTL=30m or CORRIGO_STORAGE_BACKEND=memory.
const envPrefix = "CORRIGO_"

// Config is the complete configuration for the correction layer.
type Config struct {
	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache,omitempty" validate:"omitempty"`

	// Provider gateway and backend configuration
	Provider ProviderConfig `yaml:"provider" validate:"required"`

	// Consensus thresholds
	Consensus consensus.Config `yaml:"consensus,omitempty" validate:"omitempty"`

	// Durable storage for the ledger and learned store
	Storage StorageConfig `yaml:"storage,omitempty" validate:"omitempty"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Severity level (DEBUG, INFO, WARN, ERROR, FATAL)
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`

	// Optional JSON log file path
	File string `yaml:"file,omitempty"`
}

// CacheConfig holds the expiring cache's settings.
type CacheConfig struct {
	// Entry lifetime
	TTL time.Duration `yaml:"ttl,omitempty" validate:"omitempty,gt=0"`

	// Optional capacity bound; LRU eviction kicks in above it
	MaxEntries int `yaml:"max_entries,omitempty" validate:"gte=0"`

	// Expired-entry sweep interval
	CleanupInterval time.Duration `yaml:"cleanup_interval,omitempty" validate:"omitempty,gt=0"`
}

// ProviderConfig holds provider selection and reliability settings.
type ProviderConfig struct {
	// Backend: anthropic is the only wired external provider
	Backend string `yaml:"backend" validate:"required,oneof=anthropic"`

	// Anthropic API settings
	Anthropic provider.AnthropicConfig `yaml:"anthropic,omitempty"`

	// Gateway reliability settings (timeout, retry, breaker)
	Gateway provider.GatewayConfig `yaml:"gateway,omitempty"`
}

// StorageConfig selects the persistence backend for the ledger and
// learned store.
type StorageConfig struct {
	// Backend: "sqlite" for durable storage, "memory" for ephemeral
	Backend string `yaml:"backend,omitempty" validate:"omitempty,oneof=sqlite memory"`

	// SQLite settings, used when Backend is sqlite
	SQLite ledger.SQLiteConfig `yaml:"sqlite,omitempty"`
}

// Default returns a configuration with working defaults for every
// knob except the provider API key.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "INFO"},
		Cache: CacheConfig{
			TTL:             time.Hour,
			CleanupInterval: time.Minute,
		},
		Provider: ProviderConfig{
			Backend: "anthropic",
			Gateway: provider.GatewayConfig{
				Timeout:          10 * time.Second,
				MaxAttempts:      3,
				BackoffBase:      200 * time.Millisecond,
				BackoffCap:       5 * time.Second,
				FailureThreshold: 5,
				FailureWindow:    time.Minute,
				Cooldown:         30 * time.Second,
			},
		},
		Consensus: consensus.Config{
			MinSamples:       3,
			PromoteThreshold: 0.75,
			DemoteThreshold:  0.5,
			Eager:            true,
			SweepWorkers:     4,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			SQLite: ledger.SQLiteConfig{
				Path:      "corrigo.db",
				EnableWAL: true,
			},
		},
	}
}

// Load reads a YAML file over the defaults, applies CORRIGO_*
// environment overrides on top, and validates the result. Duration
// values accept Go syntax ("30m", "10s").
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// CORRIGO_CACHE_TTL -> cache.ttl, CORRIGO_LOGGING_LEVEL ->
	// logging.level. The first underscore separates the section; later
	// underscores stay in the field name (cache.max_entries).
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(key, "_", 2)
		if len(parts) == 1 {
			return key
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks structural constraints plus the cross-field rules
// the validator tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Consensus.PromoteThreshold < 0 || c.Consensus.PromoteThreshold > 1 {
		return fmt.Errorf("promote_threshold must be within [0, 1], got %v", c.Consensus.PromoteThreshold)
	}
	if c.Consensus.DemoteThreshold < 0 || c.Consensus.DemoteThreshold > 1 {
		return fmt.Errorf("demote_threshold must be within [0, 1], got %v", c.Consensus.DemoteThreshold)
	}
	// The hysteresis gap is the whole point of the two thresholds
	if c.Consensus.DemoteThreshold >= c.Consensus.PromoteThreshold {
		return fmt.Errorf("demote_threshold (%v) must be strictly below promote_threshold (%v)",
			c.Consensus.DemoteThreshold, c.Consensus.PromoteThreshold)
	}

	return nil
}
