package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "anthropic", cfg.Provider.Backend)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Consensus.Eager)
	assert.Less(t, cfg.Consensus.DemoteThreshold, cfg.Consensus.PromoteThreshold)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: DEBUG
cache:
  ttl: 30m
  max_entries: 500
provider:
  backend: anthropic
  gateway:
    max_attempts: 5
consensus:
  min_samples: 5
  promote_threshold: 0.8
  demote_threshold: 0.4
storage:
  backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 5, cfg.Provider.Gateway.MaxAttempts)
	assert.Equal(t, 5, cfg.Consensus.MinSamples)
	assert.InDelta(t, 0.8, cfg.Consensus.PromoteThreshold, 1e-9)
	assert.Equal(t, "memory", cfg.Storage.Backend)

	// Untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Provider.Gateway.Timeout)
	assert.Equal(t, "corrigo.db", cfg.Storage.SQLite.Path)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
cache:
  ttl: 30m
storage:
  backend: sqlite
`)

	t.Setenv("CORRIGO_CACHE_TTL", "15m")
	t.Setenv("CORRIGO_STORAGE_BACKEND", "memory")
	t.Setenv("CORRIGO_LOGGING_LEVEL", "WARN")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "provider: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Provider.Backend = "openai"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.Backend = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeThresholds(t *testing.T) {
	cfg := Default()
	cfg.Consensus.PromoteThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Consensus.DemoteThreshold = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresHysteresisGap(t *testing.T) {
	cfg := Default()
	cfg.Consensus.DemoteThreshold = cfg.Consensus.PromoteThreshold
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly below")

	cfg.Consensus.DemoteThreshold = 0.9
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
