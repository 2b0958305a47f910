package cli

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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
hierarchy_file: /etc/parcellate/hierarchy.yaml
cache:
  backend: redis
  ttl: 15m
  redis:
    address: localhost:6379
    db: 2
    prefix: "lab:"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/etc/parcellate/hierarchy.yaml", cfg.HierarchyFile)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Address)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "lab:", cfg.Cache.Redis.Prefix)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig("does/not/exist.yaml")
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("Bad YAML", func(t *testing.T) {
		path := writeConfig(t, "cache: {nope")
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}
