package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the CLI-level configuration, loaded from an optional YAML file.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// HierarchyFile points to a YAML hierarchy definition. Empty uses the
	// built-in anatomical hierarchy.
	HierarchyFile string `mapstructure:"hierarchy_file"`

	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig selects and tunes the memoized-execution backend.
type CacheConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string `mapstructure:"backend"`

	// TTL bounds how long memoized results are served. Zero keeps them forever.
	TTL time.Duration `mapstructure:"ttl"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the Redis result cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Cache:    CacheConfig{Backend: "memory"},
	}
}

// LoadConfig reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}
