package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lunglab/parcellate"
	"github.com/lunglab/parcellate/pkg/adapters/memory"
	redisadapter "github.com/lunglab/parcellate/pkg/adapters/redis"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/observability"
	"github.com/lunglab/parcellate/pkg/plugins"
)

// LogLevel maps the config's level name onto slog.
func LogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CreateEngine initializes a parcellate engine with standard CLI conventions:
// hierarchy from file or built-in, cache backend per config, built-in plugins
// registered.
func CreateEngine(cfg Config, logger *slog.Logger, metricsReg prometheus.Registerer) (*parcellate.Engine, error) {
	opts := []parcellate.Option{parcellate.WithLogger(logger)}

	reg := hierarchy.Default()
	if cfg.HierarchyFile != "" {
		loaded, err := hierarchy.LoadFile(cfg.HierarchyFile)
		if err != nil {
			return nil, fmt.Errorf("error loading hierarchy: %w", err)
		}
		reg = loaded
	}
	opts = append(opts, parcellate.WithHierarchy(reg))

	inner := memory.NewExecutor(memory.WithTTL(cfg.Cache.TTL))
	switch cfg.Cache.Backend {
	case "", "memory":
		opts = append(opts, parcellate.WithExecutor(inner))
	case "redis":
		redisOpts := []redisadapter.Option{redisadapter.WithTTL(cfg.Cache.TTL)}
		if cfg.Cache.Redis.Prefix != "" {
			redisOpts = append(redisOpts, redisadapter.WithPrefix(cfg.Cache.Redis.Prefix))
		}
		cache := redisadapter.New(cfg.Cache.Redis.Address, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, inner, redisOpts...)
		opts = append(opts, parcellate.WithExecutor(cache))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	if metricsReg != nil {
		opts = append(opts, parcellate.WithMetrics(observability.New(metricsReg)))
	}

	engine, err := parcellate.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	plugins.RegisterBuiltins(engine.Plugins())
	return engine, nil
}
