// Package redis provides a Redis-backed result cache that wraps another
// executor, so memoized plugin results survive process restarts and can be
// shared between instances.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/ports"
)

// Cache implements ports.Executor by consulting Redis before delegating to an
// inner executor, and persisting whatever the inner executor freshly computes.
// Single-flight semantics for cache misses are owned by the inner executor.
type Cache struct {
	client *backend.Client
	inner  ports.Executor
	prefix string
	ttl    time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the expiration for cached results. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithPrefix sets the key prefix for cached results.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// New creates a Redis-backed result cache around inner.
func New(address, password string, db int, inner ports.Executor, opts ...Option) *Cache {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, inner, opts...)
}

// NewFromClient creates a Redis-backed result cache from an existing client.
func NewFromClient(client *backend.Client, inner ports.Executor, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		inner:  inner,
		prefix: "parcellate:result:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Result json.RawMessage   `json:"result"`
	Info   *domain.CacheInfo `json:"info"`
}

func (c *Cache) key(req ports.ExecRequest) string {
	return c.prefix + req.Key()
}

// Run implements ports.Executor.
func (c *Cache) Run(ctx context.Context, req ports.ExecRequest) (domain.Result, bool, *domain.CacheInfo, error) {
	key := c.key(req)

	if req.AllowCaching {
		data, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			res, info, derr := decode(data)
			if derr != nil {
				return nil, false, nil, fmt.Errorf("failed to decode cached result for %s: %w", key, derr)
			}
			return res, false, info, nil
		case err != backend.Nil:
			return nil, false, nil, fmt.Errorf("failed to read result cache: %w", err)
		}
	}

	res, wasRun, info, err := c.inner.Run(ctx, req)
	if err != nil {
		return nil, false, nil, err
	}

	if wasRun {
		data, eerr := encode(res, info)
		if eerr != nil {
			return nil, false, nil, fmt.Errorf("failed to encode result for caching: %w", eerr)
		}
		if serr := c.client.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			return nil, false, nil, fmt.Errorf("failed to write result cache: %w", serr)
		}
	}

	return res, wasRun, info, nil
}

func encode(res domain.Result, info *domain.CacheInfo) ([]byte, error) {
	raw, err := domain.EncodeResult(res)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Result: raw, Info: info})
}

func decode(data []byte) (domain.Result, *domain.CacheInfo, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, err
	}
	res, err := domain.DecodeResult(env.Result)
	if err != nil {
		return nil, nil, err
	}
	info := env.Info
	if info == nil {
		info = &domain.CacheInfo{}
	}
	info.FromCache = true
	return res, info, nil
}

var _ ports.Executor = (*Cache)(nil)
