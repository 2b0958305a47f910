package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/ports"
)

// Executor is the in-process memoized-execution collaborator. Results are
// cached per (plugin, region, dataset) key and concurrent callers of one key
// share a single in-flight computation.
//
// Cached results are duplicated on the way out where they are image-capable,
// so callers can never mutate what later callers will see.
type Executor struct {
	cache *gocache.Cache
	ttl   time.Duration

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	res  domain.Result
	info *domain.CacheInfo
	err  error
}

type cached struct {
	res  domain.Result
	info *domain.CacheInfo
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTTL bounds how long memoized results are served. Zero keeps them forever.
func WithTTL(ttl time.Duration) ExecutorOption {
	return func(x *Executor) { x.ttl = ttl }
}

// NewExecutor creates an in-memory memoizing executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	x := &Executor{
		ttl:      gocache.NoExpiration,
		inflight: map[string]*call{},
	}
	for _, opt := range opts {
		opt(x)
	}
	x.cache = gocache.New(x.ttl, 10*time.Minute)
	return x
}

// Run implements ports.Executor.
func (x *Executor) Run(ctx context.Context, req ports.ExecRequest) (domain.Result, bool, *domain.CacheInfo, error) {
	key := req.Key()

	var c *call
	for {
		if req.AllowCaching {
			if hit, ok := x.cache.Get(key); ok {
				entry := hit.(cached)
				return dupResult(entry.res), false, hitInfo(entry.info), nil
			}
		}

		x.mu.Lock()
		if pending, ok := x.inflight[key]; ok {
			x.mu.Unlock()
			<-pending.done
			if req.AllowCaching {
				if pending.err != nil {
					return nil, false, nil, pending.err
				}
				return dupResult(pending.res), false, hitInfo(pending.info), nil
			}
			// Caching disabled: wait out the pending run, then take our own turn.
			continue
		}
		c = &call{done: make(chan struct{})}
		x.inflight[key] = c
		x.mu.Unlock()
		break
	}

	res, err := req.Impl(ctx, domain.PluginRequest{
		Region:    req.Region,
		Dataset:   req.Dataset,
		Args:      req.Args,
		Templates: req.Templates,
	})

	var info *domain.CacheInfo
	if err == nil {
		info = domain.NewCacheInfo(req.Plugin.Name, req.Region, false)
		x.cache.Set(key, cached{res: res, info: info}, x.ttl)
	}

	c.res, c.info, c.err = res, info, err

	x.mu.Lock()
	delete(x.inflight, key)
	x.mu.Unlock()
	close(c.done)

	if err != nil {
		return nil, false, nil, err
	}
	return dupResult(res), true, info, nil
}

// hitInfo re-stamps provenance as a cache hit without losing the original run identity.
func hitInfo(orig *domain.CacheInfo) *domain.CacheInfo {
	cp := *orig
	cp.FromCache = true
	return &cp
}

// dupResult deep-copies the image-capable parts of a result so cache entries
// stay isolated from callers.
func dupResult(res domain.Result) domain.Result {
	switch v := res.(type) {
	case domain.ImageResult:
		if v.Image == nil {
			return v
		}
		return domain.ImageResult{Image: v.Image.Duplicate()}
	case domain.Composite:
		out := make(domain.Composite, len(v))
		for id, sub := range v {
			out[id] = dupResult(sub)
		}
		return out
	default:
		return res
	}
}

var _ ports.Executor = (*Executor)(nil)
