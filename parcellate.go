package parcellate

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lunglab/parcellate/internal/runtime"
	"github.com/lunglab/parcellate/pkg/adapters/memory"
	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/observability"
	"github.com/lunglab/parcellate/pkg/ports"
	"github.com/lunglab/parcellate/pkg/registry"
)

// Engine is the high-level entry point for the parcellate library.
// It wraps the internal resolution runtime and provides a simplified API for
// consumers: register plugins, then resolve them at any region granularity.
type Engine struct {
	hierarchy *hierarchy.Registry
	plugins   *registry.Registry
	executor  ports.Executor
	templates ports.TemplateProvider
	logger    *slog.Logger
	metrics   *observability.Metrics
	runtime   *runtime.Engine
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithHierarchy injects a custom region hierarchy, bypassing the built-in
// anatomical default.
func WithHierarchy(reg *hierarchy.Registry) Option {
	return func(e *Engine) { e.hierarchy = reg }
}

// WithExecutor injects a custom memoized-execution collaborator (e.g. the
// Redis-backed result cache).
func WithExecutor(exec ports.Executor) Option {
	return func(e *Engine) { e.executor = exec }
}

// WithTemplateProvider injects a custom template provider.
func WithTemplateProvider(tp ports.TemplateProvider) Option {
	return func(e *Engine) { e.templates = tp }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPlugins injects a pre-populated plugin registry.
func WithPlugins(r *registry.Registry) Option {
	return func(e *Engine) { e.plugins = r }
}

// New creates an Engine. Without options it uses the built-in anatomical
// hierarchy, an in-memory memoizing executor, and a registry-backed template
// store.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.hierarchy == nil {
		eng.hierarchy = hierarchy.Default()
	}
	if eng.plugins == nil {
		eng.plugins = registry.NewRegistry()
	}
	if eng.executor == nil {
		eng.executor = memory.NewExecutor()
	}
	if eng.templates == nil {
		eng.templates = memory.NewTemplateStore(eng.hierarchy)
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	eng.runtime = runtime.NewEngine(
		eng.hierarchy,
		eng.executor,
		eng.templates,
		runtime.WithLogger(eng.logger),
		runtime.WithMetrics(eng.metrics),
	)

	return eng, nil
}

// Request describes one resolution call against a registered plugin.
type Request struct {
	// Plugin is the registered plugin name.
	Plugin string

	// Target is a region or region set identifier. Empty resolves the
	// hierarchy's default region.
	Target string

	// Dataset identifies the volumetric data under analysis.
	Dataset string

	// Args carries free-form plugin parameters.
	Args map[string]any

	// GenerateImage requests an output image alongside the result.
	GenerateImage bool

	// AllowCaching permits serving memoized results.
	AllowCaching bool

	// Chain names the callers that led here, for diagnostics.
	Chain []string
}

// Outcome is the product of a resolution.
type Outcome struct {
	// Result is the resolved value: opaque, image-capable, or a composite
	// keyed by child region identifier.
	Result domain.Result

	// Image is the output image, when one was requested or forced.
	Image domain.Image

	// WasRun reports whether any plugin body actually executed (as opposed to
	// every leaf being served from cache).
	WasRun bool

	// CacheInfo is the provenance tree, mirrored in composite shape.
	CacheInfo *domain.CacheInfo
}

// RegisterPlugin adds a plugin to the engine's registry.
func (e *Engine) RegisterPlugin(desc domain.Descriptor, impl domain.PluginFunc) {
	e.plugins.Register(desc, impl)
}

// Plugins returns the engine's plugin registry.
func (e *Engine) Plugins() *registry.Registry { return e.plugins }

// Hierarchy returns the engine's region hierarchy.
func (e *Engine) Hierarchy() *hierarchy.Registry { return e.hierarchy }

// Resolve runs a registered plugin at the requested granularity.
func (e *Engine) Resolve(ctx context.Context, req Request) (Outcome, error) {
	entry, err := e.plugins.Get(req.Plugin)
	if err != nil {
		return Outcome{}, err
	}
	return e.ResolveWith(ctx, entry.Descriptor, entry.Impl, req)
}

// ResolveWith runs an explicit descriptor/body pair without registering it.
func (e *Engine) ResolveWith(ctx context.Context, desc domain.Descriptor, impl domain.PluginFunc, req Request) (Outcome, error) {
	if impl == nil {
		return Outcome{}, fmt.Errorf("plugin %q has no implementation", desc.Name)
	}
	out, err := e.runtime.Resolve(ctx, runtime.Request{
		Plugin:        desc,
		Impl:          impl,
		Target:        req.Target,
		Dataset:       req.Dataset,
		Args:          req.Args,
		GenerateImage: req.GenerateImage,
		AllowCaching:  req.AllowCaching,
		Chain:         req.Chain,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Result:    out.Result,
		Image:     out.Image,
		WasRun:    out.WasRun,
		CacheInfo: out.CacheInfo,
	}, nil
}
