package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/observability"
	"github.com/lunglab/parcellate/pkg/ports"
)

// Engine is the context resolution core. It decides, for every (plugin native
// set, requested region) pair, whether to invoke the plugin directly, resolve
// a broader ancestor and crop down, or resolve every child independently and
// composite. It keeps no mutable state across calls: the registry is read-only
// and all image work happens on duplicates, so an Engine is safe for
// concurrent use whenever its collaborators are.
type Engine struct {
	reg       *hierarchy.Registry
	exec      ports.Executor
	templates ports.TemplateProvider
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a resolution engine over a validated registry and its
// two collaborators.
func NewEngine(reg *hierarchy.Registry, exec ports.Executor, templates ports.TemplateProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		reg:       reg,
		exec:      exec,
		templates: templates,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request describes one top-level resolution call.
type Request struct {
	Plugin domain.Descriptor
	Impl   domain.PluginFunc

	// Target is a region or region set identifier. Empty resolves the
	// registry's default region.
	Target string

	// Dataset identifies the volumetric data under analysis and is part of
	// every memoization key.
	Dataset string

	// Args carries free-form plugin parameters.
	Args map[string]any

	// GenerateImage requests an output image alongside the result.
	GenerateImage bool

	// AllowCaching permits the executor to serve memoized results.
	AllowCaching bool

	// Chain names the callers that led to this resolution, for diagnostics.
	Chain []string
}

// Outcome is the product of a resolution: the (possibly composite) result, an
// optional output image, whether any plugin body actually ran, and the
// provenance tree.
type Outcome struct {
	Result    domain.Result
	Image     domain.Image
	WasRun    bool
	CacheInfo *domain.CacheInfo
}

// resolveContext carries the per-call invariants through the recursion so the
// recursive calls don't grow positional parameter chains.
type resolveContext struct {
	req    Request
	lookup domain.TemplateLookup
	logger *slog.Logger
}

// Resolve expands the request's target into concrete regions and resolves the
// plugin for each. A single-region request returns that region's outcome
// directly; a multi-region request returns a composite keyed by region
// identifier (top-level output images are not merged).
func (e *Engine) Resolve(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	out, err := e.resolve(ctx, req)
	e.metrics.Resolve(req.Plugin.Name, time.Since(start), err)
	return out, err
}

func (e *Engine) resolve(ctx context.Context, req Request) (Outcome, error) {
	logger := e.logger.With("plugin", req.Plugin.Name, "dataset", req.Dataset)
	if len(req.Chain) > 0 {
		logger = logger.With("chain", strings.Join(req.Chain, "/"))
	}
	rc := resolveContext{
		req:    req,
		lookup: e.templateLookup(ctx, req.Dataset),
		logger: logger,
	}

	regions, err := e.expandTarget(req.Target)
	if err != nil {
		return Outcome{}, err
	}

	if len(regions) == 1 {
		return e.resolveOne(ctx, rc, regions[0])
	}

	results := make(domain.Composite, len(regions))
	infos := make(map[string]*domain.CacheInfo, len(regions))
	wasRun := false
	for _, region := range regions {
		out, err := e.resolveOne(ctx, rc, region)
		if err != nil {
			return Outcome{}, err
		}
		results[region.ID()] = out.Result
		infos[region.ID()] = out.CacheInfo
		wasRun = wasRun || out.WasRun
	}
	return Outcome{
		Result:    results,
		WasRun:    wasRun,
		CacheInfo: domain.NewCompositeCacheInfo(req.Plugin.Name, req.Target, infos),
	}, nil
}

// expandTarget maps the requested identifier to concrete regions: a region set
// expands to all of its regions in registry order, a region passes through,
// and an empty target falls back to the registry default.
func (e *Engine) expandTarget(target string) ([]*hierarchy.Region, error) {
	if target == "" {
		def := e.reg.DefaultRegion()
		if def == nil {
			return nil, fmt.Errorf("%w: empty request and no default region configured", domain.ErrUnknownRequestedRegion)
		}
		return []*hierarchy.Region{def}, nil
	}
	if region, err := e.reg.Region(target); err == nil {
		return []*hierarchy.Region{region}, nil
	}
	if regions, err := e.reg.RegionsOf(target); err == nil {
		if len(regions) == 0 {
			return nil, fmt.Errorf("%w: region set %q has no regions", domain.ErrUnknownRequestedRegion, target)
		}
		return regions, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRequestedRegion, target)
}

// resolveOne resolves the plugin for one concrete region, bracketed by the
// template provider's lifecycle hooks.
func (e *Engine) resolveOne(ctx context.Context, rc resolveContext, region *hierarchy.Region) (Outcome, error) {
	e.templates.NoteAttempt(ctx, rc.req.Plugin.Name, region.ID())

	out, err := e.decide(ctx, rc, region)
	if err != nil {
		return Outcome{}, err
	}

	e.templates.UpdateFromResult(ctx, rc.req.Plugin.Name, region.ID(), rc.req.Dataset, out.Result, out.WasRun)
	return out, nil
}

// decide applies the core branch logic for a (native set, requested set) pair.
func (e *Engine) decide(ctx context.Context, rc resolveContext, region *hierarchy.Region) (Outcome, error) {
	native, err := e.nativeSet(rc.req.Plugin)
	if err != nil {
		return Outcome{}, err
	}
	requested := region.Set()

	switch {
	case native == requested || native.IsAny():
		e.metrics.Branch(observability.BranchDirect)
		rc.logger.Debug("resolving region directly", "region", region.ID(), "set", requested.ID())
		return e.direct(ctx, rc, region)

	case e.reg.IsHigher(native, requested):
		// The plugin is native to a broader tier: resolve the parent region
		// and crop the result down to what was asked.
		parent := region.Parent()
		if parent == nil {
			return Outcome{}, fmt.Errorf("%w: region %q needs an ancestor at set %q", domain.ErrMissingAncestor, region.ID(), native.ID())
		}
		e.metrics.Branch(observability.BranchReduce)
		rc.logger.Debug("resolving region via parent", "region", region.ID(), "parent", parent.ID())
		out, err := e.resolveOne(ctx, rc, parent)
		if err != nil {
			return Outcome{}, err
		}
		return e.reduceOutcome(ctx, rc, out, region)

	case e.reg.IsHigher(requested, native):
		// The plugin is native to a finer tier: resolve every child region
		// independently and stitch the partial results together.
		e.metrics.Branch(observability.BranchComposite)
		rc.logger.Debug("resolving region via children", "region", region.ID())
		return e.composite(ctx, rc, region)

	default:
		return Outcome{}, fmt.Errorf("%w: plugin %q is native to %q, requested region %q is in %q",
			domain.ErrUnrelatedRegionSets, rc.req.Plugin.Name, native.ID(), region.ID(), requested.ID())
	}
}

// nativeSet resolves the plugin's declared native set, falling back to the
// default region's tier when the plugin leaves it unspecified.
func (e *Engine) nativeSet(plugin domain.Descriptor) (*hierarchy.Set, error) {
	if plugin.NativeSet == "" {
		def := e.reg.DefaultRegion()
		if def == nil {
			return nil, fmt.Errorf("%w: plugin %q has no native set and no default region is configured",
				domain.ErrUnknownRegionSet, plugin.Name)
		}
		return def.Set(), nil
	}
	set, err := e.reg.Set(plugin.NativeSet)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", plugin.Name, err)
	}
	return set, nil
}

// direct invokes the executor once for (plugin, region, dataset) and, when
// asked (or when a preview is wanted after a fresh run), synthesizes the
// output image from the result.
func (e *Engine) direct(ctx context.Context, rc resolveContext, region *hierarchy.Region) (Outcome, error) {
	res, wasRun, info, err := e.exec.Run(ctx, ports.ExecRequest{
		Plugin:       rc.req.Plugin,
		Impl:         rc.req.Impl,
		Region:       region.ID(),
		Dataset:      rc.req.Dataset,
		Args:         rc.req.Args,
		AllowCaching: rc.req.AllowCaching,
		Templates:    rc.lookup,
	})
	e.metrics.ExecutorRun(wasRun)
	if err != nil {
		return Outcome{}, fmt.Errorf("plugin %q failed on region %q: %w", rc.req.Plugin.Name, region.ID(), err)
	}

	generate := rc.req.GenerateImage
	if rc.req.Plugin.WantsPreview && wasRun {
		generate = true
	}

	var img domain.Image
	if generate && rc.req.Plugin.GenerateImage != nil {
		input := res
		if im, ok := domain.AsImage(res); ok {
			// Hand the generator a duplicate so it cannot alias the result.
			input = domain.ImageResult{Image: im.Duplicate()}
		}
		img, err = rc.req.Plugin.GenerateImage(input, rc.lookup)
		if err != nil {
			return Outcome{}, fmt.Errorf("plugin %q failed to generate image for region %q: %w", rc.req.Plugin.Name, region.ID(), err)
		}
	}

	return Outcome{Result: res, Image: img, WasRun: wasRun, CacheInfo: info}, nil
}

func (e *Engine) templateLookup(ctx context.Context, dataset string) domain.TemplateLookup {
	return func(region string) (domain.Image, error) {
		return e.templates.Template(ctx, region, dataset)
	}
}
