/*
Package parcellate resolves plugin computations across a hierarchy of spatial
regions. A plugin is written against one fixed "native" granularity (say, a
single lung); callers may nevertheless request its result for a broader region
(both lungs) or a narrower one (a single lobe). The engine decides, per
request, whether to invoke the plugin directly, invoke it once on a broader
ancestor region and crop the result down through the target's template mask,
or invoke it independently on every child region and stitch the partial
results back into one composite.

The core is hexagonal: the resolution engine consumes two collaborator ports —
a memoized Executor (at most one in-flight computation per plugin/region/
dataset key) and a TemplateProvider (region-shaped masks) — with in-memory and
Redis-backed adapters included.

# Usage

	eng, err := parcellate.New()
	if err != nil {
		log.Fatal(err)
	}

	eng.RegisterPlugin(domain.Descriptor{
		Name:      "volume",
		NativeSet: hierarchy.SetLung, // the body only understands single lungs
	}, func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		tpl, err := req.Templates(req.Region)
		if err != nil {
			return nil, err
		}
		return domain.Value{V: tpl.(*domain.Grid).NonZero()}, nil
	})

	// Ask at a broader granularity: the engine runs the plugin once per lung
	// and returns a composite keyed {left-lung: ..., right-lung: ...}.
	out, err := eng.Resolve(ctx, parcellate.Request{
		Plugin:       "volume",
		Target:       hierarchy.BothLungs,
		Dataset:      "case-042",
		AllowCaching: true,
	})

Asking for a narrower region than the plugin's native set instead triggers the
reduction path: one execution at the native granularity, then template-masked
cropping down to the requested region.
*/
package parcellate
