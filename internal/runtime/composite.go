package runtime

import (
	"context"
	"fmt"

	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
)

// composite resolves the plugin independently for every child of the requested
// region and stitches the partial results into one composite keyed by child
// identifier. Output images, when requested, are painted child by child
// through each child's template mask into a parent-sized blank image; sibling
// masks are disjoint by the registry's partition invariant, so paint order
// does not matter. A single failing child aborts the whole composite.
func (e *Engine) composite(ctx context.Context, rc resolveContext, region *hierarchy.Region) (Outcome, error) {
	children := region.Children()
	if len(children) == 0 {
		return Outcome{}, fmt.Errorf("%w: region %q has no child regions to resolve plugin %q on",
			domain.ErrUnrelatedRegionSets, region.ID(), rc.req.Plugin.Name)
	}

	var out domain.Image
	if rc.req.GenerateImage {
		parentTpl, err := e.templates.Template(ctx, region.ID(), rc.req.Dataset)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to obtain template for region %q: %w", region.ID(), err)
		}
		if parentTpl == nil {
			return Outcome{}, fmt.Errorf("no template available for region %q", region.ID())
		}
		out = parentTpl.Duplicate()
		out.Clear()
	}

	results := make(domain.Composite, len(children))
	infos := make(map[string]*domain.CacheInfo, len(children))
	wasRun := false

	for _, child := range children {
		sub, err := e.resolveOne(ctx, rc, child)
		if err != nil {
			return Outcome{}, err
		}
		results[child.ID()] = sub.Result
		infos[child.ID()] = sub.CacheInfo
		wasRun = wasRun || sub.WasRun

		if out != nil && sub.Image != nil {
			childTpl, err := e.templates.Template(ctx, child.ID(), rc.req.Dataset)
			if err != nil {
				return Outcome{}, fmt.Errorf("failed to obtain template for region %q: %w", child.ID(), err)
			}
			if childTpl != nil {
				out.CompositeFrom(sub.Image, childTpl, false)
			}
		}
	}

	return Outcome{
		Result:    results,
		Image:     out,
		WasRun:    wasRun,
		CacheInfo: domain.NewCompositeCacheInfo(rc.req.Plugin.Name, region.ID(), infos),
	}, nil
}
