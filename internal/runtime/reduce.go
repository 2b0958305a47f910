package runtime

import (
	"context"
	"fmt"

	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
)

// reduceOutcome crops a parent-region outcome down to the requested region.
// The provenance and wasRun flag of the broader execution carry through
// unchanged; only the spatial payloads shrink.
func (e *Engine) reduceOutcome(ctx context.Context, rc resolveContext, out Outcome, target *hierarchy.Region) (Outcome, error) {
	reduced, err := e.reduce(ctx, rc, out.Result, target)
	if err != nil {
		return Outcome{}, err
	}
	out.Result = reduced

	if out.Image != nil {
		img, err := e.reduceImage(ctx, rc, out.Image, target)
		if err != nil {
			return Outcome{}, err
		}
		out.Image = img
	}
	return out, nil
}

// reduce crops an image-capable result to the target region using its template
// mask. Opaque values and composites pass through unchanged. The input result
// is never mutated; image reduction always returns a distinct copy.
func (e *Engine) reduce(ctx context.Context, rc resolveContext, res domain.Result, target *hierarchy.Region) (domain.Result, error) {
	img, ok := domain.AsImage(res)
	if !ok {
		return res, nil
	}
	reduced, err := e.reduceImage(ctx, rc, img, target)
	if err != nil {
		return nil, err
	}
	return domain.ImageResult{Image: reduced}, nil
}

func (e *Engine) reduceImage(ctx context.Context, rc resolveContext, img domain.Image, target *hierarchy.Region) (domain.Image, error) {
	tpl, err := e.templates.Template(ctx, target.ID(), rc.req.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain template for region %q: %w", target.ID(), err)
	}
	if tpl == nil {
		return nil, fmt.Errorf("no template available for region %q", target.ID())
	}

	dup := img.Duplicate()
	dup.ResizeToMatch(tpl)
	if !tpl.Empty() {
		// Re-paint from the original through the template so voxels outside
		// the target mask are blanked rather than merely re-framed.
		dup.Clear()
		dup.CompositeFrom(img, tpl, true)
	}
	return dup, nil
}
