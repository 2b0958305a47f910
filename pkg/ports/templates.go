package ports

import (
	"context"

	"github.com/lunglab/parcellate/pkg/domain"
)

// TemplateProvider supplies region-shaped template masks and observes the
// resolution lifecycle so it can lazily derive templates it does not know yet.
type TemplateProvider interface {
	// Template returns the mask for a region within a dataset. A nil image
	// with nil error means the template is not yet known.
	Template(ctx context.Context, region, dataset string) (domain.Image, error)

	// NoteAttempt signals that a plugin/region pair is about to be resolved,
	// giving the provider a chance to prepare derived templates.
	NoteAttempt(ctx context.Context, plugin, region string)

	// UpdateFromResult signals the outcome of a resolution step so the
	// provider can derive and cache a template from a freshly computed result.
	UpdateFromResult(ctx context.Context, plugin, region, dataset string, res domain.Result, wasRun bool)
}
