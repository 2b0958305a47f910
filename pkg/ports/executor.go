package ports

import (
	"context"

	"github.com/lunglab/parcellate/pkg/domain"
)

// ExecRequest identifies one plugin execution. Plugin name, region and dataset
// form the memoization key; everything else is carried along for the body.
type ExecRequest struct {
	Plugin  domain.Descriptor
	Impl    domain.PluginFunc
	Region  string
	Dataset string
	Args    map[string]any

	// AllowCaching permits serving a previously computed result. When false
	// the plugin body always runs (the fresh result may still be stored).
	AllowCaching bool

	// Templates resolves region template masks for the current dataset and is
	// forwarded to the plugin body.
	Templates domain.TemplateLookup
}

// Key returns the memoization key for the request.
func (r ExecRequest) Key() string {
	return r.Plugin.Name + "/" + r.Region + "/" + r.Dataset
}

// Executor is the memoized-execution collaborator. Run executes (or replays)
// a plugin for a region and dataset, returning the result, whether the plugin
// body actually ran, and provenance metadata.
//
// Implementations must guarantee at most one in-flight computation per request
// key: concurrent callers for the same key observe either the shared pending
// computation or a cached result, never duplicate execution. Plugin errors are
// returned as-is and never retried.
type Executor interface {
	Run(ctx context.Context, req ExecRequest) (domain.Result, bool, *domain.CacheInfo, error)
}
