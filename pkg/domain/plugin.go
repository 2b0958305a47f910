package domain

import "context"

// TemplateLookup resolves the template mask for a region within the dataset
// currently being resolved. It is handed to plugins so image synthesis can be
// anchored to region geometry without knowing the template provider.
type TemplateLookup func(region string) (Image, error)

// PluginRequest is the input handed to a plugin body for a single execution.
type PluginRequest struct {
	// Region is the concrete region the plugin runs on. Its set always matches
	// the plugin's native region set (or the plugin is native to Any).
	Region string

	// Dataset identifies the volumetric data under analysis.
	Dataset string

	// Args carries free-form plugin parameters, typically decoded with
	// mapstructure into a plugin-specific options struct.
	Args map[string]any

	// Templates resolves region template masks for the current dataset.
	Templates TemplateLookup
}

// PluginFunc is the computation body of a plugin.
type PluginFunc func(ctx context.Context, req PluginRequest) (Result, error)

// Descriptor declares how a plugin participates in resolution.
type Descriptor struct {
	// Name identifies the plugin in registries and cache keys.
	Name string

	// NativeSet is the region set the plugin body is written against. Empty
	// means the engine default (region-of-interest level). The universal Any
	// set matches every requested region directly.
	NativeSet string

	// WantsPreview forces output-image generation whenever the plugin body was
	// freshly run rather than served from cache.
	WantsPreview bool

	// GenerateImage synthesizes an output image from a (possibly cached)
	// result. Optional; plugins without it never produce output images on the
	// direct path.
	GenerateImage func(res Result, lookup TemplateLookup) (Image, error)
}
