package domain

// Result is the value produced by resolving a plugin for a region.
//
// It is a closed variant over three shapes:
//   - Value: an opaque scalar/tabular payload, passed through reduction unchanged.
//   - ImageResult: an image-capable payload that can be cropped and composited.
//   - Composite: per-child sub-results produced by downward composition.
type Result interface {
	isResult()
}

// Value wraps an opaque, non-spatial plugin output.
type Value struct {
	V any
}

func (Value) isResult() {}

// ImageResult wraps an image-capable plugin output.
type ImageResult struct {
	Image Image
}

func (ImageResult) isResult() {}

// Composite maps child region identifiers to their sub-results. It is produced
// only by downward composition and is never itself image-capable: reducing a
// Composite further returns it unchanged.
type Composite map[string]Result

func (Composite) isResult() {}

// AsImage extracts the image from an image-capable result.
func AsImage(r Result) (Image, bool) {
	ir, ok := r.(ImageResult)
	if !ok || ir.Image == nil {
		return nil, false
	}
	return ir.Image, true
}
