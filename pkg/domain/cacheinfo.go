package domain

import (
	"time"

	"github.com/google/uuid"
)

// CacheInfo carries provenance metadata for a resolved result. When a result
// is composited from per-child sub-results, the CacheInfo tree mirrors the
// composite shape via Children.
type CacheInfo struct {
	Plugin     string                `json:"plugin,omitempty"`
	Region     string                `json:"region,omitempty"`
	RunID      string                `json:"run_id,omitempty"`
	FromCache  bool                  `json:"from_cache,omitempty"`
	ComputedAt time.Time             `json:"computed_at,omitzero"`
	Children   map[string]*CacheInfo `json:"children,omitempty"`
}

// NewCacheInfo stamps provenance for a single execution.
func NewCacheInfo(plugin, region string, fromCache bool) *CacheInfo {
	return &CacheInfo{
		Plugin:     plugin,
		Region:     region,
		RunID:      uuid.NewString(),
		FromCache:  fromCache,
		ComputedAt: time.Now().UTC(),
	}
}

// NewCompositeCacheInfo builds the parent node of a mirrored provenance tree.
func NewCompositeCacheInfo(plugin, region string, children map[string]*CacheInfo) *CacheInfo {
	return &CacheInfo{
		Plugin:   plugin,
		Region:   region,
		Children: children,
	}
}
