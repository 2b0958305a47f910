package memory

import (
	"context"
	"sync"

	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/ports"
)

// TemplateStore serves region templates from the registry's factories and
// learns templates for regions whose factory produced nothing, by deriving
// them from freshly computed image results.
type TemplateStore struct {
	reg *hierarchy.Registry

	mu       sync.RWMutex
	learned  map[string]domain.Image
	attempts map[string]int
}

// NewTemplateStore creates a template provider backed by the registry.
func NewTemplateStore(reg *hierarchy.Registry) *TemplateStore {
	return &TemplateStore{
		reg:      reg,
		learned:  map[string]domain.Image{},
		attempts: map[string]int{},
	}
}

func templateKey(region, dataset string) string { return region + "/" + dataset }

// Template implements ports.TemplateProvider. A learned template wins over the
// factory; both are duplicated on the way out.
func (s *TemplateStore) Template(ctx context.Context, region, dataset string) (domain.Image, error) {
	s.mu.RLock()
	if tpl, ok := s.learned[templateKey(region, dataset)]; ok {
		s.mu.RUnlock()
		return tpl.Duplicate(), nil
	}
	s.mu.RUnlock()

	r, err := s.reg.Region(region)
	if err != nil {
		return nil, err
	}
	return r.Template(dataset), nil
}

// NoteAttempt implements ports.TemplateProvider.
func (s *TemplateStore) NoteAttempt(ctx context.Context, plugin, region string) {
	s.mu.Lock()
	s.attempts[plugin+"/"+region]++
	s.mu.Unlock()
}

// Attempts reports how often a plugin/region pair was attempted.
func (s *TemplateStore) Attempts(plugin, region string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts[plugin+"/"+region]
}

// UpdateFromResult implements ports.TemplateProvider: when a region's template
// is not yet known and a fresh image result is available, the result's shape
// becomes the region's template.
func (s *TemplateStore) UpdateFromResult(ctx context.Context, plugin, region, dataset string, res domain.Result, wasRun bool) {
	if !wasRun {
		return
	}
	img, ok := domain.AsImage(res)
	if !ok {
		return
	}

	known, err := s.Template(ctx, region, dataset)
	if err != nil || known != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := templateKey(region, dataset)
	if _, ok := s.learned[key]; !ok {
		s.learned[key] = img.Duplicate()
	}
}

var _ ports.TemplateProvider = (*TemplateStore)(nil)
