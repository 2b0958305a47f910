// Package registry manages the available plugins: named pairs of a descriptor
// (how the plugin participates in resolution) and its computation body.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lunglab/parcellate/pkg/domain"
)

// Entry couples a plugin's descriptor with its computation body.
type Entry struct {
	Descriptor domain.Descriptor
	Impl       domain.PluginFunc
}

// Registry manages the available plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Entry),
	}
}

// Register adds a plugin to the registry under its descriptor name.
// If a plugin with the same name exists, it is overwritten.
func (r *Registry) Register(desc domain.Descriptor, impl domain.PluginFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[desc.Name] = Entry{Descriptor: desc, Impl: impl}
}

// Get looks up a plugin by name.
func (r *Registry) Get(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.plugins[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", domain.ErrUnknownPlugin, name)
	}
	return entry, nil
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
