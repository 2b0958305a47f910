package hierarchy

import (
	"fmt"

	"github.com/lunglab/parcellate/pkg/domain"
)

// Any is the universal region set. A plugin native to Any runs directly on
// every requested region; Any itself has no ancestor/descendant relations.
const Any = "any"

// TemplateFactory produces an empty, region-shaped mask for a dataset.
type TemplateFactory func(dataset string) domain.Image

// Set is a granularity tier in the region hierarchy (e.g. whole-image, roi,
// paired lungs, single lung, lobe). Immutable after registry construction.
type Set struct {
	id     string
	parent *Set
}

// ID returns the set identifier.
func (s *Set) ID() string { return s.id }

// Parent returns the immediate ancestor set, nil for roots.
func (s *Set) Parent() *Set { return s.parent }

// IsAny reports whether this is the universal set.
func (s *Set) IsAny() bool { return s.id == Any }

// Region is a concrete named subdivision belonging to exactly one set.
// Immutable after registry construction.
type Region struct {
	id       string
	set      *Set
	parent   *Region
	children []*Region
	template TemplateFactory
}

// ID returns the region identifier.
func (r *Region) ID() string { return r.id }

// Set returns the region's granularity tier.
func (r *Region) Set() *Set { return r.set }

// Parent returns the region's parent region, nil for roots.
func (r *Region) Parent() *Region { return r.parent }

// Children returns the region's child regions in declaration order.
// The returned slice must not be mutated.
func (r *Region) Children() []*Region { return r.children }

// Template produces the region-shaped mask for a dataset, or nil if the
// region has no template factory.
func (r *Region) Template(dataset string) domain.Image {
	if r.template == nil {
		return nil
	}
	return r.template(dataset)
}

// SetDef declares a region set for registry construction.
type SetDef struct {
	ID     string
	Parent string
}

// RegionDef declares a region for registry construction. Definitions are
// order-sensitive: a parent must be declared before its children, and the
// declaration order fixes registry order for set expansion and composition.
type RegionDef struct {
	ID       string
	Set      string
	Parent   string
	Template TemplateFactory
}

// Def is the full input to registry construction.
type Def struct {
	Sets    []SetDef
	Regions []RegionDef

	// DefaultRegion is resolved when a request names no region. Typically the
	// region-of-interest root.
	DefaultRegion string
}

// Registry holds the immutable region and set forests. It is built and
// validated exactly once; all lookups afterwards are read-only, so a Registry
// is safe for concurrent use.
type Registry struct {
	sets          map[string]*Set
	regions       map[string]*Region
	order         []*Region
	bySet         map[string][]*Region
	defaultRegion *Region
}

// New builds and validates a registry from definitions.
func New(def Def) (*Registry, error) {
	reg := &Registry{
		sets:    map[string]*Set{},
		regions: map[string]*Region{},
		bySet:   map[string][]*Region{},
	}

	// The universal set always exists.
	reg.sets[Any] = &Set{id: Any}

	for _, sd := range def.Sets {
		if sd.ID == "" {
			return nil, fmt.Errorf("region set with empty identifier")
		}
		if _, dup := reg.sets[sd.ID]; dup {
			return nil, fmt.Errorf("duplicate region set %q", sd.ID)
		}
		reg.sets[sd.ID] = &Set{id: sd.ID}
	}
	for _, sd := range def.Sets {
		if sd.Parent == "" {
			continue
		}
		parent, ok := reg.sets[sd.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %q (parent of set %q)", domain.ErrUnknownRegionSet, sd.Parent, sd.ID)
		}
		if parent.IsAny() {
			return nil, fmt.Errorf("set %q cannot descend from the universal set", sd.ID)
		}
		reg.sets[sd.ID].parent = parent
	}
	if err := checkSetForest(reg.sets); err != nil {
		return nil, err
	}

	for _, rd := range def.Regions {
		if rd.ID == "" {
			return nil, fmt.Errorf("region with empty identifier")
		}
		if _, dup := reg.regions[rd.ID]; dup {
			return nil, fmt.Errorf("duplicate region %q", rd.ID)
		}
		set, ok := reg.sets[rd.Set]
		if !ok {
			return nil, fmt.Errorf("%w: %q (set of region %q)", domain.ErrUnknownRegionSet, rd.Set, rd.ID)
		}
		if set.IsAny() {
			return nil, fmt.Errorf("region %q cannot belong to the universal set", rd.ID)
		}
		region := &Region{id: rd.ID, set: set, template: rd.Template}
		if rd.Parent != "" {
			parent, ok := reg.regions[rd.Parent]
			if !ok {
				return nil, fmt.Errorf("%w: %q (parent of region %q, parents must be declared first)", domain.ErrUnknownRegion, rd.Parent, rd.ID)
			}
			// A region's parent must sit exactly one tier up.
			if set.parent != parent.set {
				return nil, fmt.Errorf("region %q in set %q has parent %q in set %q, expected parent set %q",
					rd.ID, set.id, parent.id, parent.set.id, setID(set.parent))
			}
			region.parent = parent
			parent.children = append(parent.children, region)
		} else if set.parent != nil {
			return nil, fmt.Errorf("region %q in non-root set %q must declare a parent region", rd.ID, set.id)
		}
		reg.regions[rd.ID] = region
		reg.order = append(reg.order, region)
		reg.bySet[set.id] = append(reg.bySet[set.id], region)
	}

	if def.DefaultRegion != "" {
		region, ok := reg.regions[def.DefaultRegion]
		if !ok {
			return nil, fmt.Errorf("%w: %q (default region)", domain.ErrUnknownRegion, def.DefaultRegion)
		}
		reg.defaultRegion = region
	}

	return reg, nil
}

func setID(s *Set) string {
	if s == nil {
		return "<root>"
	}
	return s.id
}

// checkSetForest rejects parent cycles so ancestor walks always terminate.
func checkSetForest(sets map[string]*Set) error {
	for _, s := range sets {
		slow, fast := s, s.parent
		for fast != nil {
			if fast == slow {
				return fmt.Errorf("region set %q participates in a parent cycle", s.id)
			}
			slow = slow.parent
			fast = fast.parent
			if fast != nil {
				fast = fast.parent
			}
		}
	}
	return nil
}

// Set looks up a region set by identifier.
func (reg *Registry) Set(id string) (*Set, error) {
	s, ok := reg.sets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRegionSet, id)
	}
	return s, nil
}

// Region looks up a region by identifier.
func (reg *Registry) Region(id string) (*Region, error) {
	r, ok := reg.regions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRegion, id)
	}
	return r, nil
}

// Regions returns every region in registry order.
// The returned slice must not be mutated.
func (reg *Registry) Regions() []*Region { return reg.order }

// RegionsOf returns the regions belonging to a set, in registry order.
func (reg *Registry) RegionsOf(setID string) ([]*Region, error) {
	if _, ok := reg.sets[setID]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRegionSet, setID)
	}
	return reg.bySet[setID], nil
}

// Sets returns every region set id except the universal one, roots first in
// no particular order among siblings.
func (reg *Registry) Sets() []*Set {
	out := make([]*Set, 0, len(reg.sets)-1)
	for _, s := range reg.sets {
		if !s.IsAny() {
			out = append(out, s)
		}
	}
	return out
}

// DefaultRegion returns the region resolved when a request names none.
func (reg *Registry) DefaultRegion() *Region { return reg.defaultRegion }

// IsHigher reports whether a is a strict ancestor of b in the set forest.
// It is irreflexive and anti-symmetric; the universal set is never higher or
// lower than anything (universal matching is handled upstream as equality).
func (reg *Registry) IsHigher(a, b *Set) bool {
	if a == nil || b == nil || a.IsAny() || b.IsAny() {
		return false
	}
	for cur := b.parent; cur != nil; cur = cur.parent {
		if cur.id == a.id {
			return true
		}
	}
	return false
}
