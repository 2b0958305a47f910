package domain

import "errors"

// ErrUnknownRegion is returned when a region identifier is not registered in the hierarchy.
var ErrUnknownRegion = errors.New("unknown region")

// ErrUnknownRegionSet is returned when a region set identifier is not registered in the hierarchy.
var ErrUnknownRegionSet = errors.New("unknown region set")

// ErrUnknownRequestedRegion is returned when a requested identifier matches
// neither a region nor a region set.
var ErrUnknownRequestedRegion = errors.New("requested identifier is neither a region nor a region set")

// ErrMissingAncestor is returned when resolution needs to climb to a parent
// region that does not exist.
var ErrMissingAncestor = errors.New("region has no parent region")

// ErrUnrelatedRegionSets is returned when no ancestor/descendant relationship
// exists between a plugin's native region set and the requested region's set.
var ErrUnrelatedRegionSets = errors.New("plugin and requested region sets are unrelated")

// ErrUnknownPlugin is returned when a plugin name is not present in the registry.
var ErrUnknownPlugin = errors.New("unknown plugin")
