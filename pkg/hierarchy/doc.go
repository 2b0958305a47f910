// Package hierarchy defines the region registry: immutable forests of region
// sets (granularity tiers) and concrete regions, validated once at
// construction. It also hosts the ancestor comparator that drives the
// resolution engine's branch decisions, the built-in anatomical hierarchy,
// and a YAML loader for custom hierarchies.
package hierarchy
