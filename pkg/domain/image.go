package domain

// Bounds is an axis-aligned voxel box in world coordinates.
// Min is inclusive, Max is exclusive.
type Bounds struct {
	Min [3]int `json:"min"`
	Max [3]int `json:"max"`
}

// Size returns the number of voxels covered by the box.
func (b Bounds) Size() int {
	if b.IsZero() {
		return 0
	}
	return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1]) * (b.Max[2] - b.Min[2])
}

// IsZero reports whether the box covers no voxels.
func (b Bounds) IsZero() bool {
	return b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] || b.Max[2] <= b.Min[2]
}

// Contains reports whether the world coordinate p lies inside the box.
func (b Bounds) Contains(x, y, z int) bool {
	return x >= b.Min[0] && x < b.Max[0] &&
		y >= b.Min[1] && y < b.Max[1] &&
		z >= b.Min[2] && z < b.Max[2]
}

// Intersect returns the overlap of two boxes. The result may be zero.
func (b Bounds) Intersect(o Bounds) Bounds {
	r := Bounds{
		Min: [3]int{max(b.Min[0], o.Min[0]), max(b.Min[1], o.Min[1]), max(b.Min[2], o.Min[2])},
		Max: [3]int{min(b.Max[0], o.Max[0]), min(b.Max[1], o.Max[1]), min(b.Max[2], o.Max[2])},
	}
	if r.IsZero() {
		return Bounds{}
	}
	return r
}

// Image is the minimal capability set the resolution core needs from a
// volumetric value: duplication, re-basing onto a template's frame, blanking,
// masked compositing, and voxel access by world coordinate.
//
// Implementations are not safe for concurrent mutation; the resolution engine
// never shares a mutable image across recursive branches.
type Image interface {
	// Duplicate returns an independent deep copy.
	Duplicate() Image

	// ResizeToMatch re-bases the image onto the template's bounding box,
	// preserving voxel values by world coordinate where the boxes overlap.
	ResizeToMatch(template Image)

	// Clear blanks every voxel.
	Clear()

	// CompositeFrom writes src voxels into the receiver wherever mask is
	// non-zero (by world coordinate). With useAsTemplate, the mask also defines
	// the full extent: voxels where the mask is zero are blanked.
	CompositeFrom(src, mask Image, useAsTemplate bool)

	// Empty reports whether the image denotes no region (no non-zero voxel).
	Empty() bool

	// Bounds returns the image's bounding box in world coordinates.
	Bounds() Bounds

	// At returns the voxel value at a world coordinate, zero outside bounds.
	At(x, y, z int) float64
}
