package domain

// Grid is a dense voxel-grid Image anchored in world coordinates. It backs the
// built-in template factories, the demo plugins, and the result codec.
type Grid struct {
	bounds Bounds
	data   []float64
}

// NewGrid creates a blank grid covering the given box.
func NewGrid(b Bounds) *Grid {
	if b.IsZero() {
		return &Grid{}
	}
	return &Grid{bounds: b, data: make([]float64, b.Size())}
}

// NewGridFilled creates a grid covering the box with every voxel set to v.
// A filled grid is the usual shape of a region template mask.
func NewGridFilled(b Bounds, v float64) *Grid {
	g := NewGrid(b)
	g.Fill(v)
	return g
}

func (g *Grid) index(x, y, z int) int {
	dx := g.bounds.Max[0] - g.bounds.Min[0]
	dy := g.bounds.Max[1] - g.bounds.Min[1]
	return (z-g.bounds.Min[2])*dx*dy + (y-g.bounds.Min[1])*dx + (x - g.bounds.Min[0])
}

// At returns the voxel value at a world coordinate, zero outside bounds.
func (g *Grid) At(x, y, z int) float64 {
	if !g.bounds.Contains(x, y, z) {
		return 0
	}
	return g.data[g.index(x, y, z)]
}

// Set writes a voxel value at a world coordinate. Writes outside bounds are ignored.
func (g *Grid) Set(x, y, z int, v float64) {
	if !g.bounds.Contains(x, y, z) {
		return
	}
	g.data[g.index(x, y, z)] = v
}

// Fill sets every voxel to v.
func (g *Grid) Fill(v float64) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Bounds returns the grid's bounding box.
func (g *Grid) Bounds() Bounds { return g.bounds }

// Duplicate returns an independent deep copy.
func (g *Grid) Duplicate() Image {
	dup := &Grid{bounds: g.bounds, data: make([]float64, len(g.data))}
	copy(dup.data, g.data)
	return dup
}

// ResizeToMatch re-bases the grid onto the template's bounding box. Voxels are
// carried over by world coordinate where the old and new boxes overlap.
func (g *Grid) ResizeToMatch(template Image) {
	nb := template.Bounds()
	next := NewGrid(nb)
	overlap := g.bounds.Intersect(nb)
	for z := overlap.Min[2]; z < overlap.Max[2]; z++ {
		for y := overlap.Min[1]; y < overlap.Max[1]; y++ {
			for x := overlap.Min[0]; x < overlap.Max[0]; x++ {
				next.data[next.index(x, y, z)] = g.data[g.index(x, y, z)]
			}
		}
	}
	g.bounds = next.bounds
	g.data = next.data
}

// Clear blanks every voxel.
func (g *Grid) Clear() {
	for i := range g.data {
		g.data[i] = 0
	}
}

// CompositeFrom writes src voxels into the grid wherever mask is non-zero.
// With useAsTemplate the mask defines the full extent: voxels where the mask
// is zero are blanked instead of left untouched.
func (g *Grid) CompositeFrom(src, mask Image, useAsTemplate bool) {
	for z := g.bounds.Min[2]; z < g.bounds.Max[2]; z++ {
		for y := g.bounds.Min[1]; y < g.bounds.Max[1]; y++ {
			for x := g.bounds.Min[0]; x < g.bounds.Max[0]; x++ {
				if mask.At(x, y, z) != 0 {
					g.data[g.index(x, y, z)] = src.At(x, y, z)
				} else if useAsTemplate {
					g.data[g.index(x, y, z)] = 0
				}
			}
		}
	}
}

// Empty reports whether no voxel is non-zero.
func (g *Grid) Empty() bool {
	for _, v := range g.data {
		if v != 0 {
			return false
		}
	}
	return true
}

// NonZero counts voxels with a non-zero value.
func (g *Grid) NonZero() int {
	n := 0
	for _, v := range g.data {
		if v != 0 {
			n++
		}
	}
	return n
}

var _ Image = (*Grid)(nil)
