package hierarchy

import "github.com/lunglab/parcellate/pkg/domain"

// Region set identifiers of the built-in anatomical hierarchy.
const (
	SetWholeImage = "whole-image"
	SetROI        = "roi"
	SetLungs      = "lungs"
	SetLung       = "lung"
	SetLobe       = "lobe"
)

// Region identifiers of the built-in anatomical hierarchy.
const (
	WholeImage      = "whole-image"
	ROI             = "roi"
	BothLungs       = "both-lungs"
	LeftLung        = "left-lung"
	RightLung       = "right-lung"
	LeftUpperLobe   = "left-upper-lobe"
	LeftLowerLobe   = "left-lower-lobe"
	RightUpperLobe  = "right-upper-lobe"
	RightMiddleLobe = "right-middle-lobe"
	RightLowerLobe  = "right-lower-lobe"
)

// Synthetic geometry for the built-in templates, in a 64³ world. The two lungs
// are disjoint boxes; lobes partition their lung along y. Disjointness matters:
// composition paints each child through its own mask and is only correct when
// sibling masks do not overlap.
var (
	wholeImageBox = box(0, 0, 0, 64, 64, 64)
	roiBox        = box(4, 4, 4, 60, 60, 60)

	leftLungBox  = box(8, 8, 8, 30, 56, 40)
	rightLungBox = box(34, 8, 8, 56, 56, 40)

	leftUpperBox  = box(8, 8, 8, 30, 32, 40)
	leftLowerBox  = box(8, 32, 8, 30, 56, 40)
	rightUpperBox = box(34, 8, 8, 56, 24, 40)
	rightMidBox   = box(34, 24, 8, 56, 40, 40)
	rightLowerBox = box(34, 40, 8, 56, 56, 40)
)

func box(x0, y0, z0, x1, y1, z1 int) domain.Bounds {
	return domain.Bounds{Min: [3]int{x0, y0, z0}, Max: [3]int{x1, y1, z1}}
}

// BoxTemplate returns a factory producing a fully filled mask over b.
func BoxTemplate(b domain.Bounds) TemplateFactory {
	return func(string) domain.Image {
		return domain.NewGridFilled(b, 1)
	}
}

// MaskTemplate returns a factory producing a mask bounded by b and filled only
// inside the given sub-boxes.
func MaskTemplate(b domain.Bounds, filled ...domain.Bounds) TemplateFactory {
	return func(string) domain.Image {
		g := domain.NewGrid(b)
		for _, f := range filled {
			inner := b.Intersect(f)
			for z := inner.Min[2]; z < inner.Max[2]; z++ {
				for y := inner.Min[1]; y < inner.Max[1]; y++ {
					for x := inner.Min[0]; x < inner.Max[0]; x++ {
						g.Set(x, y, z, 1)
					}
				}
			}
		}
		return g
	}
}

// DefaultDef returns the definition of the built-in anatomical hierarchy:
// whole-image → roi → paired lungs → single lung → lobe.
func DefaultDef() Def {
	bothLungsBounds := box(8, 8, 8, 56, 56, 40)
	return Def{
		Sets: []SetDef{
			{ID: SetWholeImage},
			{ID: SetROI, Parent: SetWholeImage},
			{ID: SetLungs, Parent: SetROI},
			{ID: SetLung, Parent: SetLungs},
			{ID: SetLobe, Parent: SetLung},
		},
		Regions: []RegionDef{
			{ID: WholeImage, Set: SetWholeImage, Template: BoxTemplate(wholeImageBox)},
			{ID: ROI, Set: SetROI, Parent: WholeImage, Template: BoxTemplate(roiBox)},
			{ID: BothLungs, Set: SetLungs, Parent: ROI, Template: MaskTemplate(bothLungsBounds, leftLungBox, rightLungBox)},
			{ID: LeftLung, Set: SetLung, Parent: BothLungs, Template: BoxTemplate(leftLungBox)},
			{ID: RightLung, Set: SetLung, Parent: BothLungs, Template: BoxTemplate(rightLungBox)},
			{ID: LeftUpperLobe, Set: SetLobe, Parent: LeftLung, Template: BoxTemplate(leftUpperBox)},
			{ID: LeftLowerLobe, Set: SetLobe, Parent: LeftLung, Template: BoxTemplate(leftLowerBox)},
			{ID: RightUpperLobe, Set: SetLobe, Parent: RightLung, Template: BoxTemplate(rightUpperBox)},
			{ID: RightMiddleLobe, Set: SetLobe, Parent: RightLung, Template: BoxTemplate(rightMidBox)},
			{ID: RightLowerLobe, Set: SetLobe, Parent: RightLung, Template: BoxTemplate(rightLowerBox)},
		},
		DefaultRegion: ROI,
	}
}

// Default builds the built-in anatomical hierarchy. It panics on error since
// the definition is a compile-time constant validated by tests.
func Default() *Registry {
	reg, err := New(DefaultDef())
	if err != nil {
		panic("hierarchy: invalid built-in definition: " + err.Error())
	}
	return reg
}
