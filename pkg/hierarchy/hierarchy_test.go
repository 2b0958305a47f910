package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lunglab/parcellate/pkg/domain"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		def     Def
		wantErr string
	}{
		{
			name:    "duplicate set",
			def:     Def{Sets: []SetDef{{ID: "a"}, {ID: "a"}}},
			wantErr: `duplicate region set "a"`,
		},
		{
			name:    "unknown set parent",
			def:     Def{Sets: []SetDef{{ID: "a", Parent: "missing"}}},
			wantErr: "unknown region set",
		},
		{
			name:    "set under universal",
			def:     Def{Sets: []SetDef{{ID: "a", Parent: Any}}},
			wantErr: "cannot descend from the universal set",
		},
		{
			name:    "set parent cycle",
			def:     Def{Sets: []SetDef{{ID: "a", Parent: "b"}, {ID: "b", Parent: "a"}}},
			wantErr: "parent cycle",
		},
		{
			name: "region in unknown set",
			def: Def{
				Sets:    []SetDef{{ID: "a"}},
				Regions: []RegionDef{{ID: "r", Set: "missing"}},
			},
			wantErr: "unknown region set",
		},
		{
			name: "region in universal set",
			def: Def{
				Sets:    []SetDef{{ID: "a"}},
				Regions: []RegionDef{{ID: "r", Set: Any}},
			},
			wantErr: "cannot belong to the universal set",
		},
		{
			name: "region parent declared later",
			def: Def{
				Sets: []SetDef{{ID: "a"}, {ID: "b", Parent: "a"}},
				Regions: []RegionDef{
					{ID: "child", Set: "b", Parent: "root"},
					{ID: "root", Set: "a"},
				},
			},
			wantErr: "parents must be declared first",
		},
		{
			name: "region parent in wrong tier",
			def: Def{
				Sets: []SetDef{{ID: "a"}, {ID: "b", Parent: "a"}, {ID: "c", Parent: "b"}},
				Regions: []RegionDef{
					{ID: "root", Set: "a"},
					{ID: "grandchild", Set: "c", Parent: "root"},
				},
			},
			wantErr: "expected parent set",
		},
		{
			name: "orphan region in non-root set",
			def: Def{
				Sets:    []SetDef{{ID: "a"}, {ID: "b", Parent: "a"}},
				Regions: []RegionDef{{ID: "r", Set: "b"}},
			},
			wantErr: "must declare a parent region",
		},
		{
			name: "unknown default region",
			def: Def{
				Sets:          []SetDef{{ID: "a"}},
				Regions:       []RegionDef{{ID: "r", Set: "a"}},
				DefaultRegion: "missing",
			},
			wantErr: "unknown region",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	t.Run("Lookups", func(t *testing.T) {
		left, err := reg.Region(LeftLung)
		require.NoError(t, err)
		assert.Equal(t, SetLung, left.Set().ID())
		assert.Equal(t, BothLungs, left.Parent().ID())

		_, err = reg.Region("spleen")
		assert.ErrorIs(t, err, domain.ErrUnknownRegion)

		_, err = reg.Set("bogus")
		assert.ErrorIs(t, err, domain.ErrUnknownRegionSet)

		assert.Equal(t, ROI, reg.DefaultRegion().ID())
	})

	t.Run("Universal Set Exists", func(t *testing.T) {
		s, err := reg.Set(Any)
		require.NoError(t, err)
		assert.True(t, s.IsAny())
	})

	t.Run("RegionsOf Preserves Declaration Order", func(t *testing.T) {
		lungs, err := reg.RegionsOf(SetLung)
		require.NoError(t, err)
		require.Len(t, lungs, 2)
		assert.Equal(t, LeftLung, lungs[0].ID())
		assert.Equal(t, RightLung, lungs[1].ID())
	})

	t.Run("Children In Declaration Order", func(t *testing.T) {
		right, err := reg.Region(RightLung)
		require.NoError(t, err)
		ids := make([]string, 0, 3)
		for _, c := range right.Children() {
			ids = append(ids, c.ID())
		}
		assert.Equal(t, []string{RightUpperLobe, RightMiddleLobe, RightLowerLobe}, ids)
	})

	t.Run("Sibling Templates Are Disjoint", func(t *testing.T) {
		parent, err := reg.Region(BothLungs)
		require.NoError(t, err)
		left := parent.Children()[0].Template("ds")
		right := parent.Children()[1].Template("ds")

		union := left.Bounds().Intersect(right.Bounds())
		for z := union.Min[2]; z < union.Max[2]; z++ {
			for y := union.Min[1]; y < union.Max[1]; y++ {
				for x := union.Min[0]; x < union.Max[0]; x++ {
					if left.At(x, y, z) != 0 && right.At(x, y, z) != 0 {
						t.Fatalf("masks overlap at (%d,%d,%d)", x, y, z)
					}
				}
			}
		}
	})

	t.Run("Parent Mask Covers Children", func(t *testing.T) {
		parent, err := reg.Region(BothLungs)
		require.NoError(t, err)
		tpl := parent.Template("ds")
		for _, child := range parent.Children() {
			sub := child.Template("ds")
			b := sub.Bounds()
			for z := b.Min[2]; z < b.Max[2]; z++ {
				for y := b.Min[1]; y < b.Max[1]; y++ {
					for x := b.Min[0]; x < b.Max[0]; x++ {
						if sub.At(x, y, z) != 0 && tpl.At(x, y, z) == 0 {
							t.Fatalf("child %s exceeds parent mask at (%d,%d,%d)", child.ID(), x, y, z)
						}
					}
				}
			}
		}
	})
}

func TestIsHigher(t *testing.T) {
	reg := Default()

	set := func(id string) *Set {
		s, err := reg.Set(id)
		require.NoError(t, err)
		return s
	}

	assert.True(t, reg.IsHigher(set(SetLungs), set(SetLobe)), "ancestry is transitive")
	assert.True(t, reg.IsHigher(set(SetLung), set(SetLobe)))
	assert.False(t, reg.IsHigher(set(SetLobe), set(SetLung)))
	assert.False(t, reg.IsHigher(set(SetLung), set(SetLung)), "irreflexive")
	assert.False(t, reg.IsHigher(set(Any), set(SetLobe)), "universal relates to nothing")
	assert.False(t, reg.IsHigher(set(SetLobe), set(Any)))
	assert.False(t, reg.IsHigher(nil, set(SetLobe)))
}

func TestIsHigherProperties(t *testing.T) {
	reg := Default()
	sets := reg.Sets()

	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.SampledFrom(sets).Draw(rt, "a")
		b := rapid.SampledFrom(sets).Draw(rt, "b")

		if a == b {
			if reg.IsHigher(a, b) {
				rt.Fatalf("IsHigher(%s, %s) must be irreflexive", a.ID(), b.ID())
			}
			return
		}
		if reg.IsHigher(a, b) && reg.IsHigher(b, a) {
			rt.Fatalf("IsHigher is not anti-symmetric for %s and %s", a.ID(), b.ID())
		}
		// The built-in hierarchy is a single chain, so distinct non-universal
		// sets are always related in exactly one direction.
		if reg.IsHigher(a, b) == reg.IsHigher(b, a) {
			rt.Fatalf("%s and %s should be related in exactly one direction", a.ID(), b.ID())
		}
	})
}
