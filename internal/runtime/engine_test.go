package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunglab/parcellate/pkg/adapters/memory"
	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/ports"
)

// recordingExec runs every request inline and records which regions were hit,
// so tests can assert exactly how often and where plugin bodies execute.
type recordingExec struct {
	mu    sync.Mutex
	calls []string
}

func (x *recordingExec) Run(ctx context.Context, req ports.ExecRequest) (domain.Result, bool, *domain.CacheInfo, error) {
	x.mu.Lock()
	x.calls = append(x.calls, req.Region)
	x.mu.Unlock()

	res, err := req.Impl(ctx, domain.PluginRequest{
		Region:    req.Region,
		Dataset:   req.Dataset,
		Args:      req.Args,
		Templates: req.Templates,
	})
	if err != nil {
		return nil, false, nil, err
	}
	return res, true, domain.NewCacheInfo(req.Plugin.Name, req.Region, false), nil
}

func (x *recordingExec) regions() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.calls...)
}

func newTestEngine(t *testing.T) (*Engine, *recordingExec, *memory.TemplateStore) {
	t.Helper()
	reg := hierarchy.Default()
	exec := &recordingExec{}
	store := memory.NewTemplateStore(reg)
	return NewEngine(reg, exec, store), exec, store
}

func valuePlugin(name, nativeSet string) (domain.Descriptor, domain.PluginFunc) {
	desc := domain.Descriptor{Name: name, NativeSet: nativeSet}
	impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		return domain.Value{V: req.Region}, nil
	}
	return desc, impl
}

// maskPlugin fills the running region's template with a constant value.
func maskPlugin(name, nativeSet string, value func(region string) float64) (domain.Descriptor, domain.PluginFunc) {
	desc := domain.Descriptor{
		Name:      name,
		NativeSet: nativeSet,
		GenerateImage: func(res domain.Result, lookup domain.TemplateLookup) (domain.Image, error) {
			img, _ := domain.AsImage(res)
			return img, nil
		},
	}
	impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		tpl, err := req.Templates(req.Region)
		if err != nil {
			return nil, err
		}
		out := tpl.Duplicate()
		out.Clear()
		out.CompositeFrom(domain.NewGridFilled(tpl.Bounds(), value(req.Region)), tpl, false)
		return domain.ImageResult{Image: out}, nil
	}
	return desc, impl
}

func TestResolveDirect(t *testing.T) {
	e, exec, _ := newTestEngine(t)
	desc, impl := valuePlugin("stats", hierarchy.SetLung)

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Target: hierarchy.LeftLung, Dataset: "ct1", AllowCaching: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{hierarchy.LeftLung}, exec.regions())
	assert.Equal(t, domain.Value{V: hierarchy.LeftLung}, out.Result)
	assert.True(t, out.WasRun)
	require.NotNil(t, out.CacheInfo)
	assert.Equal(t, hierarchy.LeftLung, out.CacheInfo.Region)
	assert.NotEmpty(t, out.CacheInfo.RunID)
}

func TestResolveUniversalPluginIsAlwaysDirect(t *testing.T) {
	e, exec, _ := newTestEngine(t)
	desc, impl := valuePlugin("anywhere", hierarchy.Any)

	for _, target := range []string{hierarchy.WholeImage, hierarchy.BothLungs, hierarchy.RightLowerLobe} {
		out, err := e.Resolve(context.Background(), Request{
			Plugin: desc, Impl: impl, Target: target, Dataset: "ct1", AllowCaching: true,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.Value{V: target}, out.Result)
	}
	assert.Equal(t, []string{hierarchy.WholeImage, hierarchy.BothLungs, hierarchy.RightLowerLobe}, exec.regions())
}

func TestResolveCompositesBroaderRequest(t *testing.T) {
	e, exec, _ := newTestEngine(t)
	desc, impl := valuePlugin("stats", hierarchy.SetLung)

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Target: hierarchy.BothLungs, Dataset: "ct1", AllowCaching: true,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{hierarchy.LeftLung, hierarchy.RightLung}, exec.regions())

	comp, ok := out.Result.(domain.Composite)
	require.True(t, ok, "broader request yields a composite, got %T", out.Result)
	require.Len(t, comp, 2)
	assert.Equal(t, domain.Value{V: hierarchy.LeftLung}, comp[hierarchy.LeftLung])
	assert.Equal(t, domain.Value{V: hierarchy.RightLung}, comp[hierarchy.RightLung])

	assert.True(t, out.WasRun)
	require.NotNil(t, out.CacheInfo)
	assert.Equal(t, hierarchy.BothLungs, out.CacheInfo.Region)
	assert.Contains(t, out.CacheInfo.Children, hierarchy.LeftLung)
	assert.Contains(t, out.CacheInfo.Children, hierarchy.RightLung)
}

func TestResolveReducesFinerRequest(t *testing.T) {
	e, exec, store := newTestEngine(t)

	// Native to the paired-lungs tier, the body runs once over both lungs.
	// A left-upper-lobe request then crops that single result down twice.
	captured := domain.NewGridFilled(
		domain.Bounds{Min: [3]int{8, 8, 8}, Max: [3]int{56, 56, 40}}, 1)
	desc := domain.Descriptor{Name: "density", NativeSet: hierarchy.SetLungs}
	impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		return domain.ImageResult{Image: captured}, nil
	}

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Target: hierarchy.LeftUpperLobe, Dataset: "ct1", AllowCaching: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{hierarchy.BothLungs}, exec.regions(), "one broad execution serves the finer request")

	img, ok := domain.AsImage(out.Result)
	require.True(t, ok)
	grid := img.(*domain.Grid)
	lobe := domain.Bounds{Min: [3]int{8, 8, 8}, Max: [3]int{30, 32, 40}}
	assert.Equal(t, lobe, grid.Bounds(), "result is framed to the requested lobe")
	assert.Equal(t, lobe.Size(), grid.NonZero())
	assert.Equal(t, 1.0, grid.At(10, 10, 10))
	assert.Equal(t, 0.0, grid.At(40, 10, 10), "voxels outside the lobe are gone")

	// Provenance and run state of the broad execution carry through unchanged.
	assert.True(t, out.WasRun)
	require.NotNil(t, out.CacheInfo)
	assert.Equal(t, hierarchy.BothLungs, out.CacheInfo.Region)

	// Reduction never touches the plugin's own result.
	assert.Equal(t, 48*48*32, captured.NonZero())

	// Every region on the climb was announced to the template provider.
	assert.Equal(t, 1, store.Attempts("density", hierarchy.LeftUpperLobe))
	assert.Equal(t, 1, store.Attempts("density", hierarchy.LeftLung))
	assert.Equal(t, 1, store.Attempts("density", hierarchy.BothLungs))
}

func TestResolveReducePassesOpaqueValuesThrough(t *testing.T) {
	e, exec, _ := newTestEngine(t)
	desc, impl := valuePlugin("stats", hierarchy.SetLungs)

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Target: hierarchy.LeftLung, Dataset: "ct1", AllowCaching: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{hierarchy.BothLungs}, exec.regions())
	assert.Equal(t, domain.Value{V: hierarchy.BothLungs}, out.Result, "opaque values cannot be cropped")
}

func TestResolveCompositeImagePaintsDisjointChildren(t *testing.T) {
	e, _, _ := newTestEngine(t)
	values := map[string]float64{hierarchy.LeftLung: 1, hierarchy.RightLung: 2}
	desc, impl := maskPlugin("paint", hierarchy.SetLung, func(region string) float64 {
		return values[region]
	})

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Target: hierarchy.BothLungs, Dataset: "ct1",
		GenerateImage: true, AllowCaching: true,
	})
	require.NoError(t, err)

	require.NotNil(t, out.Image)
	assert.Equal(t, domain.Bounds{Min: [3]int{8, 8, 8}, Max: [3]int{56, 56, 40}}, out.Image.Bounds())
	assert.Equal(t, 1.0, out.Image.At(10, 10, 10), "left lung voxel")
	assert.Equal(t, 2.0, out.Image.At(40, 10, 10), "right lung voxel")
	assert.Equal(t, 0.0, out.Image.At(32, 10, 10), "gap between the lungs stays blank")
}

func TestResolveRegionSetTarget(t *testing.T) {
	e, exec, _ := newTestEngine(t)
	desc, impl := valuePlugin("stats", hierarchy.SetLung)

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Target: hierarchy.SetLung, Dataset: "ct1",
		GenerateImage: true, AllowCaching: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{hierarchy.LeftLung, hierarchy.RightLung}, exec.regions(), "registry order")

	comp, ok := out.Result.(domain.Composite)
	require.True(t, ok)
	assert.Len(t, comp, 2)
	assert.Nil(t, out.Image, "top-level set expansion never merges output images")
	require.NotNil(t, out.CacheInfo)
	assert.Equal(t, hierarchy.SetLung, out.CacheInfo.Region)
}

func TestResolveDefaultsToConfiguredRegion(t *testing.T) {
	e, exec, _ := newTestEngine(t)
	desc, impl := valuePlugin("stats", "")

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Dataset: "ct1", AllowCaching: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{hierarchy.ROI}, exec.regions())
	assert.Equal(t, domain.Value{V: hierarchy.ROI}, out.Result)
}

func TestResolveErrors(t *testing.T) {
	t.Run("Unknown Target", func(t *testing.T) {
		e, exec, _ := newTestEngine(t)
		desc, impl := valuePlugin("stats", hierarchy.SetLung)

		_, err := e.Resolve(context.Background(), Request{
			Plugin: desc, Impl: impl, Target: "spleen", Dataset: "ct1",
		})
		assert.ErrorIs(t, err, domain.ErrUnknownRequestedRegion)
		assert.Empty(t, exec.regions())
	})

	t.Run("Unknown Native Set", func(t *testing.T) {
		e, exec, _ := newTestEngine(t)
		desc, impl := valuePlugin("stats", "bogus-set")

		_, err := e.Resolve(context.Background(), Request{
			Plugin: desc, Impl: impl, Target: hierarchy.LeftLung, Dataset: "ct1",
		})
		assert.ErrorIs(t, err, domain.ErrUnknownRegionSet)
		assert.Empty(t, exec.regions())
	})

	t.Run("Unrelated Region Sets", func(t *testing.T) {
		reg, err := hierarchy.New(hierarchy.Def{
			Sets: []hierarchy.SetDef{
				{ID: "body"},
				{ID: "organ", Parent: "body"},
				{ID: "device"},
			},
			Regions: []hierarchy.RegionDef{
				{ID: "torso", Set: "body"},
				{ID: "heart", Set: "organ", Parent: "torso"},
				{ID: "probe", Set: "device"},
			},
		})
		require.NoError(t, err)

		exec := &recordingExec{}
		e := NewEngine(reg, exec, memory.NewTemplateStore(reg))
		desc, impl := valuePlugin("telemetry", "device")

		_, err = e.Resolve(context.Background(), Request{
			Plugin: desc, Impl: impl, Target: "heart", Dataset: "ct1",
		})
		assert.ErrorIs(t, err, domain.ErrUnrelatedRegionSets)
		assert.Empty(t, exec.regions(), "no plugin body runs when sets are unrelated")
	})

	t.Run("Plugin Failure Names Plugin And Region", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		desc := domain.Descriptor{Name: "broken", NativeSet: hierarchy.SetLung}
		impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
			return nil, assert.AnError
		}

		_, err := e.Resolve(context.Background(), Request{
			Plugin: desc, Impl: impl, Target: hierarchy.LeftLung, Dataset: "ct1",
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, `plugin "broken" failed on region "left-lung"`)
	})

	t.Run("Child Failure Aborts Composite", func(t *testing.T) {
		e, exec, _ := newTestEngine(t)
		desc := domain.Descriptor{Name: "flaky", NativeSet: hierarchy.SetLung}
		impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
			if req.Region == hierarchy.LeftLung {
				return nil, assert.AnError
			}
			return domain.Value{V: req.Region}, nil
		}

		_, err := e.Resolve(context.Background(), Request{
			Plugin: desc, Impl: impl, Target: hierarchy.BothLungs, Dataset: "ct1",
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, []string{hierarchy.LeftLung}, exec.regions(), "first failing child stops the walk")
	})
}

func TestResolvePreviewForcesImageOnFreshRunOnly(t *testing.T) {
	reg := hierarchy.Default()
	store := memory.NewTemplateStore(reg)
	e := NewEngine(reg, memory.NewExecutor(), store)

	desc, impl := maskPlugin("preview", hierarchy.SetLung, func(string) float64 { return 1 })
	desc.WantsPreview = true

	req := Request{Plugin: desc, Impl: impl, Target: hierarchy.LeftLung, Dataset: "ct1", AllowCaching: true}

	fresh, err := e.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, fresh.WasRun)
	assert.NotNil(t, fresh.Image, "preview plugins image every fresh run")

	cached, err := e.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, cached.WasRun)
	assert.Nil(t, cached.Image, "replays skip the preview unless the caller asks")
	require.NotNil(t, cached.CacheInfo)
	assert.True(t, cached.CacheInfo.FromCache)
}

func TestResolveGeneratorGetsAnIsolatedResult(t *testing.T) {
	e, _, _ := newTestEngine(t)

	desc := domain.Descriptor{
		Name:      "greedy",
		NativeSet: hierarchy.SetLung,
		GenerateImage: func(res domain.Result, lookup domain.TemplateLookup) (domain.Image, error) {
			img, _ := domain.AsImage(res)
			img.Clear() // a misbehaving generator
			return img, nil
		},
	}
	impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		tpl, err := req.Templates(req.Region)
		if err != nil {
			return nil, err
		}
		return domain.ImageResult{Image: tpl}, nil
	}

	out, err := e.Resolve(context.Background(), Request{
		Plugin: desc, Impl: impl, Target: hierarchy.LeftLung, Dataset: "ct1",
		GenerateImage: true, AllowCaching: true,
	})
	require.NoError(t, err)

	res, ok := domain.AsImage(out.Result)
	require.True(t, ok)
	assert.False(t, res.Empty(), "the result survives a generator that clears its input")
	assert.True(t, out.Image.Empty())
}
