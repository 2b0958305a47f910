package ports

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunglab/parcellate/pkg/domain"
)

// RunExecutorContract verifies that an Executor implementation honors the
// memoization and single-flight guarantees of the interface. Adapters call it
// from their own test files with a fresh executor per invocation.
func RunExecutorContract(t *testing.T, newExecutor func(t *testing.T) Executor) {
	ctx := context.Background()

	counting := func(runs *atomic.Int64) ExecRequest {
		return ExecRequest{
			Plugin: domain.Descriptor{Name: "contract-plugin"},
			Impl: func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
				runs.Add(1)
				return domain.Value{V: "computed:" + req.Region}, nil
			},
			Region:       "left-lung",
			Dataset:      "contract-dataset",
			AllowCaching: true,
		}
	}

	t.Run("Run and Memoize", func(t *testing.T) {
		exec := newExecutor(t)
		var runs atomic.Int64
		req := counting(&runs)

		res, wasRun, info, err := exec.Run(ctx, req)
		require.NoError(t, err)
		assert.True(t, wasRun, "first run should execute the plugin body")
		require.NotNil(t, info)
		assert.False(t, info.FromCache)
		// JSON-backed caches may round-trip the value; only its content is contractual.
		assert.Equal(t, domain.Value{V: "computed:left-lung"}, res)

		res, wasRun, info, err = exec.Run(ctx, req)
		require.NoError(t, err)
		assert.False(t, wasRun, "second run should be served from cache")
		require.NotNil(t, info)
		assert.True(t, info.FromCache)
		assert.Equal(t, domain.Value{V: "computed:left-lung"}, res)

		assert.EqualValues(t, 1, runs.Load())
	})

	t.Run("AllowCaching False Reruns", func(t *testing.T) {
		exec := newExecutor(t)
		var runs atomic.Int64
		req := counting(&runs)

		_, _, _, err := exec.Run(ctx, req)
		require.NoError(t, err)

		req.AllowCaching = false
		_, wasRun, _, err := exec.Run(ctx, req)
		require.NoError(t, err)
		assert.True(t, wasRun, "caching disabled must force a fresh run")
		assert.EqualValues(t, 2, runs.Load())
	})

	t.Run("Distinct Keys Run Independently", func(t *testing.T) {
		exec := newExecutor(t)
		var runs atomic.Int64
		req := counting(&runs)

		_, _, _, err := exec.Run(ctx, req)
		require.NoError(t, err)

		other := req
		other.Region = "right-lung"
		_, wasRun, _, err := exec.Run(ctx, other)
		require.NoError(t, err)
		assert.True(t, wasRun)
		assert.EqualValues(t, 2, runs.Load())
	})

	t.Run("Single Flight Per Key", func(t *testing.T) {
		exec := newExecutor(t)
		var runs atomic.Int64
		gate := make(chan struct{})
		req := ExecRequest{
			Plugin: domain.Descriptor{Name: "contract-slow"},
			Impl: func(ctx context.Context, _ domain.PluginRequest) (domain.Result, error) {
				runs.Add(1)
				<-gate
				return domain.Value{V: 42.0}, nil
			},
			Region:       "roi",
			Dataset:      "contract-dataset",
			AllowCaching: true,
		}

		const callers = 8
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, _, errs[i] = exec.Run(ctx, req)
			}(i)
		}
		close(gate)
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		assert.EqualValues(t, 1, runs.Load(), "concurrent callers of one key must share a single execution")
	})

	t.Run("Plugin Error Propagates", func(t *testing.T) {
		exec := newExecutor(t)
		boom := errors.New("plugin exploded")
		req := ExecRequest{
			Plugin: domain.Descriptor{Name: "contract-failing"},
			Impl: func(ctx context.Context, _ domain.PluginRequest) (domain.Result, error) {
				return nil, boom
			},
			Region:       "roi",
			Dataset:      "contract-dataset",
			AllowCaching: true,
		}
		_, _, _, err := exec.Run(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}

// TemplateProviderFixture names the regions a TemplateProvider under contract
// test must expose: one with a known template and one whose template is not
// yet known.
type TemplateProviderFixture struct {
	Provider        TemplateProvider
	TemplatedRegion string
	BlankRegion     string
	Dataset         string
}

// RunTemplateProviderContract verifies a TemplateProvider implementation:
// known templates are served isolated from callers, unknown templates are a
// nil/nil pair, and templates are learned only from freshly run image results.
func RunTemplateProviderContract(t *testing.T, newFixture func(t *testing.T) TemplateProviderFixture) {
	ctx := context.Background()

	t.Run("Serves Known Templates Isolated", func(t *testing.T) {
		f := newFixture(t)
		tpl, err := f.Provider.Template(ctx, f.TemplatedRegion, f.Dataset)
		require.NoError(t, err)
		require.NotNil(t, tpl)
		require.False(t, tpl.Empty())

		tpl.Clear()
		again, err := f.Provider.Template(ctx, f.TemplatedRegion, f.Dataset)
		require.NoError(t, err)
		assert.False(t, again.Empty(), "callers must not be able to corrupt stored templates")
	})

	t.Run("Unknown Template Is Nil", func(t *testing.T) {
		f := newFixture(t)
		tpl, err := f.Provider.Template(ctx, f.BlankRegion, f.Dataset)
		require.NoError(t, err)
		assert.Nil(t, tpl)
	})

	t.Run("Learns From Fresh Image Results", func(t *testing.T) {
		f := newFixture(t)
		img := domain.NewGridFilled(domain.Bounds{Max: [3]int{3, 3, 3}}, 1)
		f.Provider.UpdateFromResult(ctx, "contract-plugin", f.BlankRegion, f.Dataset,
			domain.ImageResult{Image: img}, true)

		tpl, err := f.Provider.Template(ctx, f.BlankRegion, f.Dataset)
		require.NoError(t, err)
		require.NotNil(t, tpl)
		assert.Equal(t, img.Bounds(), tpl.Bounds())
	})

	t.Run("Ignores Replays And Opaque Results", func(t *testing.T) {
		f := newFixture(t)
		img := domain.ImageResult{Image: domain.NewGridFilled(domain.Bounds{Max: [3]int{3, 3, 3}}, 1)}
		f.Provider.UpdateFromResult(ctx, "contract-plugin", f.BlankRegion, f.Dataset, img, false)
		f.Provider.UpdateFromResult(ctx, "contract-plugin", f.BlankRegion, f.Dataset, domain.Value{V: 1}, true)

		tpl, err := f.Provider.Template(ctx, f.BlankRegion, f.Dataset)
		require.NoError(t, err)
		assert.Nil(t, tpl)
	})
}
