package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunglab/parcellate/pkg/domain"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		return domain.Value{V: "v1"}, nil
	}
	r.Register(domain.Descriptor{Name: "stats", NativeSet: "lung"}, impl)

	t.Run("Get", func(t *testing.T) {
		entry, err := r.Get("stats")
		require.NoError(t, err)
		assert.Equal(t, "lung", entry.Descriptor.NativeSet)
		res, err := entry.Impl(context.Background(), domain.PluginRequest{})
		require.NoError(t, err)
		assert.Equal(t, domain.Value{V: "v1"}, res)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := r.Get("missing")
		assert.ErrorIs(t, err, domain.ErrUnknownPlugin)
	})

	t.Run("Re-Register Overwrites", func(t *testing.T) {
		r.Register(domain.Descriptor{Name: "stats", NativeSet: "lobe"}, impl)
		entry, err := r.Get("stats")
		require.NoError(t, err)
		assert.Equal(t, "lobe", entry.Descriptor.NativeSet)
	})

	t.Run("Names Sorted", func(t *testing.T) {
		r.Register(domain.Descriptor{Name: "aaa"}, impl)
		assert.Equal(t, []string{"aaa", "stats"}, r.Names())
	})
}
