// Package plugins ships the built-in demo computations. They operate on the
// synthetic region templates, so every surface (CLI, HTTP, MCP) has something
// real to resolve without external data.
package plugins

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/registry"
)

// RegisterBuiltins adds every built-in plugin to the registry.
func RegisterBuiltins(r *registry.Registry) {
	r.Register(MaskStats())
	r.Register(Density())
}

func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid plugin arguments: %w", err)
	}
	return nil
}

// MaskStatsOptions tunes the maskstats plugin.
type MaskStatsOptions struct {
	// VoxelVolumeML converts voxel counts into milliliters. Defaults to 1.
	VoxelVolumeML float64 `mapstructure:"voxel_volume_ml"`
}

// MaskStats is an opaque-result plugin native to the single-lung tier: it
// measures the voxel count and volume of its region's template mask.
// Requested at both-lungs it is composited per lung; its opaque result passes
// through reduction unchanged.
func MaskStats() (domain.Descriptor, domain.PluginFunc) {
	desc := domain.Descriptor{
		Name:      "maskstats",
		NativeSet: hierarchy.SetLung,
	}
	impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		opts := MaskStatsOptions{VoxelVolumeML: 1}
		if err := decodeArgs(req.Args, &opts); err != nil {
			return nil, err
		}
		tpl, err := req.Templates(req.Region)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, fmt.Errorf("no template available for region %q", req.Region)
		}
		voxels := nonZero(tpl)
		return domain.Value{V: map[string]any{
			"region":    req.Region,
			"voxels":    float64(voxels),
			"volume_ml": float64(voxels) * opts.VoxelVolumeML,
		}}, nil
	}
	return desc, impl
}

// Density is an image-result plugin native to the paired-lungs tier: it paints
// a synthetic density gradient inside the lungs mask. Requested at a single
// lung or lobe it exercises the reduction path; WantsPreview forces an output
// image whenever the body freshly ran.
func Density() (domain.Descriptor, domain.PluginFunc) {
	desc := domain.Descriptor{
		Name:         "density",
		NativeSet:    hierarchy.SetLungs,
		WantsPreview: true,
		GenerateImage: func(res domain.Result, lookup domain.TemplateLookup) (domain.Image, error) {
			img, ok := domain.AsImage(res)
			if !ok {
				return nil, fmt.Errorf("density result is not image-capable")
			}
			return img, nil
		},
	}
	impl := func(ctx context.Context, req domain.PluginRequest) (domain.Result, error) {
		tpl, err := req.Templates(req.Region)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, fmt.Errorf("no template available for region %q", req.Region)
		}
		b := tpl.Bounds()
		out := domain.NewGrid(b)
		for z := b.Min[2]; z < b.Max[2]; z++ {
			for y := b.Min[1]; y < b.Max[1]; y++ {
				for x := b.Min[0]; x < b.Max[0]; x++ {
					if tpl.At(x, y, z) != 0 {
						// Density rises towards the dorsal, caudal corner.
						out.Set(x, y, z, float64(x-b.Min[0]+y-b.Min[1]+z-b.Min[2])+1)
					}
				}
			}
		}
		return domain.ImageResult{Image: out}, nil
	}
	return desc, impl
}

func nonZero(img domain.Image) int {
	if g, ok := img.(*domain.Grid); ok {
		return g.NonZero()
	}
	n := 0
	b := img.Bounds()
	for z := b.Min[2]; z < b.Max[2]; z++ {
		for y := b.Min[1]; y < b.Max[1]; y++ {
			for x := b.Min[0]; x < b.Max[0]; x++ {
				if img.At(x, y, z) != 0 {
					n++
				}
			}
		}
	}
	return n
}
