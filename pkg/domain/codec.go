package domain

import (
	"encoding/json"
	"fmt"
)

// Result values cross process boundaries in two places: the Redis result cache
// and the HTTP surface. Both use this JSON envelope. Opaque values survive as
// generic JSON (ints come back as float64, which callers must tolerate);
// images survive only if they are Grids.

const (
	kindValue     = "value"
	kindGrid      = "grid"
	kindComposite = "composite"
)

type resultEnvelope struct {
	Kind     string                    `json:"kind"`
	Value    json.RawMessage           `json:"value,omitempty"`
	Grid     *gridPayload              `json:"grid,omitempty"`
	Children map[string]resultEnvelope `json:"children,omitempty"`
}

type gridPayload struct {
	Bounds Bounds    `json:"bounds"`
	Data   []float64 `json:"data"`
}

// EncodeResult serializes a result to its JSON envelope.
func EncodeResult(r Result) ([]byte, error) {
	env, err := toEnvelope(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// DecodeResult deserializes a result from its JSON envelope.
func DecodeResult(data []byte) (Result, error) {
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode result envelope: %w", err)
	}
	return fromEnvelope(env)
}

func toEnvelope(r Result) (resultEnvelope, error) {
	switch v := r.(type) {
	case Value:
		raw, err := json.Marshal(v.V)
		if err != nil {
			return resultEnvelope{}, fmt.Errorf("failed to encode opaque value: %w", err)
		}
		return resultEnvelope{Kind: kindValue, Value: raw}, nil
	case ImageResult:
		g, ok := v.Image.(*Grid)
		if !ok {
			return resultEnvelope{}, fmt.Errorf("image result of type %T is not encodable", v.Image)
		}
		return resultEnvelope{Kind: kindGrid, Grid: &gridPayload{Bounds: g.Bounds(), Data: g.data}}, nil
	case Composite:
		children := make(map[string]resultEnvelope, len(v))
		for id, sub := range v {
			env, err := toEnvelope(sub)
			if err != nil {
				return resultEnvelope{}, err
			}
			children[id] = env
		}
		return resultEnvelope{Kind: kindComposite, Children: children}, nil
	default:
		return resultEnvelope{}, fmt.Errorf("unsupported result type %T", r)
	}
}

func fromEnvelope(env resultEnvelope) (Result, error) {
	switch env.Kind {
	case kindValue:
		var v any
		if err := json.Unmarshal(env.Value, &v); err != nil {
			return nil, fmt.Errorf("failed to decode opaque value: %w", err)
		}
		return Value{V: v}, nil
	case kindGrid:
		if env.Grid == nil {
			return nil, fmt.Errorf("grid envelope without grid payload")
		}
		g := NewGrid(env.Grid.Bounds)
		if len(env.Grid.Data) != len(g.data) {
			return nil, fmt.Errorf("grid payload has %d voxels, bounds cover %d", len(env.Grid.Data), len(g.data))
		}
		copy(g.data, env.Grid.Data)
		return ImageResult{Image: g}, nil
	case kindComposite:
		out := make(Composite, len(env.Children))
		for id, child := range env.Children {
			sub, err := fromEnvelope(child)
			if err != nil {
				return nil, err
			}
			out[id] = sub
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown result kind %q", env.Kind)
	}
}
