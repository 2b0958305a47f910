package hierarchy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lunglab/parcellate/pkg/domain"
)

// YAML hierarchy definition. Template geometry is declarative: a bounding box
// plus optional filled sub-boxes (default: the whole box is filled).
//
//	default_region: roi
//	sets:
//	  - id: roi
//	    parent: whole-image
//	regions:
//	  - id: both-lungs
//	    set: lungs
//	    parent: roi
//	    template:
//	      min: [8, 8, 8]
//	      max: [56, 56, 40]
//	      filled:
//	        - {min: [8, 8, 8], max: [30, 56, 40]}
//	        - {min: [34, 8, 8], max: [56, 56, 40]}
type fileDef struct {
	DefaultRegion string `yaml:"default_region"`
	Sets          []struct {
		ID     string `yaml:"id"`
		Parent string `yaml:"parent"`
	} `yaml:"sets"`
	Regions []struct {
		ID       string       `yaml:"id"`
		Set      string       `yaml:"set"`
		Parent   string       `yaml:"parent"`
		Template *templateDef `yaml:"template"`
	} `yaml:"regions"`
}

type templateDef struct {
	Min    [3]int `yaml:"min"`
	Max    [3]int `yaml:"max"`
	Filled []struct {
		Min [3]int `yaml:"min"`
		Max [3]int `yaml:"max"`
	} `yaml:"filled"`
}

// Load parses a YAML hierarchy definition and builds a validated registry.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy definition: %w", err)
	}
	var file fileDef
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy definition: %w", err)
	}

	def := Def{DefaultRegion: file.DefaultRegion}
	for _, s := range file.Sets {
		def.Sets = append(def.Sets, SetDef{ID: s.ID, Parent: s.Parent})
	}
	for _, rg := range file.Regions {
		rd := RegionDef{ID: rg.ID, Set: rg.Set, Parent: rg.Parent}
		if rg.Template != nil {
			rd.Template = rg.Template.factory()
		}
		def.Regions = append(def.Regions, rd)
	}
	return New(def)
}

// LoadFile builds a registry from a YAML hierarchy definition file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hierarchy definition: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (t *templateDef) factory() TemplateFactory {
	bounds := domain.Bounds{Min: t.Min, Max: t.Max}
	if len(t.Filled) == 0 {
		return BoxTemplate(bounds)
	}
	filled := make([]domain.Bounds, 0, len(t.Filled))
	for _, f := range t.Filled {
		filled = append(filled, domain.Bounds{Min: f.Min, Max: f.Max})
	}
	return MaskTemplate(bounds, filled...)
}
