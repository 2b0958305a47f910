package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/termenv"

	"github.com/lunglab/parcellate/pkg/hierarchy"
)

// RenderTree prints the region hierarchy as an indented tree, regions colored
// by depth, with each region's set in parentheses.
func RenderTree(reg *hierarchy.Registry) string {
	p := termenv.ColorProfile()
	depthColors := []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

	var b strings.Builder
	var walk func(r *hierarchy.Region, depth int)
	walk = func(r *hierarchy.Region, depth int) {
		color := depthColors[depth%len(depthColors)]
		name := p.String(r.ID()).Foreground(p.Color(color)).Bold()
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(&b, "%s%s (%s)\n", indent, name, r.Set().ID())
		for _, c := range r.Children() {
			walk(c, depth+1)
		}
	}
	for _, r := range reg.Regions() {
		if r.Parent() == nil {
			walk(r, 0)
		}
	}
	return b.String()
}

// DescribeMarkdown renders the hierarchy as a markdown document, one section
// per granularity tier, for glamour rendering.
func DescribeMarkdown(reg *hierarchy.Registry) string {
	sets := reg.Sets()
	sort.Slice(sets, func(i, j int) bool {
		di, dj := setDepth(sets[i]), setDepth(sets[j])
		if di != dj {
			return di < dj
		}
		return sets[i].ID() < sets[j].ID()
	})

	var b strings.Builder
	b.WriteString("# Region Hierarchy\n\n")
	for _, set := range sets {
		fmt.Fprintf(&b, "## %s\n\n", set.ID())
		if p := set.Parent(); p != nil {
			fmt.Fprintf(&b, "Parent tier: `%s`\n\n", p.ID())
		}
		regions, _ := reg.RegionsOf(set.ID())
		for _, r := range regions {
			if p := r.Parent(); p != nil {
				fmt.Fprintf(&b, "- `%s` (parent `%s`)\n", r.ID(), p.ID())
			} else {
				fmt.Fprintf(&b, "- `%s`\n", r.ID())
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func setDepth(s *hierarchy.Set) int {
	d := 0
	for cur := s.Parent(); cur != nil; cur = cur.Parent() {
		d++
	}
	return d
}
