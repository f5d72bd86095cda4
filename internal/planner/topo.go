package planner

import (
	"sort"

	"github.com/trymeuj/aiva/internal/catalog"
)

// Node colors for the iterative depth-first walk.
const (
	white = iota // unvisited
	gray         // on the walk stack
	black        // finished
)

// sortByDependency orders descriptors so that every declared dependency
// present in the set appears before its dependent. The walk is iterative
// with an explicit frame stack, so pathological dependency chains cannot
// blow the goroutine stack. An edge that would close a cycle is skipped;
// every node still appears exactly once.
func sortByDependency(descs []*catalog.Descriptor) []*catalog.Descriptor {
	byPath := make(map[string]*catalog.Descriptor, len(descs))
	for _, d := range descs {
		byPath[d.Path] = d
	}

	// Edges run from a dependent to each dependency it declares, restricted
	// to dependencies that are actually in the set.
	edges := make(map[string][]string, len(descs))
	for _, d := range descs {
		for _, dep := range d.Dependencies {
			if _, ok := byPath[dep.API]; ok {
				edges[d.Path] = append(edges[d.Path], dep.API)
			}
		}
	}

	color := make(map[string]int, len(descs))
	order := make([]*catalog.Descriptor, 0, len(descs))

	type frame struct {
		path string
		next int
	}

	for _, root := range descs {
		if color[root.Path] != white {
			continue
		}
		color[root.Path] = gray
		stack := []frame{{path: root.Path}}

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			deps := edges[f.path]

			if f.next < len(deps) {
				dep := deps[f.next]
				f.next++
				switch color[dep] {
				case white:
					color[dep] = gray
					stack = append(stack, frame{path: dep})
				case gray:
					// Cycle edge: ignore it and keep going.
				}
				continue
			}

			// All dependencies finished before the node itself, so the
			// completion order already puts prerequisites first.
			color[f.path] = black
			order = append(order, byPath[f.path])
			stack = stack[:len(stack)-1]
		}
	}
	return order
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
