// Package catalog is the read-only API knowledge base: descriptors for
// every REST endpoint the assistant can orchestrate, with parameter and
// return schemas, inter-API dependencies, and intent keywords. The catalog
// is built once at startup and never mutated, so it is safe to share
// across all sessions without locking.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type Catalog struct {
	apis   map[string]*Descriptor
	ids    []string // sorted, for deterministic iteration
	byPath map[string][]*Descriptor
}

type catalogFile struct {
	APIs map[string]*Descriptor `yaml:"apis"`
}

// New builds a catalog from descriptors keyed by ID.
func New(apis map[string]*Descriptor) *Catalog {
	c := &Catalog{
		apis:   make(map[string]*Descriptor, len(apis)),
		byPath: make(map[string][]*Descriptor),
	}
	for id, d := range apis {
		d.ID = id
		for i := range d.Parameters {
			d.Parameters[i].Type = ParseParamType(string(d.Parameters[i].Type))
		}
		c.apis[id] = d
		c.ids = append(c.ids, id)
		c.byPath[d.Path] = append(c.byPath[d.Path], d)
	}
	sort.Strings(c.ids)
	return c
}

// Embedded returns the built-in catalog.
func Embedded() (*Catalog, error) {
	return parse(embeddedCatalog)
}

// LoadFile reads a catalog from a YAML file with the same shape as the
// embedded one.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(f.APIs) == 0 {
		return nil, fmt.Errorf("catalog has no apis")
	}
	return New(f.APIs), nil
}

// Len reports the number of descriptors.
func (c *Catalog) Len() int { return len(c.apis) }

// Summaries returns the short form of every descriptor, ordered by ID.
func (c *Catalog) Summaries() []Summary {
	out := make([]Summary, 0, len(c.ids))
	for _, id := range c.ids {
		d := c.apis[id]
		out = append(out, Summary{
			ID:          id,
			Path:        d.Path,
			Method:      d.Method,
			Description: d.Description,
			Category:    d.Category,
		})
	}
	return out
}

// Parameters returns the parameter specs for an API, or nil if unknown.
func (c *Catalog) Parameters(id string) []ParameterSpec {
	d, ok := c.apis[id]
	if !ok {
		return nil
	}
	return d.Parameters
}

// Details returns the full descriptor for an API.
func (c *Catalog) Details(id string) (*Descriptor, bool) {
	d, ok := c.apis[id]
	return d, ok
}

// ByPath finds a descriptor by path and, when method is non-empty, method.
func (c *Catalog) ByPath(path, method string) (*Descriptor, bool) {
	for _, d := range c.byPath[path] {
		if method == "" || d.Method == method {
			return d, true
		}
	}
	return nil, false
}

// Capabilities returns endpoint lines grouped by category, for the
// knowledge endpoint and capability prompts.
func (c *Catalog) Capabilities() map[string][]string {
	caps := make(map[string][]string)
	for _, id := range c.ids {
		d := c.apis[id]
		cat := d.Category
		if cat == "" {
			cat = "Other"
		}
		caps[cat] = append(caps[cat], fmt.Sprintf("%s %s: %s", d.Method, d.Path, d.Description))
	}
	return caps
}
