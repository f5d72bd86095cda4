// Package planner turns matched APIs plus collected parameter values into
// an ordered, parameter-bound execution plan. Ordering is a deterministic
// topological sort over declared inter-API dependencies; cycles degrade to
// ignoring the cyclic edge rather than failing the plan.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/provider"
)

// MissingSentinel marks a required parameter that has no bound value. It is
// never silently omitted so execution and formatting can detect it.
const MissingSentinel = "[MISSING]"

// Mode selects how many matched APIs a plan covers.
type Mode string

const (
	// ModeMulti plans every matched API plus everything reachable through
	// declared dependencies, dependency-ordered.
	ModeMulti Mode = "multi"
	// ModeSingle plans only the top-ranked match. Kept as a supported
	// configuration, not a fallback.
	ModeSingle Mode = "single"
)

// Step is one planned call with its bound parameters.
type Step struct {
	API         string         `json:"api" yaml:"api"`
	Method      string         `json:"method" yaml:"method"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`
}

// Plan is the ordered step list with a human-readable description.
type Plan struct {
	Steps       []Step `json:"steps" yaml:"steps"`
	Description string `json:"description" yaml:"description"`
}

type Planner struct {
	gen     provider.Generator
	catalog *catalog.Catalog
	mode    Mode
}

func New(gen provider.Generator, cat *catalog.Catalog, mode Mode) *Planner {
	if mode == "" {
		mode = ModeMulti
	}
	return &Planner{gen: gen, catalog: cat, mode: mode}
}

// Build constructs the plan for the given matches and parameter values. It
// never returns an error: when no API can be selected the plan has no
// steps and an explanatory description.
func (p *Planner) Build(ctx context.Context, matches []catalog.Match, values map[string]any) *Plan {
	selected := p.selectAPIs(matches)
	if len(selected) == 0 {
		return &Plan{
			Steps:       nil,
			Description: "I couldn't map your request to a concrete API call. Could you rephrase it?",
		}
	}

	ordered := sortByDependency(selected)

	steps := make([]Step, 0, len(ordered))
	for _, d := range ordered {
		steps = append(steps, Step{
			API:         d.Path,
			Method:      d.Method,
			Description: d.Description,
			Parameters:  bindParameters(d, values),
		})
	}

	return &Plan{
		Steps:       steps,
		Description: p.describe(ctx, steps),
	}
}

// selectAPIs resolves matches to full descriptors and, in multi mode,
// closes over declared dependencies. Deduplicated by path; input order is
// preserved so planning is idempotent.
func (p *Planner) selectAPIs(matches []catalog.Match) []*catalog.Descriptor {
	var out []*catalog.Descriptor
	seen := make(map[string]bool)

	add := func(d *catalog.Descriptor) {
		if d == nil || d.Path == "" || seen[d.Path] {
			return
		}
		seen[d.Path] = true
		out = append(out, d)
	}

	limit := len(matches)
	if p.mode == ModeSingle && limit > 1 {
		limit = 1
	}

	queue := make([]*catalog.Descriptor, 0, limit)
	for _, m := range matches[:limit] {
		if m.Descriptor == nil || m.Descriptor.ID == "" {
			continue
		}
		d, ok := p.catalog.Details(m.Descriptor.ID)
		if !ok {
			continue
		}
		add(d)
		queue = append(queue, d)
	}

	if p.mode == ModeSingle {
		return out
	}

	// Pull in transitive dependencies so no step references a call the
	// plan doesn't contain.
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		for _, dep := range d.Dependencies {
			depDesc, ok := p.catalog.ByPath(dep.API, "")
			if !ok || seen[depDesc.Path] {
				continue
			}
			add(depDesc)
			queue = append(queue, depDesc)
		}
	}
	return out
}

func bindParameters(d *catalog.Descriptor, values map[string]any) map[string]any {
	bound := make(map[string]any)
	for _, spec := range d.Parameters {
		if v, ok := values[spec.Name]; ok {
			bound[spec.Name] = v
			continue
		}
		if spec.Required {
			bound[spec.Name] = MissingSentinel
		}
	}
	return bound
}

// describe narrates the plan. The model path may fail or be skipped; the
// deterministic fallback always succeeds and never calls the model.
func (p *Planner) describe(ctx context.Context, steps []Step) string {
	if len(steps) == 0 {
		return "No actions to perform."
	}

	if desc, err := p.narrate(ctx, steps); err == nil && desc != "" {
		return desc
	}
	return describeSteps(steps)
}

func (p *Planner) narrate(ctx context.Context, steps []Step) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant explaining a technical process to a user.\n\n")
	sb.WriteString("Explain this API execution plan in simple, clear language:\n\n")
	for i, step := range steps {
		fmt.Fprintf(&sb, "Step %d: %s %s with parameters: %s\n", i+1, step.Method, step.API, formatParams(step.Parameters))
	}
	sb.WriteString("\nStart with a brief overview, explain each step in everyday language, avoid jargon,")
	sb.WriteString(" and focus on the outcome the user cares about. Keep your response under 200 words.\n")

	reply, err := p.gen.Generate(ctx, sb.String(), provider.Temp(0.3, 500))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// describeSteps is the deterministic description: one clause per step,
// joined into a short paragraph.
func describeSteps(steps []Step) string {
	clauses := make([]string, 0, len(steps))
	for _, step := range steps {
		verb := "submit"
		if strings.EqualFold(step.Method, "GET") {
			verb = "retrieve"
		}
		clause := fmt.Sprintf("%s information %s %s", verb, directionWord(verb), step.API)
		if len(step.Parameters) > 0 {
			clause += " with " + formatParams(step.Parameters)
		}
		clauses = append(clauses, clause)
	}
	return "I will " + strings.Join(clauses, ", then ") + "."
}

func directionWord(verb string) string {
	if verb == "retrieve" {
		return "from"
	}
	return "to"
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return "no parameters"
	}
	parts := make([]string, 0, len(params))
	for _, name := range sortedKeys(params) {
		parts = append(parts, fmt.Sprintf("%s=%v", name, params[name]))
	}
	return strings.Join(parts, ", ")
}
