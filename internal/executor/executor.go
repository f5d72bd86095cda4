// Package executor runs execution plans. The default mode is simulation:
// each step produces a plausible response synthesized from the API's
// declared return structure, optionally overridden by a Lua responder
// script. A live client can be plugged in to hit a real backend instead.
package executor

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trymeuj/aiva/internal/apiclient"
	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/planner"
)

// StepResult is the outcome of one executed plan step.
type StepResult struct {
	API       string         `json:"api"`
	Method    string         `json:"method"`
	Success   bool           `json:"success"`
	Simulated bool           `json:"simulated"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type Executor struct {
	catalog    *catalog.Catalog
	client     *apiclient.Client
	scriptsDir string
}

type Option func(*Executor)

// WithLiveClient switches execution from simulation to real HTTP calls.
func WithLiveClient(c *apiclient.Client) Option {
	return func(e *Executor) { e.client = c }
}

// WithScriptsDir enables Lua responder scripts, one <api-id>.lua per API.
func WithScriptsDir(dir string) Option {
	return func(e *Executor) { e.scriptsDir = dir }
}

func New(cat *catalog.Catalog, opts ...Option) *Executor {
	e := &Executor{catalog: cat}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every step of the plan in order and returns one result per
// step. A failed step does not stop the remaining steps; its result simply
// carries the error.
func (e *Executor) Execute(ctx context.Context, plan *planner.Plan) []StepResult {
	if plan == nil {
		return nil
	}
	results := make([]StepResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		results = append(results, e.executeStep(ctx, step))
	}
	return results
}

func (e *Executor) executeStep(ctx context.Context, step planner.Step) StepResult {
	res := StepResult{API: step.API, Method: step.Method, Simulated: e.client == nil}

	d, ok := e.catalog.ByPath(step.API, step.Method)
	if !ok {
		res.Error = fmt.Sprintf("unknown API: %s", step.API)
		return res
	}

	if missing := missingRequired(d, step.Parameters); len(missing) > 0 {
		res.Error = fmt.Sprintf("missing required parameters: %s", strings.Join(missing, ", "))
		return res
	}

	if e.client != nil {
		return e.callLive(ctx, step, res)
	}

	if e.scriptsDir != "" {
		if data, handled, err := e.runResponder(d.ID, step.API, step.Parameters); err != nil {
			log.Printf("lua responder for %s: %v", d.ID, err)
		} else if handled {
			res.Success = true
			res.Data = data
			return res
		}
	}

	res.Success = true
	res.Data = simulate(d, step.Parameters)
	return res
}

func (e *Executor) callLive(ctx context.Context, step planner.Step, res StepResult) StepResult {
	r, err := e.client.Call(ctx, step.API, step.Method, step.Parameters)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = r.Success
	if !r.Success {
		res.Error = fmt.Sprintf("backend returned status %d", r.Status)
	}
	if m, ok := r.Body.(map[string]any); ok {
		res.Data = m
	} else if r.Body != nil {
		res.Data = map[string]any{"response": r.Body}
	}
	return res
}

func missingRequired(d *catalog.Descriptor, params map[string]any) []string {
	var missing []string
	for _, spec := range d.Parameters {
		if !spec.Required {
			continue
		}
		v, ok := params[spec.Name]
		if !ok || v == planner.MissingSentinel {
			missing = append(missing, spec.Name)
		}
	}
	return missing
}

// simulate synthesizes a response from the declared return structure. When
// a string field name matches an input parameter the input value is echoed
// back, so the simulated response stays consistent with the request.
func simulate(d *catalog.Descriptor, params map[string]any) map[string]any {
	id := shortID()
	data := map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("Simulated %s call to %s", d.Method, d.Path),
	}

	for field, fieldType := range d.Returns.Structure {
		data[field] = simulateField(field, fieldType, params, id)
	}
	return data
}

func simulateField(field, fieldType string, params map[string]any, id string) any {
	switch normalizeFieldType(fieldType) {
	case "string":
		if v, ok := params[field]; ok {
			return fmt.Sprintf("%v", v)
		}
		return fmt.Sprintf("sample_%s_%s", field, id)
	case "number":
		return float64(rand.Intn(1000))
	case "boolean":
		return rand.Intn(2) == 1
	case "date":
		return time.Now().Add(24 * time.Hour).Format("2006-01-02 15:04:05")
	case "object":
		return map[string]any{"id": "obj_" + id}
	case "array":
		return []any{
			map[string]any{"item": 1, "value": "sample_1_" + id},
			map[string]any{"item": 2, "value": "sample_2_" + id},
		}
	default:
		return fmt.Sprintf("sample_%s_%s", field, id)
	}
}

func normalizeFieldType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch {
	case strings.HasPrefix(t, "array"), strings.HasPrefix(t, "list"):
		return "array"
	case strings.HasPrefix(t, "int"), strings.HasPrefix(t, "float"), t == "number":
		return "number"
	case t == "bool", t == "boolean":
		return "boolean"
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return "date"
	case t == "object", t == "dict", t == "map":
		return "object"
	default:
		return "string"
	}
}

func shortID() string {
	return uuid.NewString()[:8]
}
