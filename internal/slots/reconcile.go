// Package slots reconciles user text against an API's declared parameters:
// it extracts candidate values with the language model, validates each by
// declared type, and partitions the parameter set into collected and
// missing. A parameter name is never in both partitions at once.
package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/llmjson"
	"github.com/trymeuj/aiva/internal/metrics"
	"github.com/trymeuj/aiva/internal/provider"
	"github.com/trymeuj/aiva/internal/state"
)

// Missing is a required parameter without a valid value, with the reason it
// is still outstanding.
type Missing struct {
	Spec   catalog.ParameterSpec
	Reason string
}

const reasonNotProvided = "not provided"

type Reconciler struct {
	gen provider.Generator
}

func NewReconciler(gen provider.Generator) *Reconciler {
	return &Reconciler{gen: gen}
}

// Reconcile extracts values for the given parameter specs from userText,
// validates them, and returns the collected map plus the required specs
// still missing. apiContext is a short description of the action, used to
// steer extraction. Model failures degrade to the regexp fallback; they
// never fail the call.
func (r *Reconciler) Reconcile(ctx context.Context, userText string, specs []catalog.ParameterSpec, apiContext string, history []state.Message) (map[string]any, []Missing) {
	if len(specs) == 0 {
		return map[string]any{}, nil
	}

	extracted := r.extract(ctx, userText, specs, apiContext, history)

	collected := make(map[string]any)
	invalidReason := make(map[string]string)
	for name, value := range extracted {
		spec, ok := findSpec(specs, name)
		if !ok {
			continue
		}
		normalized, err := Validate(value, spec)
		if err != nil {
			invalidReason[name] = err.Error()
			metrics.ValidationFailure()
			continue
		}
		collected[name] = normalized
	}

	var missing []Missing
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if _, ok := collected[spec.Name]; ok {
			continue
		}
		reason := reasonNotProvided
		if r, ok := invalidReason[spec.Name]; ok {
			reason = r
		}
		missing = append(missing, Missing{Spec: spec, Reason: reason})
	}
	return collected, missing
}

// extract asks the model for a flat name→value JSON object; when the reply
// is unparsable it falls back to a conservative textual scan. The fallback
// may legitimately return nothing.
func (r *Reconciler) extract(ctx context.Context, userText string, specs []catalog.ParameterSpec, apiContext string, history []state.Message) map[string]any {
	prompt := buildExtractionPrompt(userText, specs, apiContext, history)

	reply, err := r.gen.Generate(ctx, prompt, provider.Temp(0.1, 1000))
	if err != nil {
		return scanFallback("", userText, specs)
	}

	var values map[string]any
	if llmjson.DecodeObject(reply, &values) {
		return values
	}
	return scanFallback(reply, userText, specs)
}

func buildExtractionPrompt(userText string, specs []catalog.ParameterSpec, apiContext string, history []state.Message) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant that extracts parameter values from user messages.\n\n")
	if apiContext != "" {
		fmt.Fprintf(&sb, "The user's request relates to: %s\n\n", apiContext)
	}
	sb.WriteString("Extract values for these parameters from the user's message:\n")
	for _, p := range specs {
		requiredText := "(Optional)"
		if p.Required {
			requiredText = "(Required)"
		}
		fmt.Fprintf(&sb, "- %s: %s %s (Type: %s)\n", p.Name, p.Description, requiredText, p.Type)
	}
	fmt.Fprintf(&sb, "\nUser message: %q\n", userText)

	if len(history) > 0 {
		sb.WriteString("\nPrevious conversation:\n")
		if data, err := json.MarshalIndent(history, "", "  "); err == nil {
			sb.Write(data)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nRespond with a JSON object where keys are parameter names and values are the extracted values.\n")
	sb.WriteString("Only include parameters you can confidently extract. If a parameter isn't mentioned, don't include it.\n")
	return sb.String()
}

func findSpec(specs []catalog.ParameterSpec, name string) (catalog.ParameterSpec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return catalog.ParameterSpec{}, false
}
