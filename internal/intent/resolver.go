// Package intent turns raw user text into a natural-language intent and a
// ranked list of candidate APIs from the catalog. The model path is
// best-effort: every parse failure degrades to a deterministic fallback.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/llmjson"
	"github.com/trymeuj/aiva/internal/provider"
	"github.com/trymeuj/aiva/internal/state"
)

// Entity is a parameter-like value the model spotted during intent
// analysis. Entities are advisory; the slots package does the real
// extraction and validation.
type Entity struct {
	Name       string  `json:"name"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Resolution is the outcome of one intent analysis pass.
type Resolution struct {
	Intent   string
	Entities []Entity
	Matches  []catalog.Match
}

type Resolver struct {
	gen     provider.Generator
	catalog *catalog.Catalog
}

func NewResolver(gen provider.Generator, cat *catalog.Catalog) *Resolver {
	return &Resolver{gen: gen, catalog: cat}
}

type analysisReply struct {
	Intent   string   `json:"intent"`
	Entities []Entity `json:"entities"`
}

// Resolve analyzes userText against the catalog and recent history. The
// intent string comes from the model when possible, from a marker scan of
// the raw reply otherwise, and from the user text itself as a last resort.
// Ranking is model-first with the catalog's deterministic scorer as
// fallback.
func (r *Resolver) Resolve(ctx context.Context, userText string, history []state.Message) (*Resolution, error) {
	res := &Resolution{}

	reply, err := r.gen.Generate(ctx, r.buildAnalysisPrompt(userText, history), provider.Temp(0.2, 1000))
	if err != nil {
		// Model unavailable: rank the raw text directly.
		res.Intent = userText
		res.Matches = r.catalog.Rank(userText)
		return res, nil
	}

	var analysis analysisReply
	if llmjson.DecodeObject(reply, &analysis) && analysis.Intent != "" {
		res.Intent = analysis.Intent
		res.Entities = analysis.Entities
	} else {
		res.Intent = extractIntentMarker(reply)
		if res.Intent == "" {
			res.Intent = userText
		}
	}

	res.Matches = r.rank(ctx, res.Intent)
	return res, nil
}

func (r *Resolver) buildAnalysisPrompt(userText string, history []state.Message) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant that helps users interact with APIs.\n\n")
	sb.WriteString("Based on the user's message, determine:\n")
	sb.WriteString("1. The primary intent (what operation they want to perform)\n")
	sb.WriteString("2. Any entities or values mentioned that could be parameters\n\n")
	fmt.Fprintf(&sb, "User message: %q\n\n", userText)

	sb.WriteString("Available APIs:\n")
	if data, err := json.MarshalIndent(r.catalog.Summaries(), "", "  "); err == nil {
		sb.Write(data)
		sb.WriteString("\n")
	}

	if len(history) > 0 {
		sb.WriteString("\nPrevious conversation:\n")
		if data, err := json.MarshalIndent(history, "", "  "); err == nil {
			sb.Write(data)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nRespond with a JSON object:\n")
	sb.WriteString(`{"intent": "a clear description of what the user wants to do", "entities": [{"name": "...", "value": "...", "confidence": 0.0}]}`)
	sb.WriteString("\n")
	return sb.String()
}

// intentMarkers locate an intent phrase in a free-text reply when the
// model ignored the JSON instruction.
var intentMarkers = []string{"primary intent", "user wants to", "user is trying to", "intent"}

func extractIntentMarker(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range intentMarkers {
		start := strings.Index(lower, marker)
		if start < 0 {
			continue
		}
		end := strings.Index(text[start:], ".")
		if end < 0 {
			end = len(text) - start
		}
		return strings.TrimSpace(text[start : start+end])
	}
	return ""
}
