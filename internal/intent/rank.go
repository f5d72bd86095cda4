package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/llmjson"
	"github.com/trymeuj/aiva/internal/provider"
)

const maxRankedAPIs = 3

type rankedEntry struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// rank asks the model for the top relevant APIs; an unusable reply falls
// back to the catalog's deterministic scorer.
func (r *Resolver) rank(ctx context.Context, intentText string) []catalog.Match {
	reply, err := r.gen.Generate(ctx, r.buildRankPrompt(intentText), provider.Temp(0.1, 500))
	if err != nil {
		return r.catalog.Rank(intentText)
	}

	var entries []rankedEntry
	if !llmjson.DecodeArray(reply, &entries) {
		return r.catalog.Rank(intentText)
	}

	var matches []catalog.Match
	for _, e := range entries {
		d, ok := r.catalog.Details(e.ID)
		if !ok || e.Confidence <= 0 {
			continue
		}
		matches = append(matches, catalog.Match{
			Descriptor: d,
			Score:      e.Confidence,
			Reasoning:  e.Reason,
		})
	}
	if len(matches) == 0 {
		return r.catalog.Rank(intentText)
	}
	return matches
}

func (r *Resolver) buildRankPrompt(intentText string) string {
	var sb strings.Builder
	sb.WriteString("You match a user intent to the most relevant APIs.\n\n")
	fmt.Fprintf(&sb, "User intent: %q\n\n", intentText)
	sb.WriteString("Available APIs:\n")
	if data, err := json.MarshalIndent(r.catalog.Summaries(), "", "  "); err == nil {
		sb.Write(data)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nRespond with a JSON array of at most %d entries, most relevant first:\n", maxRankedAPIs)
	sb.WriteString(`[{"id": "api id", "confidence": 0.0, "reason": "one short sentence"}]`)
	sb.WriteString("\nInclude only APIs that are genuinely relevant; an empty array is a valid answer.\n")
	return sb.String()
}
