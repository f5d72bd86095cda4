package provider

import "context"

// GenerateOptions are the per-call generation parameters. A nil Temperature
// leaves the provider default in place.
type GenerateOptions struct {
	Temperature *float64
	MaxTokens   int
}

// Temp returns a GenerateOptions with the given temperature and token budget.
func Temp(t float64, maxTokens int) GenerateOptions {
	return GenerateOptions{Temperature: &t, MaxTokens: maxTokens}
}

// Generator is the language-model text service. Implementations make no
// guarantee about the structure of the returned text; callers that expect
// JSON must parse defensively (see internal/llmjson).
type Generator interface {
	ID() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
