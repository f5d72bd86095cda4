package provider

import "fmt"

const (
	APIOpenAI = "openai-completions"
	APIGemini = "gemini-generate"
)

// ProviderConfig mirrors config.ProviderConfig to avoid circular imports.
type ProviderConfig struct {
	ID      string
	BaseURL string
	APIKey  string
	API     string
	Model   string
}

// FromConfig creates a Generator from a config entry. The api field
// determines which wire format to use:
//   - "openai-completions" -> OpenAI-compatible (OpenAI, Ollama, vLLM, etc.)
//   - "gemini-generate"    -> Google Generative Language generateContent
func FromConfig(cfg ProviderConfig) (Generator, error) {
	switch cfg.API {
	case APIOpenAI, "":
		return NewOpenAIProvider(cfg.ID, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case APIGemini:
		return NewGeminiProvider(cfg.ID, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown api type %q for provider %q (supported: %s, %s)",
			cfg.API, cfg.ID, APIOpenAI, APIGemini)
	}
}
