package backend

import (
	"inkwell/internal/config"
	"inkwell/internal/logging"
)

// FromConfig builds the backend client selected by the configuration.
// Returns ErrNotConfigured when no provider or key is available; callers
// treat that as "companion runs with generation disabled", not as a fatal
// error.
func FromConfig(cfg *config.Config) (Client, error) {
	llm := cfg.LLM
	if llm.APIKey == "" {
		return nil, ErrNotConfigured
	}

	switch llm.Provider {
	case config.ProviderOpenAI:
		c := OpenAIConfig{
			APIKey:  llm.APIKey,
			BaseURL: llm.BaseURL,
			Model:   llm.Model,
			Timeout: llm.TimeoutDuration(),
		}
		logging.Boot("backend: openai model=%s", c.Model)
		return NewOpenAIClientWithConfig(c), nil
	case config.ProviderGemini:
		c := GeminiConfig{
			APIKey:  llm.APIKey,
			BaseURL: llm.BaseURL,
			Model:   llm.Model,
			Timeout: llm.TimeoutDuration(),
		}
		logging.Boot("backend: gemini model=%s", c.Model)
		return NewGeminiClientWithConfig(c), nil
	default:
		return nil, ErrNotConfigured
	}
}
