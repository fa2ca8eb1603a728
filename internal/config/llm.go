package config

import (
	"fmt"
	"time"
)

// Provider identifies a generative backend implementation.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// LLMConfig configures the generative backend.
type LLMConfig struct {
	Provider Provider `yaml:"provider"` // openai, gemini; empty = detect from env
	APIKey   string   `yaml:"api_key"`
	Model    string   `yaml:"model"`
	BaseURL  string   `yaml:"base_url"`
	Timeout  string   `yaml:"timeout"` // Go duration string, e.g. "120s"
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Timeout: "120s",
	}
}

// TimeoutDuration parses the configured timeout, falling back to 120s.
func (l LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

func (l LLMConfig) validate() error {
	switch l.Provider {
	case "", ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q", l.Provider)
	}
	if l.Timeout != "" {
		if _, err := time.ParseDuration(l.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", l.Timeout, err)
		}
	}
	return nil
}
