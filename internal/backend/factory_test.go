package backend

import (
	"errors"
	"testing"

	"inkwell/internal/config"
)

func TestFromConfigNotConfigured(t *testing.T) {
	cfg := config.Default()
	if _, err := FromConfig(cfg); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err=%v, want ErrNotConfigured", err)
	}
}

func TestFromConfigOpenAI(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.LLM.APIKey = "sk-test"

	client, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := client.(*OpenAIClient); !ok {
		t.Fatalf("client type %T, want *OpenAIClient", client)
	}
}

func TestFromConfigGemini(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderGemini
	cfg.LLM.APIKey = "g-test"

	client, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := client.(*GeminiClient); !ok {
		t.Fatalf("client type %T, want *GeminiClient", client)
	}
}
