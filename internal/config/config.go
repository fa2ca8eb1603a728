// Package config loads and validates inkwell configuration.
// Config lives at .inkwell/config.yaml under the user's data directory;
// API keys may be supplied via environment variables instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all inkwell configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM backend configuration
	LLM LLMConfig `yaml:"llm"`

	// Companion behavior (lanes, coordinator)
	Companion CompanionConfig `yaml:"companion"`

	// Persistence
	DatabasePath string `yaml:"database_path"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Name:         "inkwell",
		Version:      "0.1.0",
		LLM:          DefaultLLMConfig(),
		Companion:    DefaultCompanionConfig(),
		DatabasePath: DefaultDatabasePath(),
		Logging:      DefaultLoggingConfig(),
	}
}

// DefaultDatabasePath returns the default SQLite location, beside the
// config file.
func DefaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultPath()), "inkwell.db")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".inkwell", "config.yaml")
	}
	return filepath.Join(home, ".inkwell", "config.yaml")
}

// Load reads the config file at path, applies defaults for missing fields,
// environment overrides for API keys, and validates the result.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if err := c.LLM.validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Companion.validate(); err != nil {
		return fmt.Errorf("companion: %w", err)
	}
	return nil
}

// applyEnvOverrides pulls API keys from the environment when the config
// file does not set them. Priority: config file > env.
func (c *Config) applyEnvOverrides() {
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderGemini:
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			// No provider pinned: detect from whichever key is present.
			if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				c.LLM.Provider = ProviderOpenAI
				c.LLM.APIKey = key
			} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				c.LLM.Provider = ProviderGemini
				c.LLM.APIKey = key
			}
		}
	}
}
