package config

import (
	"fmt"
	"time"
)

// CommentaryMode selects how chatty the commentary lane is. The mode drives
// the commentary cooldown window.
type CommentaryMode string

const (
	ModeQuiet   CommentaryMode = "quiet"   // 8s cooldown
	ModeBalance CommentaryMode = "balance" // 5s cooldown
	ModeChatty  CommentaryMode = "chatty"  // 2s cooldown
)

// CompanionConfig configures lane gating and coordinator timing.
// Durations are Go duration strings so the file stays human-editable.
type CompanionConfig struct {
	// CommentaryEnabled turns the commentary/dialogue lane on. When on, it
	// takes exclusive precedence over the suggestion lane for focus triggers.
	CommentaryEnabled bool           `yaml:"commentary_enabled"`
	CommentaryMode    CommentaryMode `yaml:"commentary_mode"`

	SuggestionCooldown string `yaml:"suggestion_cooldown"` // default 5s
	MinAnalysisChars   int    `yaml:"min_analysis_chars"`  // default 20
	MinCommentaryChars int    `yaml:"min_commentary_chars"` // default 30

	DebounceNormal     string `yaml:"debounce_normal"`     // default 1s
	DebounceCommentary string `yaml:"debounce_commentary"` // default 500ms

	ScreenPollInterval    string `yaml:"screen_poll_interval"`    // default 5s
	MinCommentaryInterval string `yaml:"min_commentary_interval"` // default 15s
	AwayThreshold         string `yaml:"away_threshold"`          // default 30s
}

// DefaultCompanionConfig returns sensible defaults.
func DefaultCompanionConfig() CompanionConfig {
	return CompanionConfig{
		CommentaryEnabled:     false,
		CommentaryMode:        ModeBalance,
		SuggestionCooldown:    "5s",
		MinAnalysisChars:      20,
		MinCommentaryChars:    30,
		DebounceNormal:        "1s",
		DebounceCommentary:    "500ms",
		ScreenPollInterval:    "5s",
		MinCommentaryInterval: "15s",
		AwayThreshold:         "30s",
	}
}

// CommentaryCooldown returns the mode-dependent commentary cooldown.
func (c CompanionConfig) CommentaryCooldown() time.Duration {
	switch c.CommentaryMode {
	case ModeChatty:
		return 2 * time.Second
	case ModeQuiet:
		return 8 * time.Second
	default:
		return 5 * time.Second
	}
}

// SuggestionCooldownDuration parses the suggestion cooldown, default 5s.
func (c CompanionConfig) SuggestionCooldownDuration() time.Duration {
	return parseDuration(c.SuggestionCooldown, 5*time.Second)
}

// DebounceNormalDuration parses the normal debounce window, default 1s.
func (c CompanionConfig) DebounceNormalDuration() time.Duration {
	return parseDuration(c.DebounceNormal, time.Second)
}

// DebounceCommentaryDuration parses the commentary debounce window,
// default 500ms.
func (c CompanionConfig) DebounceCommentaryDuration() time.Duration {
	return parseDuration(c.DebounceCommentary, 500*time.Millisecond)
}

// ScreenPollIntervalDuration parses the screen poll interval, default 5s.
func (c CompanionConfig) ScreenPollIntervalDuration() time.Duration {
	return parseDuration(c.ScreenPollInterval, 5*time.Second)
}

// MinCommentaryIntervalDuration parses the minimum gap between poll-driven
// commentary triggers, default 15s.
func (c CompanionConfig) MinCommentaryIntervalDuration() time.Duration {
	return parseDuration(c.MinCommentaryInterval, 15*time.Second)
}

// AwayThresholdDuration parses the away threshold for the welcome-back rule,
// default 30s.
func (c CompanionConfig) AwayThresholdDuration() time.Duration {
	return parseDuration(c.AwayThreshold, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c CompanionConfig) validate() error {
	switch c.CommentaryMode {
	case "", ModeQuiet, ModeBalance, ModeChatty:
	default:
		return fmt.Errorf("unknown commentary mode %q", c.CommentaryMode)
	}
	if c.MinAnalysisChars < 0 || c.MinCommentaryChars < 0 {
		return fmt.Errorf("minimum character gates must be non-negative")
	}
	for _, s := range []string{
		c.SuggestionCooldown, c.DebounceNormal, c.DebounceCommentary,
		c.ScreenPollInterval, c.MinCommentaryInterval, c.AwayThreshold,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
	}
	return nil
}
