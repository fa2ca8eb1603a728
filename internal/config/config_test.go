package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "inkwell", cfg.Name)
	assert.Equal(t, 20, cfg.Companion.MinAnalysisChars)
	assert.Equal(t, 30, cfg.Companion.MinCommentaryChars)
	assert.Equal(t, 5*time.Second, cfg.Companion.SuggestionCooldownDuration())
	// The store needs a real file path by default; an empty one would give
	// the driver a throwaway in-memory database.
	require.NotEmpty(t, cfg.DatabasePath)
	assert.Equal(t, "inkwell.db", filepath.Base(cfg.DatabasePath))
	assert.Equal(t, filepath.Dir(DefaultPath()), filepath.Dir(cfg.DatabasePath))
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
llm:
  provider: openai
  api_key: sk-test
  model: gpt-4o-mini
companion:
  commentary_enabled: true
  commentary_mode: chatty
  suggestion_cooldown: 7s
logging:
  debug: true
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.Companion.CommentaryEnabled)
	assert.Equal(t, 2*time.Second, cfg.Companion.CommentaryCooldown())
	assert.Equal(t, 7*time.Second, cfg.Companion.SuggestionCooldownDuration())
	assert.True(t, cfg.Logging.Debug)
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("companion:\n  commentary_mode: shouty\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commentary mode")
}

func TestCommentaryCooldownByMode(t *testing.T) {
	c := DefaultCompanionConfig()

	c.CommentaryMode = ModeQuiet
	assert.Equal(t, 8*time.Second, c.CommentaryCooldown())

	c.CommentaryMode = ModeChatty
	assert.Equal(t, 2*time.Second, c.CommentaryCooldown())

	c.CommentaryMode = ModeBalance
	assert.Equal(t, 5*time.Second, c.CommentaryCooldown())
}

func TestEnvOverrideDetectsProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Companion.CommentaryEnabled = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Companion.CommentaryEnabled)
}
