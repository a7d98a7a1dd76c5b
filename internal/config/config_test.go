package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaultsAndOptions(t *testing.T) {
	cfg := New()
	assert.Equal(t, "mock", cfg.Provider)
	assert.Equal(t, 16000, cfg.MaxContextChar)
	assert.Equal(t, 64, cfg.AutoRoundLimit)

	cfg = New(SetProvider("openrouter"), SetModel("gpt-4o"), SetMaxContextChars(8000), SetAutoRoundLimit(10))
	assert.Equal(t, "openrouter", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 8000, cfg.MaxContextChar)
	assert.Equal(t, 10, cfg.AutoRoundLimit)
}

func TestLoadConfigParsesEnv(t *testing.T) {
	t.Setenv("DBGCOPILOT_LLM_PROVIDER", "openrouter")
	t.Setenv("DBGCOPILOT_LLM_MODEL", "deepseek-chat")
	t.Setenv("DBGCOPILOT_AUTO_ROUND_LIMIT", "32")
	t.Setenv("OPENROUTER_API_KEY", "sk-test-123")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Provider)
	assert.Equal(t, "deepseek-chat", cfg.Model)
	assert.Equal(t, 32, cfg.AutoRoundLimit)
	assert.Equal(t, "sk-test-123", cfg.APIKeys["openrouter"])
}

func TestLoadConfigIgnoresNonAPIKeyEnvVars(t *testing.T) {
	t.Setenv("SOME_RANDOM_VAR", "irrelevant")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	_, ok := cfg.APIKeys["some_random_var"]
	assert.False(t, ok)
}
