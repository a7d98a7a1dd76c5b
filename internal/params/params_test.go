package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "temperature", Canonicalize("temp", nil))
	assert.Equal(t, "max_tokens", Canonicalize("maxtokens", nil))
	assert.Equal(t, "thinking.enabled", Canonicalize("thinking", nil))
	assert.Equal(t, "custom_name", Canonicalize("custom_name", nil))

	aliases := map[string]string{"reasoning": "thinking.enabled"}
	assert.Equal(t, "thinking.enabled", Canonicalize("reasoning", aliases))
	// provider aliases take precedence over the common table
	aliases2 := map[string]string{"temp": "reasoning_temperature"}
	assert.Equal(t, "reasoning_temperature", Canonicalize("temp", aliases2))

	assert.Equal(t, "stop", Canonicalize("stop_sequences", nil))
	assert.Equal(t, "extras.repeat_penalty", Canonicalize("repeat_penalty", nil))
	assert.Equal(t, "extras.mirostat", Canonicalize("mirostat", nil))
}

func TestCoerceExtrasNestedNumerics(t *testing.T) {
	got, err := Coerce(Canonicalize("repeat_penalty", nil), "1.1")
	assert.NoError(t, err)
	assert.Equal(t, 1.1, got)

	got, err = Coerce(Canonicalize("mirostat", nil), "2")
	assert.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name      string
		canonical string
		raw       string
		want      any
	}{
		{"int", "max_tokens", "512", 512},
		{"float", "temperature", "0.7", 0.7},
		{"bool true", "extras.enable_web_search", "yes", true},
		{"bool false", "extras.enable_web_search", "off", false},
		{"list single", "stop", "END", []string{"END"}},
		{"list multi", "stop", "A,B, C", []string{"A", "B", "C"}},
		{"generic string", "custom.field", "hello", "hello"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Coerce(tc.canonical, tc.raw)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoerceClearSentinels(t *testing.T) {
	for _, raw := range []string{"none", "null", "clear", "", "  "} {
		got, err := Coerce("temperature", raw)
		assert.NoError(t, err)
		assert.Equal(t, ClearValue{}, got)
	}
}

func TestCoerceInvalidNumbers(t *testing.T) {
	_, err := Coerce("max_tokens", "not-a-number")
	assert.Error(t, err)

	_, err = Coerce("temperature", "hot")
	assert.Error(t, err)
}

func TestCoerceJSON(t *testing.T) {
	got, err := Coerce("custom.body", `{"a":1}`)
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, got)
}

func TestApplyAndApplyParams(t *testing.T) {
	body := map[string]any{}
	Apply(body, "thinking.enabled", true)
	assert.Equal(t, map[string]any{"thinking": map[string]any{"enabled": true}}, body)

	Apply(body, "thinking.enabled", ClearValue{})
	assert.Equal(t, map[string]any{"thinking": map[string]any{}}, body)

	body2 := map[string]any{}
	ApplyParams(body2, map[string]any{"temperature": 0.5, "max_tokens": 100}, nil)
	assert.Equal(t, 0.5, body2["temperature"])
	assert.Equal(t, 100, body2["max_tokens"])
}

func TestClearAll(t *testing.T) {
	stored := map[string]any{"temperature": 0.5, "max_tokens": 100}
	ClearAll(stored)
	assert.Empty(t, stored)
}

func TestParseValue(t *testing.T) {
	canonical, value, err := ParseValue("temp", "0.9", nil)
	assert.NoError(t, err)
	assert.Equal(t, "temperature", canonical)
	assert.Equal(t, 0.9, value)
}

func TestDeepseekThinkingAliasSetThenClear(t *testing.T) {
	aliases := map[string]string{"enable_thinking": "thinking.enabled"}

	canonical, value, err := ParseValue("enable_thinking", "true", aliases)
	assert.NoError(t, err)
	assert.Equal(t, "thinking.enabled", canonical)
	assert.Equal(t, true, value)

	body := map[string]any{}
	Apply(body, canonical, value)
	thinking, ok := body["thinking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, thinking["enabled"])

	canonical, value, err = ParseValue("enable_thinking", "none", aliases)
	assert.NoError(t, err)
	Apply(body, canonical, value)
	thinking, ok = body["thinking"].(map[string]any)
	require.True(t, ok)
	_, stillSet := thinking["enabled"]
	assert.False(t, stillSet)
}
