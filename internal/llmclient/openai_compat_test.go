package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestResolveOpenAICompatConfigVendorDefaults(t *testing.T) {
	cfg := resolveOpenAICompatConfig("deepseek", nil, "", "", "", nil)
	assert.Equal(t, "https://api.deepseek.com", cfg.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.Model)
	assert.Equal(t, "/v1/chat/completions", cfg.Path)

	cfg = resolveOpenAICompatConfig("qwen", nil, "", "", "", nil)
	assert.Equal(t, "/compatible-mode/v1/chat/completions", cfg.Path)
}

func TestResolveOpenAICompatConfigSessionOverridesVendorDefault(t *testing.T) {
	session := map[string]any{"deepseek_base_url": "https://custom.example.com", "deepseek_model": "deepseek-reasoner"}
	cfg := resolveOpenAICompatConfig("deepseek", session, "", "", "", nil)
	assert.Equal(t, "https://custom.example.com", cfg.BaseURL)
	assert.Equal(t, "deepseek-reasoner", cfg.Model)
}

func TestResolveOpenAICompatConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("MYPROVIDER_BASE_URL", "https://env.example.com")
	t.Setenv("MYPROVIDER_MODEL", "env-model")
	cfg := resolveOpenAICompatConfig("myprovider", nil, "https://default.example.com", "", "default-model", nil)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "env-model", cfg.Model)
}

func TestResolveOpenAICompatConfigFallsBackToDefaultPath(t *testing.T) {
	cfg := resolveOpenAICompatConfig("generic", nil, "https://example.com", "", "", nil)
	assert.Equal(t, "/v1/chat/completions", cfg.Path)
}

func TestOpenAICompatAskReturnsConfigErrorWhenNoBaseURL(t *testing.T) {
	c := NewOpenAICompat("unconfigured", nil)
	_, _, err := c.Ask(context.Background(), "hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base_url not configured")
}

func TestOpenAICompatAskParsesChoiceAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		promptTokens, completionTokens, totalTokens := 10, 5, 15
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "the fix is X"}}},
			"usage": map[string]any{
				"prompt_tokens":     promptTokens,
				"completion_tokens": completionTokens,
				"total_tokens":      totalTokens,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewOpenAICompat("test-provider", nil)
	c.DefaultBaseURL = server.URL

	answer, usage, err := c.Ask(context.Background(), "what's the bug?")
	require.NoError(t, err)
	assert.Equal(t, "the fix is X", answer)
	require.NotNil(t, usage.PromptTokens)
	assert.Equal(t, 10, *usage.PromptTokens)
	require.NotNil(t, usage.TotalTokens)
	assert.Equal(t, 15, *usage.TotalTokens)
}

func TestOpenAICompatAskEstimatesUsageWhenProviderOmitsIt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "the null pointer is at line 42"}}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewOpenAICompat("test-provider", nil)
	c.DefaultBaseURL = server.URL

	_, usage, err := c.Ask(context.Background(), "why did this crash?")
	require.NoError(t, err)
	require.NotNil(t, usage.PromptTokens)
	require.NotNil(t, usage.CompletionTokens)
	require.NotNil(t, usage.TotalTokens)
	assert.Greater(t, *usage.PromptTokens, 0)
	assert.Equal(t, *usage.PromptTokens+*usage.CompletionTokens, *usage.TotalTokens)
}

func TestOpenAICompatAskWaitsOnRateLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewOpenAICompat("test-provider", nil)
	c.DefaultBaseURL = server.URL
	c.Limiter = rate.NewLimiter(rate.Limit(1000), 1) // generous but non-nil: exercises the Wait path

	_, _, err := c.Ask(context.Background(), "hello")
	require.NoError(t, err)
}

func TestOpenAICompatAskReturnsAPIErrorOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	c := NewOpenAICompat("test-provider", nil)
	c.DefaultBaseURL = server.URL

	_, _, err := c.Ask(context.Background(), "hi")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}
