package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/guiperry/dbgcopilot/internal/errs"
	"github.com/guiperry/dbgcopilot/internal/params"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
const openRouterModelsURL = "https://openrouter.ai/api/v1/models"

// OpenRouter is the hard-coded OpenRouter chat-completions client.
type OpenRouter struct {
	Session       map[string]any
	APIKey        string
	Model         string
	SessionParams map[string]any
	HTTPClient    *http.Client
}

// NewOpenRouter builds a session-bound OpenRouter client.
func NewOpenRouter(session map[string]any, apiKey, model string) *OpenRouter {
	return &OpenRouter{
		Session:    session,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *OpenRouter) apiKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if v, ok := c.Session["openrouter_api_key"].(string); ok && v != "" {
		return v
	}
	return os.Getenv("OPENROUTER_API_KEY")
}

func (c *OpenRouter) model() string {
	if c.Model != "" {
		return c.Model
	}
	if v, ok := c.Session["openrouter_model"].(string); ok && v != "" {
		return v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		return v
	}
	return "openai/gpt-4o-mini"
}

// Ask implements Client.
func (c *OpenRouter) Ask(ctx context.Context, prompt string) (string, Usage, error) {
	key := c.apiKey()
	if key == "" {
		return "", Usage{}, errs.NewLLMError(errs.Config,
			"OpenRouter API key not configured (OPENROUTER_API_KEY or session config)", nil)
	}

	model := c.model()
	body := map[string]any{
		"model":       model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens":  512,
		"temperature": 0.2,
	}
	if len(c.SessionParams) > 0 {
		params.ApplyParams(body, c.SessionParams, nil)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", Usage{}, errs.NewLLMError(errs.Request, "failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterURL, bytes.NewReader(payload))
	if err != nil {
		return "", Usage{}, errs.NewLLMError(errs.Request, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("HTTP-Referer", envOr("OPENROUTER_HTTP_REFERER", "https://github.com/oldzhu/dbgcopilot"))
	req.Header.Set("X-Title", envOr("OPENROUTER_TITLE", "dbgcopilot"))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", Usage{}, errs.NewLLMError(errs.Provider, "OpenRouter request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := truncate(strings.ReplaceAll(string(raw), "\n", " "), 200)
		return "", Usage{}, errs.NewLLMError(errs.API, fmt.Sprintf("OpenRouter HTTP %d: %s", resp.StatusCode, snippet), nil)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", Usage{}, errs.NewLLMError(errs.Response, fmt.Sprintf("OpenRouter returned non-JSON response:\n%s", string(raw)), err)
	}

	content := extractContent(data)
	usage := extractOpenRouterUsage(data, model)
	return content, usage, nil
}

// ListModels fetches the public OpenRouter catalog.
func (c *OpenRouter) ListModels(ctx context.Context) ([]string, error) {
	headers := map[string]string{"Accept": "application/json"}
	if key := c.apiKey(); key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	models, ok := tryListModels(ctx, c.HTTPClient, openRouterModelsURL, headers, "data", "id", "name")
	if !ok {
		return []string{}, nil
	}
	return models, nil
}

func extractOpenRouterUsage(data map[string]any, model string) Usage {
	usage := Usage{Provider: "openrouter", Model: model}
	obj, ok := data["usage"].(map[string]any)
	if !ok {
		if meta, ok := data["meta"].(map[string]any); ok {
			obj, _ = meta["usage"].(map[string]any)
		}
	}
	if obj == nil {
		return usage
	}
	if v, ok := asInt(obj["prompt_tokens"]); ok {
		usage.PromptTokens = &v
	}
	if v, ok := asInt(obj["completion_tokens"]); ok {
		usage.CompletionTokens = &v
	}
	if v, ok := asInt(obj["total_tokens"]); ok {
		usage.TotalTokens = &v
	}
	for _, key := range []string{"total_cost", "total_cost_usd", "cost"} {
		if v, ok := asFloat(obj[key]); ok {
			usage.Cost = &v
			break
		}
	}
	return usage
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
