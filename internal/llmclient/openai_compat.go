package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/time/rate"

	"github.com/guiperry/dbgcopilot/internal/errs"
	"github.com/guiperry/dbgcopilot/internal/params"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// slugToEnvPrefix converts a provider name into its env-var prefix, e.g.
// "openai-http" -> "OPENAI_HTTP".
func slugToEnvPrefix(name string) string {
	return strings.ToUpper(nonAlnum.ReplaceAllString(name, "_"))
}

// OpenAICompatConfig bundles the resolved settings for one call.
type OpenAICompatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Path    string
	Headers map[string]string
}

// resolveOpenAICompatConfig implements a precedence chain: session config
// -> environment variables -> registry defaults -> built-ins, plus a
// handful of per-vendor hardcoded fallbacks.
func resolveOpenAICompatConfig(name string, session map[string]any, defaultBaseURL, defaultPath, defaultModel string, defaultHeaders map[string]string) OpenAICompatConfig {
	key := strings.ReplaceAll(name, "-", "_")
	prefix := slugToEnvPrefix(name)

	sessionStr := func(k string) string {
		if v, ok := session[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}

	baseURL := pick(sessionStr(key+"_base_url"), os.Getenv(prefix+"_BASE_URL"), "")
	apiKey := pick(sessionStr(key+"_api_key"), os.Getenv(prefix+"_API_KEY"), "")
	model := pick(sessionStr(key+"_model"), os.Getenv(prefix+"_MODEL"), "")
	path := pick(sessionStr(key+"_path"), os.Getenv(prefix+"_PATH"), "")

	headers := map[string]string{}
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	if raw := pick(sessionStr(key+"_headers"), os.Getenv(prefix+"_HEADERS"), ""); raw != "" {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			for k, v := range parsed {
				headers[k] = v
			}
		}
	}

	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if path == "" {
		path = defaultPath
	}

	switch name {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if model == "" {
			model = "llama3.1"
		}
	case "deepseek":
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		if model == "" {
			model = "deepseek-chat"
		}
	case "qwen":
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com"
		}
		if path == "" || path == "/v1/chat/completions" {
			path = "/compatible-mode/v1/chat/completions"
		}
		if model == "" {
			model = "qwen-turbo"
		}
	case "kimi":
		if baseURL == "" {
			baseURL = "https://api.moonshot.cn"
		}
		if model == "" {
			model = "moonshot-v1-8k"
		}
	case "zhipuglm":
		if baseURL == "" {
			baseURL = "https://open.bigmodel.cn/api/paas/v4"
		}
		if path == "" {
			path = "/chat/completions"
		}
		if model == "" {
			model = "glm-4"
		}
	case "llama-cpp":
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}
		if model == "" {
			model = "llama"
		}
	case "modelscope":
		if baseURL == "" {
			baseURL = "https://api-inference.modelscope.cn"
		}
		if model == "" {
			model = "deepseek-ai/DeepSeek-R1-Distill-Llama-8B"
		}
	}

	if path == "" {
		path = "/v1/chat/completions"
	}

	return OpenAICompatConfig{BaseURL: baseURL, APIKey: apiKey, Model: model, Path: path, Headers: headers}
}

// OpenAICompat is the generic OpenAI-compatible chat-completions client.
type OpenAICompat struct {
	Name            string
	Session         map[string]any
	DefaultBaseURL  string
	DefaultPath     string
	DefaultModel    string
	DefaultHeaders  map[string]string
	Capabilities    []string
	ParamAliases    map[string]string
	SessionParams   map[string]any
	DefaultParams   map[string]any
	DefaultTemp     float64
	DefaultMaxToken int
	HTTPClient      *http.Client
	// Limiter throttles outgoing requests when the registry entry
	// carries a rate_limit_per_sec; nil means unlimited.
	Limiter *rate.Limiter
}

// NewOpenAICompat builds a client for one provider entry, session-bound.
func NewOpenAICompat(name string, session map[string]any) *OpenAICompat {
	return &OpenAICompat{
		Name:            name,
		Session:         session,
		DefaultPath:     "/v1/chat/completions",
		DefaultTemp:     0.0,
		DefaultMaxToken: 512,
		HTTPClient:      &http.Client{Timeout: 20 * time.Second},
	}
}

// Ask implements Client.
func (c *OpenAICompat) Ask(ctx context.Context, prompt string) (string, Usage, error) {
	cfg := resolveOpenAICompatConfig(c.Name, c.Session, c.DefaultBaseURL, c.DefaultPath, c.DefaultModel, c.DefaultHeaders)
	if cfg.BaseURL == "" {
		return "", Usage{}, errs.NewLLMError(errs.Config, fmt.Sprintf(
			"%s: base_url not configured. Set %s_base_url in session config or %s_BASE_URL in env.",
			c.Name, strings.ReplaceAll(c.Name, "-", "_"), slugToEnvPrefix(c.Name)), nil)
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	headers := map[string]string{"Content-Type": "application/json", "Accept": "application/json"}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	hasAuth := false
	for k := range headers {
		if strings.EqualFold(k, "authorization") {
			hasAuth = true
		}
	}
	if cfg.APIKey != "" && !hasAuth {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	path := cfg.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(cfg.BaseURL, "/") + path

	body := map[string]any{
		"model":    model,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
	}
	maxTokens := c.DefaultMaxToken
	if maxTokens == 0 {
		maxTokens = 512
	}
	body["max_tokens"] = maxTokens
	body["temperature"] = c.DefaultTemp

	if len(c.DefaultParams) > 0 {
		params.ApplyParams(body, c.DefaultParams, nil)
	}
	if len(c.SessionParams) > 0 {
		params.ApplyParams(body, c.SessionParams, nil)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", Usage{}, errs.NewLLMError(errs.Request, "failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", Usage{}, errs.NewLLMError(errs.Request, "failed to build request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", Usage{}, errs.NewLLMError(errs.Request, "rate limiter wait interrupted", err)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", Usage{}, errs.NewLLMError(errs.Provider, fmt.Sprintf("%s request failed", c.Name), err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := truncate(strings.ReplaceAll(string(raw), "\n", " "), 200)
		return "", Usage{}, errs.NewLLMError(errs.API, fmt.Sprintf("%s HTTP %d for %s: %s", c.Name, resp.StatusCode, url, snippet), nil)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "json") {
		snippet := truncate(strings.ReplaceAll(string(raw), "\n", " "), 400)
		return "", Usage{}, errs.NewLLMError(errs.Response, fmt.Sprintf(
			"%s returned non-JSON payload (content-type=%s). Response snippet: %s",
			c.Name, orUnknown(contentType), snippet), nil)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		snippet := truncate(string(raw), 400)
		return "", Usage{}, errs.NewLLMError(errs.Response, fmt.Sprintf(
			"%s returned invalid JSON (status %d). Snippet: %s", c.Name, resp.StatusCode, snippet), err)
	}

	content := extractContent(data)
	usage := extractUsage(data, c.Name, model)
	if usage.PromptTokens == nil && usage.TotalTokens == nil {
		usage = estimateUsage(prompt, content, c.Name, model)
	}
	return content, usage, nil
}

// estimateUsage best-effort counts tokens with tiktoken when a provider's
// response omits usage accounting entirely.
func estimateUsage(prompt, completion, providerName, model string) Usage {
	usage := Usage{Provider: providerName, Model: model}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return usage
		}
	}
	promptTokens := len(enc.Encode(prompt, nil, nil))
	completionTokens := len(enc.Encode(completion, nil, nil))
	total := promptTokens + completionTokens
	usage.PromptTokens = &promptTokens
	usage.CompletionTokens = &completionTokens
	usage.TotalTokens = &total
	return usage
}

// ListModels discovers available models for OpenAI-compatible endpoints,
// with an Ollama /api/tags fallback.
func (c *OpenAICompat) ListModels(ctx context.Context) ([]string, error) {
	cfg := resolveOpenAICompatConfig(c.Name, c.Session, c.DefaultBaseURL, c.DefaultPath, c.DefaultModel, c.DefaultHeaders)
	if cfg.BaseURL == "" {
		return nil, errs.NewLLMError(errs.Config, fmt.Sprintf("%s: base_url not configured; cannot list models", c.Name), nil)
	}
	headers := map[string]string{"Accept": "application/json"}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	if models, ok := tryListModels(ctx, c.HTTPClient, base+"/v1/models", headers, "data", "id", "name"); ok {
		return models, nil
	}
	if c.Name == "ollama" {
		if models, ok := tryListModels(ctx, c.HTTPClient, base+"/api/tags", headers, "models", "name", "model"); ok {
			return models, nil
		}
	}
	return []string{}, nil
}

func tryListModels(ctx context.Context, client *http.Client, url string, headers map[string]string, listKey, idKey, altIDKey string) ([]string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false
	}
	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, false
	}
	list, _ := data[listKey].([]any)
	var out []string
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m[idKey].(string); ok && id != "" {
			out = append(out, id)
			continue
		}
		if id, ok := m[altIDKey].(string); ok && id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func extractContent(data map[string]any) string {
	choices, ok := data["choices"].([]any)
	if ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if content, ok := msg["content"].(string); ok {
					return content
				}
			}
		}
	}
	raw, _ := json.Marshal(data)
	return string(raw)
}

func extractUsage(data map[string]any, providerName, model string) Usage {
	usage := Usage{Provider: providerName, Model: model}
	obj, ok := data["usage"].(map[string]any)
	if !ok {
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

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
