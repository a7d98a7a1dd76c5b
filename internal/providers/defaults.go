package providers

// defaultEntries is the built-in provider catalog merged into the
// registry file on first load.
func defaultEntries() map[string]Entry {
	return map[string]Entry{
		"mock-local": {
			Kind:         "mock",
			Description:  "Local deterministic mock provider",
			Capabilities: []string{},
		},
		"openrouter": {
			Kind:              "openrouter",
			Description:       "OpenRouter API provider (requires OPENROUTER_API_KEY)",
			DefaultModel:      "openai/gpt-4o-mini",
			SupportsModelList: true,
			Capabilities: []string{
				"temperature", "max_tokens", "top_p", "presence_penalty",
				"frequency_penalty", "stop_sequences", "thinking",
			},
			ParamAliases: map[string]string{
				"enable_thinking":        "thinking.enabled",
				"thinking_budget_tokens": "thinking.max_tokens",
			},
		},
		"openai-http": {
			Kind:         "openai-compatible",
			Description:  "Generic OpenAI-compatible endpoint (configure base URL/API key/model)",
			BaseURL:      "",
			Path:         "/v1/chat/completions",
			DefaultModel: "gpt-4o-mini",
			Capabilities: []string{
				"temperature", "max_tokens", "top_p", "presence_penalty",
				"frequency_penalty", "stop_sequences",
			},
		},
		"ollama": {
			Kind:         "openai-compatible",
			Description:  "Local Ollama via OpenAI-compatible /v1/chat/completions",
			BaseURL:      "http://localhost:11434",
			Path:         "/v1/chat/completions",
			DefaultModel: "llama3.1",
			Capabilities: []string{"temperature", "max_tokens", "top_p", "top_k", "stop_sequences"},
			ParamAliases: map[string]string{"mirostat": "extras.mirostat"},
		},
		"deepseek": {
			Kind:         "openai-compatible",
			Description:  "DeepSeek OpenAI-compatible API",
			BaseURL:      "https://api.deepseek.com",
			Path:         "/v1/chat/completions",
			DefaultModel: "deepseek-chat",
			Capabilities: []string{"temperature", "max_tokens", "top_p", "stop_sequences", "thinking"},
			ParamAliases: map[string]string{"enable_thinking": "thinking.enabled"},
		},
		"qwen": {
			Kind:         "openai-compatible",
			Description:  "Qwen via DashScope OpenAI-compatible API",
			BaseURL:      "https://dashscope.aliyuncs.com",
			Path:         "/compatible-mode/v1/chat/completions",
			DefaultModel: "qwen-turbo",
			Capabilities: []string{"temperature", "max_tokens", "top_p", "stop_sequences"},
		},
		"kimi": {
			Kind:         "openai-compatible",
			Description:  "Kimi (Moonshot) OpenAI-compatible API",
			BaseURL:      "https://api.moonshot.cn",
			Path:         "/v1/chat/completions",
			DefaultModel: "kimi-k2-0905-preview",
			Capabilities: []string{"temperature", "max_tokens", "top_p", "stop_sequences", "web_search"},
			ParamAliases: map[string]string{"web_search": "extras.enable_web_search"},
		},
		"zhipuglm": {
			Kind:         "openai-compatible",
			Description:  "Zhipu GLM OpenAI-compatible API",
			BaseURL:      "https://open.bigmodel.cn/api/paas/v4",
			Path:         "/chat/completions",
			DefaultModel: "glm-4",
			Capabilities: []string{"temperature", "max_tokens", "top_p", "stop_sequences", "web_search"},
			ParamAliases: map[string]string{"web_search": "extras.enable_web_search"},
		},
		"gemini": {
			Kind:         "openai-compatible",
			Description:  "Google Gemini OpenAI-compatible API",
			BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
			Path:         "/chat/completions",
			DefaultModel: "gemini-2.5-flash",
			Capabilities: []string{"temperature", "max_tokens", "top_p", "stop_sequences"},
		},
		"llama-cpp": {
			Kind:         "openai-compatible",
			Description:  "llama.cpp local server (OpenAI-compatible)",
			BaseURL:      "http://localhost:8080",
			Path:         "/v1/chat/completions",
			DefaultModel: "llama",
			Capabilities: []string{
				"temperature", "max_tokens", "top_p", "top_k",
				"stop_sequences", "repeat_penalty", "mirostat",
			},
			ParamAliases: map[string]string{
				"repeat_penalty": "extras.repeat_penalty",
				"mirostat":       "extras.mirostat",
			},
		},
		"modelscope": {
			Kind:              "openai-compatible",
			Description:       "ModelScope OpenAI-compatible inference API",
			BaseURL:           "https://api-inference.modelscope.cn",
			Path:              "/v1/chat/completions",
			DefaultModel:      "deepseek-ai/DeepSeek-R1-Distill-Llama-8B",
			SupportsModelList: true,
			Capabilities:      []string{"temperature", "max_tokens", "top_p", "stop_sequences", "thinking"},
			ParamAliases:      map[string]string{"thinking_budget_tokens": "thinking.max_tokens"},
		},
	}
}
