// Package llmclient implements the HTTP clients: the OpenAI-compatible
// chat-completions client, the OpenRouter client, and a deterministic
// mock used for tests and offline demos.
package llmclient

import "context"

// Usage is the per-call accounting extracted from a provider response.
type Usage struct {
	Provider         string
	Model            string
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
	Cost             *float64
}

// Client is a session-bound callable LLM endpoint.
type Client interface {
	// Ask sends prompt and returns the model's reply text plus usage
	// accounting for the call.
	Ask(ctx context.Context, prompt string) (string, Usage, error)
}

// pick returns the first non-empty of sessionVal, envVal, fallback.
func pick(sessionVal, envVal, fallback string) string {
	if sessionVal != "" {
		return sessionVal
	}
	if envVal != "" {
		return envVal
	}
	return fallback
}
