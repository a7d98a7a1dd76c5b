package llmclient

import (
	"context"
	"strings"
)

// Mock is a deterministic offline provider (registry kind "mock"),
// grounded on the original's `_mock_ask`. Used for tests and as the
// zero-configuration default so the REPL/agent are usable without any
// API key.
type Mock struct{}

// NewMock builds a Mock client.
func NewMock() *Mock { return &Mock{} }

// Ask implements Client.
func (m *Mock) Ask(_ context.Context, prompt string) (string, Usage, error) {
	lowered := strings.ToLower(prompt)
	var reply string
	switch {
	case strings.Contains(lowered, "explain"):
		reply = "(mock) This output shows a crash in main; inspect backtrace (bt)."
	case strings.Contains(lowered, "convert") || strings.Contains(lowered, "pseudo"):
		reply = "(mock) Pseudocode: function foo() { /* ... */ }"
	default:
		reply = "(mock) I suggest running 'bt' and 'info locals'."
	}
	return reply, Usage{Provider: "mock-local", Model: "mock"}, nil
}
