package agent

import "github.com/guiperry/dbgcopilot/internal/llmclient"

// usageEntry is one LLM call's accounting, rendered into the report's
// per-call usage list.
type usageEntry struct {
	Provider         string
	Model            string
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
	Cost             *float64
}

// usageTracker accumulates per-call usage into running totals.
type usageTracker struct {
	entries    []usageEntry
	prompt     int
	completion int
	total      int
	cost       float64
}

func (t *usageTracker) record(provider, model string, u llmclient.Usage) {
	entry := usageEntry{Provider: provider, Model: model, PromptTokens: u.PromptTokens,
		CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens, Cost: u.Cost}
	if u.Provider != "" {
		entry.Provider = u.Provider
	}
	if u.Model != "" {
		entry.Model = u.Model
	}
	if u.PromptTokens != nil {
		t.prompt += *u.PromptTokens
	}
	if u.CompletionTokens != nil {
		t.completion += *u.CompletionTokens
	}
	if u.TotalTokens != nil {
		t.total += *u.TotalTokens
	}
	if u.Cost != nil {
		t.cost += *u.Cost
	}
	t.entries = append(t.entries, entry)
}

func (t *usageTracker) hasEntries() bool { return len(t.entries) > 0 }
