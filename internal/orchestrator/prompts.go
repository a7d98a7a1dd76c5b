package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// PromptConfig is the JSON-backed bundle influencing prompt assembly.
type PromptConfig struct {
	MaxContextChars            int      `json:"max_context_chars"`
	SystemPreamble             string   `json:"system_preamble"`
	AssistantCmdTagInstructions string  `json:"assistant_cmd_tag_instructions"`
	Rules                      []string `json:"rules"`
	LanguageHintZh             string   `json:"language_hint_zh"`
}

// defaultPromptConfig mirrors the original's built-in fallback so the
// orchestrator works with no configs/ directory at all.
func defaultPromptConfig() PromptConfig {
	return PromptConfig{
		MaxContextChars: 16000,
		SystemPreamble: "You are a debugging copilot embedded inside {debugger}.\n" +
			"Interaction mode: human-in-the-loop. Whenever you believe a debugger command should run, " +
			"include it inside <cmd>...</cmd> right away;\n" +
			"the host will handle user confirmation before execution.\n",
		AssistantCmdTagInstructions: "Protocol (single-step planning):\n" +
			"1) Provide concise reasoning or guidance in natural language.\n" +
			"2) If you want the debugger to run a command, emit exactly one <cmd>command</cmd> in the same reply " +
			"(it may be on a new line).\n" +
			"3) Keep the command inside <cmd> to a single {debugger} instruction — no multiple commands, scripts, or ';' chaining.\n" +
			"4) If you do not need to run a command yet, omit <cmd> entirely and continue the discussion.\n" +
			"The host will show the command to the user for (y/n/a) confirmation before execution.\n",
		Rules: []string{
			"Prefer the suitable and reasonable command(s) for the situation.",
			"Never fabricate output; quote exact snippets from tool results.",
			"Keep answers concise and actionable.",
			"When recommending a command, always wrap only that command in <cmd>...</cmd> and do not prefix with a debugger prompt echo.",
			"Never include multiple commands inside <cmd>; do not use ';' to chain commands.",
			"Never say you can't run executables directly or similar disclaimers.",
		},
		LanguageHintZh: "Please answer in Simplified Chinese (中文).\n",
	}
}

// LoadPromptConfig resolves the prompt bundle with precedence: the
// DBGCOPILOT_PROMPTS env path, a profile-specific "prompts.<backend>.json"
// under dir, a default "prompts.json" under dir, falling back to the
// built-in defaults at each step that doesn't exist or doesn't parse.
// Returns the resolved config and a human-readable source label.
func LoadPromptConfig(dir, backendName string) (PromptConfig, string) {
	cfg := defaultPromptConfig()

	if envPath := os.Getenv("DBGCOPILOT_PROMPTS"); envPath != "" {
		if merged, ok := mergeFromFile(cfg, envPath); ok {
			return merged, envPath
		}
	}
	if backendName != "" {
		profile := filepath.Join(dir, "prompts."+backendName+".json")
		if merged, ok := mergeFromFile(cfg, profile); ok {
			return merged, profile
		}
	}
	defaultFile := filepath.Join(dir, "prompts.json")
	if merged, ok := mergeFromFile(cfg, defaultFile); ok {
		return merged, defaultFile
	}
	return cfg, "defaults"
}

func mergeFromFile(base PromptConfig, path string) (PromptConfig, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, false
	}
	var override map[string]any
	if err := json.Unmarshal(raw, &override); err != nil {
		return base, false
	}
	if v, ok := override["max_context_chars"].(float64); ok {
		base.MaxContextChars = int(v)
	}
	if v, ok := override["system_preamble"].(string); ok {
		base.SystemPreamble = v
	}
	if v, ok := override["assistant_cmd_tag_instructions"].(string); ok {
		base.AssistantCmdTagInstructions = v
	}
	if v, ok := override["language_hint_zh"].(string); ok {
		base.LanguageHintZh = v
	}
	if v, ok := override["rules"].([]any); ok {
		rules := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				rules = append(rules, s)
			}
		}
		base.Rules = rules
	}
	return base, true
}
