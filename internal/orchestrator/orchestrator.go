// Package orchestrator implements the turn loop: prompt assembly under
// a size budget, provider dispatch, <cmd> extraction, confirmation
// gating, execution, followup prompting, and context-overflow handoff.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guiperry/dbgcopilot/internal/backend"
	"github.com/guiperry/dbgcopilot/internal/errs"
	"github.com/guiperry/dbgcopilot/internal/logging"
	"github.com/guiperry/dbgcopilot/internal/providers"
	"github.com/guiperry/dbgcopilot/internal/session"
)

const (
	headTailTruncateLen = 2000
	summaryTruncateLen  = 1200
	recentAttempts      = 5
	llmCallTimeout      = 20 * time.Second
)

// Orchestrator is the per-session turn loop. It holds non-owning
// references to a backend and a session: the session never references
// the backend, and the orchestrator holds both separately.
type Orchestrator struct {
	Backend      backend.Backend
	State        *session.State
	Registry     *providers.Registry
	PromptConfig PromptConfig
	PromptSource string
}

// New builds an Orchestrator, loading the prompt config for the
// backend's name with the standard precedence chain.
func New(b backend.Backend, st *session.State, reg *providers.Registry, promptDir string) *Orchestrator {
	cfg, source := LoadPromptConfig(promptDir, b.Name())
	return &Orchestrator{Backend: b, State: st, Registry: reg, PromptConfig: cfg, PromptSource: source}
}

// ReloadPrompts re-reads the prompt config from its resolved source.
func (o *Orchestrator) ReloadPrompts(promptDir string) string {
	o.PromptConfig, o.PromptSource = LoadPromptConfig(promptDir, o.Backend.Name())
	return fmt.Sprintf("[copilot] Prompts reloaded from %s.", o.PromptSource)
}

// GetPromptConfig returns the active config; callers needing the source
// label should also read PromptSource.
func (o *Orchestrator) GetPromptConfig() PromptConfig { return o.PromptConfig }

// Ask is the orchestrator's public entry point.
func (o *Orchestrator) Ask(ctx context.Context, question string) string {
	text := strings.TrimSpace(question)
	if text == "" {
		return ""
	}

	// Step 1 — pending confirmation.
	if o.State.PendingCommand != "" {
		return o.resolveConfirmation(ctx, text)
	}

	// Step 3 — overflow guard (evaluated before prompt assembly proper,
	// since it must short-circuit the provider dispatch entirely).
	prevLines := append(append([]string{}, o.State.Chatlog...), "User: "+text)
	transcript := strings.Join(prevLines, "\n")
	maxChars := o.PromptConfig.MaxContextChars
	if maxChars <= 0 {
		maxChars = 16000
	}
	if len(transcript) > maxChars {
		if resp, handled := o.handleOverflow(ctx, text); handled {
			return resp
		}
	}

	// Step 2 — prompt assembly.
	primed := o.buildPrompt(text)

	// Step 4 — provider dispatch.
	answer, err := o.dispatch(ctx, primed)
	if err != nil {
		errs.HandleError(err, false, logging.NewFieldLogger())
		msg := fmt.Sprintf("LLM provider error: %v", err)
		return colorText("[copilot] "+msg, "red", false, o.State.ColorsEnabled)
	}

	o.State.PushChat("User: " + text)
	o.State.PushChat("Assistant: " + strings.TrimSpace(answer))
	o.State.PushFact("Q: " + text)
	o.State.PushFact("A: " + firstLine(answer))

	// Step 5 — command extraction.
	cmd, explanation, found := extractCmd(answer)
	if !found {
		if o.State.ColorsEnabled {
			return colorText(answer, "green", false, true)
		}
		return answer
	}

	// Step 6 — execution / confirmation.
	if o.State.AutoAcceptCommands {
		return o.executeAuto(ctx, strings.TrimSpace(cmd), explanation)
	}
	return o.requestConfirmation(strings.TrimSpace(cmd), explanation)
}

// resolveConfirmation implements Step 1: the user's text is a reply to
// a pending command proposal.
func (o *Orchestrator) resolveConfirmation(ctx context.Context, reply string) string {
	cmd := o.State.PendingCommand
	o.State.PendingCommand = ""
	lower := strings.ToLower(strings.TrimSpace(reply))

	switch lower {
	case "y", "yes":
		return o.executeWithFollowup(ctx, cmd)
	case "a", "auto", "auto yes", "auto-yes":
		limit := session.DefaultAutoRoundLimit
		switch v := o.State.Config["auto_round_limit"].(type) {
		case int:
			limit = v
		case float64:
			limit = int(v)
		case string:
			fmt.Sscanf(strings.TrimSpace(v), "%d", &limit)
		}
		if limit < 1 {
			limit = 1
		}
		o.State.AutoAcceptCommands = true
		o.State.AutoRoundsRemaining = &limit
		out := o.executeWithFollowup(ctx, cmd)
		return "Auto-accept enabled for this session.\n" + out
	default:
		return "Command skipped."
	}
}

// executeAuto implements the auto-mode branch of Step 6: stream the
// explanation, decrement the budget (leaving auto mode when it reaches
// zero), execute, and recurse once via a synthetic followup turn.
func (o *Orchestrator) executeAuto(ctx context.Context, cmd, explanation string) string {
	if strings.TrimSpace(explanation) != "" {
		if o.State.ChatOutputSink != nil {
			o.State.ChatOutputSink(explanation)
			o.State.LastAnswerStreamed = true
		} else {
			o.State.PendingChat = append(o.State.PendingChat, explanation)
		}
	}
	if o.decrementAutoBudget(); o.State.AutoRoundsRemaining != nil && *o.State.AutoRoundsRemaining <= 0 {
		o.State.AutoAcceptCommands = false
		o.State.AutoRoundsRemaining = nil
	}
	out := o.executeWithFollowup(ctx, cmd)
	visible := explanation
	if visible != "" {
		visible += "\n"
	}
	return visible + out
}

func (o *Orchestrator) decrementAutoBudget() {
	if o.State.AutoRoundsRemaining == nil {
		return
	}
	*o.State.AutoRoundsRemaining--
}

// requestConfirmation implements the manual-mode branch of Step 6.
func (o *Orchestrator) requestConfirmation(cmd, explanation string) string {
	o.State.PendingCommand = cmd
	label := o.Backend.Name()

	echo := colorText(fmt.Sprintf("%s> %s", label, cmd), "cyan", true, o.State.ColorsEnabled)
	msg := strings.TrimSpace(explanation)
	if msg != "" {
		msg += "\n"
	}
	msg += fmt.Sprintf("[copilot] I plan to run:\n%s\nRun it? (y(es)/n(o)/a(uto yes))", echo)

	event := session.ChatEvent{Type: "command_proposal", Command: cmd, Label: label, Explanation: explanation}
	if o.State.ChatEventSink != nil {
		o.State.ChatEventSink(event)
	} else {
		o.State.PendingChatEvents = append(o.State.PendingChatEvents, event)
	}
	return msg
}

// executeWithFollowup implements Step 7 plus the auto-mode followup
// turn described in Step 6: run the command once, then recurse with a
// synthetic user turn reporting the output, concatenating the visible
// segments.
func (o *Orchestrator) executeWithFollowup(ctx context.Context, cmd string) string {
	out := o.executeOnce(cmd)
	followup := fmt.Sprintf(
		"The debugger command `%s` was executed.\nDebugger output:\n%s\nWhat should we do next? "+
			"Remember to wrap any future debugger commands inside <cmd>...</cmd>.",
		cmd, orPlaceholder(out, "(no output)"))
	next := o.Ask(ctx, followup)
	if next == "" {
		return out
	}
	return out + "\n" + next
}

// executeOnce runs a single command against the backend, echoes it,
// records state, and routes through the sink or pending buffer.
func (o *Orchestrator) executeOnce(cmd string) string {
	raw := o.Backend.RunCommand(cmd, 0)
	label := o.Backend.Name()
	echo := colorText(fmt.Sprintf("%s> %s", label, cmd), "cyan", true, o.State.ColorsEnabled)

	full := echo
	if raw != "" {
		full = echo + "\n" + raw
	}

	o.State.LastOutput = full
	o.State.PushAttempt(cmd, raw)
	o.State.PushChat(fmt.Sprintf("Assistant: (executed) %s\n%s", cmd, raw))

	streamed := false
	if o.State.DebuggerOutputSink != nil {
		o.State.DebuggerOutputSink(full)
		streamed = true
	} else {
		o.State.PendingOutputs = append(o.State.PendingOutputs, full)
	}
	o.State.LastAnswerStreamed = streamed

	if raw != "" {
		o.State.PushFact("O: " + firstLine(raw))
	}
	return full
}

// handleOverflow implements Step 3. The second return is false when the
// overflow threshold wasn't actually exceeded or the caller should fall
// through to normal prompt assembly (never happens in this codepath,
// kept for symmetry with the caller's early-return style).
func (o *Orchestrator) handleOverflow(ctx context.Context, text string) (string, bool) {
	choice := strings.ToLower(strings.TrimSpace(text))
	switch choice {
	case "summarize and new session", "summarise and new session":
		summary := o.summarizeViaLLM(ctx)
		o.State.Rotate()
		if summary != "" {
			o.State.PushFact("Summary: " + firstLine(summary))
		}
		return fmt.Sprintf(
			"[copilot] Started a new session: %s\nHere is a brief summary of the previous session for reference:\n%s",
			o.State.SessionID, summary), true
	case "new session", "start new session", "new":
		o.State.Rotate()
		return fmt.Sprintf("[copilot] Started a fresh session: %s", o.State.SessionID), true
	default:
		return "[copilot] Your session context is quite large. Would you like me to summarize the " +
			"current session and start a new one from that summary, or start a fresh session " +
			"without a summary? Reply with 'summarize and new session' or 'new session'.", true
	}
}

// buildPrompt implements Step 2.
func (o *Orchestrator) buildPrompt(question string) string {
	cfg := o.PromptConfig
	preamble := strings.ReplaceAll(cfg.SystemPreamble, "{debugger}", o.Backend.Name()) +
		strings.ReplaceAll(cfg.AssistantCmdTagInstructions, "{debugger}", o.Backend.Name())
	var rulesLines strings.Builder
	for _, r := range cfg.Rules {
		rulesLines.WriteString("- " + r + "\n")
	}
	if rulesLines.Len() > 0 {
		preamble += "Rules:\n" + rulesLines.String()
	}

	var ctxBlock strings.Builder
	if goal := strings.TrimSpace(o.State.Goal); goal != "" {
		ctxBlock.WriteString("Goal: " + goal + "\n")
	}
	if attempts := o.State.LastAttempts(recentAttempts); len(attempts) > 0 {
		var lines []string
		for _, a := range attempts {
			if a.OutputSnippet != "" {
				lines = append(lines, fmt.Sprintf("- %s: %s", a.Cmd, a.OutputSnippet))
			}
		}
		if len(lines) > 0 {
			ctxBlock.WriteString("Recent commands and snippets:\n" + strings.Join(lines, "\n") + "\n")
		}
	}
	if last := headTailTruncate(o.State.LastOutput, headTailTruncateLen); last != "" {
		ctxBlock.WriteString("Last output:\n" + last + "\n")
	}
	if len(o.State.Chatlog) > 0 {
		ctxBlock.WriteString("\nFull conversation so far:\n" + strings.Join(o.State.Chatlog, "\n") + "\n")
	}

	langHint := ""
	if wantsChinese(question) {
		langHint = cfg.LanguageHintZh
	}

	primed := preamble
	if ctxBlock.Len() > 0 {
		primed += "\n" + ctxBlock.String()
	}
	if langHint != "" {
		primed += "\n" + langHint
	}
	primed += "\nUser: " + strings.TrimSpace(question) + "\nAssistant:"
	return primed
}

// dispatch implements Step 4: resolve the selected provider and invoke
// its session-bound client.
func (o *Orchestrator) dispatch(ctx context.Context, prompt string) (string, error) {
	name := o.State.SelectedProvider
	if name == "" {
		name = o.State.ProviderName
	}
	if name == "" {
		return "[copilot] (placeholder) I'm ready to help. Ask anything about your debug session.", nil
	}
	client, err := o.Registry.CreateClient(name, o.sessionConfig(name))
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()
	answer, _, err := client.Ask(callCtx, prompt)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// sessionConfig builds the map[string]any the provider clients expect,
// overlaying the session's per-provider key/model overrides onto the
// stored config.
func (o *Orchestrator) sessionConfig(provider string) map[string]any {
	out := make(map[string]any, len(o.State.Config)+3)
	for k, v := range o.State.Config {
		out[k] = v
	}
	key := strings.ReplaceAll(provider, "-", "_")
	if o.State.ProviderAPIKey != "" {
		out[key+"_api_key"] = o.State.ProviderAPIKey
		out["openrouter_api_key"] = o.State.ProviderAPIKey
	}
	if o.State.ModelOverride != "" {
		out[key+"_model"] = o.State.ModelOverride
		out["openrouter_model"] = o.State.ModelOverride
	}
	return out
}

// summarizeViaLLM asks the active provider for a concise summary using
// trimmed, high-signal context, falling back to the local Summary() on
// any provider error.
func (o *Orchestrator) summarizeViaLLM(ctx context.Context) string {
	attempts := o.State.LastAttempts(recentAttempts)
	var attemptLines []string
	for _, a := range attempts {
		if a.OutputSnippet != "" {
			attemptLines = append(attemptLines, fmt.Sprintf("- %s: %s", a.Cmd, a.OutputSnippet))
		}
	}
	lastOut := headTailTruncate(o.State.LastOutput, summaryTruncateLen)
	chatTail := o.State.Chatlog
	if len(chatTail) > 40 {
		chatTail = chatTail[len(chatTail)-40:]
	}

	prompt := "You are a helpful debugging assistant. Produce a concise summary of the session below.\n" +
		"Keep it to 5-8 bullet points, plus one short suggested next step if relevant.\n" +
		"Do NOT include any preamble or extra text; output only the summary text.\n\n"
	if goal := strings.TrimSpace(o.State.Goal); goal != "" {
		prompt += "Goal: " + goal + "\n"
	}
	if len(attemptLines) > 0 {
		prompt += "Recent commands and snippets:\n" + strings.Join(attemptLines, "\n") + "\n"
	}
	if lastOut != "" {
		prompt += "Last output (truncated):\n" + lastOut + "\n"
	}
	if len(chatTail) > 0 {
		prompt += "Recent chat (tail):\n" + strings.Join(chatTail, "\n") + "\n"
	}
	prompt += "\nSummary:"

	name := o.State.SelectedProvider
	if name == "" {
		name = o.State.ProviderName
	}
	if name != "" {
		if answer, err := o.dispatch(ctx, prompt); err == nil && strings.TrimSpace(answer) != "" {
			return answer
		}
	}
	return o.Summary()
}

// Summary returns a deterministic short text describing the session.
func (o *Orchestrator) Summary() string {
	provider := o.State.SelectedProvider
	if provider == "" {
		provider = "(none)"
	}
	attempts := o.State.LastAttempts(recentAttempts)
	var attemptLines []string
	for _, a := range attempts {
		if a.Cmd == "" {
			continue
		}
		snippet := a.OutputSnippet
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		attemptLines = append(attemptLines, fmt.Sprintf("  - %s: %s", a.Cmd, snippet))
	}

	var qaLines []string
	for _, f := range o.State.Facts {
		if strings.HasPrefix(f, "Q:") || strings.HasPrefix(f, "A:") {
			qaLines = append(qaLines, f)
		}
	}
	if len(qaLines) > 6 {
		qaLines = qaLines[len(qaLines)-6:]
	}

	lastOut := headTailTruncate(o.State.LastOutput, 400)

	parts := []string{
		fmt.Sprintf("[copilot] Session %s", o.State.SessionID),
		fmt.Sprintf("Debugger: %s", o.Backend.Name()),
		fmt.Sprintf("Provider: %s", provider),
	}
	if goal := strings.TrimSpace(o.State.Goal); goal != "" {
		parts = append(parts, "Goal: "+goal)
	}
	if len(attemptLines) > 0 {
		parts = append(parts, "Recent commands:", strings.Join(attemptLines, "\n"))
	}
	if lastOut != "" {
		parts = append(parts, "Last output:", "  "+strings.ReplaceAll(lastOut, "\n", "\n  "))
	}
	if len(qaLines) > 0 {
		var indented []string
		for _, l := range qaLines {
			indented = append(indented, "  "+l)
		}
		parts = append(parts, "Recent chat:", strings.Join(indented, "\n"))
	}
	return strings.Join(parts, "\n")
}

func headTailTruncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	half := maxChars / 2
	return s[:half] + "\n... [truncated] ...\n" + s[len(s)-half:]
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
