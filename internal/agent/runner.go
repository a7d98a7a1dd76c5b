package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/guiperry/dbgcopilot/internal/backend"
	"github.com/guiperry/dbgcopilot/internal/errs"
	"github.com/guiperry/dbgcopilot/internal/logging"
	"github.com/guiperry/dbgcopilot/internal/providers"
)

const (
	recentFactCount    = 10
	recentAttemptCount = 5
	lastOutputTruncate = 1200
	llmStepTimeout     = 30 * time.Second
)

var cmdTagRe = regexp.MustCompile(`(?is)<cmd>\s*(.*?)\s*</cmd>`)

// Runner drives one autonomous debugging session end to end: backend
// creation, debugger preparation, the bounded step loop, and report
// writing.
type Runner struct {
	req      *Request
	state    *agentState
	backend  backend.Backend
	registry *providers.Registry
	prompts  promptConfig
	log      *sessionLog
	usage    usageTracker
}

// NewRunner builds a Runner for req, resolving defaults (MaxSteps,
// session ID) as needed.
func NewRunner(req *Request, reg *providers.Registry) *Runner {
	if req.MaxSteps <= 0 {
		req.MaxSteps = DefaultMaxSteps
	}
	return &Runner{req: req, state: newAgentState(), registry: reg, prompts: defaultPromptConfig()}
}

// Run executes the full session and returns the final report text.
// The report is also written to req.ReportPath as a side effect,
// regardless of whether the loop finished early or exhausted its step
// budget.
func (r *Runner) Run(ctx context.Context) (string, error) {
	if r.req.LogEnabled {
		l, err := newSessionLog(r.req.LogPath)
		if err != nil {
			return "", fmt.Errorf("opening session log: %w", err)
		}
		r.log = l
		defer r.log.close()
	}

	r.logf("Starting dbgagent session %s", r.state.sessionID)
	r.logf("Debugger: %s", r.req.Debugger)
	r.logf("Provider: %s | Model: %s", r.req.Provider, orDefault(r.req.Model, "(default)"))
	r.logf("Goal: %s | Notes: %s", r.req.GoalType, orDefault(r.req.GoalText, "(none)"))
	r.logf("Language: %s", r.req.Language)
	if r.req.Debugger == "jdb" {
		r.logf("Classpath: %s", orDefault(r.req.Classpath, "(unset)"))
		r.logf("Main class: %s", orDefault(r.req.MainClass, "(unset)"))
		if r.req.Sourcepath != "" {
			r.logf("Sourcepath: %s", r.req.Sourcepath)
		}
	} else {
		if r.req.Program != "" {
			r.logf("Program: %s", r.req.Program)
		}
		if r.req.Corefile != "" {
			r.logf("Corefile: %s", r.req.Corefile)
		}
	}

	r.seedFacts()

	b, err := createBackend(r.req)
	if err != nil {
		return "", err
	}
	r.backend = b
	if err := b.Initialize(); err != nil {
		return "", fmt.Errorf("initializing %s backend: %w", r.req.Debugger, err)
	}
	r.logf("Using debugger backend: %s", b.Name())
	r.state.pushFact("Debugger backend: " + b.Name())
	if startup := strings.TrimSpace(b.StartupOutput()); startup != "" {
		r.state.pushFact(startup)
	}

	r.prepareDebugger()

	report := r.autoLoop(ctx)
	if err := r.writeReport(report); err != nil {
		return report, fmt.Errorf("writing report: %w", err)
	}
	return report, nil
}

func (r *Runner) seedFacts() {
	if r.req.ResumeText != "" {
		r.state.pushFact("Prior session summary:")
		for _, line := range strings.Split(strings.TrimSpace(r.req.ResumeText), "\n") {
			r.state.pushFact("  " + strings.TrimSpace(line))
		}
	}
	if r.req.Program != "" {
		r.state.pushFact("Program path: " + r.req.Program)
	}
	if r.req.Corefile != "" {
		r.state.pushFact("Corefile: " + r.req.Corefile)
	}
	if r.req.Debugger == "jdb" {
		if r.req.Classpath != "" {
			r.state.pushFact("JDB classpath: " + r.req.Classpath)
		}
		if r.req.Sourcepath != "" {
			r.state.pushFact("JDB sourcepath: " + r.req.Sourcepath)
		}
		if r.req.MainClass != "" {
			r.state.pushFact("JDB main class: " + r.req.MainClass)
		}
	}
}

func (r *Runner) prepareDebugger() {
	r.logf("Preparing debugger session")
	if r.req.Debugger == "jdb" {
		var details []string
		if r.req.Classpath != "" {
			details = append(details, "classpath="+r.req.Classpath)
		}
		if r.req.Sourcepath != "" {
			details = append(details, "sourcepath="+r.req.Sourcepath)
		}
		if r.req.MainClass != "" {
			details = append(details, "main_class="+r.req.MainClass)
		}
		if len(details) > 0 {
			r.state.pushFact("JDB configuration: " + strings.Join(details, ", "))
		}
		return
	}
	for _, cmd := range prepareCommands(r.req) {
		out := r.backend.RunCommand(cmd, 0)
		r.state.recordExecution(cmd, out)
		r.logf("Output:\n%s", orDefault(strings.TrimSpace(out), "(no output)"))
	}
}

// autoLoop runs the bounded step loop and returns the final report
// text, falling back to a generic report if max steps is exhausted.
func (r *Runner) autoLoop(ctx context.Context) string {
	languageInstruction := r.languageInstruction()

	for step := 1; step <= r.req.MaxSteps; step++ {
		prompt := r.buildPrompt(languageInstruction)
		answer, err := r.callLLM(ctx, prompt)
		if err != nil {
			errs.HandleError(err, false, logging.NewFieldLogger())
			r.logf("LLM call failed at step %d: %v", step, err)
			return r.fallbackReport()
		}
		answer = strings.TrimSpace(answer)
		r.logf("LLM step %d response:\n%s", step, answer)
		r.state.chatlog = append(r.state.chatlog, "Assistant: "+answer)

		if cmd, ok := extractAgentCmd(answer); ok {
			r.logf("Executing command: %s", cmd)
			out := r.backend.RunCommand(cmd, 0)
			r.state.recordExecution(cmd, out)
			r.logf("Output:\n%s", orDefault(strings.TrimSpace(out), "(no output)"))
			continue
		}

		if answer == "" {
			continue
		}
		return answer
	}

	r.logf("Reached maximum iterations without final report")
	return r.fallbackReport()
}

func extractAgentCmd(text string) (string, bool) {
	m := cmdTagRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	cmd := strings.TrimSpace(m[1])
	if cmd == "" {
		return "", false
	}
	return cmd, true
}

func (r *Runner) buildPrompt(languageInstruction string) string {
	dbgName := r.req.Debugger
	if r.backend != nil {
		dbgName = r.backend.Name()
	}
	preamble := strings.ReplaceAll(r.prompts.SystemPreamble, "{debugger}", dbgName)

	var rulesText string
	if len(r.prompts.Rules) > 0 {
		var b strings.Builder
		for _, rule := range r.prompts.Rules {
			b.WriteString("- " + rule + "\n")
		}
		rulesText = strings.TrimRight(b.String(), "\n")
	}

	var ctxLines []string
	ctxLines = append(ctxLines, "Goal category: "+r.req.GoalType)
	if r.req.GoalText != "" {
		ctxLines = append(ctxLines, "Goal notes: "+r.req.GoalText)
	}
	if r.req.ResumeText != "" {
		ctxLines = append(ctxLines, "Loaded prior report:", strings.TrimSpace(r.req.ResumeText))
	}
	if facts := r.state.recentFacts(recentFactCount); len(facts) > 0 {
		ctxLines = append(ctxLines, "Recent observations:")
		ctxLines = append(ctxLines, facts...)
	}
	if attempts := r.state.recentAttempts(recentAttemptCount); len(attempts) > 0 {
		ctxLines = append(ctxLines, "Recent commands:")
		for _, a := range attempts {
			ctxLines = append(ctxLines, fmt.Sprintf("- %s: %s", a.Cmd, a.OutputSnippet))
		}
	}
	if r.state.lastOutput != "" {
		ctxLines = append(ctxLines, "Latest debugger output:", headTailTruncate(r.state.lastOutput, lastOutputTruncate))
	}

	var parts []string
	parts = append(parts, preamble)
	if rulesText != "" {
		parts = append(parts, "Rules:\n"+rulesText)
	}
	if languageInstruction != "" {
		parts = append(parts, languageInstruction)
	}
	if len(ctxLines) > 0 {
		parts = append(parts, "Context:\n"+strings.Join(ctxLines, "\n"))
	}
	parts = append(parts, "User: "+r.prompts.FollowupInstruction)
	parts = append(parts, "Assistant:")
	return strings.Join(parts, "\n\n")
}

func (r *Runner) languageInstruction() string {
	lang := strings.ToLower(r.req.Language)
	if lang == "" {
		lang = "en"
	}
	switch lang {
	case "en", "en-us", "en-gb", "english":
		return "Respond in English. Do not switch languages unless explicitly requested."
	case "zh", "zh-cn", "zh-hans", "chinese":
		return "请使用简体中文回答，并且仅在收到明确指示时切换语言。"
	default:
		return fmt.Sprintf("Respond in %s. Do not switch languages unless explicitly requested.", r.req.Language)
	}
}

func (r *Runner) callLLM(ctx context.Context, prompt string) (string, error) {
	cfg := make(map[string]any, 2)
	key := strings.ReplaceAll(r.req.Provider, "-", "_")
	if r.req.Model != "" {
		cfg[key+"_model"] = r.req.Model
	}
	if r.req.APIKey != "" {
		cfg[key+"_api_key"] = r.req.APIKey
	}
	client, err := r.registry.CreateClient(r.req.Provider, cfg)
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, llmStepTimeout)
	defer cancel()
	answer, usage, err := client.Ask(callCtx, prompt)
	if err != nil {
		return "", err
	}
	model := r.req.Model
	if model == "" {
		model = "(default)"
	}
	r.usage.record(r.req.Provider, model, usage)
	r.logf("LLM usage: %s", r.usageLogLine())
	return answer, nil
}

func (r *Runner) usageLogLine() string {
	if !r.usage.hasEntries() {
		return "(none)"
	}
	e := r.usage.entries[len(r.usage.entries)-1]
	parts := []string{"provider=" + e.Provider, "model=" + e.Model}
	if e.PromptTokens != nil {
		parts = append(parts, fmt.Sprintf("prompt_tokens=%d", *e.PromptTokens))
	}
	if e.CompletionTokens != nil {
		parts = append(parts, fmt.Sprintf("completion_tokens=%d", *e.CompletionTokens))
	}
	if e.TotalTokens != nil {
		parts = append(parts, fmt.Sprintf("total_tokens=%d", *e.TotalTokens))
	}
	if e.Cost != nil {
		parts = append(parts, fmt.Sprintf("cost=$%.6f", *e.Cost))
	}
	return strings.Join(parts, ", ")
}

func (r *Runner) fallbackReport() string {
	sections := []string{
		"Final Report",
		"Analysis Summary:\n- Reached max iterations without definitive conclusion.",
		"Findings:\n- Review executed commands and captured outputs above for clues.",
		"Suggested Fixes:\n- Collect additional data or adjust dbgagent max-steps to continue.",
		"Next Steps:\n- Provide more context or inspect the latest output manually.",
	}
	return strings.Join(sections, "\n\n")
}

func (r *Runner) logf(format string, args ...any) {
	if r.log == nil {
		return
	}
	r.log.info(fmt.Sprintf(format, args...))
}

func headTailTruncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	half := maxChars / 2
	return s[:half] + "\n... [truncated] ...\n" + s[len(s)-half:]
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
