package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeReport renders the Markdown investigation report to
// req.ReportPath, covering the final report text, session details, LLM
// usage totals (when any calls were made), and the executed-command
// log.
func (r *Runner) writeReport(finalReport string) error {
	if err := os.MkdirAll(filepath.Dir(r.req.ReportPath), 0o755); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# dbgagent report — %s\n\n", r.state.sessionID)
	fmt.Fprintf(&b, "Goal: %s\n", r.req.GoalType)
	fmt.Fprintf(&b, "Goal notes: %s\n\n", orDefault(r.req.GoalText, "(none)"))
	b.WriteString("## Final Report\n")
	b.WriteString(strings.TrimSpace(finalReport))
	b.WriteString("\n")

	backendName := r.req.Debugger
	if r.backend != nil {
		backendName = r.backend.Name()
	}
	b.WriteString("\n## Session Details\n")
	fmt.Fprintf(&b, "Debugger backend: %s\n", backendName)
	fmt.Fprintf(&b, "LLM provider: %s\n", r.req.Provider)
	fmt.Fprintf(&b, "LLM model: %s\n", orDefault(r.req.Model, "(default)"))
	fmt.Fprintf(&b, "Language: %s\n", r.req.Language)
	fmt.Fprintf(&b, "Max steps: %d\n", r.req.MaxSteps)
	if r.req.LogEnabled && r.req.LogPath != "" {
		fmt.Fprintf(&b, "Session log: %s\n", r.req.LogPath)
	}

	if r.usage.hasEntries() {
		b.WriteString("\n## LLM Usage\n")
		fmt.Fprintf(&b, "Total prompt tokens: %d\n", r.usage.prompt)
		fmt.Fprintf(&b, "Total completion tokens: %d\n", r.usage.completion)
		fmt.Fprintf(&b, "Total tokens: %d\n", r.usage.total)
		if r.usage.cost != 0 {
			fmt.Fprintf(&b, "Total estimated cost (USD): $%.6f\n", r.usage.cost)
		}
		b.WriteString("\nPer-call usage:\n")
		for i, e := range r.usage.entries {
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
			fmt.Fprintf(&b, "- Call %d: %s\n", i+1, strings.Join(parts, ", "))
		}
	}

	b.WriteString("\n## Executed Commands\n")
	if len(r.state.attempts) == 0 {
		b.WriteString("- (none)\n")
	} else {
		for _, a := range r.state.attempts {
			fmt.Fprintf(&b, "- `%s`: %s\n", a.Cmd, a.OutputSnippet)
		}
	}

	b.WriteString("\n## Notes\n")
	b.WriteString("You can edit this report and pass it back to dbgagent with --resume-from to continue the investigation.\n")

	if err := os.WriteFile(r.req.ReportPath, []byte(b.String()), 0o644); err != nil {
		return err
	}

	if r.usage.hasEntries() {
		summary := fmt.Sprintf("LLM totals — prompt_tokens=%d, completion_tokens=%d, total_tokens=%d",
			r.usage.prompt, r.usage.completion, r.usage.total)
		if r.usage.cost != 0 {
			summary += fmt.Sprintf(", cost=$%.6f", r.usage.cost)
		}
		r.logf("%s", summary)
	}
	r.logf("Report written to %s", r.req.ReportPath)
	return nil
}
