package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/dbgcopilot/internal/llmclient"
	"github.com/guiperry/dbgcopilot/internal/providers"
	"github.com/guiperry/dbgcopilot/internal/session"
)

// fakeBackend is a minimal backend.Backend double used to drive the
// agent loop without spawning a real debugger subprocess.
type fakeBackend struct {
	name     string
	commands []string
	outputs  map[string]string
}

func (f *fakeBackend) Name() string      { return f.name }
func (f *fakeBackend) Prompt() string    { return "(" + f.name + ") " }
func (f *fakeBackend) Initialize() error { return nil }
func (f *fakeBackend) RunCommand(cmd string, _ time.Duration) string {
	f.commands = append(f.commands, cmd)
	if out, ok := f.outputs[cmd]; ok {
		return out
	}
	return "output-of-" + cmd
}
func (f *fakeBackend) Close() error          { return nil }
func (f *fakeBackend) StartupOutput() string { return "" }

func scriptedLLMServer(replies []string) *httptest.Server {
	var calls int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := int(atomic.AddInt32(&calls, 1)) - 1
		if idx >= len(replies) {
			idx = len(replies) - 1
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": replies[idx]}}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestRunner(t *testing.T, req *Request, server *httptest.Server) *Runner {
	t.Helper()
	reg, err := providers.NewRegistry(filepath.Join(t.TempDir(), "llm_providers.json"))
	require.NoError(t, err)
	_, err = reg.Add(req.Provider, server.URL, "/v1/chat/completions", "test-model", "scripted test provider")
	require.NoError(t, err)
	return NewRunner(req, reg)
}

func TestExtractAgentCmd(t *testing.T) {
	cmd, ok := extractAgentCmd("Let's look. <cmd>bt</cmd>")
	assert.True(t, ok)
	assert.Equal(t, "bt", cmd)

	_, ok = extractAgentCmd("No command here.")
	assert.False(t, ok)

	_, ok = extractAgentCmd("<cmd>   </cmd>")
	assert.False(t, ok)
}

func TestLanguageInstruction(t *testing.T) {
	r := &Runner{req: &Request{Language: "en"}}
	assert.Contains(t, r.languageInstruction(), "English")

	r = &Runner{req: &Request{Language: "zh"}}
	assert.Contains(t, r.languageInstruction(), "中文")

	r = &Runner{req: &Request{Language: "fr"}}
	assert.Contains(t, r.languageInstruction(), "fr")
}

func TestFallbackReportMentionsFinalReport(t *testing.T) {
	r := &Runner{}
	assert.Contains(t, r.fallbackReport(), "Final Report")
}

func TestUsageLogLineNoEntries(t *testing.T) {
	r := &Runner{}
	assert.Equal(t, "(none)", r.usageLogLine())
}

func TestAutoLoopExecutesCommandThenReturnsFinalAnswer(t *testing.T) {
	server := scriptedLLMServer([]string{
		"Let's check the stack. <cmd>bt</cmd>",
		"Final Report\n\nAnalysis: null pointer in main.",
	})
	defer server.Close()

	req := &Request{Debugger: "gdb", Provider: "test-provider", GoalType: "crash", MaxSteps: 5, Language: "en"}
	r := newTestRunner(t, req, server)
	b := &fakeBackend{name: "gdb", outputs: map[string]string{"bt": "#0 main () at crash.c:10"}}
	r.backend = b

	report := r.autoLoop(context.Background())

	assert.Contains(t, report, "Final Report")
	assert.Equal(t, []string{"bt"}, b.commands)
	require.Len(t, r.state.attempts, 1)
	assert.Equal(t, "bt", r.state.attempts[0].Cmd)
}

func TestAutoLoopFallsBackWhenStepsExhausted(t *testing.T) {
	server := scriptedLLMServer([]string{"Still investigating. <cmd>info locals</cmd>"})
	defer server.Close()

	req := &Request{Debugger: "gdb", Provider: "test-provider", GoalType: "crash", MaxSteps: 2, Language: "en"}
	r := newTestRunner(t, req, server)
	b := &fakeBackend{name: "gdb"}
	r.backend = b

	report := r.autoLoop(context.Background())
	assert.Contains(t, report, "Final Report")
	assert.Contains(t, report, "max iterations")
}

func TestWriteReportIncludesUsageWhenPresent(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.md")
	req := &Request{Debugger: "gdb", Provider: "test-provider", GoalType: "crash", MaxSteps: 5, Language: "en", ReportPath: reportPath}
	r := &Runner{req: req, state: newAgentState()}
	r.state.attempts = append(r.state.attempts, session.Attempt{Cmd: "bt", OutputSnippet: "#0 main ()"})

	promptTokens := 100
	r.usage.record("test-provider", "test-model", llmclient.Usage{PromptTokens: &promptTokens})

	require.NoError(t, r.writeReport("Final Report\n\nAll good."))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "## Final Report")
	assert.Contains(t, content, "## Session Details")
	assert.Contains(t, content, "## LLM Usage")
	assert.Contains(t, content, "## Executed Commands")
	assert.Contains(t, content, "## Notes")
}
