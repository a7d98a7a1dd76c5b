package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiperry/dbgcopilot/internal/providers"
	"github.com/guiperry/dbgcopilot/internal/session"
)

// fakeBackend is an in-memory backend.Backend double that records every
// command it is asked to run and returns a scripted output for it.
type fakeBackend struct {
	name     string
	commands []string
	outputs  map[string]string
}

func newFakeBackend(name string) *fakeBackend {
	return &fakeBackend{name: name, outputs: map[string]string{}}
}

func (f *fakeBackend) Name() string   { return f.name }
func (f *fakeBackend) Prompt() string { return "(" + f.name + ") " }
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

// scriptedLLMServer serves a queue of chat-completion replies in order,
// repeating the last one once the queue is exhausted.
func scriptedLLMServer(t *testing.T, replies []string) *httptest.Server {
	t.Helper()
	var calls int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := int(atomic.AddInt32(&calls, 1)) - 1
		if idx >= len(replies) {
			idx = len(replies) - 1
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": replies[idx]}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestOrchestrator(t *testing.T, b *fakeBackend, server *httptest.Server) (*Orchestrator, *session.State) {
	t.Helper()
	reg, err := providers.NewRegistry(filepath.Join(t.TempDir(), "llm_providers.json"))
	require.NoError(t, err)
	if server != nil {
		_, err := reg.Add("test-provider", server.URL, "/v1/chat/completions", "test-model", "scripted test provider")
		require.NoError(t, err)
	}
	st := session.New("investigate crash", "test-provider")
	orch := New(b, st, reg, filepath.Join(t.TempDir(), "nonexistent"))
	return orch, st
}

func TestAutoApproveExecutesAndDecrementsBudget(t *testing.T) {
	server := scriptedLLMServer(t, []string{
		"Let's inspect the stack. <cmd>bt</cmd>",
		"Looks like a null pointer dereference.",
	})
	defer server.Close()
	b := newFakeBackend("gdb")
	b.outputs["bt"] = "#0 main () at crash.c:10"
	orch, st := newTestOrchestrator(t, b, server)

	limit := 5
	st.AutoAcceptCommands = true
	st.AutoRoundsRemaining = &limit

	reply := orch.Ask(context.Background(), "what's wrong with this program?")
	assert.NotEmpty(t, reply)
	assert.Equal(t, []string{"bt"}, b.commands)
	require.Len(t, st.Attempts, 1)
	assert.Equal(t, "bt", st.Attempts[0].Cmd)
	assert.Equal(t, 4, *st.AutoRoundsRemaining)
	assert.Contains(t, strings.Join(st.Chatlog, "\n"), "(executed) bt")
}

func TestManualConfirmationDeclined(t *testing.T) {
	server := scriptedLLMServer(t, []string{"Let's try this. <cmd>run</cmd>"})
	defer server.Close()
	b := newFakeBackend("gdb")
	orch, st := newTestOrchestrator(t, b, server)

	first := orch.Ask(context.Background(), "run the program")
	assert.Contains(t, first, "I plan to run")
	assert.Equal(t, "run", st.PendingCommand)

	second := orch.Ask(context.Background(), "n")
	assert.Equal(t, "Command skipped.", second)
	assert.Empty(t, st.PendingCommand)
	assert.Empty(t, st.Attempts)
	assert.Empty(t, b.commands)
}

func TestAutoApprovePromotionViaConfirmation(t *testing.T) {
	server := scriptedLLMServer(t, []string{
		"Let's check threads. <cmd>info threads</cmd>",
		"All threads look healthy.",
	})
	defer server.Close()
	b := newFakeBackend("gdb")
	orch, st := newTestOrchestrator(t, b, server)

	first := orch.Ask(context.Background(), "any other threads?")
	assert.Contains(t, first, "I plan to run")

	second := orch.Ask(context.Background(), "a")
	assert.True(t, strings.HasPrefix(second, "Auto-accept enabled for this session."))
	assert.True(t, st.AutoAcceptCommands)
	require.NotNil(t, st.AutoRoundsRemaining)
	assert.Equal(t, session.DefaultAutoRoundLimit, *st.AutoRoundsRemaining)
	assert.Equal(t, []string{"info threads"}, b.commands)
}

func TestContextOverflowSummarizeAndNewSession(t *testing.T) {
	server := scriptedLLMServer(t, []string{"- crash in main\n- backtrace inspected"})
	defer server.Close()
	b := newFakeBackend("gdb")
	orch, st := newTestOrchestrator(t, b, server)

	oldID := st.SessionID
	for i := 0; i < 2000; i++ {
		st.PushChat("User: filler line to pad the transcript past the overflow threshold")
	}
	require.Greater(t, st.ChatlogLen(), 16000)

	reply := orch.Ask(context.Background(), "summarize and new session")

	assert.NotEqual(t, oldID, st.SessionID)
	assert.Contains(t, reply, st.SessionID)
	assert.Contains(t, reply, "crash in main")
	assert.Empty(t, st.Chatlog)
	assert.Empty(t, st.Attempts)
	assert.Empty(t, st.LastOutput)
	require.NotEmpty(t, st.Facts)
	assert.True(t, strings.HasPrefix(st.Facts[0], "Summary: "))
}

func TestContextOverflowPromptsForChoiceOnUnrecognizedReply(t *testing.T) {
	b := newFakeBackend("gdb")
	orch, st := newTestOrchestrator(t, b, nil)
	for i := 0; i < 2000; i++ {
		st.PushChat("User: filler line to pad the transcript past the overflow threshold")
	}
	reply := orch.Ask(context.Background(), "what should I do")
	assert.Contains(t, reply, "summarize the current session and start a new one")
}

func TestEmptyQuestionIsNoOp(t *testing.T) {
	b := newFakeBackend("gdb")
	orch, st := newTestOrchestrator(t, b, nil)
	reply := orch.Ask(context.Background(), "   ")
	assert.Empty(t, reply)
	assert.Empty(t, st.Chatlog)
}
