package agent

import (
	"strings"

	"github.com/google/uuid"

	"github.com/guiperry/dbgcopilot/internal/ptydriver"
	"github.com/guiperry/dbgcopilot/internal/session"
)

// agentState is the autonomous loop's working memory: attempts, a
// chatlog, and a rolling list of short facts, without any of the
// confirmation/auto-budget machinery the interactive session carries
// since the agent never asks for confirmation.
type agentState struct {
	sessionID  string
	attempts   []session.Attempt
	chatlog    []string
	facts      []string
	lastOutput string
}

func newAgentState() *agentState {
	return &agentState{sessionID: newSessionID()}
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (s *agentState) pushFact(f string) {
	s.facts = append(s.facts, f)
}

func (s *agentState) recentFacts(n int) []string {
	if len(s.facts) <= n {
		return s.facts
	}
	return s.facts[len(s.facts)-n:]
}

func (s *agentState) recordExecution(cmd, output string) {
	clean := strings.TrimSpace(ptydriver.StripANSI(output))
	snippet := clean
	if len(snippet) > 160 {
		snippet = snippet[:160]
	}
	s.attempts = append(s.attempts, session.Attempt{Cmd: cmd, OutputSnippet: snippet})
	s.lastOutput = clean

	first := "(no output)"
	if clean != "" {
		if idx := strings.IndexByte(clean, '\n'); idx >= 0 {
			first = clean[:idx]
		} else {
			first = clean
		}
	}
	s.pushFact("Executed " + quoted(cmd) + ": " + first)
	s.chatlog = append(s.chatlog, "Assistant: (executed) "+cmd+"\n"+clean)
}

func (s *agentState) recentAttempts(n int) []session.Attempt {
	if len(s.attempts) <= n {
		return s.attempts
	}
	return s.attempts[len(s.attempts)-n:]
}

func quoted(s string) string {
	return "'" + s + "'"
}
