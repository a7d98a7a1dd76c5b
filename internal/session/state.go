// Package session holds the per-session state datum: transcript, attempts,
// pending commands, sinks, and provider/parameter selections.
package session

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultAutoRoundLimit is the auto-approve budget used when a session's
// config does not set one.
const DefaultAutoRoundLimit = 64

// Attempt records one executed debugger command and a bounded snippet of
// its output.
type Attempt struct {
	Cmd           string
	OutputSnippet string
}

const attemptSnippetLen = 160

// NewAttempt truncates output to the first 160 characters.
func NewAttempt(cmd, output string) Attempt {
	snip := output
	if len(snip) > attemptSnippetLen {
		snip = snip[:attemptSnippetLen]
	}
	return Attempt{Cmd: cmd, OutputSnippet: snip}
}

// ChatEvent is a structured, sink-delivered event such as a command
// confirmation proposal.
type ChatEvent struct {
	Type        string `json:"type"`
	Command     string `json:"command,omitempty"`
	Label       string `json:"label,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// DebuggerSink receives raw debugger output as it is produced.
type DebuggerSink func(string)

// ChatSink receives assistant-visible chat text as it is produced.
type ChatSink func(string)

// ChatEventSink receives structured chat events.
type ChatEventSink func(ChatEvent)

// State is the full per-session datum.
type State struct {
	SessionID string
	Goal      string

	// Chatlog holds alternating "User: ..."/"Assistant: ..."/
	// "Assistant: (executed) <cmd>\n<output>" lines.
	Chatlog  []string
	Facts    []string
	Attempts []Attempt

	LastOutput string

	// Config holds string-keyed session overrides: selected provider,
	// per-provider model/key overrides, and "<provider>_params" nested
	// parameter maps (owned by the params package, stored as
	// map[string]any under this map's value slot).
	Config map[string]any

	ProviderName     string
	ProviderAPIKey   string
	ModelOverride    string
	ColorsEnabled    bool
	SelectedProvider string

	PendingCommand string

	PendingOutputs    []string
	PendingChat       []string
	PendingChatEvents []ChatEvent

	DebuggerOutputSink DebuggerSink
	ChatOutputSink     ChatSink
	ChatEventSink      ChatEventSink

	LastAnswerStreamed bool

	AutoAcceptCommands  bool
	AutoRoundsRemaining *int
}

// New creates a fresh session with a generated id and sane defaults.
func New(goal, providerName string) *State {
	return &State{
		SessionID:      NewSessionID(),
		Goal:           goal,
		Config:         make(map[string]any),
		ProviderName:   providerName,
		ColorsEnabled:  true,
		PendingOutputs: nil,
	}
}

// NewSessionID mints an opaque, short session identifier.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Rotate starts a new session id and clears transcript state, keeping
// provider/model/config selections intact. Used by the orchestrator's
// "new session" and "summarize and new session" overflow actions.
func (s *State) Rotate() {
	s.SessionID = NewSessionID()
	s.Chatlog = nil
	s.Attempts = nil
	s.Facts = nil
	s.LastOutput = ""
}

// PushChat appends a chat line to the transcript.
func (s *State) PushChat(line string) {
	s.Chatlog = append(s.Chatlog, line)
}

// PushFact appends a short annotation.
func (s *State) PushFact(fact string) {
	s.Facts = append(s.Facts, fact)
}

// PushAttempt records an executed command and its output snippet.
func (s *State) PushAttempt(cmd, output string) {
	s.Attempts = append(s.Attempts, NewAttempt(cmd, output))
}

// LastAttempts returns up to n of the most recent attempts, oldest first.
func (s *State) LastAttempts(n int) []Attempt {
	if len(s.Attempts) <= n {
		return s.Attempts
	}
	return s.Attempts[len(s.Attempts)-n:]
}

// ChatlogLen returns the total character length of the chatlog lines,
// counting one separator after each line.
func (s *State) ChatlogLen() int {
	total := 0
	for _, line := range s.Chatlog {
		total += len(line) + 1 // + separator
	}
	return total
}

// ProviderParamsKey returns the session config key holding provider's
// nested parameter overrides.
func ProviderParamsKey(provider string) string {
	return provider + "_params"
}
