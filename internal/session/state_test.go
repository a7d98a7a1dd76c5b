package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	s := New("investigate crash", "openrouter")
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, "investigate crash", s.Goal)
	assert.Equal(t, "openrouter", s.ProviderName)
	assert.True(t, s.ColorsEnabled)
	assert.NotNil(t, s.Config)
}

func TestPushAttemptTruncatesSnippet(t *testing.T) {
	s := New("", "")
	longOutput := ""
	for i := 0; i < 300; i++ {
		longOutput += "x"
	}
	s.PushAttempt("bt", longOutput)
	assert.Len(t, s.Attempts, 1)
	assert.Equal(t, "bt", s.Attempts[0].Cmd)
	assert.Len(t, s.Attempts[0].OutputSnippet, attemptSnippetLen)
}

func TestLastAttempts(t *testing.T) {
	s := New("", "")
	for i := 0; i < 10; i++ {
		s.PushAttempt("cmd", "out")
	}
	last := s.LastAttempts(3)
	assert.Len(t, last, 3)

	all := s.LastAttempts(20)
	assert.Len(t, all, 10)
}

func TestRotatePreservesConfigButClearsTranscript(t *testing.T) {
	s := New("goal", "openrouter")
	s.PushChat("User: hi")
	s.PushFact("F: thing")
	s.PushAttempt("cmd", "out")
	s.Config["openrouter_model"] = "gpt-test"
	oldID := s.SessionID

	s.Rotate()

	assert.NotEqual(t, oldID, s.SessionID)
	assert.Empty(t, s.Chatlog)
	assert.Empty(t, s.Facts)
	assert.Empty(t, s.Attempts)
	assert.Empty(t, s.LastOutput)
	assert.Equal(t, "gpt-test", s.Config["openrouter_model"])
}

func TestChatlogLen(t *testing.T) {
	s := New("", "")
	s.PushChat("abc")
	s.PushChat("de")
	assert.Equal(t, len("abc")+1+len("de")+1, s.ChatlogLen())
}

func TestProviderParamsKey(t *testing.T) {
	assert.Equal(t, "openrouter_params", ProviderParamsKey("openrouter"))
}
