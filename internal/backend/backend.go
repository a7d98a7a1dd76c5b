// Package backend implements one adapter per supported native debugger,
// each exposing a common contract: initialize, run_command, close, plus
// name, prompt, and an optional startup_output.
package backend

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/guiperry/dbgcopilot/internal/errs"
	"github.com/guiperry/dbgcopilot/internal/ptydriver"
)

// Backend is the closed set of debugger adapters, modeled as an
// interface rather than a class hierarchy.
type Backend interface {
	Name() string
	Prompt() string
	Initialize() error
	RunCommand(cmd string, timeout time.Duration) string
	Close() error
	StartupOutput() string
}

// defaultExitCommands is the exit set shared by every line-oriented
// backend unless a backend overrides it.
func defaultExitCommands() map[string]bool {
	return map[string]bool{"quit": true, "exit": true, "q": true}
}

// restartWithBackoff retries restart (a backend's Initialize) against
// DefaultRetryStrategy's exponential backoff, for child processes that
// need a moment to release a lock file or socket before relaunch.
func restartWithBackoff(restart func() error) error {
	strategy := &errs.DefaultRetryStrategy{MaxRetries: 3, InitialWait: 50 * time.Millisecond, MaxWait: 500 * time.Millisecond}
	err := restart()
	for strategy.ShouldRetry(err) {
		time.Sleep(strategy.NextDelay())
		err = restart()
	}
	return err
}

// splitCommands splits text on newlines and ';' into ordered primitive
// commands, except that lines beginning with noSplitPrefix (LLDB's
// "script ") are kept intact to preserve embedded code.
func splitCommands(text, noSplitPrefix string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var parts []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", "\n"), "\n") {
		if noSplitPrefix != "" && strings.HasPrefix(strings.TrimSpace(line), noSplitPrefix) {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				parts = append(parts, trimmed)
			}
			continue
		}
		for _, seg := range strings.Split(line, ";") {
			if trimmed := strings.TrimSpace(seg); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}

// ptyBackend holds the transport and execution machinery shared by
// every PTY-driven backend.
type ptyBackend struct {
	name            string
	prompt          string
	promptRe        *regexp.Regexp
	argv            func() []string
	cwd             string
	env             []string
	timeout         time.Duration
	exitCommands    map[string]bool
	noSplitPrefix   string
	postInit        []string // commands sent once after the banner is consumed
	postProcess     func(cmd, output string) string
	multiDrain      func(cmd string) bool
	postDrainWindow time.Duration

	handle    *ptydriver.Handle
	startup   string
	restartFn func() error // set by embedding backend to call its own Initialize
}

func (b *ptyBackend) Name() string          { return b.name }
func (b *ptyBackend) Prompt() string        { return b.prompt }
func (b *ptyBackend) StartupOutput() string { return b.startup }

func (b *ptyBackend) spawn() error {
	h, err := ptydriver.Spawn(b.argv(), b.cwd, b.env)
	if err != nil {
		return err
	}
	b.handle = h
	banner, err := h.ExpectPrompt(b.promptRe, b.timeout)
	if err != nil {
		return err
	}
	b.startup = strings.TrimSpace(ptydriver.StripANSI(banner))
	for _, c := range b.postInit {
		_ = b.sendAndCapture(c, b.timeout)
	}
	return nil
}

func (b *ptyBackend) sendAndCapture(cmd string, timeout time.Duration) string {
	if b.handle == nil {
		return fmt.Sprintf("[%s error] %s: backend not initialized", b.name, cmd)
	}
	if err := b.handle.SendLine(cmd); err != nil {
		return fmt.Sprintf("[%s error] %s: %v", b.name, cmd, err)
	}
	captured, err := b.handle.ExpectPrompt(b.promptRe, timeout)
	text := ptydriver.StripEcho(ptydriver.StripANSI(captured), cmd)

	if b.multiDrain != nil && b.multiDrain(cmd) && err == nil {
		window := b.postDrainWindow
		if window == 0 {
			window = 5 * time.Second
		}
		drained := ptydriver.PostDrain(b.handle, b.promptRe, text, 300*time.Millisecond, window)
		text = drained.Joined()
	}

	switch err {
	case nil:
	case ptydriver.ErrTimeout:
		return fmt.Sprintf("[%s timeout] %s: no response within %s", b.name, cmd, timeout)
	case ptydriver.ErrEOF:
		return fmt.Sprintf("[%s eof] %s: child process closed", b.name, cmd)
	default:
		return fmt.Sprintf("[%s error] %s: %v", b.name, cmd, err)
	}

	if b.postProcess != nil {
		text = b.postProcess(cmd, text)
	}
	return strings.ReplaceAll(text, "\r\n", "\n")
}

func (b *ptyBackend) handleExit(cmd string) string {
	if b.handle == nil {
		return fmt.Sprintf("[%s closed] session already terminated", b.name)
	}
	_ = b.handle.SendLine(cmd)
	// Give the child a moment to exit cleanly before force-closing; the
	// exact EOF framing doesn't matter since we discard anything read.
	time.Sleep(100 * time.Millisecond)
	_ = b.handle.Close(true)
	b.handle = nil

	if b.restartFn == nil {
		return fmt.Sprintf("[%s closed] %s", b.name, cmd)
	}
	if err := restartWithBackoff(b.restartFn); err != nil {
		return fmt.Sprintf("[%s closed] %s: %v", b.name, cmd, err)
	}
	return fmt.Sprintf("[%s] session restarted; ready for commands", b.name)
}

// runCommand implements the shared run_command algorithm: split,
// exit-detect, execute, join.
func (b *ptyBackend) runCommand(cmd string, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = b.timeout
	}
	parts := splitCommands(cmd, b.noSplitPrefix)
	if len(parts) == 0 {
		return ""
	}
	var outputs []string
	for _, part := range parts {
		if b.exitCommands[strings.ToLower(part)] {
			outputs = append(outputs, b.handleExit(part))
			break
		}
		out := b.sendAndCapture(part, timeout)
		if out != "" {
			outputs = append(outputs, out)
		}
	}
	return strings.Join(outputs, "\n")
}

func (b *ptyBackend) Close() error {
	if b.handle == nil {
		return nil
	}
	err := b.handle.Close(true)
	b.handle = nil
	return err
}
