// Package ptydriver turns a free-running debugger subprocess into a
// request/response pair over a pseudo-terminal. It is the shared
// transport used by every line-oriented debugger backend.
package ptydriver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

// bracketedPaste strips bracketed-paste escape sequences some terminals
// emit.
var bracketedPaste = regexp.MustCompile(`\x1b\[\?2004[hl]`)

// ansiEscape strips general ANSI color/cursor sequences.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences and bracketed-paste markers
// from s.
func StripANSI(s string) string {
	s = bracketedPaste.ReplaceAllString(s, "")
	return ansiEscape.ReplaceAllString(s, "")
}

// ErrTimeout is returned by ExpectPrompt when the prompt regex does not
// match within the deadline.
var ErrTimeout = fmt.Errorf("ptydriver: timeout waiting for prompt")

// ErrEOF is returned by ExpectPrompt when the child closes its side of
// the pty before the prompt regex matches.
var ErrEOF = io.EOF

// Handle is one spawned child attached to a pseudo-terminal.
type Handle struct {
	cmd *exec.Cmd
	pty *os.File

	mu  sync.Mutex
	buf strings.Builder

	readCh chan readResult
}

type readResult struct {
	chunk string
	err   error
}

// Spawn forks argv[0] with argv[1:] attached to a new pseudo-terminal.
// Returns once the child is running; it is the caller's responsibility
// to consume the startup banner via ExpectPrompt.
func Spawn(argv []string, cwd string, env []string) (*Handle, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("ptydriver: empty argv")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	if env != nil {
		cmd.Env = env
	}
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("ptydriver: spawn %s: %w", argv[0], err)
	}
	h := &Handle{cmd: cmd, pty: f, readCh: make(chan readResult, 16)}
	go h.pump()
	return h, nil
}

func (h *Handle) pump() {
	reader := bufio.NewReaderSize(h.pty, 4096)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			h.readCh <- readResult{chunk: string(buf[:n])}
		}
		if err != nil {
			h.readCh <- readResult{err: err}
			return
		}
	}
}

// ExpectPrompt reads until promptRe matches, returning everything
// preceding the match. Returns ErrTimeout or ErrEOF on failure.
func (h *Handle) ExpectPrompt(promptRe *regexp.Regexp, timeout time.Duration) (string, error) {
	deadline := time.After(timeout)
	for {
		select {
		case res := <-h.readCh:
			if res.err != nil {
				return h.drainBuffer(), ErrEOF
			}
			h.mu.Lock()
			h.buf.WriteString(res.chunk)
			current := h.buf.String()
			h.mu.Unlock()
			if loc := promptRe.FindStringIndex(current); loc != nil {
				before := current[:loc[0]]
				h.mu.Lock()
				h.buf.Reset()
				h.buf.WriteString(current[loc[1]:])
				h.mu.Unlock()
				return before, nil
			}
		case <-deadline:
			return h.drainBuffer(), ErrTimeout
		}
	}
}

func (h *Handle) drainBuffer() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.buf.String()
	h.buf.Reset()
	return s
}

// SendLine writes text followed by a newline.
func (h *Handle) SendLine(text string) error {
	_, err := io.WriteString(h.pty, text+"\n")
	return err
}

// Close attempts a graceful close; when force is true the child is
// killed outright.
func (h *Handle) Close(force bool) error {
	if force {
		_ = h.cmd.Process.Kill()
	}
	_ = h.pty.Close()
	return h.cmd.Wait()
}

// Alive reports whether the child process is still running.
func (h *Handle) Alive() bool {
	return h.cmd.ProcessState == nil
}

// PostDrainResult accumulates output across repeated ExpectPrompt calls.
type PostDrainResult struct {
	Chunks []string
}

// Joined concatenates accumulated chunks separated by newlines.
func (p PostDrainResult) Joined() string {
	return strings.Join(p.Chunks, "\n")
}

// PostDrain implements a bounded multi-drain strategy: after the first
// ExpectPrompt call already returned `first`, repeat
// ExpectPrompt with a short per-attempt timeout, appending each
// non-empty capture, stopping after the first empty capture following
// at least one non-empty capture, or once cap is exceeded.
func PostDrain(h *Handle, promptRe *regexp.Regexp, first string, perAttempt, maxWait time.Duration) PostDrainResult {
	result := PostDrainResult{}
	if strings.TrimSpace(first) != "" {
		result.Chunks = append(result.Chunks, first)
	}
	start := time.Now()
	sawNonEmpty := len(result.Chunks) > 0
	for time.Since(start) < maxWait {
		chunk, err := h.ExpectPrompt(promptRe, perAttempt)
		if err != nil {
			break
		}
		if strings.TrimSpace(chunk) == "" {
			if sawNonEmpty {
				break
			}
			continue
		}
		result.Chunks = append(result.Chunks, chunk)
		sawNonEmpty = true
	}
	return result
}

// StripEcho removes the echoed command from the first line of captured
// output, when present.
func StripEcho(captured, cmd string) string {
	text := strings.TrimLeft(captured, "\r\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == strings.TrimSpace(cmd) {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}
