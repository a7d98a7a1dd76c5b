package backend

import (
	"regexp"
	"strings"
	"time"
)

// rustStepAvoidRe matches the Rust runtime/std frames LLDB likes to stop
// in when stepping through Rust binaries; the Rust-aware variant nudges
// the user toward `finish` instead of `step`/`next` through them.
var rustStepAvoidRe = regexp.MustCompile(`(?i)\b(core::|std::rt::|std::panicking::|__rust_)`)

// LLDBRustBackend wraps LLDBBackend with Rust-oriented framing: it
// recognizes when output lands inside runtime internals and appends a
// hint, and keeps the same custom-prompt transport as plain LLDB.
type LLDBRustBackend struct {
	*LLDBBackend
}

// NewLLDBRust builds an LLDB backend tuned for Rust binaries.
func NewLLDBRust(lldbPath, program string, timeout time.Duration) *LLDBRustBackend {
	inner := NewLLDB(lldbPath, program, timeout)
	base := inner.postProcess
	inner.postProcess = func(cmd, output string) string {
		out := base(cmd, output)
		verb := strings.ToLower(strings.TrimSpace(strings.SplitN(cmd, " ", 2)[0]))
		if (verb == "step" || verb == "s" || verb == "next" || verb == "n") && rustStepAvoidRe.MatchString(out) {
			out += "\n[lldb-rust hint] stepped into Rust runtime internals; try `finish` to return to your code."
		}
		return out
	}
	return &LLDBRustBackend{LLDBBackend: inner}
}
