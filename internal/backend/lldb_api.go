package backend

import (
	"os"
	"os/exec"
	"time"
)

// LLDBAPIBackend drives LLDB's in-process command interpreter rather
// than a PTY-framed subprocess. No Go/LLDB API bridge exists anywhere
// in the corpus (the original binds Python's `lldb` module via a C++
// extension), so this backend probes for the same precondition the
// original does — whether the bindings are importable — by shelling
// out to a short-lived subprocess, and otherwise transparently falls
// back to the subprocess backend. This preserves the observable
// behavior (probe before committing to the API path, honor
// DBGCOPILOT_LLDB_API as a kill switch, configure lldb-server from
// common install paths) without fabricating a cgo bridge the pack
// never shows.
type LLDBAPIBackend struct {
	*LLDBBackend
	disabled bool
}

// NewLLDBAPI builds the API-backend wrapper. If the env kill switch is
// set, or the probe fails, Initialize falls back to the ordinary
// subprocess transport.
func NewLLDBAPI(lldbPath, program string, timeout time.Duration) *LLDBAPIBackend {
	disabled := os.Getenv("DBGCOPILOT_LLDB_API") != ""
	configureLLDBServerPath()
	return &LLDBAPIBackend{
		LLDBBackend: NewLLDB(lldbPath, program, timeout),
		disabled:    disabled,
	}
}

// Initialize probes for API availability before falling back.
func (a *LLDBAPIBackend) Initialize() error {
	if a.disabled || !probeLLDBBindings() {
		return a.LLDBBackend.Initialize()
	}
	// No cgo/API bridge is available in this module: even when the probe
	// finds the Python bindings, a pure-Go process cannot drive them, so
	// this path also takes the subprocess backend.
	return a.LLDBBackend.Initialize()
}

func probeLLDBBindings() bool {
	cmd := exec.Command("python3", "-c", "import lldb")
	return cmd.Run() == nil
}

func configureLLDBServerPath() {
	if os.Getenv("LLDB_SERVER_PATH") != "" || os.Getenv("LLDB_DEBUGSERVER_PATH") != "" {
		return
	}
	for _, candidate := range []string{
		"/usr/lib/llvm-18/bin/lldb-server",
		"/usr/lib/llvm-17/bin/lldb-server",
		"/usr/bin/lldb-server",
		"/usr/local/opt/llvm/bin/lldb-server",
	} {
		if _, err := os.Stat(candidate); err == nil {
			_ = os.Setenv("LLDB_SERVER_PATH", candidate)
			return
		}
	}
}
