package backend

import (
	"regexp"
	"time"
)

var delvePromptRe = regexp.MustCompile(`\(dlv\)\s`)

// DelveBackend drives `dlv exec <program>` for Go binaries.
type DelveBackend struct {
	*ptyBackend
	dlvPath string
	program string
}

// NewDelve builds a Delve backend for the given compiled Go binary.
func NewDelve(dlvPath, program string, timeout time.Duration) *DelveBackend {
	d := &DelveBackend{dlvPath: dlvPath, program: program}
	d.ptyBackend = &ptyBackend{
		name:     "dlv",
		prompt:   "(dlv) ",
		promptRe: delvePromptRe,
		timeout:  timeout,
		argv: func() []string {
			return []string{dlvPath, "exec", program}
		},
		exitCommands: defaultExitCommands(),
	}
	d.ptyBackend.restartFn = d.Initialize
	return d
}

// Initialize spawns the child.
func (d *DelveBackend) Initialize() error { return d.spawn() }

// RunCommand implements Backend.
func (d *DelveBackend) RunCommand(cmd string, timeout time.Duration) string {
	return d.runCommand(cmd, timeout)
}
