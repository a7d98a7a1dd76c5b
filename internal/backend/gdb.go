package backend

import (
	"regexp"
	"strings"
	"time"
)

var gdbPromptRe = regexp.MustCompile(`\(gdb\)\s`)

// GDBBackend drives an interactive `gdb -q` subprocess, handling its
// init sequence and exit+restart semantics.
type GDBBackend struct {
	*ptyBackend
	gdbPath string
	args    []string
}

// NewGDB builds a GDB backend. extraArgs is the extra arguments appended
// after `-q` (e.g. a program path for rust-gdb invocations).
func NewGDB(gdbPath string, extraArgs []string, timeout time.Duration) *GDBBackend {
	g := &GDBBackend{gdbPath: gdbPath, args: extraArgs}
	g.ptyBackend = &ptyBackend{
		name:     "gdb",
		prompt:   "(gdb) ",
		promptRe: gdbPromptRe,
		timeout:  timeout,
		argv: func() []string {
			return append([]string{gdbPath, "-q"}, extraArgs...)
		},
		exitCommands: defaultExitCommands(),
		postInit: []string{
			"set pagination off",
			"set height 0",
			"set width 0",
			"set confirm off",
			"set debuginfod enabled off",
		},
	}
	g.ptyBackend.restartFn = g.Initialize
	return g
}

// Initialize spawns the child and runs the init sequence.
func (g *GDBBackend) Initialize() error { return g.spawn() }

// RunCommand implements Backend.
func (g *GDBBackend) RunCommand(cmd string, timeout time.Duration) string {
	return g.runCommand(cmd, timeout)
}

var gdbStateChangingCmds = map[string]bool{
	"run": true, "r": true, "continue": true, "c": true, "next": true, "n": true,
	"step": true, "s": true, "finish": true, "fin": true, "start": true,
}

// GDBInProcessBackend drives the same subprocess transport as GDBBackend
// but augments output after state-changing commands (run, continue,
// step, ...) with `info program` and `bt 5`, matching GDB's in-process
// Python API frontend without needing a cgo bridge to libgdb.
type GDBInProcessBackend struct {
	*GDBBackend
}

// NewGDBInProcess wraps NewGDB with the state-changing-command
// augmentation.
func NewGDBInProcess(gdbPath string, extraArgs []string, timeout time.Duration) *GDBInProcessBackend {
	inner := NewGDB(gdbPath, extraArgs, timeout)
	inner.postProcess = func(cmd, output string) string {
		base := strings.ToLower(strings.TrimSpace(cmd))
		if !gdbStateChangingCmds[base] {
			return output
		}
		extra := inner.sendAndCapture("info program", timeout)
		extra2 := inner.sendAndCapture("bt 5", timeout)
		return strings.Join([]string{output, extra, extra2}, "\n")
	}
	return &GDBInProcessBackend{GDBBackend: inner}
}
