package backend

import (
	"regexp"
	"strings"
	"time"
)

var pdbPromptRe = regexp.MustCompile(`\(Pdb\)\s`)

// rewritePDBCommand maps friendlier command forms users tend to type
// onto the pdb spellings that actually work (`print x` -> `p x`,
// `info locals` -> `p locals()`).
func rewritePDBCommand(cmd string) string {
	trimmed := strings.TrimSpace(cmd)
	if trimmed == "info locals" {
		return "p locals()"
	}
	if rest, ok := strings.CutPrefix(trimmed, "print "); ok {
		return "p " + rest
	}
	if trimmed == "print" {
		return "p"
	}
	return trimmed
}

// PDBBackend drives `python -m pdb <script>`.
type PDBBackend struct {
	*ptyBackend
	pythonPath string
	script     string
	scriptArgs []string
}

// NewPDB builds a pdb backend for the given script.
func NewPDB(pythonPath, script string, scriptArgs []string, timeout time.Duration) *PDBBackend {
	p := &PDBBackend{pythonPath: pythonPath, script: script, scriptArgs: scriptArgs}
	p.ptyBackend = &ptyBackend{
		name:     "pdb",
		prompt:   "(Pdb) ",
		promptRe: pdbPromptRe,
		timeout:  timeout,
		argv: func() []string {
			args := []string{pythonPath, "-m", "pdb", script}
			return append(args, scriptArgs...)
		},
		exitCommands: map[string]bool{"quit": true, "exit": true, "q": true},
	}
	p.ptyBackend.restartFn = p.Initialize
	return p
}

// Initialize spawns the child.
func (p *PDBBackend) Initialize() error { return p.spawn() }

// RunCommand implements Backend, rewriting friendly aliases first.
func (p *PDBBackend) RunCommand(cmd string, timeout time.Duration) string {
	return p.runCommand(rewritePDBCommand(cmd), timeout)
}
