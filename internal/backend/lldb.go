package backend

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const lldbPromptLiteral = "(lldb-copilot) "

var lldbPromptRe = regexp.MustCompile(regexp.QuoteMeta(lldbPromptLiteral))

// dwarfNoisePatterns filters DWARF indexing chatter LLDB emits on
// startup for large binaries.
var dwarfNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\[\d+/\d+\] Manually indexing DWARF`),
	regexp.MustCompile(`^Locating external symbol file:`),
	regexp.MustCompile(`^Parsing symbol table:`),
	regexp.MustCompile(`^Reading binary from memory:`),
}

func filterDWARFNoise(output string) string {
	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		noisy := false
		for _, re := range dwarfNoisePatterns {
			if re.MatchString(line) {
				noisy = true
				break
			}
		}
		if !noisy {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// LLDBBackend drives an interactive lldb subprocess with a custom
// prompt installed for reliable framing.
type LLDBBackend struct {
	*ptyBackend
	lldbPath string
	program  string

	emptyStreak int
	hintEmitted bool
}

// NewLLDB builds an LLDB subprocess backend for the given target program
// (may be empty to attach/launch later via commands).
func NewLLDB(lldbPath, program string, timeout time.Duration) *LLDBBackend {
	l := &LLDBBackend{lldbPath: lldbPath, program: program}
	l.ptyBackend = &ptyBackend{
		name:     "lldb",
		prompt:   lldbPromptLiteral,
		promptRe: lldbPromptRe,
		timeout:  timeout,
		argv: func() []string {
			args := []string{lldbPath}
			if program != "" {
				args = append(args, program)
			}
			return args
		},
		exitCommands:  map[string]bool{"quit": true, "exit": true, "q": true},
		noSplitPrefix: "script ",
		postInit: []string{
			fmt.Sprintf("settings set prompt %q", lldbPromptLiteral),
			"settings set use-color false",
		},
	}
	l.ptyBackend.restartFn = l.Initialize
	l.ptyBackend.postProcess = l.postProcess
	return l
}

// Initialize spawns the child and installs the custom prompt.
func (l *LLDBBackend) Initialize() error { return l.spawn() }

// RunCommand implements Backend.
func (l *LLDBBackend) RunCommand(cmd string, timeout time.Duration) string {
	return l.runCommand(cmd, timeout)
}

const lldbEmptyStreakThreshold = 2

func (l *LLDBBackend) postProcess(_, output string) string {
	cleaned := filterDWARFNoise(strings.TrimSpace(output))
	if cleaned == "" {
		l.emptyStreak++
	} else {
		l.emptyStreak = 0
	}
	if l.emptyStreak >= lldbEmptyStreakThreshold && !l.hintEmitted {
		l.hintEmitted = true
		hint := "[lldb hint] repeated empty output; consider the API backend " +
			"(DBGCOPILOT_LLDB_API unset) for more reliable framing. " +
			installHintForPlatform()
		if cleaned == "" {
			return hint
		}
		return cleaned + "\n" + hint
	}
	return cleaned
}

func installHintForPlatform() string {
	return "On Linux, ensure lldb-server is installed and on PATH or set LLDB_SERVER_PATH."
}
