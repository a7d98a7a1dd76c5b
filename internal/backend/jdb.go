package backend

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	jdbPromptRe       = regexp.MustCompile(`(?:^|\n)(?:[\w.$-]+\[\d+\]\s*)+$|Thread-\d+\[\d+\]\s*$|(?:^|\n)>\s*$`)
	jdbPackageRe      = regexp.MustCompile(`(?m)^\s*package\s+([\w.]+)\s*;`)
	jdbDeferredMarker = regexp.MustCompile(`Deferring breakpoint`)
	jdbProgressMarker = regexp.MustCompile(`(?i)(Breakpoint hit|VM Started|Step completed|main\[1\])`)
)

// JDBBackend lazily spawns `jdb` after compiling the target sources,
// modeling jdb's multi-variant prompt and deferred-breakpoint quirks.
type JDBBackend struct {
	*ptyBackend
	jdbPath    string
	mainClass  string
	classpath  string
	sourcepath string
	source     string // path to a .java source file to compile, if any
	spawned    bool
}

// NewJDB builds a lazy JDB backend. source, when non-empty, is compiled
// with `javac -g` before launch and its package declaration is used to
// qualify mainClass if mainClass doesn't already look qualified.
func NewJDB(jdbPath, mainClass, classpath, sourcepath, source string, timeout time.Duration) *JDBBackend {
	j := &JDBBackend{
		jdbPath:    jdbPath,
		mainClass:  mainClass,
		classpath:  classpath,
		sourcepath: sourcepath,
		source:     source,
	}
	j.ptyBackend = &ptyBackend{
		name:     "jdb",
		prompt:   "> ",
		promptRe: jdbPromptRe,
		timeout:  timeout,
		argv:     j.buildArgv,
		exitCommands: map[string]bool{
			"quit": true, "exit": true, "q": true,
		},
		multiDrain: func(cmd string) bool {
			return strings.EqualFold(strings.TrimSpace(cmd), "run")
		},
	}
	j.ptyBackend.restartFn = j.Initialize
	j.ptyBackend.postProcess = j.postProcess
	return j
}

func (j *JDBBackend) buildArgv() []string {
	args := []string{j.jdbPath}
	if j.classpath != "" {
		args = append(args, "-classpath", j.classpath)
	}
	if j.sourcepath != "" {
		args = append(args, "-sourcepath", j.sourcepath)
	}
	if strings.HasSuffix(j.mainClass, ".jar") {
		args = append(args, "-jar", j.mainClass)
	} else {
		args = append(args, j.resolvedMainClass())
	}
	return args
}

// resolvedMainClass forms a fully qualified class name by reading a
// package declaration out of the compiled source, when one was given.
func (j *JDBBackend) resolvedMainClass() string {
	if j.source == "" || strings.Contains(j.mainClass, ".") {
		return j.mainClass
	}
	data, err := os.ReadFile(j.source)
	if err != nil {
		return j.mainClass
	}
	m := jdbPackageRe.FindSubmatch(data)
	if m == nil {
		return j.mainClass
	}
	return string(m[1]) + "." + j.mainClass
}

// Initialize compiles sources (if any); jdb itself is only started once
// a command actually requires it (see RunCommand).
func (j *JDBBackend) Initialize() error {
	if j.source != "" {
		if err := j.compile(); err != nil {
			return fmt.Errorf("jdb: javac failed: %w", err)
		}
	}
	j.spawned = false
	return nil
}

func (j *JDBBackend) compile() error {
	dir := filepath.Dir(j.source)
	cmd := exec.Command("javac", "-g", "-d", dir, j.source)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// RunCommand implements Backend, spawning jdb on first use.
func (j *JDBBackend) RunCommand(cmd string, timeout time.Duration) string {
	if !j.spawned {
		if err := j.spawn(); err != nil {
			_ = j.Close()
			return fmt.Sprintf("[jdb error] %s: %v", strings.TrimSpace(cmd), err)
		}
		j.spawned = true
	}
	return j.runCommand(cmd, timeout)
}

func (j *JDBBackend) postProcess(cmd, output string) string {
	if !strings.EqualFold(strings.TrimSpace(cmd), "run") {
		return output
	}
	if !jdbProgressMarker.MatchString(output) && jdbDeferredMarker.MatchString(output) {
		output += "\n[jdb hint] breakpoints deferred until class load; use `cont` to proceed."
	}
	return output
}
