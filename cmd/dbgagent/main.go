// Package main is the autonomous Agent CLI: it runs a bounded
// investigation to completion against one debugger backend and writes a
// Markdown report, with no interactive confirmation step.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/guiperry/dbgcopilot/internal/agent"
	"github.com/guiperry/dbgcopilot/internal/providers"
)

type cliFlags struct {
	debugger    string
	program     string
	corefile    string
	goal        string
	goalText    string
	llmProvider string
	llmModel    string
	llmKey      string
	classpath   string
	sourcepath  string
	mainClass   string
	maxSteps    int
	language    string
	logSession  bool
	logFile     string
	reportFile  string
	resumeFrom  string
}

func parseFlags() *cliFlags {
	f := &cliFlags{}
	flag.StringVar(&f.debugger, "debugger", "gdb",
		"Debugger backend: gdb, rust-gdb, lldb, rust-lldb, lldb-rust, jdb, pdb, delve, radare2")
	flag.StringVar(&f.program, "program", "", "Path to the binary (or script) under test")
	flag.StringVar(&f.corefile, "core", "", "Path to a core dump")
	flag.StringVar(&f.goal, "goal", "crash", "Investigation goal: crash, hang, leak, custom")
	flag.StringVar(&f.goalText, "goal-text", "", "Free-form goal description or question")
	flag.StringVar(&f.llmProvider, "llm-provider", "openrouter", "LLM provider to use")
	flag.StringVar(&f.llmModel, "llm-model", "", "Override model for the selected provider")
	flag.StringVar(&f.llmKey, "llm-key", "", "API key for the selected provider")
	flag.StringVar(&f.classpath, "classpath", "", "jdb classpath")
	flag.StringVar(&f.sourcepath, "sourcepath", "", "jdb sourcepath")
	flag.StringVar(&f.mainClass, "main-class", "", "jdb main class (or .class/.jar path)")
	flag.IntVar(&f.maxSteps, "max-steps", agent.DefaultMaxSteps, "Maximum auto iterations")
	flag.StringVar(&f.language, "language", "en", "Preferred language for log/report (e.g. en, zh)")
	flag.BoolVar(&f.logSession, "log-session", false, "Enable plaintext session logging (default path in /tmp)")
	flag.StringVar(&f.logFile, "log-file", "", "Explicit log file path (implies --log-session)")
	flag.StringVar(&f.reportFile, "report-file", "", "Where to write the final report (defaults to /tmp)")
	flag.StringVar(&f.resumeFrom, "resume-from", "", "Existing report/notes to inject as additional context")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	logEnabled := f.logSession || f.logFile != "" || os.Getenv("DBGAGENT_LOG") != ""
	reportPath := f.reportFile
	if reportPath == "" {
		reportPath = defaultPath("dbgagent-report", ".md")
	}
	var logPath string
	if logEnabled {
		logPath = f.logFile
		if logPath == "" {
			logPath = defaultPath("dbgagent", ".log")
		}
	}

	var resumeText string
	if f.resumeFrom != "" {
		data, err := os.ReadFile(f.resumeFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbgagent: resume file not found: %s\n", f.resumeFrom)
			os.Exit(1)
		}
		resumeText = string(data)
	}

	req := &agent.Request{
		Debugger:   f.debugger,
		Provider:   f.llmProvider,
		Model:      f.llmModel,
		APIKey:     f.llmKey,
		Program:    f.program,
		Corefile:   f.corefile,
		Classpath:  f.classpath,
		Sourcepath: f.sourcepath,
		MainClass:  f.mainClass,
		GoalType:   f.goal,
		GoalText:   f.goalText,
		ResumeText: resumeText,
		MaxSteps:   f.maxSteps,
		Language:   f.language,
		LogEnabled: logEnabled,
		LogPath:    logPath,
		ReportPath: reportPath,
	}

	reg, err := providers.NewRegistry("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbgagent: loading provider registry: %v\n", err)
		os.Exit(1)
	}

	runner := agent.NewRunner(req, reg)
	report, err := runner.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbgagent: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("dbgagent: session complete. Report saved to %s\n", reportPath)
	if logEnabled && logPath != "" {
		fmt.Printf("dbgagent: session log stored at %s\n", logPath)
	}
	if strings.HasPrefix(strings.TrimSpace(report), "Final Report") {
		fmt.Println("dbgagent: investigation ended without a detailed report; inspect the log for next steps.")
	}
}

func defaultPath(prefix, suffix string) string {
	ts := time.Now().UTC().Format("20060102-150405")
	return "/tmp/" + prefix + "-" + ts + suffix
}
