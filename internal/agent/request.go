// Package agent implements the non-interactive Agent driver: its own
// bounded prompt/LLM/command step loop, usage accounting, and a
// Markdown report writer.
package agent

// Request bundles everything a single autonomous run needs, matching
// the dbgagent CLI's flag surface one field per flag.
type Request struct {
	Debugger     string
	Provider     string
	Model        string
	APIKey       string
	Program      string
	Corefile     string
	Classpath    string
	Sourcepath   string
	MainClass    string
	GoalType     string
	GoalText     string
	ResumeText   string
	MaxSteps     int
	Language     string
	LogEnabled   bool
	LogPath      string
	ReportPath   string
}

// DefaultMaxSteps is used when Request.MaxSteps is unset.
const DefaultMaxSteps = 16
