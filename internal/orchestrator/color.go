package orchestrator

import "fmt"

var ansiCodes = map[string]string{
	"red":    "31",
	"green":  "32",
	"cyan":   "36",
	"yellow": "33",
}

// colorText wraps s in an ANSI color escape when enabled is true and
// name is recognized; otherwise it returns s unchanged.
func colorText(s, name string, bold, enabled bool) string {
	if !enabled {
		return s
	}
	code, ok := ansiCodes[name]
	if !ok {
		return s
	}
	if bold {
		code = "1;" + code
	}
	return fmt.Sprintf("\x1b[%sm%s\x1b[0m", code, s)
}
