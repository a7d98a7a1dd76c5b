package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/guiperry/dbgcopilot/internal/logging"
)

// Preset is a named bundle of quick-start defaults, loaded from
// configs/*.yaml. It supplements the JSON provider registry (the
// authoritative persisted catalog) with lightweight, human-editable
// starting points the REPL's /config command can list.
type Preset struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	LogLevel    string  `yaml:"log_level"`
}

// LoadPresets reads every *.yaml file directly in dir (or, if dir is
// empty, $HOME/.dbgcopilot/configs) into a name->Preset map keyed by
// file basename. Missing or unreadable directories yield an empty map,
// never an error.
func LoadPresets(dir string) map[string]*Preset {
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".dbgcopilot", "configs")
	}
	paths, _ := filepath.Glob(filepath.Join(dir, "*.yaml"))
	presets := make(map[string]*Preset, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logging.L.Warn("failed to read preset", zap.String("path", path), zap.Error(err))
			continue
		}
		var p Preset
		if err := yaml.Unmarshal(data, &p); err != nil {
			logging.L.Warn("failed to parse preset", zap.String("path", path), zap.Error(err))
			continue
		}
		presets[filepath.Base(path)] = &p
	}
	return presets
}

// Save writes p to path as YAML, creating parent directories as needed.
func (p *Preset) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
