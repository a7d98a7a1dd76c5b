// Package config holds the process-wide configuration: the env-parsed
// Config struct, functional options for programmatic overrides, and the
// optional named-preset loader used by the REPL's /config command.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the top-level, env-driven process configuration. Fields not
// covered by an env tag are set programmatically via Option.
type Config struct {
	Provider       string        `env:"DBGCOPILOT_LLM_PROVIDER" envDefault:"mock"`
	Model          string        `env:"DBGCOPILOT_LLM_MODEL"`
	Temperature    float64       `env:"DBGCOPILOT_LLM_TEMPERATURE" envDefault:"0.0"`
	MaxTokens      int           `env:"DBGCOPILOT_LLM_MAX_TOKENS" envDefault:"512"`
	Timeout        time.Duration `env:"DBGCOPILOT_LLM_TIMEOUT" envDefault:"20s"`
	LogLevel       string        `env:"DBGCOPILOT_LOG_LEVEL" envDefault:"warn"`
	MaxContextChar int           `env:"DBGCOPILOT_MAX_CONTEXT_CHARS" envDefault:"16000"`
	AutoRoundLimit int           `env:"DBGCOPILOT_AUTO_ROUND_LIMIT" envDefault:"64"`

	// ProvidersPath points at the JSON provider registry file. Empty means
	// "discover a configs/ directory relative to the working directory".
	ProvidersPath string `env:"DBGCOPILOT_LLM_PROVIDERS"`
	// PromptsPath points at the JSON prompt-config bundle.
	PromptsPath string `env:"DBGCOPILOT_PROMPTS"`

	// LLDBAPIDisabled is the env kill-switch for the LLDB in-process API
	// backend.
	LLDBAPIDisabled bool `env:"DBGCOPILOT_LLDB_API" envDefault:"false"`

	R2PipePath string `env:"R2PIPE_PATH"`

	APIKeys map[string]string
}

// LoadConfig parses environment variables into a Config and scans the
// environment for "<PROVIDER>_API_KEY"-suffixed variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{APIKeys: make(map[string]string)}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	loadAPIKeys(cfg)
	return cfg, nil
}

func loadAPIKeys(cfg *Config) {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		upper := strings.ToUpper(key)
		if strings.HasSuffix(upper, "_API_KEY") {
			provider := strings.TrimSuffix(upper, "_API_KEY")
			cfg.APIKeys[strings.ToLower(provider)] = value
		}
	}
}

// Option mutates a Config programmatically, following a functional-options
// convention.
type Option func(*Config)

// New returns a Config with safe defaults, ignoring the environment.
func New(opts ...Option) *Config {
	cfg := &Config{
		Provider:       "mock",
		Temperature:    0.0,
		MaxTokens:      512,
		Timeout:        20 * time.Second,
		LogLevel:       "warn",
		MaxContextChar: 16000,
		AutoRoundLimit: 64,
		APIKeys:        make(map[string]string),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// SetProvider overrides the default provider name.
func SetProvider(name string) Option { return func(c *Config) { c.Provider = name } }

// SetModel overrides the default model.
func SetModel(model string) Option { return func(c *Config) { c.Model = model } }

// SetMaxContextChars overrides the orchestrator overflow-guard threshold.
func SetMaxContextChars(n int) Option { return func(c *Config) { c.MaxContextChar = n } }

// SetAutoRoundLimit overrides the default auto-approve budget.
func SetAutoRoundLimit(n int) Option { return func(c *Config) { c.AutoRoundLimit = n } }
