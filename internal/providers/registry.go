package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/guiperry/dbgcopilot/internal/llmclient"
	"github.com/guiperry/dbgcopilot/internal/logging"
)

var validate = validator.New()

const configEnvVar = "DBGCOPILOT_LLM_PROVIDERS"
const configFilename = "llm_providers.json"

// file is the on-disk registry file shape.
type file struct {
	Providers map[string]Entry `json:"providers"`
}

// Registry is the process-wide, read-mostly provider catalog. Reads
// take the read lock; add/set operations take the write lock, update
// the in-memory map, persist it to the registry file, and reload.
type Registry struct {
	mu   sync.RWMutex
	path string
	data map[string]Entry
}

// NewRegistry loads (or creates) the registry file at path, merging in
// any built-in entries absent from disk.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: resolvePath(path)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func resolvePath(configured string) string {
	if configured != "" {
		return configured
	}
	if v := os.Getenv(configEnvVar); v != "" {
		return v
	}
	return filepath.Join("configs", configFilename)
}

// Reload re-reads the registry file from disk, merging in any missing
// built-in entries and rewriting the file if anything changed.
func (r *Registry) Reload() error {
	existing, err := r.readFile()
	if err != nil {
		return err
	}
	changed := false
	for name, entry := range defaultEntries() {
		if _, ok := existing[name]; !ok {
			existing[name] = entry
			changed = true
		}
	}
	if changed {
		if err := r.writeFile(existing); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.data = existing
	r.mu.Unlock()
	return nil
}

func (r *Registry) readFile() (map[string]Entry, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]Entry{}, nil
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		logging.L.Warn("provider registry file is not valid JSON; treating as empty", zap.String("path", r.path), zap.Error(err))
		return map[string]Entry{}, nil
	}
	if f.Providers == nil {
		f.Providers = map[string]Entry{}
	}
	for name, entry := range f.Providers {
		if err := validate.Struct(entry); err != nil {
			logging.L.Warn("dropping invalid provider entry", zap.String("provider", name), zap.Error(err))
			delete(f.Providers, name)
		}
	}
	return f.Providers, nil
}

func (r *Registry) writeFile(providers map[string]Entry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil && filepath.Dir(r.path) != "." {
		return err
	}
	data, err := json.MarshalIndent(file{Providers: providers}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, append(data, '\n'), 0o644)
}

// List returns sorted provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.data))
	for name := range r.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a copy of one provider's entry.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.data[name]
	return entry, ok
}

// ErrUnknownProvider is returned when an operation names a provider not
// present in the registry.
var ErrUnknownProvider = errors.New("unknown provider")

// CreateClient builds a session-bound llmclient.Client for name,
// resolving the per-provider API key from session, then the registry's
// convention of "<PROVIDER>_API_KEY" environment variables (handled
// inside the client implementations themselves).
func (r *Registry) CreateClient(name string, session map[string]any) (llmclient.Client, error) {
	entry, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	switch entry.Kind {
	case "mock":
		return llmclient.NewMock(), nil
	case "openrouter":
		apiKey, _ := session["openrouter_api_key"].(string)
		model, _ := session["openrouter_model"].(string)
		if model == "" {
			model = entry.DefaultModel
		}
		client := llmclient.NewOpenRouter(session, apiKey, model)
		client.SessionParams = sessionParams(session, name)
		return client, nil
	default: // "openai-compatible"
		client := llmclient.NewOpenAICompat(name, session)
		client.DefaultBaseURL = entry.BaseURL
		client.DefaultPath = entry.Path
		client.DefaultModel = entry.DefaultModel
		client.DefaultHeaders = entry.Headers
		client.Capabilities = entry.Capabilities
		client.ParamAliases = entry.ParamAliases
		client.SessionParams = sessionParamsWithAliases(session, name, entry.ParamAliases)
		if entry.RateLimitPerSec > 0 {
			client.Limiter = rate.NewLimiter(rate.Limit(entry.RateLimitPerSec), 1)
		}
		return client, nil
	}
}

// sessionParams returns the stored "<provider>_params" nested map for a
// session, if any, as canonical-name -> value (no alias resolution
// needed since the REPL canonicalizes names via params.ParseValue on
// write).
func sessionParams(session map[string]any, provider string) map[string]any {
	if session == nil {
		return nil
	}
	key := provider + "_params"
	if v, ok := session[key].(map[string]any); ok {
		return v
	}
	return nil
}

func sessionParamsWithAliases(session map[string]any, provider string, _ map[string]string) map[string]any {
	return sessionParams(session, provider)
}

// ListModels delegates to the provider-kind-specific discovery strategy,
// returning an empty slice (never an error) when the kind does not
// support listing.
func (r *Registry) ListModels(name string, session map[string]any) ([]string, error) {
	entry, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	client, err := r.CreateClient(name, session)
	if err != nil {
		return nil, err
	}
	switch entry.Kind {
	case "openrouter":
		return client.(*llmclient.OpenRouter).ListModels(context.Background())
	case "openai-compatible":
		return client.(*llmclient.OpenAICompat).ListModels(context.Background())
	default:
		return []string{}, nil
	}
}

// Config returns a copy of the raw entry for `/llm provider show`.
func (r *Registry) Config(name string) (Entry, error) {
	entry, ok := r.Get(name)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return entry, nil
}

// Add persists a new openai-compatible provider entry and rebuilds.
func (r *Registry) Add(name, baseURL, path, defaultModel, description string) (Entry, error) {
	r.mu.Lock()
	if _, exists := r.data[name]; exists {
		r.mu.Unlock()
		return Entry{}, fmt.Errorf("provider %q already exists", name)
	}
	if path == "" {
		path = "/v1/chat/completions"
	}
	entry := Entry{Kind: "openai-compatible", Description: description, BaseURL: baseURL, Path: path, DefaultModel: defaultModel}
	if err := validate.Struct(entry); err != nil {
		r.mu.Unlock()
		return Entry{}, fmt.Errorf("invalid provider entry: %w", err)
	}
	r.data[name] = entry
	snapshot := cloneEntries(r.data)
	r.mu.Unlock()

	if err := r.writeFile(snapshot); err != nil {
		return Entry{}, err
	}
	return entry, r.Reload()
}

// SetField updates a single field on an existing provider entry, persists,
// and rebuilds.
func (r *Registry) SetField(name, field, value string) error {
	r.mu.Lock()
	entry, ok := r.data[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if !entry.Set(field, value) {
		r.mu.Unlock()
		return fmt.Errorf("field must be one of: baseurl, path, model, desc")
	}
	r.data[name] = entry
	snapshot := cloneEntries(r.data)
	r.mu.Unlock()

	if err := r.writeFile(snapshot); err != nil {
		return err
	}
	return r.Reload()
}

func cloneEntries(in map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Path returns the resolved registry file path (`/llm provider path`).
func (r *Registry) Path() string { return r.path }
