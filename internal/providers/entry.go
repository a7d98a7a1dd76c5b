// Package providers implements the JSON-file-backed provider registry
// and its built-in catalog.
package providers

// Entry is a persisted provider registry record.
type Entry struct {
	Kind               string            `json:"kind" validate:"required,oneof=mock openrouter openai-compatible"`
	Description        string            `json:"description,omitempty"`
	BaseURL            string            `json:"base_url,omitempty"`
	Path               string            `json:"path,omitempty"`
	DefaultModel       string            `json:"default_model,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"`
	SupportsModelList  bool              `json:"supports_model_list,omitempty"`
	Capabilities       []string          `json:"capabilities,omitempty"`
	ParamAliases       map[string]string `json:"param_aliases,omitempty"`
	RateLimitPerSec    float64           `json:"rate_limit_per_sec,omitempty"`
}

// fieldAlias maps the REPL-facing short field names accepted by
// `/llm provider set <name> <field> <value>` to the Entry JSON field
// they address.
var fieldAlias = map[string]string{
	"baseurl": "base_url",
	"path":    "path",
	"model":   "default_model",
	"desc":    "description",
}

// ResolveField turns a REPL field name into its canonical Entry field
// name, passing through names that are already canonical.
func ResolveField(field string) string {
	if canon, ok := fieldAlias[field]; ok {
		return canon
	}
	return field
}

// Get returns the string value of one of Entry's string fields by
// canonical name, used by `/llm provider get`.
func (e *Entry) Get(field string) (string, bool) {
	switch ResolveField(field) {
	case "base_url":
		return e.BaseURL, true
	case "path":
		return e.Path, true
	case "default_model":
		return e.DefaultModel, true
	case "description":
		return e.Description, true
	case "kind":
		return e.Kind, true
	default:
		return "", false
	}
}

// Set assigns the string value of one of Entry's string fields by
// canonical name, used by `/llm provider set`.
func (e *Entry) Set(field, value string) bool {
	switch ResolveField(field) {
	case "base_url":
		e.BaseURL = value
	case "path":
		e.Path = value
	case "default_model":
		e.DefaultModel = value
	case "description":
		e.Description = value
	default:
		return false
	}
	return true
}
