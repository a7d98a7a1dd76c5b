// Package params implements the canonical parameter system: dotted-path
// canonical names, alias resolution, value coercion, and application of
// parameters onto a request body map.
package params

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// commonAliases maps user-facing parameter names to their canonical
// dotted path, independent of provider. Provider-specific aliases
// (ProviderEntry.ParamAliases) are consulted first and override these.
var commonAliases = map[string]string{
	"temp":               "temperature",
	"max_tokens":         "max_tokens",
	"maxtokens":          "max_tokens",
	"top_p":              "top_p",
	"topp":               "top_p",
	"top_k":              "top_k",
	"topk":               "top_k",
	"presence_penalty":   "presence_penalty",
	"frequency_penalty":  "frequency_penalty",
	"repeat_penalty":     "extras.repeat_penalty",
	"mirostat":           "extras.mirostat",
	"stop":               "stop",
	"stop_sequences":     "stop",
	"thinking":           "thinking.enabled",
	"enable_thinking":    "thinking.enabled",
	"web_search":         "extras.enable_web_search",
	"enable_web_search":  "extras.enable_web_search",
}

var intBaseNames = map[string]bool{"max_tokens": true, "top_k": true, "mirostat": true}
var floatBaseNames = map[string]bool{
	"temperature": true, "top_p": true, "presence_penalty": true,
	"frequency_penalty": true, "repeat_penalty": true,
}
var listBaseNames = map[string]bool{"stop": true}

func isClearSentinel(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "null", "clear":
		return true
	}
	return false
}

// baseName returns the final dotted-path segment, e.g. "thinking.enabled"
// -> "enabled"... but coercion rules key off a small set of well-known
// parameter base names (max_tokens, temperature, stop, ...), not
// arbitrary leaves. We match against the last segment verbatim since
// every canonical name in the alias table ends in one of those
// well-known leaves or a custom one that falls through to generic
// coercion.
func baseName(canonical string) string {
	idx := strings.LastIndex(canonical, ".")
	if idx < 0 {
		return canonical
	}
	return canonical[idx+1:]
}

// Canonicalize resolves a user-facing parameter name to its canonical
// dotted path, consulting providerAliases first, falling back to the
// common alias table, and finally returning name unchanged (a bare
// canonical name is its own canonical form).
func Canonicalize(name string, providerAliases map[string]string) string {
	if providerAliases != nil {
		if canon, ok := providerAliases[name]; ok {
			return canon
		}
	}
	if canon, ok := commonAliases[name]; ok {
		return canon
	}
	return name
}

// ClearValue is a sentinel returned by Coerce to signal the parameter
// should be removed rather than set.
type ClearValue struct{}

// Coerce converts a raw string value into the Go value appropriate for
// canonical's base name. It returns ClearValue{} when raw is a clear
// sentinel ("none", "null", "clear", or empty).
func Coerce(canonical, raw string) (any, error) {
	if isClearSentinel(raw) {
		return ClearValue{}, nil
	}
	trimmed := strings.TrimSpace(raw)

	if b, ok := parseBool(trimmed); ok {
		return b, nil
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON for %s: %w", canonical, err)
		}
		return v, nil
	}

	base := baseName(canonical)
	switch {
	case intBaseNames[base]:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer for %s: %w", canonical, err)
		}
		return int(f), nil
	case floatBaseNames[base]:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float for %s: %w", canonical, err)
		}
		return f, nil
	case listBaseNames[base]:
		if strings.Contains(trimmed, ",") {
			parts := strings.Split(trimmed, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				out = append(out, strings.TrimSpace(p))
			}
			return out, nil
		}
		return []string{trimmed}, nil
	default:
		return trimmed, nil
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	default:
		return false, false
	}
}

// ParseValue is the REPL-facing entry point: canonicalize then coerce.
func ParseValue(name, raw string, providerAliases map[string]string) (canonical string, value any, err error) {
	canonical = Canonicalize(name, providerAliases)
	value, err = Coerce(canonical, raw)
	return canonical, value, err
}

// Apply walks canonical's dotted path within body, creating intermediate
// maps as needed, and assigns value at the leaf. A []string value for a
// "stop"-class leaf is stored as a list; ClearValue deletes the leaf
// (and nothing else) if present.
func Apply(body map[string]any, canonical string, value any) {
	segments := strings.Split(canonical, ".")
	applyPath(body, segments, value)
}

func applyPath(node map[string]any, segments []string, value any) {
	if len(segments) == 1 {
		if _, clear := value.(ClearValue); clear {
			delete(node, segments[0])
			return
		}
		node[segments[0]] = value
		return
	}
	next, ok := node[segments[0]].(map[string]any)
	if !ok {
		next = make(map[string]any)
		node[segments[0]] = next
	}
	applyPath(next, segments[1:], value)
}

// ApplyParams applies every canonical->value pair in params onto body.
// meta may carry provider/model context for future coercion rules; it is
// currently unused but kept in the signature to match the original
// apply_params(body, params, meta, assume_canonical) contract.
func ApplyParams(body map[string]any, params map[string]any, meta map[string]any) {
	_ = meta
	for canonical, value := range params {
		Apply(body, canonical, value)
	}
}

// ClearAll removes every entry from a provider's stored parameter map,
// implementing the "clear with all" session behavior.
func ClearAll(stored map[string]any) {
	for k := range stored {
		delete(stored, k)
	}
}
