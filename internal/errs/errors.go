// Package errs holds the structured error type used for provider transport
// and provider configuration failures. Backend-transport errors are
// deliberately NOT modeled here: backends never raise out of run_command,
// they return inline string markers instead.
package errs

import (
	"errors"
	"fmt"

	"github.com/guiperry/dbgcopilot/internal/logging"
)

// Type classifies an error for handling and logging.
type Type int

const (
	// Unknown is an unclassified error.
	Unknown Type = iota
	// Provider indicates an error raised by the LLM provider's transport.
	Provider
	// Request indicates an error preparing or sending the request.
	Request
	// Response indicates an error processing the response.
	Response
	// API indicates an error returned by the provider's HTTP API.
	API
	// Config indicates missing/invalid provider configuration (base URL, key).
	Config
	// RateLimit indicates the provider's rate limit was exceeded.
	RateLimit
	// InvalidParam indicates a parameter coercion failure.
	InvalidParam
)

// LLMError is a structured error carrying a classification and an
// optional wrapped cause.
type LLMError struct {
	Err     error
	Message string
	Type    Type
}

// NewLLMError builds an LLMError.
func NewLLMError(t Type, message string, err error) *LLMError {
	return &LLMError{Type: t, Message: message, Err: err}
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *LLMError) Unwrap() error { return e.Err }

// LoggableFields returns key/value pairs suitable for structured logging.
func (e *LLMError) LoggableFields() []any {
	return []any{"error_type", e.TypeString(), "message", e.Message, "error", e.Err}
}

// TypeString names the classification for logs and user-visible messages.
func (e *LLMError) TypeString() string {
	switch e.Type {
	case Provider:
		return "ProviderError"
	case Request:
		return "RequestError"
	case Response:
		return "ResponseError"
	case API:
		return "APIError"
	case Config:
		return "ConfigError"
	case RateLimit:
		return "RateLimitError"
	case InvalidParam:
		return "InvalidParamError"
	default:
		return "UnknownError"
	}
}

// HandleError logs err through logger and, when fatal is true, panics
// after logging so a caller that truly cannot continue still gets a
// clean trace. The orchestrator and REPL/agent front-ends never pass
// fatal=true for provider errors; it exists for genuinely unrecoverable
// startup failures.
func HandleError(err error, fatal bool, logger logging.FieldLogger) {
	if err == nil {
		return
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		logger.Error(llmErr.Message, "error_type", llmErr.TypeString(), "error", llmErr.Err)
	} else {
		logger.Error("an error occurred", "error", err)
	}
	if fatal {
		panic(err)
	}
}
