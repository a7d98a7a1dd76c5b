package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLogger records every call so tests can assert on classification
// without wiring a real zap sink.
type fakeLogger struct {
	errors []string
}

func (f *fakeLogger) Debug(string, ...any) {}
func (f *fakeLogger) Info(string, ...any)  {}
func (f *fakeLogger) Warn(string, ...any)  {}
func (f *fakeLogger) Error(msg string, _ ...any) {
	f.errors = append(f.errors, msg)
}

func TestLLMErrorMessageFormatting(t *testing.T) {
	wrapped := errors.New("connection refused")
	err := NewLLMError(Provider, "request failed", wrapped)
	assert.Equal(t, "ProviderError (request failed): connection refused", err.Error())
	assert.Equal(t, wrapped, err.Unwrap())

	bare := NewLLMError(Config, "missing api key", nil)
	assert.Equal(t, "ConfigError: missing api key", bare.Error())
}

func TestTypeStringCoversAllClassifications(t *testing.T) {
	cases := map[Type]string{
		Unknown:      "UnknownError",
		Provider:     "ProviderError",
		Request:      "RequestError",
		Response:     "ResponseError",
		API:          "APIError",
		Config:       "ConfigError",
		RateLimit:    "RateLimitError",
		InvalidParam: "InvalidParamError",
	}
	for typ, want := range cases {
		err := NewLLMError(typ, "x", nil)
		assert.Equal(t, want, err.TypeString())
	}
}

func TestHandleErrorLogsLLMErrorAndPlainError(t *testing.T) {
	logger := &fakeLogger{}
	HandleError(NewLLMError(RateLimit, "too many requests", nil), false, logger)
	require.Len(t, logger.errors, 1)
	assert.Equal(t, "too many requests", logger.errors[0])

	logger = &fakeLogger{}
	HandleError(errors.New("plain failure"), false, logger)
	require.Len(t, logger.errors, 1)
	assert.Equal(t, "an error occurred", logger.errors[0])
}

func TestHandleErrorNilIsNoOp(t *testing.T) {
	logger := &fakeLogger{}
	HandleError(nil, false, logger)
	assert.Empty(t, logger.errors)
}

func TestHandleErrorPanicsWhenFatal(t *testing.T) {
	logger := &fakeLogger{}
	assert.Panics(t, func() {
		HandleError(errors.New("unrecoverable"), true, logger)
	})
}

func TestDefaultRetryStrategyBacksOffAndCaps(t *testing.T) {
	s := &DefaultRetryStrategy{MaxRetries: 3, InitialWait: 100, MaxWait: 350}

	assert.True(t, s.ShouldRetry(errors.New("boom")))
	assert.Equal(t, 100, int(s.NextDelay()))
	assert.Equal(t, 200, int(s.NextDelay()))
	assert.Equal(t, 350, int(s.NextDelay())) // would be 400, capped at MaxWait

	assert.False(t, s.ShouldRetry(errors.New("boom")))
	s.Reset()
	assert.True(t, s.ShouldRetry(errors.New("boom")))
}

func TestDefaultRetryStrategyNoRetryOnNilError(t *testing.T) {
	s := &DefaultRetryStrategy{MaxRetries: 5, InitialWait: 10, MaxWait: 100}
	assert.False(t, s.ShouldRetry(nil))
}
