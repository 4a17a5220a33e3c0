package llm

import (
	"errors"
	"fmt"

	"github.com/meetinsight/service/internal/models"
)

// Error codes used across backends.
const (
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeUpstreamError      = "UPSTREAM_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeCircuitOpen        = "CIRCUIT_BREAKER_OPEN"
	CodeTimeout            = "TIMEOUT"
	CodeUnsupportedModel   = "UNSUPPORTED_MODEL"
)

// Error is the provider error type. Retryable marks transient conditions
// a caller may retry; configuration errors never are.
type Error struct {
	Provider  models.ModelType `json:"provider"`
	Code      string           `json:"code"`
	Message   string           `json:"message"`
	Retryable bool             `json:"retryable"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

// NewConfigurationError marks a backend unusable at construction time,
// typically because credentials are absent. Callers treat the backend as
// unavailable rather than failing the whole pipeline.
func NewConfigurationError(provider models.ModelType, msg string) *Error {
	return &Error{Provider: provider, Code: CodeMissingCredentials, Message: msg}
}

// NewTransientError wraps a network or provider failure for one call.
func NewTransientError(provider models.ModelType, msg string) *Error {
	return &Error{Provider: provider, Code: CodeUpstreamError, Message: msg, Retryable: true}
}

// NewQuotaError reports provider-side rate limiting (HTTP 429).
func NewQuotaError(provider models.ModelType, msg string) *Error {
	return &Error{Provider: provider, Code: CodeRateLimited, Message: msg, Retryable: true}
}

// NewUnsupportedModelError reports a request for a model type that is not
// registered. This is caller misuse and is surfaced, not absorbed.
func NewUnsupportedModelError(provider models.ModelType) *Error {
	return &Error{
		Provider: provider,
		Code:     CodeUnsupportedModel,
		Message:  fmt.Sprintf("model type %q is not registered", provider),
	}
}

func hasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsConfiguration reports whether err is a missing-credentials error.
func IsConfiguration(err error) bool { return hasCode(err, CodeMissingCredentials) }

// IsQuota reports whether err is a provider rate-limit error.
func IsQuota(err error) bool { return hasCode(err, CodeRateLimited) }

// IsUnsupportedModel reports whether err names an unregistered model type.
func IsUnsupportedModel(err error) bool { return hasCode(err, CodeUnsupportedModel) }
