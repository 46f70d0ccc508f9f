package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure. Handlers map kinds to HTTP
// statuses; the analysis orchestrator uses them to drive provider fallback.
type ErrorKind string

const (
	KindExtractionFailure      ErrorKind = "extraction_failure"
	KindProviderTimeout        ErrorKind = "provider_timeout"
	KindProviderRateLimited    ErrorKind = "provider_rate_limited"
	KindProviderAPIError       ErrorKind = "provider_api_error"
	KindAnalysisExhausted      ErrorKind = "analysis_exhausted"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindUnauthorizedWebhook    ErrorKind = "unauthorized_webhook"
	KindUnknownEvent           ErrorKind = "unknown_event"
	KindDocumentNotFound       ErrorKind = "document_not_found"
	KindSendFailure            ErrorKind = "send_failure"
)

// Error is a classified domain error.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind.
func E(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" if err carries no classification.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
