package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a pipeline failure for retry and degradation
// decisions.
type ErrorKind int

const (
	// KindUnknown is an unclassified failure; treated as terminal.
	KindUnknown ErrorKind = iota
	// KindInputInvalid covers empty or oversized text, identical language
	// pairs and unsupported languages at validation time. Never retried,
	// never degraded.
	KindInputInvalid
	// KindNetworkTimeout is an expired remote call. Retryable.
	KindNetworkTimeout
	// KindNoInternet means the network is unreachable. Terminal but
	// degradation-eligible.
	KindNoInternet
	// KindServerError is a 5xx from the boundary. Retryable.
	KindServerError
	// KindRateLimited is a 429 carrying the server's retry-after hint.
	KindRateLimited
	// KindAuthFailed is a 401/403. Terminal.
	KindAuthFailed
	// KindUnsupportedLanguage is repairable with a default locale.
	KindUnsupportedLanguage
	// KindUnsupportedVoice is repairable by dropping the named voice.
	KindUnsupportedVoice
	// KindGenerationFailed is repairable by stripping the text to an
	// ASCII-safe subset.
	KindGenerationFailed
	// KindFormatConversionFailed is repairable with an alternate encoding.
	KindFormatConversionFailed
	// KindEmptyResult means the remote call succeeded but returned
	// nothing usable. Terminal for the attempt, degradation-eligible.
	KindEmptyResult
	// KindBusy means an operation is already in progress.
	KindBusy
	// KindCanceled means the operation was stopped by the caller.
	KindCanceled
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInputInvalid:
		return "input invalid"
	case KindNetworkTimeout:
		return "network timeout"
	case KindNoInternet:
		return "no internet"
	case KindServerError:
		return "server error"
	case KindRateLimited:
		return "rate limited"
	case KindAuthFailed:
		return "auth failed"
	case KindUnsupportedLanguage:
		return "unsupported language"
	case KindUnsupportedVoice:
		return "unsupported voice"
	case KindGenerationFailed:
		return "generation failed"
	case KindFormatConversionFailed:
		return "format conversion failed"
	case KindEmptyResult:
		return "empty result"
	case KindBusy:
		return "busy"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind      ErrorKind
	Component string
	// RetryAfter is the server-provided delay for rate-limit errors.
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Kind)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind ErrorKind, component string, err error) *Error {
	return &Error{Kind: kind, Component: component, Err: err}
}

// Common validation sentinels, wrapped into KindInputInvalid errors by the
// clients.
var (
	ErrEmptyText      = errors.New("text is empty")
	ErrTextTooLong    = errors.New("text exceeds maximum length")
	ErrSameLanguage   = errors.New("source and target languages are identical")
	ErrBadLanguage    = errors.New("language is not supported")
	ErrAlreadyRunning = errors.New("translation already in progress")
	// ErrAudioUnavailable marks the synthesis path's text-only fallback:
	// no tier could produce audio, but the pipeline continues with text.
	ErrAudioUnavailable = errors.New("audio unavailable, continuing with text only")
)

// KindOf extracts the classification from any error in the chain.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// RetryAfterOf returns the server retry-after hint, zero when absent.
func RetryAfterOf(err error) time.Duration {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// IsRetryable reports whether blind retry with backoff can help.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetworkTimeout, KindServerError, KindRateLimited:
		return true
	}
	return false
}

// IsRepairable reports whether a single well-defined request rewrite makes a
// retry meaningful.
func IsRepairable(err error) bool {
	switch KindOf(err) {
	case KindUnsupportedLanguage, KindUnsupportedVoice, KindGenerationFailed, KindFormatConversionFailed:
		return true
	}
	return false
}

// IsInputInvalid reports whether err is a validation failure that must
// surface immediately, skipping retry and degradation.
func IsInputInvalid(err error) bool {
	return KindOf(err) == KindInputInvalid
}
