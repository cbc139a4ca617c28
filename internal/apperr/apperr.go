// Package apperr defines the error taxonomy shared across the ingestion and
// analysis pipeline, so callers can branch on kind with errors.Is/errors.As
// instead of matching on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy buckets used to decide
// retry, watermark, and propagation behavior.
type Kind int

const (
	// KindDataUnavailable means no data could be obtained from the provider
	// without a transport fault; the ingestion engine uses it when the daily
	// request budget is exhausted. It is not retried and fails the symbol.
	// (An empty provider response is not an error: the engine records it
	// as a success with zero stored rows.)
	KindDataUnavailable Kind = iota
	// KindTransport covers network, TLS, rate-limit and decode failures.
	// Retried with backoff; exhausted retries escalate to a symbol failure.
	KindTransport
	// KindValidation covers schema mismatches or nonsense values from the
	// provider. Offending rows are dropped, not fatal on their own.
	KindValidation
	// KindPersistence covers non-constraint-violation database errors.
	// Aborts the symbol's transaction.
	KindPersistence
	// KindConfigResolution means a config payload could not be parsed or
	// fingerprinted. Fatal for the whole run.
	KindConfigResolution
	// KindCancelled means the caller's context was cancelled cooperatively.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindDataUnavailable:
		return "data_unavailable"
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	case KindConfigResolution:
		return "config_resolution"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a taxonomy Kind and an optional
// symbol for log correlation.
type Error struct {
	Kind   Kind
	Symbol string
	Err    error
}

func (e *Error) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a taxonomy error for the given kind.
func New(kind Kind, symbol string, err error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// Retryable reports whether the taxonomy kind should be retried with backoff
// by the caller (only transport errors are).
func Retryable(err error) bool {
	return Is(err, KindTransport)
}
