// Package apperr defines the error taxonomy shared across the docsage core.
// Every externally surfaced error carries a Kind so callers can distinguish
// retryable conditions (timeouts, provider hiccups) from permanent ones
// (bad arguments, unsupported formats).
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind categorizes an error for callers.
type Kind int

const (
	// KindUnknown is the zero value for uncategorized errors.
	KindUnknown Kind = iota
	// KindInvalidConfiguration indicates invalid chunking or component configuration.
	KindInvalidConfiguration
	// KindInvalidArgument indicates a caller-supplied argument is out of range.
	KindInvalidArgument
	// KindEmptyQuery indicates an empty or whitespace-only query string.
	KindEmptyQuery
	// KindEmptyIndex indicates a query against an index with no entries.
	KindEmptyIndex
	// KindEmbeddingProvider indicates the embedding provider call failed.
	KindEmbeddingProvider
	// KindEmbeddingMismatch indicates an embedding from a different provider
	// or dimensionality than the index was built with.
	KindEmbeddingMismatch
	// KindSynthesis indicates the synthesis provider call failed.
	KindSynthesis
	// KindTimeout indicates an external capability call exceeded its deadline.
	KindTimeout
	// KindNoActiveSession indicates export was requested before any search.
	KindNoActiveSession
	// KindUnsupportedFormat indicates a file format the extractor cannot handle.
	KindUnsupportedFormat
	// KindExtraction indicates text extraction failed for a supported format.
	KindExtraction
	// KindNotFound indicates a document or chunk id that is not in the index.
	KindNotFound
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "invalid_configuration"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindEmptyQuery:
		return "empty_query"
	case KindEmptyIndex:
		return "empty_index"
	case KindEmbeddingProvider:
		return "embedding_provider_error"
	case KindEmbeddingMismatch:
		return "embedding_provider_mismatch"
	case KindSynthesis:
		return "synthesis_error"
	case KindTimeout:
		return "timeout"
	case KindNoActiveSession:
		return "no_active_session"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindExtraction:
		return "extraction_error"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a kinded error. It wraps an optional cause for errors.Is/As.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error returns "kind: msg" or "kind: msg: cause".
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, &Error{Kind: KindTimeout}) matches regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New returns a kinded error with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a kinded error wrapping err. Context deadline errors are
// promoted to KindTimeout regardless of the requested kind, so that a
// provider call cut off by its timeout surfaces as a timeout.
func Wrap(kind Kind, msg string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the error represents a transient condition the
// caller may retry. Unknown errors are treated as permanent.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindEmbeddingProvider, KindSynthesis:
		return true
	default:
		return false
	}
}
