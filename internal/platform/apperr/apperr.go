// Package apperr defines the closed error taxonomy shared by all domain
// services. Every rejected operation maps to exactly one Kind so that the
// HTTP layer can translate without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation.
type Kind string

const (
	// KindValidation marks malformed or incomplete input. Caller's fault,
	// never retried automatically.
	KindValidation Kind = "validation"
	// KindInvalidTransition marks a state precondition failure.
	KindInvalidTransition Kind = "invalid_transition"
	// KindNotFound marks a missing referenced entity.
	KindNotFound Kind = "not_found"
	// KindCollectorUnavailable marks a collector that is busy, offline or
	// inactive. Safe to retry after refreshing state.
	KindCollectorUnavailable Kind = "collector_unavailable"
	// KindInsufficientStock marks a stock adjustment that would go negative.
	KindInsufficientStock Kind = "insufficient_stock"
	// KindDuplicateResult marks a second result entry for the same order line.
	KindDuplicateResult Kind = "duplicate_result"
	// KindIncompleteResults marks a completion attempt while results are
	// still outstanding.
	KindIncompleteResults Kind = "incomplete_results"
	// KindContention marks a lock acquisition timeout. Safe to retry with
	// backoff.
	KindContention Kind = "contention"
)

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, apperr.Validation("")) works
// against any error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return newf(KindInvalidTransition, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func CollectorUnavailable(format string, args ...interface{}) *Error {
	return newf(KindCollectorUnavailable, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newf(KindInsufficientStock, format, args...)
}

func DuplicateResult(format string, args ...interface{}) *Error {
	return newf(KindDuplicateResult, format, args...)
}

func IncompleteResults(format string, args ...interface{}) *Error {
	return newf(KindIncompleteResults, format, args...)
}

func Contention(format string, args ...interface{}) *Error {
	return newf(KindContention, format, args...)
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
