// Package kerr declares the error kinds every component reports, so a
// caller can branch on kind with errors.As regardless of which layer
// raised it (graph store, LLM client, resolver, queue, or search).
package kerr

import (
	"errors"
	"fmt"
)

// Kind identifies which of the named error categories an error belongs to.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindTransient    Kind = "transient"
	KindBadLLMOutput Kind = "bad_llm_output"
	KindConflict     Kind = "conflict"
	KindExhausted    Kind = "exhausted"
	KindCancelled    Kind = "cancelled"
	KindInternal     Kind = "internal"
)

// Error is the concrete type every kerr constructor returns. It wraps an
// underlying cause and tags it with a Kind, composable with errors.Is/As.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is implements errors.Is support keyed on Kind, so errors.Is(err,
// kerr.NotFound("", "")) matches any *Error of the same Kind regardless of
// message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Validation reports a caller input that failed a field-level invariant.
func Validation(op, message string) *Error { return newErr(KindValidation, op, message, nil) }

// NotFound reports a lookup for a uuid/group_id pair that doesn't exist.
func NotFound(op, message string) *Error { return newErr(KindNotFound, op, message, nil) }

// RateLimited reports an LLM or embedding call rejected by a provider quota.
func RateLimited(op string, err error) *Error {
	return newErr(KindRateLimited, op, "rate limit exceeded", err)
}

// Transient reports a retryable infrastructure failure (timeout, connection
// reset, 5xx).
func Transient(op string, err error) *Error {
	return newErr(KindTransient, op, "transient failure", err)
}

// BadLLMOutput reports extraction output that failed schema/ontology
// validation or JSON repair.
func BadLLMOutput(op, message string, err error) *Error {
	return newErr(KindBadLLMOutput, op, message, err)
}

// Conflict reports a mutation that collided with a concurrent update to the
// same edge or node.
func Conflict(op, message string) *Error { return newErr(KindConflict, op, message, nil) }

// Exhausted reports a retry budget running out (spec §4.5's max_attempts).
func Exhausted(op string, attempts int, err error) *Error {
	return newErr(KindExhausted, op, fmt.Sprintf("exhausted after %d attempts", attempts), err)
}

// Cancelled reports a caller-cancelled or context-cancelled operation.
func Cancelled(op string, err error) *Error { return newErr(KindCancelled, op, "cancelled", err) }

// Internal reports a bug or unexpected invariant violation.
func Internal(op, message string, err error) *Error {
	return newErr(KindInternal, op, message, err)
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
