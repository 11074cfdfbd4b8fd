// Package coreerrors defines the error taxonomy shared by every component
// of the agentic execution core. Each kind carries its own propagation and
// recovery semantics; callers classify with errors.Is/As rather than string
// matching.
package coreerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the fixed error categories the execution core recognizes.
type Kind string

const (
	// KindBudgetExceeded means the Cost Governor refused the call outright
	// because the user's daily budget is exhausted.
	KindBudgetExceeded Kind = "budget_exceeded"
	// KindCircuitOpen means the LLM Gateway's circuit breaker is open for
	// the target model and the call was rejected without reaching it.
	KindCircuitOpen Kind = "circuit_open"
	// KindTransient means the failure is expected to clear on retry (rate
	// limits, timeouts, 5xx).
	KindTransient Kind = "transient_error"
	// KindInvalidInput means the caller supplied a malformed request; retry
	// will not help without changing the input.
	KindInvalidInput Kind = "invalid_input"
	// KindExecutionFailure means an agent or job ran but failed to produce
	// a usable result.
	KindExecutionFailure Kind = "execution_failure"
	// KindNotFound means a referenced entity does not exist.
	KindNotFound Kind = "not_found"
	// KindLeakage means a response appeared to include data it should not
	// have (cross-user or cross-tenant content).
	KindLeakage Kind = "leakage"
	// KindSandboxViolation means an agent attempted an action outside its
	// granted capabilities.
	KindSandboxViolation Kind = "sandbox_violation"
)

// Error is the structured failure type every core component returns. It
// chains via Cause so errors.Is/As can classify failures across
// component boundaries without string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   *Error
}

// New constructs an Error of the given kind with no underlying cause.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Newf formats message like fmt.Sprintf and wraps it as an Error of kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap converts an arbitrary error into an Error chain with the given kind
// at the head. If cause is already an *Error its chain is preserved as the
// Cause rather than re-wrapped.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: fromError(cause)}
}

func fromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindExecutionFailure, Message: err.Error(), Cause: fromError(errors.Unwrap(err))}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap supports errors.Is/As across the chain.
func (e *Error) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, coreerrors.New(coreerrors.KindBudgetExceeded, ""))
// or more idiomatically use IsKind below.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return te.Kind == e.Kind
}

// IsKind reports whether err is, or wraps, an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for cur := e; cur != nil; cur = cur.Cause {
		if cur.Kind == kind {
			return true
		}
	}
	return false
}
