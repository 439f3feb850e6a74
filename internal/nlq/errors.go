package nlq

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTranslationUnavailable means the completion service could not be
	// reached (network failure, rate limit, 5xx). Retryable.
	ErrTranslationUnavailable = errors.New("translation service unavailable")

	// ErrNoQueryProduced means the completion service replied, but no SQL
	// statement could be extracted from the reply. Retryable.
	ErrNoQueryProduced = errors.New("no query produced")

	// ErrExhausted means the retry budget ran out without a successful
	// execution. Terminal and the only pipeline error a caller sees.
	ErrExhausted = errors.New("retry attempts exhausted")
)

// RejectedError is returned by the validator when a candidate query fails
// a safety or schema check. The reason is short and specific: it becomes
// the feedback for the next translation attempt.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "query rejected: " + e.Reason
}

// ExecErrorKind classifies executor failures.
type ExecErrorKind string

const (
	// ExecTimeout: the statement exceeded the statement timeout.
	ExecTimeout ExecErrorKind = "timeout"
	// ExecConstraintOrType: the statement was refused by the store
	// (type mismatch, bad reference, syntax the server would not take).
	ExecConstraintOrType ExecErrorKind = "constraint_or_type"
	// ExecConnection: the store could not be reached. Not a
	// query-quality problem, so never fed back to the translator.
	ExecConnection ExecErrorKind = "connection"
)

// ExecError wraps a storage-level failure with its classification.
type ExecError struct {
	Kind ExecErrorKind
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execution failed (%s): %v", e.Kind, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ExhaustedError carries the accumulated error log of all failed
// attempts. The log is for internal diagnostics only and must never be
// rendered to the end user.
type ExhaustedError struct {
	Attempts int
	Log      []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %s", ErrExhausted, e.Attempts, strings.Join(e.Log, "; "))
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}
