// Package apperr gives the domain's outcomes (prerequisite not met, no
// problem available, attempts exhausted...) a typed shape. Every selector
// and intake operation returns one of these kinds instead of an ordinary
// opaque error for anything a caller is expected to branch on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the domain-level outcomes a caller is expected to
// recognize and handle.
type Kind string

const (
	Unauthenticated      Kind = "UNAUTHENTICATED"
	NotEnrolled          Kind = "NOT_ENROLLED"
	IsTeacher            Kind = "IS_TEACHER"
	PrerequisiteNotMet   Kind = "PREREQUISITE_NOT_MET"
	TheoryNotStarted     Kind = "THEORY_NOT_STARTED"
	TopicTheoryDone      Kind = "TOPIC_THEORY_DONE"
	TopicPracticeDone    Kind = "TOPIC_PRACTICE_DONE"
	NoProblemAvailable   Kind = "NO_PROBLEM_AVAILABLE"
	AttemptsExhausted    Kind = "ATTEMPTS_EXHAUSTED"
	AlreadySolved        Kind = "ALREADY_SOLVED"
	BadPayload           Kind = "BAD_PAYLOAD"
	ContentInconsistency Kind = "CONTENT_INCONSISTENCY"
)

// Error wraps a Kind with a human-readable message and an optional cause.
// Every field but Kind is for logging/debugging; callers branch on Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
