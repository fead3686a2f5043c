package api

import (
	"fmt"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
)

// ModuleName is the module name used for error definitions.
const ModuleName = "crank"

var (
	// ErrMalformedBuffer is the error returned when a crank buffer is malformed.
	ErrMalformedBuffer = errors.New(ModuleName, 1, "crank: malformed buffer")
	// ErrCapacityExceeded is the error returned when rows do not fit a buffer.
	ErrCapacityExceeded = errors.New(ModuleName, 2, "crank: buffer capacity exceeded")
	// ErrHeapCorrupted is the error returned when heap order cannot be restored.
	ErrHeapCorrupted = errors.New(ModuleName, 3, "crank: cannot restore heap order within expected bound")
	// ErrOperationTooLarge is the error returned when a single operation exceeds
	// the packing ceiling.
	ErrOperationTooLarge = errors.New(ModuleName, 4, "crank: operation exceeds packing ceiling")
	// ErrNotFound is the error returned when an account does not exist.
	ErrNotFound = errors.New(ModuleName, 5, "crank: account not found")
	// ErrUnknownKind is the error returned for an unknown resource kind.
	ErrUnknownKind = errors.New(ModuleName, 6, "crank: unknown resource kind")
	// ErrInvalidCeiling is the error returned for a non-positive packing ceiling.
	ErrInvalidCeiling = errors.New(ModuleName, 7, "crank: invalid packing ceiling")
	// ErrEmptyUnit is the error returned when rendering a unit without operations.
	ErrEmptyUnit = errors.New(ModuleName, 8, "crank: empty execution unit")
	// ErrRowPopped is the error returned when a row was already popped by
	// another caller before the unit landed.
	ErrRowPopped = errors.New(ModuleName, 9, "crank: row already popped")
	// ErrQueueNotReady is the error returned by the program when no row is
	// ready at submission time.
	ErrQueueNotReady = errors.New(ModuleName, 10, "crank: no rows ready")
)

// IsFatal returns true iff the error indicates a configuration or data
// problem that restarting the cycle cannot fix.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrHeapCorrupted),
		errors.Is(err, ErrOperationTooLarge),
		errors.Is(err, ErrMalformedBuffer),
		errors.Is(err, ErrUnknownKind),
		errors.Is(err, ErrInvalidCeiling):
		return true
	default:
		return false
	}
}

// ErrorClass is the retry-relevant classification of a failure.
type ErrorClass uint8

const (
	// ClassNone is the class of a successful outcome.
	ClassNone ErrorClass = iota
	// ClassBenign is an expected failure, e.g. another caller won the race.
	ClassBenign
	// ClassRetriable is a transient failure, retried by a fresh cycle.
	ClassRetriable
	// ClassFatal is a failure a retry cannot fix.
	ClassFatal
)

// String returns a string representation of the error class.
func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassBenign:
		return "benign"
	case ClassRetriable:
		return "retriable"
	case ClassFatal:
		return "fatal"
	default:
		return fmt.Sprintf("[unknown class: %d]", uint8(c))
	}
}

// SubmissionError is the error returned by a Submitter.
type SubmissionError struct {
	Class ErrorClass
	Err   error
	// Logs are the program logs of a failed simulation or execution, if any.
	Logs []string
}

// Error returns the error message.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (%s): %v", e.Class, e.Err)
}

// Unwrap returns the underlying error.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Retriable returns true iff a fresh cycle may succeed.
func (e *SubmissionError) Retriable() bool {
	return e.Class == ClassRetriable
}

// Classify returns the error class of an arbitrary submission error.
//
// Errors that are not *SubmissionError are classified by their cause,
// anything unrecognized is treated as transient.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}

	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Class
	}
	switch {
	case errors.Is(err, ErrRowPopped), errors.Is(err, ErrQueueNotReady):
		return ClassBenign
	case IsFatal(err):
		return ClassFatal
	default:
		return ClassRetriable
	}
}
