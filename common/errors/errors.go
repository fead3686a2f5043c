// Package errors implements errors identified by a stable (module, code)
// pair.
//
// A registered error survives a round trip through its code, so cycle
// reports read back from the history store still match errors.Is against
// the sentinel errors of the crank packages.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	// UnknownModule is the module of errors that were never registered.
	UnknownModule = "unknown"

	// CodeNoError is the reserved code of the nil error.
	CodeNoError = 0
)

// Re-exports so this package can be used as a replacement for errors.
var (
	As     = errors.As
	Is     = errors.Is
	Unwrap = errors.Unwrap
)

type registryKey struct {
	module string
	code   uint32
}

func (k registryKey) String() string {
	return fmt.Sprintf("%s/%d", k.module, k.code)
}

var (
	registryLock sync.RWMutex
	registry     = make(map[registryKey]*codedError)

	errUnknown = New(UnknownModule, 1, "unknown error")
)

type codedError struct {
	key registryKey
	msg string
}

func (e *codedError) Error() string {
	return e.msg
}

type contextError struct {
	err     error
	context string
}

func (e *contextError) Error() string {
	return e.err.Error() + ": " + e.context
}

func (e *contextError) Unwrap() error {
	return e.err
}

// New registers a new error under the given module and code.
//
// It panics if the pair is already taken or the code is CodeNoError, so
// errors should only be created at package initialization.
func New(module string, code uint32, msg string) error {
	key := registryKey{module, code}
	if code == CodeNoError {
		panic(fmt.Sprintf("errors: %s uses the reserved code", key))
	}

	registryLock.Lock()
	defer registryLock.Unlock()

	if prev, ok := registry[key]; ok {
		panic(fmt.Sprintf("errors: %s already registered as %q", key, prev.msg))
	}
	e := &codedError{key: key, msg: msg}
	registry[key] = e

	return e
}

// WithContext wraps err with additional context. Empty context returns err
// unchanged.
func WithContext(err error, context string) error {
	if context == "" {
		return err
	}
	return &contextError{err: err, context: context}
}

// Context returns the context err was wrapped with, if any.
func Context(err error) string {
	var ce *contextError
	if err != nil && As(err, &ce) {
		return ce.context
	}
	return ""
}

// Code returns the module and code of err. Errors that do not wrap a
// registered error map to the unknown error, nil maps to CodeNoError.
func Code(err error) (string, uint32) {
	if err == nil {
		return "", CodeNoError
	}

	var ce *codedError
	if !As(err, &ce) {
		ce = errUnknown.(*codedError)
	}
	return ce.key.module, ce.key.code
}

// FromCode reconstructs an error from its module, code and message.
//
// Registered errors are returned as the registered sentinel, wrapped with
// whatever the message carried beyond the sentinel's own text. Unregistered
// pairs produce a fresh error with the given message.
func FromCode(module string, code uint32, message string) error {
	if code == CodeNoError {
		return nil
	}

	key := registryKey{module, code}
	registryLock.RLock()
	e, ok := registry[key]
	registryLock.RUnlock()

	if !ok || e == errUnknown {
		return &codedError{key: key, msg: message}
	}
	if message == e.msg {
		return e
	}
	return WithContext(e, strings.TrimPrefix(message, e.msg+": "))
}
