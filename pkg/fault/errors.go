package fault

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind tells whether an error must be handled or may propagate freely
type Kind int

const (
	// KindChecked errors must be handled or rethrown by the caller
	KindChecked Kind = iota
	// KindUnchecked errors may propagate by panicking
	KindUnchecked
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindChecked:
		return "checked"
	case KindUnchecked:
		return "unchecked"
	default:
		return "unknown"
	}
}

// Unchecked is implemented by errors that may propagate without being declared.
type Unchecked interface {
	error
	Unchecked()
}

// ErrNilArgument is matched by every precondition violation raised by this package
var ErrNilArgument = errors.New("nil argument")

// PreconditionError reports a programmer error such as a nil argument.
// It is unchecked and is always raised, never returned.
type PreconditionError struct {
	Op  string
	Arg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s must not be nil", e.Op, e.Arg)
}

// Is matches ErrNilArgument
func (e *PreconditionError) Is(target error) bool {
	return target == ErrNilArgument
}

func (e *PreconditionError) Unchecked() {}

// Precondition creates the error raised when arg of op is nil or empty
func Precondition(op, arg string) *PreconditionError {
	return &PreconditionError{Op: op, Arg: arg}
}

// UncheckedError is a plain unchecked error with an optional cause
type UncheckedError struct {
	Msg   string
	Cause error
}

// Runtime creates an unchecked error with the given message
func Runtime(msg string) *UncheckedError {
	return &UncheckedError{Msg: msg}
}

// Runtimef creates an unchecked error with a formatted message.
// A %w verb sets the cause.
func Runtimef(format string, args ...any) *UncheckedError {
	wrapped := fmt.Errorf(format, args...)
	return &UncheckedError{Msg: wrapped.Error(), Cause: errors.Unwrap(wrapped)}
}

func (e *UncheckedError) Error() string {
	return e.Msg
}

// Unwrap returns the underlying error
func (e *UncheckedError) Unwrap() error {
	return e.Cause
}

func (e *UncheckedError) Unchecked() {}

// PropagatedError is the unchecked boundary added by Propagate
type PropagatedError struct {
	Cause error
}

func (e *PropagatedError) Error() string {
	return "propagated: " + e.Cause.Error()
}

// Unwrap returns the propagated error
func (e *PropagatedError) Unwrap() error {
	return e.Cause
}

func (e *PropagatedError) Unchecked() {}

// carrier is implemented by the closed set of errors Unwrap strips
type carrier interface {
	error
	carried() error
}

// ExecutionError carries the failure of an asynchronous computation.
type ExecutionError struct {
	Cause error
}

// Execution wraps cause in an execution carrier
func Execution(cause error) *ExecutionError {
	return &ExecutionError{Cause: cause}
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return "execution failed"
	}
	return "execution failed: " + e.Cause.Error()
}

// Unwrap returns the underlying error
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

func (e *ExecutionError) carried() error { return e.Cause }

// InvocationError carries the failure of a dynamically invoked function
type InvocationError struct {
	Target error
}

// Invocation wraps target in an invocation carrier
func Invocation(target error) *InvocationError {
	return &InvocationError{Target: target}
}

func (e *InvocationError) Error() string {
	if e.Target == nil {
		return "invocation failed"
	}
	return "invocation failed: " + e.Target.Error()
}

// Unwrap returns the underlying error
func (e *InvocationError) Unwrap() error {
	return e.Target
}

func (e *InvocationError) carried() error { return e.Target }

// thrown transports a checked error raised by Rethrow. Catch removes it.
type thrown struct {
	err error
}

func (t *thrown) Error() string { return t.err.Error() }

func (t *thrown) Unwrap() error { return t.err }

func (t *thrown) Unchecked() {}

// IsUnchecked reports whether err itself is unchecked. The cause chain is not
// consulted: a checked error wrapping an unchecked one is still checked.
func IsUnchecked(err error) bool {
	switch err.(type) {
	case Unchecked:
		return true
	case runtime.Error:
		return true
	}
	return false
}

// IsCarrier reports whether err is an execution or invocation carrier
func IsCarrier(err error) bool {
	_, ok := err.(carrier)
	return ok
}

// Classify returns the kind of err
func Classify(err error) Kind {
	if IsUnchecked(err) {
		return KindUnchecked
	}
	return KindChecked
}
