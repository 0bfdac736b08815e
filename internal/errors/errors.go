// Package errors provides the error types shared by shipflow components:
// a collector for shutdown errors, a marker for retryable failures and
// panic recovery for code run on behalf of the user.
package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// MultiError collects independent failures, such as those of each
// component during shutdown.
type MultiError struct {
	Errors []error
}

// Append adds a non-nil error.
func (m *MultiError) Append(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil when nothing was collected, the single error when
// only one was, and the MultiError otherwise.
func (m *MultiError) ErrorOrNil() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// TransientError marks a failure that did not leave anything in a broken
// state, such as a timed-out wait during shutdown.
type TransientError struct {
	Op  string
	Err error
}

// NewTransientError wraps err as transient.
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is transient. A MultiError is transient
// only when every error it collected is.
func IsTransient(err error) bool {
	var m *MultiError
	if errors.As(err, &m) {
		if len(m.Errors) == 0 {
			return false
		}
		for _, e := range m.Errors {
			if !IsTransient(e) {
				return false
			}
		}
		return true
	}
	var t *TransientError
	return errors.As(err, &t)
}

// PanicError is returned by Recover when fn panics.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover runs fn and converts a panic into a *PanicError.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, StackTrace: string(debug.Stack())}
		}
	}()
	return fn()
}
