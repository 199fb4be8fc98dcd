// Package result defines the tagged outcome that flows back out through
// every pipeline stage. A fault is a Result whose Err is set; it is carried
// as a value rather than a panic so each enclosing stage can observe it.
package result

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoResult is used when a handler returned without producing a Result.
var ErrNoResult = errors.New("result: handler produced no result")

// Result is the outcome of an action or of a terminating stage.
type Result struct {
	Status int
	Body   any
	Err    error
}

// OK is a 200 with body.
func OK(body any) Result {
	return Result{Status: http.StatusOK, Body: body}
}

// New builds a successful result with an explicit status.
func New(status int, body any) Result {
	return Result{Status: status, Body: body}
}

// Fault builds a 500 result carrying err. A nil err still produces a fault.
func Fault(err error) Result {
	if err == nil {
		err = errors.New("result: unspecified fault")
	}
	return Result{Status: http.StatusInternalServerError, Err: err}
}

// Faulted reports whether r carries an error.
func (r Result) Faulted() bool { return r.Err != nil }

// StatusCode returns the HTTP status to write for r.
func (r Result) StatusCode() int {
	switch {
	case r.Status != 0:
		return r.Status
	case r.Faulted():
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
