// Package apperr defines the error kinds shared by the engine and its
// transports. Callers match kinds with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a lesson, question or user-scoped resource is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means the caller sent malformed or out-of-range input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIntegrity means stored data violates an internal invariant.
	ErrIntegrity = errors.New("integrity violation")
)

// Error carries an error kind together with the failing operation.
type Error struct {
	Op   string // e.g. "catalog.GetLesson"
	Kind error  // one of the Err* sentinels
	Msg  string
	Err  error // optional cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// NotFound returns an ErrNotFound error for op.
func NotFound(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Invalid returns an ErrInvalidInput error for op.
func Invalid(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// Integrity returns an ErrIntegrity error for op.
func Integrity(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrIntegrity, Msg: fmt.Sprintf(format, args...)}
}

// Kind returns the sentinel kind of err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrInvalidInput, ErrIntegrity} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
