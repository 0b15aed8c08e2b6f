package mapping

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is matched by every *TypeMismatchError
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownConvention is returned for an unrecognised naming convention
	ErrUnknownConvention = errors.New("naming convention is not recognized")
)

// TypeMismatchError is returned when a raw value does not have the kind a
// rule expects
type TypeMismatchError struct {
	Field    string // field name on the entity
	Path     string // owner-qualified path, e.g. Movie#actors[0]#born
	Expected string
	Actual   string
	Hint     string
}

// Error implements the error interface
func (e *TypeMismatchError) Error() string {
	where := e.Path
	if where == "" {
		where = e.Field
	}
	msg := fmt.Sprintf("%s should be a %s but received %s", where, e.Expected, e.Actual)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Is reports whether target is ErrTypeMismatch
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// FieldError wraps a failure raised by a custom validator or converter with
// the path of the field being hydrated
type FieldError struct {
	Field string
	Path  string
	Err   error
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *FieldError) Unwrap() error {
	return e.Err
}

// attachPath fills in the field location on errors raised by a rule
func attachPath(err error, field, path string) error {
	var mismatch *TypeMismatchError
	if errors.As(err, &mismatch) {
		if mismatch.Field == "" {
			mismatch.Field = field
		}
		if mismatch.Path == "" {
			mismatch.Path = path
		}
		return err
	}
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return err
	}
	return &FieldError{Field: field, Path: path, Err: err}
}
