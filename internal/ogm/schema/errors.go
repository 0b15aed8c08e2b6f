package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema is matched by every *SchemaError
	ErrSchema = errors.New("invalid schema")

	// ErrUnknownField is matched by every *UnknownFieldError
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidInclude is returned when an inclusion shape has a value that is
	// neither true, false nor a nested shape
	ErrInvalidInclude = errors.New("invalid inclusion value")
)

// SchemaError is returned when a schema cannot be registered
type SchemaError struct {
	Label   string
	Reasons []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if len(e.Reasons) == 1 {
		return fmt.Sprintf("invalid schema %q: %s", e.Label, e.Reasons[0])
	}
	return fmt.Sprintf("invalid schema %q:\n  - %s", e.Label, strings.Join(e.Reasons, "\n  - "))
}

// Is reports whether target is ErrSchema
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// UnknownFieldError is returned when a predicate, value set or inclusion shape
// names a field the schema does not declare
type UnknownFieldError struct {
	Schema  string
	Field   string
	Context string // "predicate", "values", "include", ...
}

// Error implements the error interface
func (e *UnknownFieldError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: unknown field %q in %s", e.Schema, e.Field, e.Context)
	}
	return fmt.Sprintf("%s: unknown field %q", e.Schema, e.Field)
}

// Is reports whether target is ErrUnknownField
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}
