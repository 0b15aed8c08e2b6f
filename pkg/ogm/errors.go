package ogm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/query"
	"github.com/conduit-lang/neogm/internal/ogm/relationships"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
	"github.com/conduit-lang/neogm/internal/ogm/transport"
)

// Sentinels for errors.Is
var (
	ErrSchema            = schema.ErrSchema
	ErrUnknownField      = schema.ErrUnknownField
	ErrInvalidInclude    = schema.ErrInvalidInclude
	ErrTypeMismatch      = mapping.ErrTypeMismatch
	ErrTransport         = transport.ErrTransport
	ErrRelationshipField = query.ErrRelationshipField
	ErrEmptyValues       = query.ErrEmptyValues
	ErrMaxDepthExceeded  = query.ErrMaxDepthExceeded
	ErrInvalidComparison = query.ErrInvalidComparison
	ErrDetached          = relationships.ErrDetached

	// ErrNotFound is returned by FindOne when nothing matches
	ErrNotFound = errors.New("node not found")

	// ErrPartial is matched by every *PartialError
	ErrPartial = errors.New("some records failed to hydrate")
)

// Error types
type (
	SchemaError       = schema.SchemaError
	UnknownFieldError = schema.UnknownFieldError
	TypeMismatchError = mapping.TypeMismatchError
	FieldError        = mapping.FieldError
	TransportError    = transport.TransportError
)

// RecordError is the failure of one record of a result set
type RecordError struct {
	Index int
	Err   error
}

// Error implements the error interface
func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

// Unwrap returns the hydration error
func (e RecordError) Unwrap() error {
	return e.Err
}

// PartialError accompanies the well-formed entities of an operation when
// partial results are enabled and some records failed
type PartialError struct {
	Failures []RecordError
}

// Error implements the error interface
func (e *PartialError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("1 record failed to hydrate: %v", e.Failures[0])
	}
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d records failed to hydrate:\n  - %s", len(e.Failures), strings.Join(msgs, "\n  - "))
}

// Is reports whether target is ErrPartial
func (e *PartialError) Is(target error) bool {
	return target == ErrPartial
}

// Unwrap returns the record errors
func (e *PartialError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
