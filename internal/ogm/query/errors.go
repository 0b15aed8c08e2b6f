package query

import "errors"

var (
	// ErrRelationshipField is returned when a predicate or value set names a
	// relationship field
	ErrRelationshipField = errors.New("relationship fields cannot be filtered or assigned directly")

	// ErrEmptyValues is returned when an update has nothing to set
	ErrEmptyValues = errors.New("no values to set")

	// ErrMaxDepthExceeded is returned when eager relationships nest deeper than
	// the compiler allows, usually because two schemas are eager towards each
	// other by default
	ErrMaxDepthExceeded = errors.New("maximum relationship depth exceeded")

	// ErrInvalidComparison is returned for a comparison whose value does not
	// suit its operator
	ErrInvalidComparison = errors.New("invalid comparison")

	// ErrNotRelationship is returned when a traversal names a field that is
	// not a relationship
	ErrNotRelationship = errors.New("field is not a relationship")
)
