package relationships

import "errors"

var (
	// ErrDetached is returned when a handle has no traverser to run its query
	ErrDetached = errors.New("relationship handle is not attached to an OGM")

	// ErrNoOwnerIdentity is returned when the owner entity has no identity
	// value, so the follow-up query cannot anchor on it
	ErrNoOwnerIdentity = errors.New("owner has no identity value")
)
