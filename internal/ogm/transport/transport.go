// Package transport executes compiled statements against a graph store
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
)

// AccessMode tells the store whether a statement writes
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

// String returns the access mode name
func (m AccessMode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// Request is one statement to execute
type Request struct {
	Cypher string
	Params map[string]any
	Mode   AccessMode
}

// Executor runs a statement and returns its records. A record is opaque
// except for lookup by key.
type Executor interface {
	Execute(ctx context.Context, req Request) ([]mapping.Gettable, error)
}

// ErrTransport is matched by every *TransportError
var ErrTransport = errors.New("transport error")

// TransportError wraps a failure of the underlying store: connectivity, a
// rejected statement, a constraint violation or cancellation
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Wrap returns err as a *TransportError unless it already is one
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
