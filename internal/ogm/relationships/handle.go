// Package relationships provides lazy placeholders for relationships that
// were not fetched with their owner
package relationships

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/query"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

// Traverser runs the follow-up query of a handle. The OGM implements it;
// a handle never holds a connection of its own.
type Traverser interface {
	Traverse(ctx context.Context, h *Handle, where query.Predicate, include schema.Include) ([]*mapping.Entity, error)
}

// Handle stands in for a relationship field that was not fetched eagerly.
// It carries what a follow-up query needs and caches nothing.
type Handle struct {
	field     string
	rel       schema.Relationship
	owner     *schema.Schema
	ownerID   any
	traverser Traverser
}

// NewHandle creates a handle for field of the owner entity identified by
// ownerID
func NewHandle(owner *schema.Schema, field string, rel schema.Relationship, ownerID any, t Traverser) *Handle {
	return &Handle{
		field:     field,
		rel:       rel,
		owner:     owner,
		ownerID:   ownerID,
		traverser: t,
	}
}

// Same reports whether other is a handle for the same field of the same
// owner node
func (h *Handle) Same(other any) bool {
	o, ok := other.(*Handle)
	if !ok || h == nil || o == nil {
		return ok && h == o
	}
	return h.field == o.field &&
		h.owner.Label == o.owner.Label &&
		h.rel.Label == o.rel.Label &&
		h.rel.Direction == o.rel.Direction &&
		reflect.DeepEqual(h.ownerID, o.ownerID)
}

// Field returns the relationship field name on the owner
func (h *Handle) Field() string { return h.field }

// Label returns the relationship type
func (h *Handle) Label() string { return h.rel.Label }

// Direction returns the direction as seen from the owner
func (h *Handle) Direction() schema.Direction { return h.rel.Direction }

// Target returns the schema of the related nodes
func (h *Handle) Target() *schema.Schema { return h.rel.ResolveTarget() }

// Owner returns the owner's schema
func (h *Handle) Owner() *schema.Schema { return h.owner }

// OwnerID returns the identity value of the owner
func (h *Handle) OwnerID() any { return h.ownerID }

// Query fetches the related nodes matching where. An optional inclusion
// shape applies to the target schema. Each returned entity carries the
// properties of the relationship it was reached through.
func (h *Handle) Query(ctx context.Context, where query.Predicate, include ...schema.Include) ([]*mapping.Entity, error) {
	if h.traverser == nil {
		return nil, fmt.Errorf("%s.%s: %w", h.owner.Label, h.field, ErrDetached)
	}
	if h.ownerID == nil {
		return nil, fmt.Errorf("%s.%s: %w", h.owner.Label, h.field, ErrNoOwnerIdentity)
	}

	var inc schema.Include
	if len(include) > 0 {
		inc = include[0]
	}
	return h.traverser.Traverse(ctx, h, where, inc)
}

// String returns a short description such as Movie.actors<-[:ACTED_IN]-Person
func (h *Handle) String() string {
	target := "?"
	if t := h.Target(); t != nil {
		target = t.Label
	}
	return fmt.Sprintf("%s.%s%s%s", h.owner.Label, h.field, h.rel.String(), target)
}

type handleJSON struct {
	Label     string `json:"label"`
	Direction string `json:"direction"`
	Target    string `json:"target"`
}

// MarshalJSON writes the handle as {"@lazy": {...}}
func (h *Handle) MarshalJSON() ([]byte, error) {
	out := handleJSON{Label: h.rel.Label, Direction: h.rel.Direction.String()}
	if t := h.Target(); t != nil {
		out.Target = t.Label
	}
	return json.Marshal(map[string]handleJSON{"@lazy": out})
}
