package schema

import "sync"

// Ref is a lazily resolved reference to a schema. The resolver runs on first
// access and a non-nil result is cached; a nil result is retried on the next
// access so a registry lookup can succeed once the label is registered.
type Ref struct {
	mu      sync.Mutex
	resolve func() *Schema
	schema  *Schema
}

// Lazy creates a reference resolved by fn on first access
func Lazy(fn func() *Schema) *Ref {
	return &Ref{resolve: fn}
}

// Static creates an already resolved reference
func Static(s *Schema) *Ref {
	return &Ref{schema: s}
}

// Resolve returns the referenced schema, running the resolver if needed
func (r *Ref) Resolve() *Schema {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schema == nil && r.resolve != nil {
		r.schema = r.resolve()
	}
	return r.schema
}
