package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds schemas by node label
type Registry struct {
	schemas map[string]*Schema
	mu      sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*Schema),
	}
}

// Register validates and stores a schema. Targets that are not known yet are
// left unresolved so that forward references work; see ValidateAll.
func (r *Registry) Register(s *Schema) error {
	if err := Validate(s); err != nil {
		return err
	}
	if cycle := eagerCycle(s); cycle != "" {
		return &SchemaError{Label: s.Label, Reasons: []string{"eager relationships form a cycle: " + cycle}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.Label]; exists {
		return &SchemaError{Label: s.Label, Reasons: []string{"label is already registered"}}
	}
	r.schemas[s.Label] = s
	return nil
}

// Get retrieves a schema by label
func (r *Registry) Get(label string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[label]
	return s, ok
}

// Ref returns a lazy reference to the schema registered under label. The
// lookup happens on first resolution, so the label may be registered later.
func (r *Registry) Ref(label string) *Ref {
	return Lazy(func() *Schema {
		s, _ := r.Get(label)
		return s
	})
}

// List returns the registered labels in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.schemas))
	for label := range r.schemas {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.schemas)
}

// Exists checks if a label is registered
func (r *Registry) Exists(label string) bool {
	_, ok := r.Get(label)
	return ok
}

// ValidateAll resolves and validates every relationship target of every
// registered schema
func (r *Registry) ValidateAll() error {
	for _, label := range r.List() {
		s, _ := r.Get(label)
		if err := ValidateTargets(s); err != nil {
			return fmt.Errorf("relationship validation failed: %w", err)
		}
	}
	return nil
}

// remove unregisters the given schemas, leaving any other schema registered
// under the same label in place
func (r *Registry) remove(schemas []*Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range schemas {
		if r.schemas[s.Label] == s {
			delete(r.schemas, s.Label)
		}
	}
}
