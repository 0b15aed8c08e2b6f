package mapping

// Translator maps an entity field name to a record key
type Translator func(name string) string

// Identity returns names unchanged
func Identity(name string) string { return name }

// Hydrator applies rule sets to records. It holds no resources and is safe
// for concurrent use.
type Hydrator struct {
	naming Translator
}

// Option configures a Hydrator
type Option func(*Hydrator)

// WithNaming sets the field name to record key translator
func WithNaming(t Translator) Option {
	return func(h *Hydrator) {
		if t != nil {
			h.naming = t
		}
	}
}

// NewHydrator creates a hydrator
func NewHydrator(opts ...Option) *Hydrator {
	h := &Hydrator{naming: Identity}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Key returns the record key a field is read from
func (h *Hydrator) Key(field string, rule Rule) string {
	if rule.From != "" {
		return rule.From
	}
	return h.naming(field)
}

// Hydrate builds an entity from a record. Any rule failure aborts the whole
// record; a partially hydrated entity is never returned.
func (h *Hydrator) Hydrate(rec Gettable, rules Rules, owner string) (*Entity, error) {
	return h.HydrateInto(rec, rules, owner, nil)
}

// HydrateInto is Hydrate with a template: template fields that have no rule
// are read with the default rule (no validation, no conversion).
func (h *Hydrator) HydrateInto(rec Gettable, rules Rules, owner string, template []string) (*Entity, error) {
	entity := NewEntity()
	var overrides []NamedRule

	for _, nr := range rules {
		if nr.Rule.Override != nil {
			overrides = append(overrides, nr)
			continue
		}
		if err := h.apply(rec, entity, owner, nr.Field, nr.Rule); err != nil {
			return nil, err
		}
	}

	for _, field := range template {
		if entity.Has(field) {
			continue
		}
		if _, ok := rules.Lookup(field); ok {
			continue
		}
		if err := h.apply(rec, entity, owner, field, Rule{}); err != nil {
			return nil, err
		}
	}

	for _, nr := range overrides {
		entity.Set(nr.Field, nr.Rule.Override(entity))
	}

	return entity, nil
}

func (h *Hydrator) apply(rec Gettable, entity *Entity, owner, field string, rule Rule) error {
	raw, _ := rec.Get(h.Key(field, rule))
	path := owner + "#" + field

	value, err := ValueAs(raw, path, rule)
	if err != nil {
		return attachPath(err, field, path)
	}
	entity.Set(field, value)
	return nil
}

// ValueAs runs a single rule against a value
func ValueAs(value any, path string, rule Rule) (any, error) {
	if rule.Optional && value == nil {
		return nil, nil
	}
	if rule.Validate != nil {
		if err := rule.Validate(value, path); err != nil {
			return nil, err
		}
	}
	if rule.Convert != nil {
		return rule.Convert(value, path)
	}
	return value, nil
}

// Result is the outcome of hydrating one record of a batch
type Result struct {
	Index  int
	Entity *Entity
	Err    error
}

// HydrateAll hydrates every record independently; a failing record does not
// affect its siblings
func (h *Hydrator) HydrateAll(records []Gettable, rules Rules, owner string) []Result {
	results := make([]Result, len(records))
	for i, rec := range records {
		entity, err := h.Hydrate(rec, rules, owner)
		results[i] = Result{Index: i, Entity: entity, Err: err}
	}
	return results
}
