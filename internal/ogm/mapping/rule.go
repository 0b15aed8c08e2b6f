// Package mapping hydrates raw key-value records into entities under per-field
// rules. A rule validates and converts one field; a rule set describes a whole
// entity. Rules are plain values, so rule sets can be derived per query.
package mapping

// Rule describes how one field is read from a raw record
type Rule struct {
	// Kind is a short description of what the rule accepts, e.g. "string"
	// or "list<Person>". It plays no part in hydration.
	Kind string

	// Optional lets the field be absent or null; validation and conversion
	// are skipped in that case
	Optional bool

	// From overrides the record key; by default the field name is passed
	// through the hydrator's naming translator
	From string

	Validate func(value any, path string) error
	Convert  func(value any, path string) (any, error)

	// Override, when set, replaces whatever hydration produced for the field.
	// It runs after every other field of the entity has been hydrated.
	Override func(owner *Entity) any
}

// NamedRule binds a Rule to a field name
type NamedRule struct {
	Field string
	Rule  Rule
}

// Rules is an ordered rule set
type Rules []NamedRule

// Add returns the rule set with one more rule appended
func (r Rules) Add(field string, rule Rule) Rules {
	return append(r, NamedRule{Field: field, Rule: rule})
}

// Lookup returns the rule for a field
func (r Rules) Lookup(field string) (Rule, bool) {
	for _, nr := range r {
		if nr.Field == field {
			return nr.Rule, true
		}
	}
	return Rule{}, false
}

// Fields returns the field names in order
func (r Rules) Fields() []string {
	out := make([]string, len(r))
	for i, nr := range r {
		out[i] = nr.Field
	}
	return out
}

// Describe returns field name and Kind pairs; two rule sets derived from the
// same schema describe identically
func (r Rules) Describe() [][2]string {
	out := make([][2]string, len(r))
	for i, nr := range r {
		out[i] = [2]string{nr.Field, nr.Rule.Kind}
	}
	return out
}
