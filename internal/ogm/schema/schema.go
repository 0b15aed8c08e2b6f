package schema

// Field is a named annotation within a schema
type Field struct {
	Name       string
	Annotation Annotation
}

// F builds a Field
func F(name string, annotation Annotation) Field {
	return Field{Name: name, Annotation: annotation}
}

// IsRelationship returns true if the field is a relationship
func (f Field) IsRelationship() bool {
	_, ok := f.Annotation.(Relationship)
	return ok
}

// Relationship returns the field's relationship annotation, if it has one
func (f Field) Relationship() (Relationship, bool) {
	rel, ok := f.Annotation.(Relationship)
	return rel, ok
}

// Schema describes a node label and its fields. Field order is preserved and
// drives projection and parameter ordering. A registered Schema is treated as
// read-only; per-call specialisation works on a Clone.
type Schema struct {
	Label  string
	fields []Field
	index  map[string]int

	// duplicates is kept for Validate; New never fails
	duplicates []string
}

// New creates a schema for the given node label
func New(label string, fields ...Field) *Schema {
	s := &Schema{
		Label:  label,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if _, exists := s.index[f.Name]; exists {
			s.duplicates = append(s.duplicates, f.Name)
			continue
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Fields returns a copy of the schema's fields in declaration order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in declaration order
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the field with the given name
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// HasField returns true if the schema declares a field with the given name
func (s *Schema) HasField(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Identity returns the name of the identity field
func (s *Schema) Identity() (string, bool) {
	for _, f := range s.fields {
		if _, ok := f.Annotation.(Identity); ok {
			return f.Name, true
		}
	}
	return "", false
}

// Properties returns the non-relationship fields (scalars and identity)
func (s *Schema) Properties() []Field {
	var out []Field
	for _, f := range s.fields {
		if !f.IsRelationship() {
			out = append(out, f)
		}
	}
	return out
}

// Relationships returns the relationship fields
func (s *Schema) Relationships() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.IsRelationship() {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a structurally independent copy of the schema. Annotations are
// values, so replacing one on the clone never affects the original; target
// refs are shared because resolved schemas are never mutated.
func (s *Schema) Clone() *Schema {
	c := &Schema{
		Label:  s.Label,
		fields: make([]Field, len(s.fields)),
		index:  make(map[string]int, len(s.index)),
	}
	copy(c.fields, s.fields)
	for k, v := range s.index {
		c.index[k] = v
	}
	if len(s.duplicates) > 0 {
		c.duplicates = append([]string(nil), s.duplicates...)
	}
	return c
}

// replace swaps the annotation of an existing field. Only used on clones.
func (s *Schema) replace(name string, annotation Annotation) {
	if i, ok := s.index[name]; ok {
		s.fields[i].Annotation = annotation
	}
}
