package schema

import (
	"fmt"
	"strings"
)

// Validate checks that a schema can back a stored entity: a label, exactly one
// identity field, unique field names and well-formed relationships. Targets are
// not resolved here so that schemas can be registered before their targets.
func Validate(s *Schema) error {
	if s == nil {
		return &SchemaError{Reasons: []string{"schema is nil"}}
	}

	var reasons []string

	if s.Label == "" {
		reasons = append(reasons, "label is required")
	}

	for _, name := range s.duplicates {
		reasons = append(reasons, fmt.Sprintf("field %q is declared more than once", name))
	}

	identities := 0
	for _, f := range s.fields {
		if f.Name == "" {
			reasons = append(reasons, "field name is required")
			continue
		}
		switch a := f.Annotation.(type) {
		case Identity:
			identities++
		case Scalar:
			if !a.Kind.Valid() {
				reasons = append(reasons, fmt.Sprintf("field %q has unknown kind %d", f.Name, a.Kind))
			}
			if a.Stringify && !a.Kind.Temporal() {
				reasons = append(reasons, fmt.Sprintf("field %q: stringify applies to temporal kinds only, not %s", f.Name, a.Kind))
			}
		case Relationship:
			if a.Label == "" {
				reasons = append(reasons, fmt.Sprintf("relationship %q has no label", f.Name))
			}
			if a.Target == nil {
				reasons = append(reasons, fmt.Sprintf("relationship %q has no target", f.Name))
			}
			if a.Direction != Inbound && a.Direction != Outbound {
				reasons = append(reasons, fmt.Sprintf("relationship %q has unknown direction", f.Name))
			}
		case nil:
			reasons = append(reasons, fmt.Sprintf("field %q has no annotation", f.Name))
		default:
			reasons = append(reasons, fmt.Sprintf("field %q has unsupported annotation %T", f.Name, a))
		}
	}

	switch {
	case identities == 0:
		reasons = append(reasons, "ID not found")
	case identities > 1:
		reasons = append(reasons, "only one ID is allowed")
	}

	if len(reasons) > 0 {
		return &SchemaError{Label: s.Label, Reasons: reasons}
	}
	return nil
}

// ValidateTargets resolves every relationship target and validates it. It is
// run once all schemas of a set are known. Relationships that are eager by
// default must not lead back to a schema already on the path, since such a
// schema could never be fetched.
func ValidateTargets(s *Schema) error {
	var reasons []string
	if cycle := eagerCycle(s); cycle != "" {
		reasons = append(reasons, "eager relationships form a cycle: "+cycle)
	}
	for _, f := range s.Relationships() {
		rel, _ := f.Relationship()
		target := rel.ResolveTarget()
		if target == nil {
			reasons = append(reasons, fmt.Sprintf("relationship %q references an unknown schema", f.Name))
			continue
		}
		if err := Validate(target); err != nil {
			reasons = append(reasons, fmt.Sprintf("relationship %q: %v", f.Name, err))
		}
	}
	if len(reasons) > 0 {
		return &SchemaError{Label: s.Label, Reasons: reasons}
	}
	return nil
}

// eagerCycle returns the first cycle of eager-by-default relationships
// reachable from s, e.g. "Person.friends -> Person", or "" if there is none.
// Targets that do not resolve yet are skipped.
func eagerCycle(s *Schema) string {
	done := map[*Schema]bool{}
	var path []*Schema
	var edges []string

	var visit func(cur *Schema) string
	visit = func(cur *Schema) string {
		for i, p := range path {
			if p == cur {
				return strings.Join(edges[i:], " -> ") + " -> " + cur.Label
			}
		}
		if done[cur] {
			return ""
		}

		path = append(path, cur)
		for _, f := range cur.Relationships() {
			rel, _ := f.Relationship()
			if !rel.Eager {
				continue
			}
			target := rel.ResolveTarget()
			if target == nil {
				continue
			}
			edges = append(edges, cur.Label+"."+f.Name)
			if cycle := visit(target); cycle != "" {
				return cycle
			}
			edges = edges[:len(edges)-1]
		}
		path = path[:len(path)-1]
		done[cur] = true
		return ""
	}
	return visit(s)
}
