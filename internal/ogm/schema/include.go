package schema

import (
	"fmt"
	"sort"
)

// Include is an inclusion shape: relationship field name mapped to true
// (fetch eagerly), false (force lazy) or a nested Include (fetch eagerly and
// apply the nested shape to the target schema).
type Include map[string]any

// ApplyInclude returns a clone of s specialised by the inclusion shape. The
// input schema and every schema reachable from it are left untouched.
func ApplyInclude(s *Schema, inc Include) (*Schema, error) {
	if len(inc) == 0 {
		return s, nil
	}

	out := s.Clone()

	// sorted so the first reported error is stable
	names := make([]string, 0, len(inc))
	for name := range inc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field, ok := s.Field(name)
		if !ok {
			return nil, &UnknownFieldError{Schema: s.Label, Field: name, Context: "include"}
		}
		rel, ok := field.Relationship()
		if !ok {
			return nil, &UnknownFieldError{Schema: s.Label, Field: name, Context: "include (not a relationship)"}
		}

		switch v := inc[name].(type) {
		case bool:
			out.replace(name, rel.WithEager(v))
		case Include:
			nested, err := applyNested(rel, v)
			if err != nil {
				return nil, err
			}
			out.replace(name, nested)
		case map[string]any:
			nested, err := applyNested(rel, Include(v))
			if err != nil {
				return nil, err
			}
			out.replace(name, nested)
		default:
			return nil, fmt.Errorf("%w: %s.%s = %T", ErrInvalidInclude, s.Label, name, v)
		}
	}

	return out, nil
}

func applyNested(rel Relationship, inc Include) (Relationship, error) {
	target := rel.ResolveTarget()
	if target == nil {
		return Relationship{}, &SchemaError{Label: rel.Label, Reasons: []string{"relationship target did not resolve"}}
	}
	specialised, err := ApplyInclude(target, inc)
	if err != nil {
		return Relationship{}, err
	}
	return rel.WithEager(true).WithTarget(Static(specialised)), nil
}
