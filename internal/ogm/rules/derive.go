// Package rules derives hydration rule sets from schemas
package rules

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/query"
	"github.com/conduit-lang/neogm/internal/ogm/relationships"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

// Deriver maps schema fields to hydration rules. Derivation is a pure
// function of the schema and the deriver's configuration.
type Deriver struct {
	hydrator  *mapping.Hydrator
	number    mapping.NumberOptions
	traverser relationships.Traverser
	maxDepth  int
}

// Option configures a Deriver
type Option func(*Deriver)

// WithHydrator sets the hydrator used for related records. It must share the
// naming translator of the top-level hydrator.
func WithHydrator(h *mapping.Hydrator) Option {
	return func(d *Deriver) {
		if h != nil {
			d.hydrator = h
		}
	}
}

// WithNumberOptions configures number rules
func WithNumberOptions(opts mapping.NumberOptions) Option {
	return func(d *Deriver) {
		d.number = opts
	}
}

// WithTraverser sets the traverser installed on lazy relationship handles
func WithTraverser(t relationships.Traverser) Option {
	return func(d *Deriver) {
		d.traverser = t
	}
}

// WithMaxDepth bounds eager nesting
func WithMaxDepth(n int) Option {
	return func(d *Deriver) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// New creates a deriver
func New(opts ...Option) *Deriver {
	d := &Deriver{
		hydrator: mapping.NewHydrator(),
		maxDepth: query.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Hydrator returns the hydrator related records are read with
func (d *Deriver) Hydrator() *mapping.Hydrator {
	return d.hydrator
}

// Derive returns the rule set for reading nodes of s. Eager relationships
// get list rules hydrating the collected fragments; lazy ones get a handle.
func (d *Deriver) Derive(s *schema.Schema) (mapping.Rules, error) {
	return d.derive(s, 1)
}

// DeriveCreate returns the rule set for a freshly created node: scalar rules
// as for Derive, and every relationship set to an empty list
func (d *Deriver) DeriveCreate(s *schema.Schema) (mapping.Rules, error) {
	var out mapping.Rules
	for _, f := range s.Fields() {
		switch a := f.Annotation.(type) {
		case schema.Relationship:
			out = out.Add(f.Name, mapping.Rule{
				Kind:     "list<" + targetLabel(a) + ">",
				Override: func(*mapping.Entity) any { return []*mapping.Entity{} },
			})
		default:
			rule, err := d.scalar(s, f)
			if err != nil {
				return nil, err
			}
			out = out.Add(f.Name, rule)
		}
	}
	return out, nil
}

func (d *Deriver) derive(s *schema.Schema, level int) (mapping.Rules, error) {
	var out mapping.Rules
	for _, f := range s.Fields() {
		var rule mapping.Rule
		var err error

		switch a := f.Annotation.(type) {
		case schema.Relationship:
			if a.Eager {
				if level > d.maxDepth {
					return nil, fmt.Errorf("%w: %s.%s at depth %d", query.ErrMaxDepthExceeded, s.Label, f.Name, level)
				}
				rule, err = d.eager(s, f.Name, a, level)
			} else {
				rule = d.lazy(s, f.Name, a)
			}
		default:
			rule, err = d.scalar(s, f)
		}
		if err != nil {
			return nil, err
		}
		out = out.Add(f.Name, rule)
	}
	return out, nil
}

func (d *Deriver) scalar(s *schema.Schema, f schema.Field) (mapping.Rule, error) {
	switch a := f.Annotation.(type) {
	case schema.Identity:
		return mapping.AsString(), nil
	case schema.Scalar:
		rule, ok := mapping.ScalarRule(a, d.number)
		if !ok {
			return mapping.Rule{}, &schema.SchemaError{Label: s.Label, Reasons: []string{
				fmt.Sprintf("field %q has unknown kind %d", f.Name, a.Kind),
			}}
		}
		return rule, nil
	default:
		return mapping.Rule{}, &schema.SchemaError{Label: s.Label, Reasons: []string{
			fmt.Sprintf("field %q has unsupported annotation %T", f.Name, f.Annotation),
		}}
	}
}

// eager reads a list of {node, properties} fragments collected by a
// relationship sub-plan
func (d *Deriver) eager(s *schema.Schema, field string, rel schema.Relationship, level int) (mapping.Rule, error) {
	target := rel.ResolveTarget()
	if target == nil {
		return mapping.Rule{}, &schema.SchemaError{Label: s.Label, Reasons: []string{
			fmt.Sprintf("relationship %q target did not resolve", field),
		}}
	}
	targetRules, err := d.derive(target, level+1)
	if err != nil {
		return mapping.Rule{}, err
	}

	list := mapping.AsList(mapping.Rule{Kind: target.Label})
	hydrator := d.hydrator

	return mapping.Rule{
		Kind:     list.Kind,
		Validate: list.Validate,
		Convert: func(value any, path string) (any, error) {
			fragments := value.([]any)
			out := make([]*mapping.Entity, 0, len(fragments))
			for i, raw := range fragments {
				node, props, ok := splitFragment(raw)
				if !ok {
					continue
				}
				entity, err := hydrator.Hydrate(mapping.MapRecord(node), targetRules, fmt.Sprintf("%s[%d]", path, i))
				if err != nil {
					return nil, err
				}
				entity.SetRelationshipProperties(props)
				out = append(out, entity)
			}
			return out, nil
		},
	}, nil
}

// splitFragment returns the node and relationship properties of a collected
// fragment. Fragments that are nil or whose node values are all null stand
// for "no related record" and are reported as not ok.
func splitFragment(raw any) (node, props map[string]any, ok bool) {
	fragment, isMap := raw.(map[string]any)
	if !isMap {
		return nil, nil, false
	}
	node, _ = mapping.PropsOf(fragment[query.FragmentNode])
	if allNull(node) {
		return nil, nil, false
	}
	props, _ = mapping.PropsOf(fragment[query.FragmentProperties])
	return node, props, true
}

func allNull(m map[string]any) bool {
	for _, v := range m {
		if v != nil {
			return false
		}
	}
	return true
}

// NodeRule returns a rule reading a graph node as an entity of s. A path is
// read through its end node, and the relationship reaching that node supplies
// the relationship properties. Every relationship of the entity is lazy.
func (d *Deriver) NodeRule(s *schema.Schema) (mapping.Rule, error) {
	var fields mapping.Rules
	for _, f := range s.Fields() {
		if rel, ok := f.Annotation.(schema.Relationship); ok {
			fields = fields.Add(f.Name, d.lazy(s, f.Name, rel))
			continue
		}
		rule, err := d.scalar(s, f)
		if err != nil {
			return mapping.Rule{}, err
		}
		fields = fields.Add(f.Name, rule)
	}

	node := mapping.AsNode()
	path := mapping.AsPath()
	relationship := mapping.AsRelationship()
	hydrator := d.hydrator

	node.Kind = s.Label
	node.Validate = func(value any, p string) error {
		if path.Validate(value, p) == nil {
			return nil
		}
		return mapping.AsNode().Validate(value, p)
	}
	node.Convert = func(value any, p string) (any, error) {
		var reached any
		if walk, ok := pathOf(value); ok {
			if len(walk.Nodes) == 0 {
				return nil, mapping.AsNode().Validate(nil, p)
			}
			value = walk.Nodes[len(walk.Nodes)-1]
			if n := len(walk.Relationships); n > 0 {
				reached = walk.Relationships[n-1]
			}
		}
		props, _ := mapping.PropsOf(value)
		entity, err := hydrator.Hydrate(mapping.MapRecord(props), fields, p)
		if err != nil {
			return nil, err
		}
		if reached != nil {
			if err := relationship.Validate(reached, p); err != nil {
				return nil, err
			}
			relProps, _ := mapping.PropsOf(reached)
			entity.SetRelationshipProperties(relProps)
		}
		return entity, nil
	}
	return node, nil
}

func pathOf(value any) (dbtype.Path, bool) {
	switch v := value.(type) {
	case dbtype.Path:
		return v, true
	case *dbtype.Path:
		if v != nil {
			return *v, true
		}
	}
	return dbtype.Path{}, false
}

// lazy installs a handle once the owner is hydrated, whatever the record
// held for the field
func (d *Deriver) lazy(s *schema.Schema, field string, rel schema.Relationship) mapping.Rule {
	idField, _ := s.Identity()
	traverser := d.traverser
	return mapping.Rule{
		Kind: "lazy<" + targetLabel(rel) + ">",
		Override: func(owner *mapping.Entity) any {
			var id any
			if idField != "" {
				id, _ = owner.Get(idField)
			}
			return relationships.NewHandle(s, field, rel, id, traverser)
		},
	}
}

func targetLabel(rel schema.Relationship) string {
	if t := rel.ResolveTarget(); t != nil {
		return t.Label
	}
	return "?"
}
