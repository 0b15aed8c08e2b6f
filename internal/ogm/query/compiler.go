package query

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/google/uuid"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

// DefaultMaxDepth bounds eager relationship nesting
const DefaultMaxDepth = 10

// Compiler turns schema operations into plans. It holds configuration only
// and is safe for concurrent use.
type Compiler struct {
	naming   mapping.Translator
	maxDepth int
	newID    func() string
}

// Option configures a Compiler
type Option func(*Compiler)

// WithNaming sets the field name to property key translator. It must be the
// translator the hydrator uses.
func WithNaming(t mapping.Translator) Option {
	return func(c *Compiler) {
		if t != nil {
			c.naming = t
		}
	}
}

// WithMaxDepth sets the eager nesting limit
func WithMaxDepth(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithIDGenerator sets the function generating missing identity values
func WithIDGenerator(fn func() string) Option {
	return func(c *Compiler) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewCompiler creates a compiler
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		naming:   mapping.Identity,
		maxDepth: DefaultMaxDepth,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileFind matches nodes of s by predicate and collects every eager
// relationship of the effective schema
func (c *Compiler) CompileFind(s *schema.Schema, pred Predicate, inc schema.Include) (*Plan, error) {
	eff, err := schema.ApplyInclude(s, inc)
	if err != nil {
		return nil, err
	}
	if err := checkPredicate(eff, pred); err != nil {
		return nil, err
	}
	children, err := c.subPlans(eff, 1)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Op:         OpFind,
		Schema:     eff,
		Predicate:  pred,
		Projection: c.projection(eff),
		Children:   children,
		naming:     c.naming,
	}, nil
}

// CompileCreate creates one node from values. A missing or empty identity
// is generated. Every other required property must be supplied, since the
// created node is read back under the same rules. Relationship fields are
// returned as empty lists.
func (c *Compiler) CompileCreate(s *schema.Schema, values map[string]any) (*Plan, error) {
	values, err := checkValues(s, values, true)
	if err != nil {
		return nil, err
	}

	idField, ok := s.Identity()
	if !ok {
		return nil, &schema.SchemaError{Label: s.Label, Reasons: []string{"ID not found"}}
	}

	var sets []Assignment
	for _, f := range s.Properties() {
		v, present := values[f.Name]
		if f.Name == idField && (!present || v == nil || v == "") {
			v, present = c.newID(), true
		}
		if !present {
			if _, err := checkValue(s.Label, f, nil, false); err != nil {
				return nil, err
			}
			continue
		}
		sets = append(sets, Assignment{Field: f.Name, Key: c.naming(f.Name), Value: v})
	}

	var empty []Column
	for _, f := range s.Relationships() {
		empty = append(empty, Column{Field: f.Name, Key: c.naming(f.Name)})
	}

	return &Plan{
		Op:          OpCreate,
		Schema:      s,
		Assignments: sets,
		Projection:  c.projection(s),
		Empty:       empty,
		naming:      c.naming,
	}, nil
}

// CompileUpdate sets values on every node matched by pred and returns them
// like CompileFind
func (c *Compiler) CompileUpdate(s *schema.Schema, pred Predicate, values map[string]any, inc schema.Include) (*Plan, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", s.Label, ErrEmptyValues)
	}
	values, err := checkValues(s, values, false)
	if err != nil {
		return nil, err
	}

	plan, err := c.CompileFind(s, pred, inc)
	if err != nil {
		return nil, err
	}

	for _, f := range s.Properties() {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		plan.Assignments = append(plan.Assignments, Assignment{Field: f.Name, Key: c.naming(f.Name), Value: v})
	}
	plan.Op = OpUpdate
	return plan, nil
}

// CompileDelete removes every node matched by pred together with its
// relationships. Nothing is returned.
func (c *Compiler) CompileDelete(s *schema.Schema, pred Predicate) (*Plan, error) {
	if err := checkPredicate(s, pred); err != nil {
		return nil, err
	}
	return &Plan{
		Op:        OpDelete,
		Schema:    s,
		Predicate: pred,
		naming:    c.naming,
	}, nil
}

// CompileTraverse walks the relationship field of the owner node identified
// by ownerID and returns the related nodes with the edge properties under
// RelationshipKey. pred and inc apply to the target schema.
func (c *Compiler) CompileTraverse(owner *schema.Schema, ownerID any, field string, pred Predicate, inc schema.Include) (*Plan, error) {
	f, ok := owner.Field(field)
	if !ok {
		return nil, &schema.UnknownFieldError{Schema: owner.Label, Field: field, Context: "traversal"}
	}
	rel, ok := f.Relationship()
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotRelationship, owner.Label, field)
	}
	idField, ok := owner.Identity()
	if !ok {
		return nil, &schema.SchemaError{Label: owner.Label, Reasons: []string{"ID not found"}}
	}
	target := rel.ResolveTarget()
	if target == nil {
		return nil, &schema.SchemaError{Label: owner.Label, Reasons: []string{
			fmt.Sprintf("relationship %q target did not resolve", field),
		}}
	}

	plan, err := c.CompileFind(target, pred, inc)
	if err != nil {
		return nil, err
	}
	plan.Op = OpTraverse
	plan.Anchor = &Anchor{
		OwnerLabel:  owner.Label,
		IdentityKey: c.naming(idField),
		ID:          ownerID,
		RelLabel:    rel.Label,
		Direction:   rel.Direction,
	}
	return plan, nil
}

func (c *Compiler) projection(s *schema.Schema) []Column {
	props := s.Properties()
	cols := make([]Column, len(props))
	for i, f := range props {
		cols[i] = Column{Field: f.Name, Key: c.naming(f.Name)}
	}
	return cols
}

// subPlans builds one sub-plan per eager relationship of s, recursing into
// eager relationships of the targets
func (c *Compiler) subPlans(s *schema.Schema, level int) ([]*SubPlan, error) {
	var out []*SubPlan
	for _, f := range s.Relationships() {
		rel, _ := f.Relationship()
		if !rel.Eager {
			continue
		}
		if level > c.maxDepth {
			return nil, fmt.Errorf("%w: %s.%s at depth %d", ErrMaxDepthExceeded, s.Label, f.Name, level)
		}
		target := rel.ResolveTarget()
		if target == nil {
			return nil, &schema.SchemaError{Label: s.Label, Reasons: []string{
				fmt.Sprintf("relationship %q target did not resolve", f.Name),
			}}
		}
		children, err := c.subPlans(target, level+1)
		if err != nil {
			return nil, err
		}
		out = append(out, &SubPlan{
			Field:      f.Name,
			Key:        c.naming(f.Name),
			RelLabel:   rel.Label,
			Direction:  rel.Direction,
			Target:     target,
			Projection: c.projection(target),
			Children:   children,
		})
	}
	return out, nil
}

func checkPredicate(s *schema.Schema, pred Predicate) error {
	if pred == nil {
		return nil
	}
	return pred.check(s)
}

// checkValues validates outgoing values and returns them in the form sent
// to the database. create admits a nil identity, which CompileCreate
// replaces with a generated one.
func checkValues(s *schema.Schema, values map[string]any, create bool) (map[string]any, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(values))
	for _, name := range names {
		f, ok := s.Field(name)
		if !ok {
			return nil, &schema.UnknownFieldError{Schema: s.Label, Field: name, Context: "values"}
		}
		if f.IsRelationship() {
			return nil, fmt.Errorf("%w: %s.%s", ErrRelationshipField, s.Label, name)
		}
		v, err := checkValue(s.Label, f, values[name], create)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// checkValue validates an outgoing value with the rule that would read it
// back, so a value the node could not be hydrated with fails before any I/O
func checkValue(label string, f schema.Field, v any, create bool) (any, error) {
	var rule mapping.Rule
	switch a := f.Annotation.(type) {
	case schema.Identity:
		if v == nil && create {
			return nil, nil
		}
		rule = mapping.AsString()
	case schema.Scalar:
		var ok bool
		if rule, ok = mapping.ScalarRule(a, mapping.NumberOptions{}); !ok {
			return nil, &schema.SchemaError{Label: label, Reasons: []string{
				fmt.Sprintf("field %q has unknown kind %d", f.Name, a.Kind),
			}}
		}
		// outgoing values keep their native form
		rule.Convert = nil
	default:
		return v, nil
	}

	path := label + "#" + f.Name
	if _, err := mapping.ValueAs(v, path, rule); err != nil {
		var mismatch *mapping.TypeMismatchError
		if errors.As(err, &mismatch) {
			mismatch.Field = f.Name
		}
		return nil, err
	}
	n, ok := narrow(v)
	if !ok {
		return nil, &mapping.TypeMismatchError{
			Field:    f.Name,
			Path:     path,
			Expected: "bigint",
			Actual:   "bigint",
			Hint:     "big integer does not fit in int64",
		}
	}
	return n, nil
}

// narrow converts big integers, which the driver cannot send, to int64.
// It reports false when one does not fit.
func narrow(v any) (any, bool) {
	switch b := v.(type) {
	case *big.Int:
		if b == nil {
			return nil, true
		}
		if !b.IsInt64() {
			return v, false
		}
		return b.Int64(), true
	case []any:
		out := make([]any, len(b))
		for i, e := range b {
			n, ok := narrow(e)
			if !ok {
				return v, false
			}
			out[i] = n
		}
		return out, true
	}
	return v, true
}
