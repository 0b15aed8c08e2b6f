// Package query compiles schema operations into query plans and renders
// plans to Cypher
package query

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/conduit-lang/neogm/internal/ogm/cypher"
	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpContains
	OpStartsWith
	OpEndsWith
	OpIsNull
	OpIsNotNull
)

// String returns the Cypher form of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "<>"
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpContains:
		return "CONTAINS"
	case OpStartsWith:
		return "STARTS WITH"
	case OpEndsWith:
		return "ENDS WITH"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "UNKNOWN"
	}
}

// ParseOperator converts an operator name or symbol to an Operator
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "=", "eq":
		return OpEqual, nil
	case "<>", "!=", "ne":
		return OpNotEqual, nil
	case ">", "gt":
		return OpGreaterThan, nil
	case ">=", "gte":
		return OpGreaterThanOrEqual, nil
	case "<", "lt":
		return OpLessThan, nil
	case "<=", "lte":
		return OpLessThanOrEqual, nil
	case "in":
		return OpIn, nil
	case "contains":
		return OpContains, nil
	case "startsWith":
		return OpStartsWith, nil
	case "endsWith":
		return OpEndsWith, nil
	case "isNull":
		return OpIsNull, nil
	case "isNotNull":
		return OpIsNotNull, nil
	default:
		return 0, fmt.Errorf("%w: unknown operator %q", ErrInvalidComparison, s)
	}
}

// Comparison is a field condition other than plain equality
type Comparison struct {
	Op    Operator
	Value any
}

func Eq(v any) Comparison         { return Comparison{Op: OpEqual, Value: v} }
func Ne(v any) Comparison         { return Comparison{Op: OpNotEqual, Value: v} }
func Gt(v any) Comparison         { return Comparison{Op: OpGreaterThan, Value: v} }
func Gte(v any) Comparison        { return Comparison{Op: OpGreaterThanOrEqual, Value: v} }
func Lt(v any) Comparison         { return Comparison{Op: OpLessThan, Value: v} }
func Lte(v any) Comparison        { return Comparison{Op: OpLessThanOrEqual, Value: v} }
func In(values ...any) Comparison { return Comparison{Op: OpIn, Value: values} }
func Contains(s string) Comparison {
	return Comparison{Op: OpContains, Value: s}
}
func StartsWith(s string) Comparison {
	return Comparison{Op: OpStartsWith, Value: s}
}
func EndsWith(s string) Comparison {
	return Comparison{Op: OpEndsWith, Value: s}
}
func IsNull() Comparison    { return Comparison{Op: OpIsNull} }
func IsNotNull() Comparison { return Comparison{Op: OpIsNotNull} }

// Predicate filters the nodes an operation applies to. Implementations are
// Where, And, Or and Not.
type Predicate interface {
	check(s *schema.Schema) error
	render(r *renderer) string
}

// Where maps field names to a value (equality) or a Comparison. A nil value
// matches absent properties. Conditions are ANDed and emitted in schema
// field order.
type Where map[string]any

// And matches when every predicate matches
type And []Predicate

// Or matches when any predicate matches
type Or []Predicate

// Not negates a predicate
type Not struct {
	Predicate Predicate
}

type renderer struct {
	schema   *schema.Schema
	variable string
	env      *cypher.Env
	naming   mapping.Translator
}

func (w Where) check(s *schema.Schema) error {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field, ok := s.Field(name)
		if !ok {
			return &schema.UnknownFieldError{Schema: s.Label, Field: name, Context: "predicate"}
		}
		if field.IsRelationship() {
			return fmt.Errorf("%w: %s.%s", ErrRelationshipField, s.Label, name)
		}
		if err := checkCondition(w[name]); err != nil {
			return fmt.Errorf("%s.%s: %w", s.Label, name, err)
		}
	}
	return nil
}

func checkCondition(v any) error {
	var cmp Comparison
	switch c := v.(type) {
	case Comparison:
		cmp = c
	case *Comparison:
		if c == nil {
			return nil
		}
		cmp = *c
	default:
		cmp = Eq(v)
	}
	if _, ok := narrow(cmp.Value); !ok {
		return fmt.Errorf("%w: big integer does not fit in int64", ErrInvalidComparison)
	}

	switch cmp.Op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return nil
	case OpIn:
		if cmp.Value == nil {
			return nil
		}
		if k := reflect.TypeOf(cmp.Value).Kind(); k != reflect.Slice && k != reflect.Array {
			return fmt.Errorf("%w: IN requires a list, got %T", ErrInvalidComparison, cmp.Value)
		}
		return nil
	case OpContains, OpStartsWith, OpEndsWith:
		if _, ok := cmp.Value.(string); !ok {
			return fmt.Errorf("%w: %s requires a string, got %T", ErrInvalidComparison, cmp.Op, cmp.Value)
		}
		return nil
	case OpIsNull, OpIsNotNull:
		return nil
	default:
		return fmt.Errorf("%w: unsupported operator %d", ErrInvalidComparison, cmp.Op)
	}
}

func (w Where) render(r *renderer) string {
	parts := make([]string, 0, len(w))
	for _, name := range r.schema.Names() {
		v, ok := w[name]
		if !ok {
			continue
		}
		parts = append(parts, r.condition(name, v))
	}
	return cypher.And(parts...)
}

func (r *renderer) condition(field string, v any) string {
	lhs := cypher.Prop(r.variable, r.naming(field))

	var cmp Comparison
	switch c := v.(type) {
	case Comparison:
		cmp = c
	case *Comparison:
		if c == nil {
			return cypher.IsNull(lhs)
		}
		cmp = *c
	case nil:
		return cypher.IsNull(lhs)
	default:
		cmp = Eq(v)
	}

	switch cmp.Op {
	case OpIsNull:
		return cypher.IsNull(lhs)
	case OpIsNotNull:
		return cypher.IsNotNull(lhs)
	case OpEqual:
		if cmp.Value == nil {
			return cypher.IsNull(lhs)
		}
	case OpNotEqual:
		if cmp.Value == nil {
			return cypher.IsNotNull(lhs)
		}
	case OpIn:
		if cmp.Value == nil || reflect.ValueOf(cmp.Value).Len() == 0 {
			return "false"
		}
	}
	value, _ := narrow(cmp.Value)
	return cypher.Compare(lhs, cmp.Op.String(), r.env.Param(value))
}

func (a And) check(s *schema.Schema) error {
	for _, p := range a {
		if p == nil {
			continue
		}
		if err := p.check(s); err != nil {
			return err
		}
	}
	return nil
}

func (a And) render(r *renderer) string {
	parts := make([]string, 0, len(a))
	for _, p := range a {
		if p != nil {
			parts = append(parts, p.render(r))
		}
	}
	return cypher.And(parts...)
}

func (o Or) check(s *schema.Schema) error {
	return And(o).check(s)
}

// render joins the branches with OR. A disjunction without branches matches
// nothing; an unconstrained branch makes the whole disjunction match.
func (o Or) render(r *renderer) string {
	parts := make([]string, 0, len(o))
	for _, p := range o {
		if p == nil {
			continue
		}
		part := p.render(r)
		if part == "" {
			return ""
		}
		if conjunction(p) {
			part = "(" + part + ")"
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "false"
	}
	return cypher.Or(parts...)
}

func conjunction(p Predicate) bool {
	switch v := p.(type) {
	case And:
		return len(v) > 1
	case Where:
		return len(v) > 1
	}
	return false
}

func (n Not) check(s *schema.Schema) error {
	if n.Predicate == nil {
		return nil
	}
	return n.Predicate.check(s)
}

func (n Not) render(r *renderer) string {
	if n.Predicate == nil {
		return ""
	}
	return cypher.Not(n.Predicate.render(r))
}
