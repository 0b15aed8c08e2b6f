// Package cypher assembles Cypher statements from pattern, predicate,
// projection and mutation fragments. Variables and parameters are numbered
// by a shared environment so nested subqueries never collide.
package cypher

import (
	"fmt"
	"sort"
	"strings"
)

// Env hands out variable and parameter names for one statement
type Env struct {
	vars   int
	params map[string]any
	order  []string
}

// NewEnv creates an empty environment
func NewEnv() *Env {
	return &Env{params: make(map[string]any)}
}

// Var returns a fresh variable name such as this0 or var3. The counter is
// shared across prefixes.
func (e *Env) Var(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, e.vars)
	e.vars++
	return name
}

// Param binds a value and returns its placeholder, e.g. $param0
func (e *Env) Param(value any) string {
	name := fmt.Sprintf("param%d", len(e.order))
	e.params[name] = value
	e.order = append(e.order, name)
	return "$" + name
}

// Params returns a copy of the bound parameters
func (e *Env) Params() map[string]any {
	out := make(map[string]any, len(e.params))
	for k, v := range e.params {
		out[k] = v
	}
	return out
}

// Direction of a relationship pattern, seen from the left node
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Escape quotes a name with backticks unless it is a plain identifier
func Escape(name string) string {
	if isIdentifier(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Node renders a node pattern. An empty label or nil props are omitted.
func Node(variable, label string, props []Pair) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(variable)
	if label != "" {
		b.WriteByte(':')
		b.WriteString(Escape(label))
	}
	if len(props) > 0 {
		b.WriteByte(' ')
		b.WriteString(Map(props))
	}
	b.WriteByte(')')
	return b.String()
}

// Path renders left-[rel:label]->right or left<-[rel:label]-right. left and
// right are complete node patterns.
func Path(left, rel, label string, dir Direction, right string) string {
	edge := "[" + rel + ":" + Escape(label) + "]"
	if dir == Incoming {
		return left + "<-" + edge + "-" + right
	}
	return left + "-" + edge + "->" + right
}

// Prop renders variable.key
func Prop(variable, key string) string {
	return variable + "." + Escape(key)
}

// Pair is a key and an expression, used in map literals and projections
type Pair struct {
	Key  string
	Expr string
}

// Map renders a map literal {k: expr, ...}
func Map(pairs []Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = Escape(p.Key) + ": " + p.Expr
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Collect renders collect(expr)
func Collect(expr string) string {
	return "collect(" + expr + ")"
}

// Properties renders properties(variable)
func Properties(variable string) string {
	return "properties(" + variable + ")"
}

// EmptyList is the empty list literal
const EmptyList = "[]"

// Compare renders lhs op rhs
func Compare(lhs, op, rhs string) string {
	return lhs + " " + op + " " + rhs
}

// IsNull renders lhs IS NULL
func IsNull(lhs string) string {
	return lhs + " IS NULL"
}

// IsNotNull renders lhs IS NOT NULL
func IsNotNull(lhs string) string {
	return lhs + " IS NOT NULL"
}

// And joins predicates; empty predicates are skipped
func And(preds ...string) string {
	return strings.Join(nonEmpty(preds), " AND ")
}

// Or joins predicates; empty predicates are skipped. A disjunction of more
// than one predicate is parenthesized so it can be nested in And.
func Or(preds ...string) string {
	parts := nonEmpty(preds)
	if len(parts) < 2 {
		return strings.Join(parts, "")
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// Not renders NOT (pred)
func Not(pred string) string {
	if pred == "" {
		return ""
	}
	return "NOT (" + pred + ")"
}

func nonEmpty(preds []string) []string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// SortedKeys returns the keys of a parameter map in order, for stable output
func SortedKeys(params map[string]any) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
