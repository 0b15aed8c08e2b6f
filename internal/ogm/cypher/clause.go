package cypher

import "strings"

const indent = "    "

// Query is an ordered list of clauses. Subqueries created with Sub share the
// parent's environment.
type Query struct {
	env   *Env
	lines []string
}

// New creates a query with a fresh environment
func New() *Query {
	return &Query{env: NewEnv()}
}

// Env returns the environment used for names and parameters
func (q *Query) Env() *Env {
	return q.env
}

// Sub creates an empty query sharing this query's environment
func (q *Query) Sub() *Query {
	return &Query{env: q.env}
}

func (q *Query) add(line string) *Query {
	q.lines = append(q.lines, line)
	return q
}

// Match adds MATCH pattern
func (q *Query) Match(pattern string) *Query {
	return q.add("MATCH " + pattern)
}

// Create adds CREATE pattern
func (q *Query) Create(pattern string) *Query {
	return q.add("CREATE " + pattern)
}

// Where adds WHERE pred; an empty predicate adds nothing
func (q *Query) Where(pred string) *Query {
	if pred == "" {
		return q
	}
	return q.add("WHERE " + pred)
}

// Set adds SET target = expr, ... for every pair
func (q *Query) Set(variable string, pairs []Pair) *Query {
	if len(pairs) == 0 {
		return q
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = Prop(variable, p.Key) + " = " + p.Expr
	}
	return q.add("SET " + strings.Join(parts, ", "))
}

// With adds WITH vars
func (q *Query) With(vars ...string) *Query {
	return q.add("WITH " + strings.Join(vars, ", "))
}

// Call adds CALL { sub }
func (q *Query) Call(sub *Query) *Query {
	q.add("CALL {")
	for _, line := range sub.lines {
		q.add(indent + line)
	}
	return q.add("}")
}

// DetachDelete adds DETACH DELETE variable
func (q *Query) DetachDelete(variable string) *Query {
	return q.add("DETACH DELETE " + variable)
}

// Return adds RETURN expr AS key, ...
func (q *Query) Return(items []Pair) *Query {
	parts := make([]string, len(items))
	for i, it := range items {
		if it.Key == "" || it.Key == it.Expr {
			parts[i] = it.Expr
			continue
		}
		parts[i] = it.Expr + " AS " + Escape(it.Key)
	}
	return q.add("RETURN " + strings.Join(parts, ", "))
}

// Build renders the statement text and its parameters
func (q *Query) Build() (string, map[string]any) {
	return strings.Join(q.lines, "\n"), q.env.Params()
}
