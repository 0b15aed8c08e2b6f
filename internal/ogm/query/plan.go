package query

import (
	"github.com/conduit-lang/neogm/internal/ogm/cypher"
	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

// Keys used in collected relationship fragments and traversal rows
const (
	FragmentNode       = "node"
	FragmentProperties = "properties"
	RelationshipKey    = "__relationship"
)

// Op is the kind of operation a plan performs
type Op int

const (
	OpFind Op = iota
	OpCreate
	OpUpdate
	OpDelete
	OpTraverse
)

// String returns the operation name
func (o Op) String() string {
	switch o {
	case OpFind:
		return "find"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpTraverse:
		return "traverse"
	default:
		return "unknown"
	}
}

// Column is a projected field and the record key it is returned under
type Column struct {
	Field string
	Key   string
}

// Assignment sets one property
type Assignment struct {
	Field string
	Key   string
	Value any
}

// SubPlan traverses one eager relationship and collects the related nodes
// into a list column of the parent
type SubPlan struct {
	Field     string
	Key       string
	RelLabel  string
	Direction schema.Direction
	Target    *schema.Schema

	Projection []Column
	Children   []*SubPlan
}

// Depth returns 1 plus the depth of the deepest child
func (sp *SubPlan) Depth() int {
	return 1 + depth(sp.Children)
}

// Anchor fixes the start of a traversal: the owner node matched by identity
// and the edge walked from it
type Anchor struct {
	OwnerLabel  string
	IdentityKey string
	ID          any
	RelLabel    string
	Direction   schema.Direction
}

// Plan is a compiled operation
type Plan struct {
	Op Op

	// Schema is the effective schema of the nodes the plan returns, with the
	// inclusion shape applied. It is a private clone when a shape was given.
	Schema *schema.Schema

	Predicate   Predicate
	Assignments []Assignment
	Projection  []Column

	// Empty lists the relationship columns projected as empty lists (create)
	Empty []Column

	Children []*SubPlan
	Anchor   *Anchor

	naming mapping.Translator
}

// Label returns the label of the nodes the plan returns
func (p *Plan) Label() string {
	return p.Schema.Label
}

// Depth returns the nesting depth of the eager sub-plans
func (p *Plan) Depth() int {
	return depth(p.Children)
}

func depth(children []*SubPlan) int {
	max := 0
	for _, c := range children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return max
}

// Statement is a rendered query
type Statement struct {
	Cypher string
	Params map[string]any
}

// Statement renders the plan to Cypher. Every sub-plan is part of the
// rendered text; one statement covers the whole operation.
func (p *Plan) Statement() Statement {
	q := cypher.New()
	env := q.Env()
	naming := p.naming
	if naming == nil {
		naming = mapping.Identity
	}

	var node string
	var rel string

	switch p.Op {
	case OpCreate:
		node = env.Var("this")
		props := make([]cypher.Pair, len(p.Assignments))
		for i, a := range p.Assignments {
			props[i] = cypher.Pair{Key: a.Key, Expr: env.Param(a.Value)}
		}
		q.Create(cypher.Node(node, p.Schema.Label, props))

	case OpTraverse:
		owner := env.Var("this")
		rel = env.Var("this")
		node = env.Var("this")
		ownerPattern := cypher.Node(owner, p.Anchor.OwnerLabel, []cypher.Pair{
			{Key: p.Anchor.IdentityKey, Expr: env.Param(p.Anchor.ID)},
		})
		q.Match(cypher.Path(ownerPattern, rel, p.Anchor.RelLabel, direction(p.Anchor.Direction),
			cypher.Node(node, p.Schema.Label, nil)))
		q.Where(p.where(node, env, naming))

	default:
		node = env.Var("this")
		q.Match(cypher.Node(node, p.Schema.Label, nil))
		q.Where(p.where(node, env, naming))
	}

	switch p.Op {
	case OpDelete:
		q.DetachDelete(node)
		text, params := q.Build()
		return Statement{Cypher: text, Params: params}
	case OpUpdate:
		sets := make([]cypher.Pair, len(p.Assignments))
		for i, a := range p.Assignments {
			sets[i] = cypher.Pair{Key: a.Key, Expr: env.Param(a.Value)}
		}
		q.Set(node, sets)
	}

	items := projection(node, p.Projection)
	for _, child := range p.Children {
		agg := renderSubPlan(q, node, child)
		items = append(items, cypher.Pair{Key: child.Key, Expr: agg})
	}
	for _, c := range p.Empty {
		items = append(items, cypher.Pair{Key: c.Key, Expr: cypher.EmptyList})
	}
	if p.Op == OpTraverse {
		items = append(items, cypher.Pair{Key: RelationshipKey, Expr: cypher.Properties(rel)})
	}
	q.Return(items)

	text, params := q.Build()
	return Statement{Cypher: text, Params: params}
}

func (p *Plan) where(variable string, env *cypher.Env, naming mapping.Translator) string {
	if p.Predicate == nil {
		return ""
	}
	return p.Predicate.render(&renderer{
		schema:   p.Schema,
		variable: variable,
		env:      env,
		naming:   naming,
	})
}

// renderSubPlan adds a CALL block collecting the related nodes of parent and
// returns the variable holding the collected list
func renderSubPlan(q *cypher.Query, parent string, sp *SubPlan) string {
	env := q.Env()
	sub := q.Sub()
	rel := env.Var("this")
	node := env.Var("this")

	sub.With(parent).
		Match(cypher.Path(cypher.Node(parent, "", nil), rel, sp.RelLabel, direction(sp.Direction),
			cypher.Node(node, sp.Target.Label, nil)))

	fields := projection(node, sp.Projection)
	for _, child := range sp.Children {
		agg := renderSubPlan(sub, node, child)
		fields = append(fields, cypher.Pair{Key: child.Key, Expr: agg})
	}

	agg := env.Var("var")
	fragment := cypher.Map([]cypher.Pair{
		{Key: FragmentNode, Expr: cypher.Map(fields)},
		{Key: FragmentProperties, Expr: cypher.Properties(rel)},
	})
	sub.Return([]cypher.Pair{{Key: agg, Expr: cypher.Collect(fragment)}})
	q.Call(sub)
	return agg
}

func projection(variable string, cols []Column) []cypher.Pair {
	out := make([]cypher.Pair, len(cols))
	for i, c := range cols {
		out[i] = cypher.Pair{Key: c.Key, Expr: cypher.Prop(variable, c.Key)}
	}
	return out
}

func direction(d schema.Direction) cypher.Direction {
	if d == schema.Inbound {
		return cypher.Incoming
	}
	return cypher.Outgoing
}
