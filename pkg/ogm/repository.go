package ogm

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/query"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
	"github.com/conduit-lang/neogm/internal/ogm/transport"
)

// Repository runs operations on the nodes of one schema
type Repository struct {
	ogm    *OGM
	schema *schema.Schema

	// rules are derived on first use so relationship targets registered
	// after this schema resolve
	once        sync.Once
	readRules   mapping.Rules
	createRules mapping.Rules
	rulesErr    error
}

func (o *OGM) newRepository(s *schema.Schema) *Repository {
	return &Repository{ogm: o, schema: s}
}

// Schema returns the registered schema
func (r *Repository) Schema() *schema.Schema {
	return r.schema
}

// Label returns the node label
func (r *Repository) Label() string {
	return r.schema.Label
}

func (r *Repository) rules() (mapping.Rules, mapping.Rules, error) {
	r.once.Do(func() {
		if err := schema.ValidateTargets(r.schema); err != nil {
			r.rulesErr = err
			return
		}
		r.readRules, r.rulesErr = r.ogm.deriver.Derive(r.schema)
		if r.rulesErr != nil {
			return
		}
		r.createRules, r.rulesErr = r.ogm.deriver.DeriveCreate(r.schema)
	})
	return r.readRules, r.createRules, r.rulesErr
}

// rulesFor returns the rules for a plan. Plans specialised by an inclusion
// shape need their own derivation.
func (r *Repository) rulesFor(plan *query.Plan) (mapping.Rules, error) {
	read, _, err := r.rules()
	if err != nil {
		return nil, err
	}
	if plan.Schema == r.schema {
		return read, nil
	}
	return r.ogm.deriver.Derive(plan.Schema)
}

// Find returns every node matching where. A nil predicate matches all nodes.
// The include shape may switch relationships between eager and lazy for this
// call only.
func (r *Repository) Find(ctx context.Context, where query.Predicate, include ...schema.Include) ([]*mapping.Entity, error) {
	if _, _, err := r.rules(); err != nil {
		return nil, fmt.Errorf("find %s: %w", r.schema.Label, err)
	}
	plan, err := r.ogm.compiler.CompileFind(r.schema, where, mergeIncludes(include))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.schema.Label, err)
	}
	rs, err := r.rulesFor(plan)
	if err != nil {
		return nil, err
	}
	return r.ogm.run(ctx, plan, rs, transport.Read)
}

// FindOne returns the first node matching where, or ErrNotFound
func (r *Repository) FindOne(ctx context.Context, where query.Predicate, include ...schema.Include) (*mapping.Entity, error) {
	entities, err := r.Find(ctx, where, include...)
	if len(entities) > 0 {
		return entities[0], err
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", r.schema.Label, ErrNotFound)
}

// Create writes one node. Input is a map keyed by field name, an *Entity or
// a struct tagged with `ogm`. A missing identity is generated; relationship
// fields of the result are empty lists.
func (r *Repository) Create(ctx context.Context, input any) (*mapping.Entity, error) {
	_, rs, err := r.rules()
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.schema.Label, err)
	}
	values, err := r.values(input)
	if err != nil {
		return nil, err
	}
	plan, err := r.ogm.compiler.CompileCreate(r.schema, values)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.schema.Label, err)
	}

	entities, err := r.ogm.run(ctx, plan, rs, transport.Write)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("create %s: no node returned", r.schema.Label)
	}
	return entities[0], nil
}

// Update sets values on every node matching where and returns the updated
// nodes
func (r *Repository) Update(ctx context.Context, where query.Predicate, input any, include ...schema.Include) ([]*mapping.Entity, error) {
	if _, _, err := r.rules(); err != nil {
		return nil, fmt.Errorf("update %s: %w", r.schema.Label, err)
	}
	values, err := r.values(input)
	if err != nil {
		return nil, err
	}
	plan, err := r.ogm.compiler.CompileUpdate(r.schema, where, values, mergeIncludes(include))
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", r.schema.Label, err)
	}
	rs, err := r.rulesFor(plan)
	if err != nil {
		return nil, err
	}
	return r.ogm.run(ctx, plan, rs, transport.Write)
}

// Delete removes every node matching where together with its relationships.
// A nil predicate deletes every node of the label.
func (r *Repository) Delete(ctx context.Context, where query.Predicate) error {
	plan, err := r.ogm.compiler.CompileDelete(r.schema, where)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.schema.Label, err)
	}
	_, err = r.ogm.run(ctx, plan, nil, transport.Write)
	return err
}

// Query runs a caller-written Cypher statement and reads column of every
// record as a node of this schema. The column may hold a node or a path, in
// which case its end node is read and the last relationship supplies the
// relationship properties. Relationships of the results are lazy.
func (r *Repository) Query(ctx context.Context, statement string, params map[string]any, column string) ([]*mapping.Entity, error) {
	if _, _, err := r.rules(); err != nil {
		return nil, fmt.Errorf("query %s: %w", r.schema.Label, err)
	}
	rule, err := r.ogm.deriver.NodeRule(r.schema)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.schema.Label, err)
	}
	return r.ogm.query(ctx, r.schema.Label, statement, params, column, rule)
}

// values normalises operation input to a field map. Relationship fields are
// dropped; they are never written through a node's properties.
func (r *Repository) values(input any) (map[string]any, error) {
	var raw map[string]any
	switch v := input.(type) {
	case nil:
		raw = map[string]any{}
	case map[string]any:
		raw = v
	case *mapping.Entity:
		raw = make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			raw[k], _ = v.Get(k)
		}
	default:
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName: "ogm",
			Result:  &raw,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create decoder: %w", err)
		}
		if err := dec.Decode(input); err != nil {
			return nil, fmt.Errorf("%s: failed to decode input: %w", r.schema.Label, err)
		}
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if f, ok := r.schema.Field(k); ok && f.IsRelationship() {
			continue
		}
		out[k] = v
	}
	return out, nil
}

func mergeIncludes(incs []schema.Include) schema.Include {
	switch len(incs) {
	case 0:
		return nil
	case 1:
		return incs[0]
	}
	merged := schema.Include{}
	for _, inc := range incs {
		for k, v := range inc {
			merged[k] = v
		}
	}
	return merged
}

// Statement is a compiled Cypher statement with its parameters
type Statement = query.Statement

// Explain compiles an operation without executing it. op is one of find,
// create, update or delete; values are ignored by find and delete.
func (r *Repository) Explain(op string, where query.Predicate, values map[string]any, include schema.Include) (Statement, error) {
	if _, _, err := r.rules(); err != nil {
		return Statement{}, fmt.Errorf("%s %s: %w", op, r.schema.Label, err)
	}
	var plan *query.Plan
	var err error
	switch op {
	case "find":
		plan, err = r.ogm.compiler.CompileFind(r.schema, where, include)
	case "create":
		plan, err = r.ogm.compiler.CompileCreate(r.schema, values)
	case "update":
		plan, err = r.ogm.compiler.CompileUpdate(r.schema, where, values, include)
	case "delete":
		plan, err = r.ogm.compiler.CompileDelete(r.schema, where)
	default:
		return Statement{}, fmt.Errorf("unknown operation %q (want find, create, update or delete)", op)
	}
	if err != nil {
		return Statement{}, fmt.Errorf("%s %s: %w", op, r.schema.Label, err)
	}
	return plan.Statement(), nil
}
