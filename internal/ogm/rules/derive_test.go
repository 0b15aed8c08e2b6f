package rules

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/query"
	"github.com/conduit-lang/neogm/internal/ogm/relationships"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

var (
	personSchema *schema.Schema
	movieSchema  *schema.Schema
)

func init() {
	personSchema = schema.New("Person",
		schema.F("id", schema.ID()),
		schema.F("name", schema.String()),
		schema.F("born", schema.Optional(schema.Number())),
		schema.F("movies", schema.Rel(func() *schema.Schema { return movieSchema }, "ACTED_IN", schema.Outbound)),
	)
	movieSchema = schema.New("Movie",
		schema.F("id", schema.ID()),
		schema.F("title", schema.String()),
		schema.F("actors", schema.Rel(func() *schema.Schema { return personSchema }, "ACTED_IN", schema.Inbound)),
	)
}

type nopTraverser struct{}

func (nopTraverser) Traverse(context.Context, *relationships.Handle, query.Predicate, schema.Include) ([]*mapping.Entity, error) {
	return nil, nil
}

func TestDeriveIsDeterministic(t *testing.T) {
	d := New()
	first, err := d.Derive(movieSchema)
	require.NoError(t, err)
	second, err := d.Derive(movieSchema)
	require.NoError(t, err)

	assert.Equal(t, first.Describe(), second.Describe())
	assert.Equal(t, [][2]string{
		{"id", "string"},
		{"title", "string"},
		{"actors", "lazy<Person>"},
	}, first.Describe())

	eager, err := schema.ApplyInclude(movieSchema, schema.Include{"actors": true})
	require.NoError(t, err)
	rules, err := d.Derive(eager)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"actors", "list<Person>"}, rules.Describe()[2])
}

func TestLazyRelationship(t *testing.T) {
	d := New(WithTraverser(nopTraverser{}))
	rules, err := d.Derive(movieSchema)
	require.NoError(t, err)

	rec := mapping.MapRecord{"id": "m1", "title": "The Matrix", "actors": []any{"ignored"}}
	e, err := d.Hydrator().Hydrate(rec, rules, "Movie")
	require.NoError(t, err)

	v, ok := e.Get("actors")
	require.True(t, ok)
	h, ok := v.(*relationships.Handle)
	require.True(t, ok, "lazy relationship should hold a handle, got %T", v)
	assert.Equal(t, "ACTED_IN", h.Label())
	assert.Equal(t, schema.Inbound, h.Direction())
	assert.Equal(t, "Person", h.Target().Label)
	assert.Equal(t, "m1", h.OwnerID())
}

func fragment(props map[string]any, node map[string]any) map[string]any {
	return map[string]any{query.FragmentNode: node, query.FragmentProperties: props}
}

func TestEagerRelationship(t *testing.T) {
	d := New(WithTraverser(nopTraverser{}))
	eager, err := schema.ApplyInclude(movieSchema, schema.Include{"actors": true})
	require.NoError(t, err)
	rules, err := d.Derive(eager)
	require.NoError(t, err)

	rec := mapping.MapRecord{
		"id":    "m1",
		"title": "The Matrix",
		"actors": []any{
			fragment(map[string]any{"roles": []any{"Neo"}}, map[string]any{"id": "p1", "name": "Keanu", "born": int64(1964)}),
			fragment(nil, map[string]any{"id": nil, "name": nil, "born": nil}),
			nil,
			fragment(map[string]any{"roles": []any{"Trinity"}}, map[string]any{"id": "p2", "name": "Carrie-Anne", "born": nil}),
		},
	}

	e, err := d.Hydrator().Hydrate(rec, rules, "Movie")
	require.NoError(t, err)

	actors := e.Related("actors")
	require.Len(t, actors, 2)
	assert.Equal(t, "Keanu", actors[0].String("name"))
	assert.Equal(t, map[string]any{"roles": []any{"Neo"}}, actors[0].RelationshipProperties())
	assert.Equal(t, "Carrie-Anne", actors[1].String("name"))
	born, _ := actors[1].Get("born")
	assert.Nil(t, born)

	// the relationship properties are not fields of the related entity
	assert.False(t, actors[0].Has("roles"))

	// the related entity's own lazy relationships get handles
	movies, _ := actors[0].Get("movies")
	assert.IsType(t, &relationships.Handle{}, movies)
}

func TestEagerEmptyList(t *testing.T) {
	d := New()
	eager, err := schema.ApplyInclude(movieSchema, schema.Include{"actors": true})
	require.NoError(t, err)
	rules, err := d.Derive(eager)
	require.NoError(t, err)

	e, err := d.Hydrator().Hydrate(mapping.MapRecord{"id": "m1", "title": "x", "actors": []any{}}, rules, "Movie")
	require.NoError(t, err)
	actors := e.Related("actors")
	assert.NotNil(t, actors)
	assert.Empty(t, actors)
}

func TestEagerNestedMismatch(t *testing.T) {
	d := New()
	eager, err := schema.ApplyInclude(movieSchema, schema.Include{"actors": true})
	require.NoError(t, err)
	rules, err := d.Derive(eager)
	require.NoError(t, err)

	rec := mapping.MapRecord{
		"id":    "m1",
		"title": "The Matrix",
		"actors": []any{
			fragment(nil, map[string]any{"id": "p1", "name": "Keanu", "born": map[string]any{"low": 1964, "high": 0}}),
		},
	}
	_, err = d.Hydrator().Hydrate(rec, rules, "Movie")

	var mismatch *mapping.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "born", mismatch.Field)
	assert.Equal(t, "Movie#actors[0]#born", mismatch.Path)
}

func TestNumberOptions(t *testing.T) {
	s := schema.New("Counter", schema.F("id", schema.ID()), schema.F("n", schema.Number()))

	rules, err := New().Derive(s)
	require.NoError(t, err)
	rule, ok := rules.Lookup("n")
	require.True(t, ok)
	assert.False(t, rule.Optional)

	bigRules, err := New(WithNumberOptions(mapping.NumberOptions{AcceptBigInt: true})).Derive(s)
	require.NoError(t, err)
	assert.Equal(t, rules.Describe(), bigRules.Describe())
}

func TestDeriveCreate(t *testing.T) {
	d := New()
	rules, err := d.DeriveCreate(movieSchema)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"actors", "list<Person>"}, rules.Describe()[2])

	e, err := d.Hydrator().Hydrate(mapping.MapRecord{"id": "m1", "title": "x", "actors": []any{}}, rules, "Movie")
	require.NoError(t, err)
	actors, ok := e.Get("actors")
	require.True(t, ok)
	assert.Equal(t, []*mapping.Entity{}, actors)
}

func TestDeriveMaxDepth(t *testing.T) {
	var b *schema.Schema
	a := schema.New("A",
		schema.F("id", schema.ID()),
		schema.F("b", schema.Rel(func() *schema.Schema { return b }, "TO", schema.Outbound, schema.Eager())),
	)
	b = schema.New("B",
		schema.F("id", schema.ID()),
		schema.F("a", schema.Rel(func() *schema.Schema { return a }, "TO", schema.Inbound, schema.Eager())),
	)

	_, err := New(WithMaxDepth(4)).Derive(a)
	assert.ErrorIs(t, err, query.ErrMaxDepthExceeded)
}

func TestNodeRule(t *testing.T) {
	d := New(WithTraverser(nopTraverser{}))
	rule, err := d.NodeRule(personSchema)
	require.NoError(t, err)
	assert.Equal(t, "Person", rule.Kind)

	keanu := dbtype.Node{Labels: []string{"Person"}, Props: map[string]any{"id": "p1", "name": "Keanu", "born": int64(1964)}}
	matrix := dbtype.Node{Labels: []string{"Movie"}, Props: map[string]any{"id": "m1", "title": "The Matrix"}}

	t.Run("node", func(t *testing.T) {
		v, err := mapping.ValueAs(keanu, "Person[0]", rule)
		require.NoError(t, err)
		e := v.(*mapping.Entity)
		assert.Equal(t, "Keanu", e.String("name"))
		assert.Nil(t, e.RelationshipProperties())

		movies, _ := e.Get("movies")
		h, ok := movies.(*relationships.Handle)
		require.True(t, ok, "relationships of a raw node are lazy, got %T", movies)
		assert.Equal(t, "p1", h.OwnerID())
	})

	t.Run("path end node", func(t *testing.T) {
		path := dbtype.Path{
			Nodes:         []dbtype.Node{matrix, keanu},
			Relationships: []dbtype.Relationship{{Type: "ACTED_IN", Props: map[string]any{"roles": []any{"Neo"}}}},
		}
		v, err := mapping.ValueAs(&path, "Person[0]", rule)
		require.NoError(t, err)
		e := v.(*mapping.Entity)
		assert.Equal(t, "p1", e.String("id"))
		assert.Equal(t, map[string]any{"roles": []any{"Neo"}}, e.RelationshipProperties())
	})

	t.Run("node of the wrong shape", func(t *testing.T) {
		_, err := mapping.ValueAs(matrix, "Person[0]", rule)
		var mismatch *mapping.TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "name", mismatch.Field)
	})

	t.Run("not a node", func(t *testing.T) {
		_, err := mapping.ValueAs(map[string]any{"id": "p1"}, "Person[0]", rule)
		assert.ErrorIs(t, err, mapping.ErrTypeMismatch)
	})
}
