package mapping

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personRules() Rules {
	return Rules{}.
		Add("id", AsString()).
		Add("name", AsString()).
		Add("born", AsNumber(NumberOptions{}))
}

func TestHydrate(t *testing.T) {
	h := NewHydrator()

	t.Run("applies rules in order", func(t *testing.T) {
		rec := MapRecord{"id": "1", "name": "Keanu", "born": int64(1964)}
		e, err := h.Hydrate(rec, personRules(), "Person")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "born"}, e.Keys())
		assert.Equal(t, "Keanu", e.String("name"))
		born, ok := e.Int64("born")
		assert.True(t, ok)
		assert.Equal(t, int64(1964), born)
	})

	t.Run("validation failure aborts the record", func(t *testing.T) {
		rec := MapRecord{"id": "1", "name": 42, "born": int64(1964)}
		e, err := h.Hydrate(rec, personRules(), "Person")
		assert.Nil(t, e)

		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "name", mismatch.Field)
		assert.Equal(t, "Person#name", mismatch.Path)
		assert.Equal(t, "string", mismatch.Expected)
		assert.Equal(t, "number", mismatch.Actual)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("optional absent value skips validation", func(t *testing.T) {
		born := AsNumber(NumberOptions{})
		born.Optional = true
		rules := Rules{}.Add("id", AsString()).Add("born", born)

		e, err := h.Hydrate(MapRecord{"id": "1"}, rules, "Person")
		require.NoError(t, err)
		v, ok := e.Get("born")
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("required absent value fails", func(t *testing.T) {
		_, err := h.Hydrate(MapRecord{"id": "1", "name": "x"}, personRules(), "Person")
		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "null", mismatch.Actual)
	})

	t.Run("from overrides the key", func(t *testing.T) {
		rule := AsString()
		rule.From = "homeTown"
		rules := Rules{}.Add("town", rule)
		e, err := h.Hydrate(MapRecord{"homeTown": "Beirut"}, rules, "Person")
		require.NoError(t, err)
		assert.Equal(t, "Beirut", e.String("town"))
	})

	t.Run("override runs after other fields", func(t *testing.T) {
		rules := Rules{}.
			Add("tag", Rule{Override: func(owner *Entity) any { return "seen:" + owner.String("id") }}).
			Add("id", AsString())
		e, err := h.Hydrate(MapRecord{"id": "7", "tag": "raw"}, rules, "Thing")
		require.NoError(t, err)
		assert.Equal(t, "seen:7", e.String("tag"))
	})

	t.Run("template fields use the default rule", func(t *testing.T) {
		rules := Rules{}.Add("id", AsString())
		e, err := h.HydrateInto(MapRecord{"id": "1", "extra": 3.5}, rules, "Thing", []string{"id", "extra", "missing"})
		require.NoError(t, err)
		assert.Equal(t, 3.5, e.Map()["extra"])
		assert.True(t, e.Has("missing"))
	})

	t.Run("custom validator errors carry the path", func(t *testing.T) {
		boom := errors.New("boom")
		rules := Rules{}.Add("id", Rule{Validate: func(any, string) error { return boom }})
		_, err := h.Hydrate(MapRecord{"id": "1"}, rules, "Thing")
		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "Thing#id", fieldErr.Path)
		assert.ErrorIs(t, err, boom)
	})
}

func TestHydrateNaming(t *testing.T) {
	translate, err := CaseTranslator(SnakeCase, CamelCase)
	require.NoError(t, err)
	h := NewHydrator(WithNaming(translate))

	rules := Rules{}.Add("firstName", AsString()).Add("bornAt", AsNumber(NumberOptions{}))
	e, err := h.Hydrate(MapRecord{"first_name": "Ada", "born_at": 1815}, rules, "Person")
	require.NoError(t, err)
	assert.Equal(t, "Ada", e.String("firstName"))
	assert.Equal(t, map[string]any{"firstName": "Ada", "bornAt": int64(1815)}, e.Map())
}

func TestHydrateAllIsolatesFailures(t *testing.T) {
	h := NewHydrator()
	records := []Gettable{
		MapRecord{"id": "1", "name": "Keanu", "born": int64(1964)},
		MapRecord{"id": "2", "name": "Carrie", "born": map[string]any{"low": 1967, "high": 0}},
		MapRecord{"id": "3", "name": "Laurence", "born": int64(1961)},
	}

	results := h.HydrateAll(records, personRules(), "Person")
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "Laurence", results[2].Entity.String("name"))

	var mismatch *TypeMismatchError
	require.ErrorAs(t, results[1].Err, &mismatch)
	assert.Equal(t, "born", mismatch.Field)
	assert.Equal(t, 1, results[1].Index)
	assert.Nil(t, results[1].Entity)
}

func TestAsNumber(t *testing.T) {
	tests := []struct {
		name   string
		opts   NumberOptions
		value  any
		want   any
		errSub string
	}{
		{"int", NumberOptions{}, 42, int64(42), ""},
		{"int32", NumberOptions{}, int32(7), int64(7), ""},
		{"uint8", NumberOptions{}, uint8(3), int64(3), ""},
		{"float", NumberOptions{}, 2.5, 2.5, ""},
		{"float32", NumberOptions{}, float32(0.5), 0.5, ""},
		{"string", NumberOptions{}, "42", nil, "received string"},
		{"split integer", NumberOptions{AcceptBigInt: true}, map[string]any{"low": 1, "high": 0}, nil, "{low, high}"},
		{"big int refused", NumberOptions{}, big.NewInt(5), nil, "AcceptBigInt"},
		{"big int accepted", NumberOptions{AcceptBigInt: true}, big.NewInt(5), int64(5), ""},
		{"big int overflow", NumberOptions{AcceptBigInt: true}, new(big.Int).Lsh(big.NewInt(1), 70), nil, "does not fit"},
		{"uint64 overflow", NumberOptions{}, uint64(1 << 63), nil, "does not fit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueAs(tt.value, "Person#born", AsNumber(tt.opts))
			if tt.errSub != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrTypeMismatch)
				assert.Contains(t, err.Error(), tt.errSub)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScalarFactories(t *testing.T) {
	_, err := ValueAs(true, "x", AsBoolean())
	assert.NoError(t, err)
	_, err = ValueAs("true", "x", AsBoolean())
	assert.ErrorIs(t, err, ErrTypeMismatch)

	v, err := ValueAs(int64(9), "x", AsBigInt(BigIntOptions{AcceptNumber: true}))
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(9).Cmp(v.(*big.Int)))
	_, err = ValueAs(int64(9), "x", AsBigInt(BigIntOptions{}))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	node := dbtype.Node{Labels: []string{"Person"}, Props: map[string]any{"name": "Keanu"}}
	_, err = ValueAs(node, "x", AsNode())
	assert.NoError(t, err)
	props, ok := PropsOf(node)
	assert.True(t, ok)
	assert.Equal(t, "Keanu", props["name"])
	_, err = ValueAs(node, "x", AsRelationship())
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAsList(t *testing.T) {
	element := AsString()
	element.Convert = func(v any, _ string) (any, error) {
		if v == "" {
			return nil, nil
		}
		return v, nil
	}
	rule := AsList(element)
	assert.Equal(t, "list<string>", rule.Kind)

	got, err := ValueAs([]any{"a", "", "b"}, "x", rule)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)

	_, err = ValueAs([]any{"a", 1}, "Movie#tags", rule)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Movie#tags[1]", mismatch.Path)

	_, err = ValueAs("a", "x", rule)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestCaseTranslator(t *testing.T) {
	tests := []struct {
		db, code, in, want string
	}{
		{SnakeCase, CamelCase, "firstName", "first_name"},
		{KebabCase, CamelCase, "firstName", "first-name"},
		{ScreamingSnakeCase, CamelCase, "firstName", "FIRST_NAME"},
		{PascalCase, CamelCase, "firstName", "FirstName"},
		{CamelCase, SnakeCase, "first_name", "firstName"},
		{CamelCase, PascalCase, "FirstName", "firstName"},
		{SnakeCase, ScreamingSnakeCase, "BORN_AT", "born_at"},
	}
	for _, tt := range tests {
		t.Run(tt.db+"<-"+tt.code, func(t *testing.T) {
			translate, err := CaseTranslator(tt.db, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, translate(tt.in))
		})
	}

	_, err := CaseTranslator("Train-Case", CamelCase)
	assert.ErrorIs(t, err, ErrUnknownConvention)
	assert.Len(t, Conventions(), 5)
}

func TestEntity(t *testing.T) {
	actor := NewEntity()
	actor.Set("name", "Keanu")
	actor.SetRelationshipProperties(map[string]any{"role": "Neo"})

	movie := NewEntity()
	movie.Set("title", "The Matrix")
	movie.Set("released", int64(1999))
	movie.Set("actors", []*Entity{actor})

	t.Run("related entities", func(t *testing.T) {
		related := movie.Related("actors")
		require.Len(t, related, 1)
		assert.Equal(t, "Neo", related[0].RelationshipProperties()["role"])
		assert.Nil(t, movie.RelationshipProperties())
	})

	t.Run("decode into a struct", func(t *testing.T) {
		type person struct {
			Name string `ogm:"name"`
		}
		var out struct {
			Title    string   `ogm:"title"`
			Released int64    `ogm:"released"`
			Actors   []person `ogm:"actors"`
		}
		require.NoError(t, movie.Decode(&out))
		assert.Equal(t, "The Matrix", out.Title)
		assert.Equal(t, int64(1999), out.Released)
		assert.Equal(t, []person{{Name: "Keanu"}}, out.Actors)
	})

	t.Run("json keeps field order", func(t *testing.T) {
		data, err := json.Marshal(movie)
		require.NoError(t, err)
		assert.Equal(t,
			`{"title":"The Matrix","released":1999,"actors":[{"name":"Keanu","@relationship":{"role":"Neo"}}]}`,
			string(data))
	})
}
