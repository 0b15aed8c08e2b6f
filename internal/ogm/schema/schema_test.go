package schema

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	personSchema *Schema
	movieSchema  *Schema
)

func init() {
	personSchema = New("Person",
		F("id", ID()),
		F("name", String()),
		F("born", Number()),
		F("movies", Rel(func() *Schema { return movieSchema }, "ACTED_IN", Outbound)),
	)
	movieSchema = New("Movie",
		F("id", ID()),
		F("title", String()),
		F("actors", Rel(func() *Schema { return personSchema }, "ACTED_IN", Inbound)),
	)
}

func TestSchemaFields(t *testing.T) {
	t.Run("preserves declaration order", func(t *testing.T) {
		assert.Equal(t, []string{"id", "title", "actors"}, movieSchema.Names())
	})

	t.Run("identity lookup", func(t *testing.T) {
		name, ok := movieSchema.Identity()
		require.True(t, ok)
		assert.Equal(t, "id", name)
	})

	t.Run("properties and relationships are split", func(t *testing.T) {
		assert.Len(t, movieSchema.Properties(), 2)
		rels := movieSchema.Relationships()
		require.Len(t, rels, 1)
		assert.Equal(t, "actors", rels[0].Name)
	})

	t.Run("deferred targets resolve cyclically", func(t *testing.T) {
		f, _ := movieSchema.Field("actors")
		rel, ok := f.Relationship()
		require.True(t, ok)
		person := rel.ResolveTarget()
		require.NotNil(t, person)
		assert.Equal(t, "Person", person.Label)

		back, _ := person.Field("movies")
		backRel, _ := back.Relationship()
		assert.Same(t, movieSchema, backRel.ResolveTarget())
	})
}

func TestRelationshipWithEager(t *testing.T) {
	f, _ := movieSchema.Field("actors")
	rel, _ := f.Relationship()

	eager := rel.WithEager(true)
	assert.True(t, eager.Eager)
	assert.False(t, rel.Eager, "WithEager must not mutate the receiver")

	again, _ := movieSchema.Field("actors")
	againRel, _ := again.Relationship()
	assert.False(t, againRel.Eager)
}

func TestRefResolvesOnce(t *testing.T) {
	calls := 0
	ref := Lazy(func() *Schema {
		calls++
		return movieSchema
	})
	assert.Equal(t, 0, calls)
	ref.Resolve()
	ref.Resolve()
	assert.Equal(t, 1, calls)
	assert.Same(t, movieSchema, Static(movieSchema).Resolve())
}

func TestApplyInclude(t *testing.T) {
	t.Run("marks relationship eager on a clone", func(t *testing.T) {
		specialised, err := ApplyInclude(movieSchema, Include{"actors": true})
		require.NoError(t, err)

		f, _ := specialised.Field("actors")
		rel, _ := f.Relationship()
		assert.True(t, rel.Eager)

		orig, _ := movieSchema.Field("actors")
		origRel, _ := orig.Relationship()
		assert.False(t, origRel.Eager)
	})

	t.Run("nested shape specialises the target", func(t *testing.T) {
		specialised, err := ApplyInclude(movieSchema, Include{
			"actors": Include{"movies": true},
		})
		require.NoError(t, err)

		f, _ := specialised.Field("actors")
		rel, _ := f.Relationship()
		target := rel.ResolveTarget()
		require.NotSame(t, personSchema, target)

		movies, _ := target.Field("movies")
		moviesRel, _ := movies.Relationship()
		assert.True(t, moviesRel.Eager)

		orig, _ := personSchema.Field("movies")
		origRel, _ := orig.Relationship()
		assert.False(t, origRel.Eager)
	})

	t.Run("plain map values are accepted", func(t *testing.T) {
		_, err := ApplyInclude(movieSchema, Include{"actors": map[string]any{"movies": true}})
		assert.NoError(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ApplyInclude(movieSchema, Include{"directors": true})
		var unknown *UnknownFieldError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "directors", unknown.Field)
		assert.True(t, errors.Is(err, ErrUnknownField))
	})

	t.Run("scalar field", func(t *testing.T) {
		_, err := ApplyInclude(movieSchema, Include{"title": true})
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := ApplyInclude(movieSchema, Include{"actors": 1})
		assert.ErrorIs(t, err, ErrInvalidInclude)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		wantErr string
	}{
		{"valid", movieSchema, ""},
		{"missing id", New("Tag", F("name", String())), "ID not found"},
		{"duplicate id", New("Tag", F("id", ID()), F("key", ID())), "only one ID is allowed"},
		{"duplicate field", New("Tag", F("id", ID()), F("id", String())), "declared more than once"},
		{"missing label", New("", F("id", ID())), "label is required"},
		{"relationship without label", New("Tag",
			F("id", ID()),
			F("movies", Rel(func() *Schema { return movieSchema }, "", Outbound)),
		), "has no label"},
		{"unknown kind", New("Tag", F("id", ID()), F("weight", Scalar{Kind: Kind(99)})), "unknown kind 99"},
		{"stringified number", New("Tag", F("id", ID()), F("weight", Stringify(Number()))),
			"stringify applies to temporal kinds only, not number"},
		{"stringified date", New("Tag", F("id", ID()), F("since", Stringify(Date()))), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"string", KindString},
		{"Number", KindNumber},
		{"bool", KindBoolean},
		{"boolean", KindBoolean},
		{"bigint", KindBigInt},
		{"big_int", KindBigInt},
		{"date", KindDate},
		{"DateTime", KindDateTime},
		{"local_datetime", KindLocalDateTime},
		{"LocalDateTime", KindLocalDateTime},
		{"time", KindTime},
		{"local-time", KindLocalTime},
		{"duration", KindDuration},
		{"point", KindPoint},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseKind("money")
	assert.Error(t, err)
	assert.True(t, KindDuration.Temporal())
	assert.False(t, KindPoint.Temporal())
	assert.False(t, KindBigInt.Temporal())
}

func TestEagerCycles(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		var person *Schema
		person = New("Person",
			F("id", ID()),
			F("friends", Rel(func() *Schema { return person }, "KNOWS", Outbound, Eager())),
		)
		err := NewRegistry().Register(person)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchema)
		assert.Contains(t, err.Error(), "eager relationships form a cycle: Person.friends -> Person")
	})

	t.Run("through a second schema", func(t *testing.T) {
		reg := NewRegistry()
		a := New("A", F("id", ID()), F("b", Rel(reg.Ref("B").Resolve, "TO", Outbound, Eager())))
		b := New("B", F("id", ID()), F("a", Rel(reg.Ref("A").Resolve, "TO", Inbound, Eager())))
		require.NoError(t, reg.Register(a))
		require.NoError(t, reg.Register(b))

		err := reg.ValidateAll()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchema)
		assert.Contains(t, err.Error(), "A.b -> B.a -> A")
		assert.Error(t, ValidateTargets(b))
	})

	t.Run("a lazy edge breaks the cycle", func(t *testing.T) {
		reg := NewRegistry()
		a := New("A", F("id", ID()), F("b", Rel(reg.Ref("B").Resolve, "TO", Outbound, Eager())))
		b := New("B", F("id", ID()), F("a", Rel(reg.Ref("A").Resolve, "TO", Inbound)))
		require.NoError(t, reg.Register(a))
		require.NoError(t, reg.Register(b))
		assert.NoError(t, reg.ValidateAll())
	})

	t.Run("lazy mutual relationships are fine", func(t *testing.T) {
		assert.NoError(t, ValidateTargets(movieSchema))
		assert.NoError(t, ValidateTargets(personSchema))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(movieSchema))

		got, ok := reg.Get("Movie")
		require.True(t, ok)
		assert.Same(t, movieSchema, got)
		assert.Equal(t, 1, reg.Count())
	})

	t.Run("duplicate registration", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(movieSchema))
		assert.ErrorIs(t, reg.Register(movieSchema), ErrSchema)
	})

	t.Run("invalid schema is refused", func(t *testing.T) {
		reg := NewRegistry()
		assert.Error(t, reg.Register(New("Tag", F("name", String()))))
		assert.False(t, reg.Exists("Tag"))
	})

	t.Run("forward references resolve after registration", func(t *testing.T) {
		reg := NewRegistry()
		ref := reg.Ref("Movie")
		require.NoError(t, reg.Register(movieSchema))
		assert.Same(t, movieSchema, ref.Resolve())
	})

	t.Run("references resolved too early retry", func(t *testing.T) {
		reg := NewRegistry()
		ref := reg.Ref("Movie")
		assert.Nil(t, ref.Resolve())
		require.NoError(t, reg.Register(movieSchema))
		assert.Same(t, movieSchema, ref.Resolve())
	})

	t.Run("validate all reports unknown targets", func(t *testing.T) {
		reg := NewRegistry()
		dangling := New("Review",
			F("id", ID()),
			F("movie", Relationship{Target: reg.Ref("Film"), Label: "REVIEWS", Direction: Outbound}),
		)
		require.NoError(t, reg.Register(dangling))
		err := reg.ValidateAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown schema")
	})

	t.Run("list is sorted", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(personSchema))
		require.NoError(t, reg.Register(movieSchema))
		assert.Equal(t, []string{"Movie", "Person"}, reg.List())
		assert.Equal(t, 2, reg.Count())
	})
}

func TestLoadYAML(t *testing.T) {
	t.Run("mutually recursive definitions", func(t *testing.T) {
		reg := NewRegistry()
		schemas, err := LoadFile("testdata/movies.yaml", reg)
		require.NoError(t, err)
		require.Len(t, schemas, 2)

		movie, ok := reg.Get("Movie")
		require.True(t, ok)
		assert.Equal(t, []string{"id", "title", "released", "actors"}, movie.Names())

		released, _ := movie.Field("released")
		assert.Equal(t, Scalar{Kind: KindNumber, Optional: true}, released.Annotation)

		actors, _ := movie.Field("actors")
		rel, ok := actors.Relationship()
		require.True(t, ok)
		assert.Equal(t, Inbound, rel.Direction)
		assert.Equal(t, "ACTED_IN", rel.Label)
		assert.Equal(t, "Person", rel.ResolveTarget().Label)
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		doc := "nodes:\n  - label: Tag\n    colour: red\n"
		_, err := LoadYAML(strings.NewReader(doc), NewRegistry())
		assert.Error(t, err)
	})

	t.Run("bad direction", func(t *testing.T) {
		doc := `nodes:
  - label: Tag
    fields:
      - {name: id, type: id}
      - {name: movies, type: relationship, target: Movie, rel: TAGS, direction: SIDEWAYS}
`
		_, err := LoadYAML(strings.NewReader(doc), NewRegistry())
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("database-native kinds", func(t *testing.T) {
		doc := `nodes:
  - label: Event
    fields:
      - {name: id, type: id}
      - {name: day, type: date}
      - {name: at, type: datetime, stringify: true}
      - {name: starts, type: local_time, optional: true}
      - {name: lasts, type: duration}
      - {name: venue, type: point}
      - {name: attendees, type: bigint}
`
		reg := NewRegistry()
		schemas, err := LoadYAML(strings.NewReader(doc), reg)
		require.NoError(t, err)
		require.Len(t, schemas, 1)

		event := schemas[0]
		want := map[string]Scalar{
			"day":       {Kind: KindDate},
			"at":        {Kind: KindDateTime, Stringify: true},
			"starts":    {Kind: KindLocalTime, Optional: true},
			"lasts":     {Kind: KindDuration},
			"venue":     {Kind: KindPoint},
			"attendees": {Kind: KindBigInt},
		}
		for name, scalar := range want {
			f, ok := event.Field(name)
			require.True(t, ok, name)
			assert.Equal(t, scalar, f.Annotation, name)
		}
	})

	t.Run("stringify on a non-temporal kind", func(t *testing.T) {
		doc := "nodes:\n  - label: Tag\n    fields:\n      - {name: id, type: id}\n      - {name: n, type: number, stringify: true}\n"
		reg := NewRegistry()
		_, err := LoadYAML(strings.NewReader(doc), reg)
		assert.ErrorIs(t, err, ErrSchema)
		assert.Equal(t, 0, reg.Count())
	})

	t.Run("failed document registers nothing", func(t *testing.T) {
		reg := NewRegistry()
		_, err := LoadFile("testdata/movies.yaml", reg)
		require.NoError(t, err)

		doc := `nodes:
  - label: Review
    fields:
      - {name: id, type: id}
      - {name: movie, type: relationship, target: Movie, rel: REVIEWS, direction: OUT}
  - label: Critic
    fields:
      - {name: id, type: id}
      - {name: reviews, type: relationship, target: Film, rel: WROTE, direction: OUT}
`
		_, err = LoadYAML(strings.NewReader(doc), reg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown schema")
		assert.Equal(t, []string{"Movie", "Person"}, reg.List())

		// a corrected document loads into the same registry
		fixed := strings.Replace(doc, "target: Film", "target: Review", 1)
		_, err = LoadYAML(strings.NewReader(fixed), reg)
		require.NoError(t, err)
		assert.Equal(t, 4, reg.Count())
	})

	t.Run("eager cycle is refused", func(t *testing.T) {
		doc := `nodes:
  - label: Person
    fields:
      - {name: id, type: id}
      - {name: friends, type: relationship, target: Person, rel: KNOWS, direction: OUT, eager: true}
`
		reg := NewRegistry()
		_, err := LoadYAML(strings.NewReader(doc), reg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchema)
		assert.Contains(t, err.Error(), "cycle")
		assert.False(t, reg.Exists("Person"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile("testdata/nope.yaml", NewRegistry())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
