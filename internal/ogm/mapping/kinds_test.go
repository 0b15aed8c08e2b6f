package mapping

import (
	"math/big"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

func TestTemporalRules(t *testing.T) {
	released := time.Date(1999, time.March, 31, 20, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		rule      func(TemporalOptions) Rule
		value     any
		stringify string
	}{
		{"date", AsDate, dbtype.Date(released), "1999-03-31"},
		{"datetime", AsDateTime, released, "1999-03-31T20:30:00Z"},
		{"localdatetime", AsLocalDateTime, dbtype.LocalDateTime(released), "1999-03-31T20:30:00"},
		{"time", AsTime, dbtype.Time(released), "20:30:00Z"},
		{"localtime", AsLocalTime, dbtype.LocalTime(released), "20:30:00"},
		{"duration", AsDuration, dbtype.Duration{Months: 1, Days: 2, Seconds: 3}, "P1M2DT3S"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueAs(tt.value, "Movie#released", tt.rule(TemporalOptions{}))
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)

			got, err = ValueAs(tt.value, "Movie#released", tt.rule(TemporalOptions{Stringify: true}))
			require.NoError(t, err)
			assert.Equal(t, tt.stringify, got)

			_, err = ValueAs("1999-03-31", "Movie#released", tt.rule(TemporalOptions{}))
			var mismatch *TypeMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.name, mismatch.Expected)
			assert.Equal(t, "string", mismatch.Actual)
		})
	}

	t.Run("kinds are not interchangeable", func(t *testing.T) {
		_, err := ValueAs(dbtype.LocalDateTime(released), "x", AsDateTime(TemporalOptions{}))
		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "localdatetime", mismatch.Actual)
	})
}

func TestEntityJSONWritesTemporalValues(t *testing.T) {
	e := NewEntity()
	e.Set("day", dbtype.Date(time.Date(1999, time.March, 31, 0, 0, 0, 0, time.UTC)))
	e.Set("runtime", dbtype.Duration{Seconds: 8160})
	e.Set("gross", big.NewInt(42))

	data, err := e.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"1999-03-31","runtime":"P0M0DT8160S","gross":42}`, string(data))
}

func TestGraphValueRules(t *testing.T) {
	point := dbtype.Point2D{X: 1.5, Y: 2, SpatialRefId: 7203}
	got, err := ValueAs(point, "Cinema#location", AsPoint())
	require.NoError(t, err)
	assert.Equal(t, point, got)
	_, err = ValueAs(&dbtype.Point3D{X: 1, Y: 2, Z: 3, SpatialRefId: 9157}, "x", AsPoint())
	assert.NoError(t, err)
	_, err = ValueAs([]any{1.5, 2.0}, "x", AsPoint())
	assert.ErrorIs(t, err, ErrTypeMismatch)

	keanu := dbtype.Node{Props: map[string]any{"name": "Keanu"}}
	matrix := dbtype.Node{Props: map[string]any{"title": "The Matrix"}}
	path := dbtype.Path{
		Nodes:         []dbtype.Node{keanu, matrix},
		Relationships: []dbtype.Relationship{{Type: "ACTED_IN", Props: map[string]any{"roles": []any{"Neo"}}}},
	}
	_, err = ValueAs(path, "x", AsPath())
	assert.NoError(t, err)
	_, err = ValueAs(keanu, "x", AsPath())
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "node", mismatch.Actual)

	_, err = ValueAs(path.Relationships[0], "x", AsRelationship())
	assert.NoError(t, err)

	_, ok := PropsOf((*dbtype.Node)(nil))
	assert.False(t, ok)
}

func TestScalarRule(t *testing.T) {
	t.Run("every kind has a rule", func(t *testing.T) {
		for k := schema.KindString; k.Valid(); k++ {
			rule, ok := ScalarRule(schema.Scalar{Kind: k}, NumberOptions{})
			require.True(t, ok, k.String())
			assert.Equal(t, k.String(), rule.Kind)
		}
		_, ok := ScalarRule(schema.Scalar{Kind: schema.Kind(99)}, NumberOptions{})
		assert.False(t, ok)
	})

	t.Run("optional", func(t *testing.T) {
		rule, ok := ScalarRule(schema.Optional(schema.Date()), NumberOptions{})
		require.True(t, ok)
		got, err := ValueAs(nil, "x", rule)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("stringify", func(t *testing.T) {
		rule, _ := ScalarRule(schema.Stringify(schema.Date()), NumberOptions{})
		got, err := ValueAs(dbtype.Date(time.Date(2003, 5, 15, 0, 0, 0, 0, time.UTC)), "x", rule)
		require.NoError(t, err)
		assert.Equal(t, "2003-05-15", got)
	})

	t.Run("big integers read native integers", func(t *testing.T) {
		rule, _ := ScalarRule(schema.BigInt(), NumberOptions{})
		got, err := ValueAs(int64(1)<<40, "x", rule)
		require.NoError(t, err)
		assert.Equal(t, 0, new(big.Int).Lsh(big.NewInt(1), 40).Cmp(got.(*big.Int)))
	})

	t.Run("number options pass through", func(t *testing.T) {
		rule, _ := ScalarRule(schema.Number(), NumberOptions{AcceptBigInt: true})
		got, err := ValueAs(big.NewInt(3), "x", rule)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got)
	})
}
