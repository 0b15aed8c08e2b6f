package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Gettable is anything that exposes values by key. *neo4j.Record, MapRecord
// and *Entity all satisfy it.
type Gettable interface {
	Get(key string) (any, bool)
}

// MapRecord adapts a plain map to Gettable
type MapRecord map[string]any

// Get implements Gettable
func (m MapRecord) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Entity is a hydrated object: an ordered set of fields plus, for entities
// reached through a relationship, the properties of that relationship.
type Entity struct {
	keys   []string
	values map[string]any

	relationshipProperties map[string]any
}

// NewEntity creates an empty entity
func NewEntity() *Entity {
	return &Entity{values: make(map[string]any)}
}

// Set assigns a field, keeping first-assignment order
func (e *Entity) Set(key string, value any) {
	if _, exists := e.values[key]; !exists {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns a field value
func (e *Entity) Get(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Has returns true if the field was assigned, even to nil
func (e *Entity) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Keys returns field names in assignment order
func (e *Entity) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Len returns the number of fields
func (e *Entity) Len() int {
	return len(e.keys)
}

// String returns a string field, or "" if absent or of another type
func (e *Entity) String(key string) string {
	s, _ := e.values[key].(string)
	return s
}

// Int64 returns an integer field
func (e *Entity) Int64(key string) (int64, bool) {
	switch v := e.values[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), v == float64(int64(v))
	default:
		return 0, false
	}
}

// Number returns a numeric field as float64
func (e *Entity) Number(key string) (float64, bool) {
	switch v := e.values[key].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Equal reports whether two entities hold the same fields, values and
// relationship properties, recursing into related entities. Field order is
// not compared.
func (e *Entity) Equal(other *Entity) bool {
	if e == nil || other == nil {
		return e == other
	}
	if len(e.keys) != len(other.keys) {
		return false
	}
	if !reflect.DeepEqual(e.relationshipProperties, other.relationshipProperties) {
		return false
	}
	for _, k := range e.keys {
		v, ok := other.values[k]
		if !ok || !equalValue(e.values[k], v) {
			return false
		}
	}
	return true
}

// Comparable is implemented by placeholder values, such as lazy relationship
// handles, whose equality is not structural
type Comparable interface {
	Same(other any) bool
}

func equalValue(a, b any) bool {
	switch av := a.(type) {
	case Comparable:
		return av.Same(b)
	case *Entity:
		bv, ok := b.(*Entity)
		return ok && av.Equal(bv)
	case []*Entity:
		bv, ok := b.([]*Entity)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// Related returns the hydrated entities of an eager relationship field
func (e *Entity) Related(key string) []*Entity {
	related, _ := e.values[key].([]*Entity)
	return related
}

// RelationshipProperties returns the properties of the relationship through
// which this entity was reached, or nil for a root entity
func (e *Entity) RelationshipProperties() map[string]any {
	return e.relationshipProperties
}

// SetRelationshipProperties attaches relationship properties to the entity
func (e *Entity) SetRelationshipProperties(props map[string]any) {
	if props == nil {
		props = map[string]any{}
	}
	e.relationshipProperties = props
}

// Map returns the entity as a plain map. Related entities are converted
// recursively; other values (including lazy handles) are kept as they are.
func (e *Entity) Map() map[string]any {
	out := make(map[string]any, len(e.keys))
	for _, k := range e.keys {
		out[k] = plain(e.values[k])
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case *Entity:
		return val.Map()
	case []*Entity:
		list := make([]map[string]any, len(val))
		for i, child := range val {
			list[i] = child.Map()
		}
		return list
	default:
		return val
	}
}

// Decode copies the entity into a Go value (usually a struct pointer). Struct
// fields are matched by the `ogm` tag, then by case-insensitive name.
func (e *Entity) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "ogm",
		Result:           out,
		WeaklyTypedInput: false,
		Squash:           true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(e.Map()); err != nil {
		return fmt.Errorf("failed to decode entity: %w", err)
	}
	return nil
}

// MarshalJSON writes fields in order. Relationship properties, when present,
// are written under "@relationship".
func (e *Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONField(&buf, k, e.values[k]); err != nil {
			return nil, err
		}
	}
	if e.relationshipProperties != nil {
		if len(e.keys) > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONField(&buf, "@relationship", e.relationshipProperties); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONField(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(jsonValue(value))
	if err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// jsonValue writes driver temporal values in their ISO-8601 form
func jsonValue(v any) any {
	switch v.(type) {
	case dbtype.Date, dbtype.LocalDateTime, dbtype.Time, dbtype.LocalTime, dbtype.Duration:
		return v.(fmt.Stringer).String()
	}
	return v
}
