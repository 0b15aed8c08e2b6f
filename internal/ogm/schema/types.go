// Package schema provides the declarative entity model for the graph mapper.
// A Schema is an ordered list of fields, each described by an Annotation:
// a scalar, the identity field, or a relationship to another schema.
package schema

import (
	"fmt"
	"strings"
)

// Kind represents the runtime kind of a scalar field
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindBigInt
	KindDate
	KindDateTime
	KindLocalDateTime
	KindTime
	KindLocalTime
	KindDuration
	KindPoint
)

var kindNames = map[Kind]string{
	KindString:        "string",
	KindNumber:        "number",
	KindBoolean:       "boolean",
	KindBigInt:        "bigint",
	KindDate:          "date",
	KindDateTime:      "datetime",
	KindLocalDateTime: "localdatetime",
	KindTime:          "time",
	KindLocalTime:     "localtime",
	KindDuration:      "duration",
	KindPoint:         "point",
}

// String returns the string representation of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Temporal reports whether values of k are dates, times or durations
func (k Kind) Temporal() bool {
	return k >= KindDate && k <= KindDuration
}

// ParseKind converts a string to a Kind. Case, dashes and underscores are
// ignored, so local_datetime and LocalDateTime both parse.
func ParseKind(s string) (Kind, error) {
	name := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(s))
	if name == "bool" {
		return KindBoolean, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown scalar kind: %s", s)
}

// Direction is the direction of a relationship as seen from the owning node
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

// String returns the string representation of the direction
func (d Direction) String() string {
	switch d {
	case Outbound:
		return "OUT"
	case Inbound:
		return "IN"
	default:
		return "unknown"
	}
}

// ParseDirection converts a string to a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "OUT", "OUTBOUND":
		return Outbound, nil
	case "IN", "INBOUND":
		return Inbound, nil
	default:
		return 0, fmt.Errorf("unknown relationship direction: %s", s)
	}
}

// Annotation describes the kind of a schema field. The set of implementations
// is closed: Scalar, Identity and Relationship.
type Annotation interface {
	annotation()
}

// Scalar is a plain property stored on the node. Stringify applies to
// temporal kinds, which are then read as ISO-8601 strings.
type Scalar struct {
	Kind      Kind
	Optional  bool
	Stringify bool
}

func (Scalar) annotation() {}

// Identity is the string property that identifies a stored entity
type Identity struct{}

func (Identity) annotation() {}

// Relationship points at another schema through a labelled edge.
// It is a value type: WithEager and WithTarget return modified copies.
type Relationship struct {
	Target    *Ref
	Label     string
	Direction Direction
	Eager     bool
}

func (Relationship) annotation() {}

// ResolveTarget forces the deferred target schema
func (r Relationship) ResolveTarget() *Schema {
	if r.Target == nil {
		return nil
	}
	return r.Target.Resolve()
}

// WithEager returns a copy of the relationship with the eager flag set
func (r Relationship) WithEager(eager bool) Relationship {
	r.Eager = eager
	return r
}

// WithTarget returns a copy of the relationship pointing at another target ref
func (r Relationship) WithTarget(target *Ref) Relationship {
	r.Target = target
	return r
}

// String returns a pattern-like representation such as -[:ACTED_IN]->
func (r Relationship) String() string {
	if r.Direction == Inbound {
		return fmt.Sprintf("<-[:%s]-", r.Label)
	}
	return fmt.Sprintf("-[:%s]->", r.Label)
}

// String returns a scalar annotation of kind string
func String() Scalar { return Scalar{Kind: KindString} }

// Number returns a scalar annotation of kind number
func Number() Scalar { return Scalar{Kind: KindNumber} }

// Boolean returns a scalar annotation of kind boolean
func Boolean() Scalar { return Scalar{Kind: KindBoolean} }

// BigInt returns a scalar annotation of kind bigint, read as *big.Int
func BigInt() Scalar { return Scalar{Kind: KindBigInt} }

// Date returns a scalar annotation of kind date
func Date() Scalar { return Scalar{Kind: KindDate} }

// DateTime returns a scalar annotation of kind datetime (zoned)
func DateTime() Scalar { return Scalar{Kind: KindDateTime} }

// LocalDateTime returns a scalar annotation of kind localdatetime
func LocalDateTime() Scalar { return Scalar{Kind: KindLocalDateTime} }

// Time returns a scalar annotation of kind time (with offset)
func Time() Scalar { return Scalar{Kind: KindTime} }

// LocalTime returns a scalar annotation of kind localtime
func LocalTime() Scalar { return Scalar{Kind: KindLocalTime} }

// Duration returns a scalar annotation of kind duration
func Duration() Scalar { return Scalar{Kind: KindDuration} }

// Point returns a scalar annotation of kind point (2D or 3D)
func Point() Scalar { return Scalar{Kind: KindPoint} }

// ID returns the identity annotation
func ID() Identity { return Identity{} }

// Optional returns a copy of the scalar that accepts absent or null values
func Optional(s Scalar) Scalar {
	s.Optional = true
	return s
}

// Stringify returns a copy of a temporal scalar that is read as an ISO-8601
// string
func Stringify(s Scalar) Scalar {
	s.Stringify = true
	return s
}

// RelOption configures a relationship annotation
type RelOption func(*Relationship)

// Eager marks the relationship to be fetched in the owner's query by default
func Eager() RelOption {
	return func(r *Relationship) { r.Eager = true }
}

// Rel builds a relationship annotation. The target function is not called
// until the target schema is first needed, so schemas may reference each other.
func Rel(target func() *Schema, label string, dir Direction, opts ...RelOption) Relationship {
	rel := Relationship{
		Target:    Lazy(target),
		Label:     label,
		Direction: dir,
	}
	for _, opt := range opts {
		opt(&rel)
	}
	return rel
}
