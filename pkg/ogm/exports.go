package ogm

import (
	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/query"
	"github.com/conduit-lang/neogm/internal/ogm/relationships"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
	"github.com/conduit-lang/neogm/internal/ogm/transport"
)

// Schema model
type (
	Schema       = schema.Schema
	Field        = schema.Field
	Annotation   = schema.Annotation
	Scalar       = schema.Scalar
	Relationship = schema.Relationship
	Direction    = schema.Direction
	Include      = schema.Include
	Registry     = schema.Registry
)

const (
	Outbound = schema.Outbound
	Inbound  = schema.Inbound
)

var (
	NewSchema   = schema.New
	NewRegistry = schema.NewRegistry
	LoadSchemas = schema.LoadFile
	F           = schema.F
	ID          = schema.ID
	String      = schema.String
	Number      = schema.Number
	Boolean     = schema.Boolean
	Optional    = schema.Optional
	Rel         = schema.Rel
	Eager       = schema.Eager
)

// Database-native scalar kinds. Temporal values keep their driver types
// unless wrapped in Stringify.
var (
	BigInt        = schema.BigInt
	Date          = schema.Date
	DateTime      = schema.DateTime
	LocalDateTime = schema.LocalDateTime
	Time          = schema.Time
	LocalTime     = schema.LocalTime
	Duration      = schema.Duration
	Point         = schema.Point
	Stringify     = schema.Stringify
)

// Results
type (
	Entity     = mapping.Entity
	Translator = mapping.Translator
	Handle     = relationships.Handle
)

// CaseTranslator builds a naming translator between two conventions, e.g.
// CaseTranslator("snake_case", "camelCase")
var CaseTranslator = mapping.CaseTranslator

// Predicates
type (
	Predicate  = query.Predicate
	Where      = query.Where
	And        = query.And
	Or         = query.Or
	Not        = query.Not
	Comparison = query.Comparison
)

var (
	Eq         = query.Eq
	Ne         = query.Ne
	Gt         = query.Gt
	Gte        = query.Gte
	Lt         = query.Lt
	Lte        = query.Lte
	In         = query.In
	Contains   = query.Contains
	StartsWith = query.StartsWith
	EndsWith   = query.EndsWith
	IsNull     = query.IsNull
	IsNotNull  = query.IsNotNull
)

// Transport
type (
	Executor = transport.Executor
	Config   = transport.Config
)

// Dial connects to Neo4j
var Dial = transport.Dial

// ParseWhere builds a predicate from a decoded JSON document such as
// {"born": {"gte": 1960}, "$or": [...]}
var ParseWhere = query.ParseWhere
