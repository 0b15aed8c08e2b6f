package mapping

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// AsString returns a rule that accepts strings
func AsString() Rule {
	return Rule{
		Kind: "string",
		Validate: func(value any, path string) error {
			if _, ok := value.(string); !ok {
				return mismatch(path, "string", value, "")
			}
			return nil
		},
	}
}

// AsBoolean returns a rule that accepts booleans
func AsBoolean() Rule {
	return Rule{
		Kind: "boolean",
		Validate: func(value any, path string) error {
			if _, ok := value.(bool); !ok {
				return mismatch(path, "boolean", value, "")
			}
			return nil
		},
	}
}

// NumberOptions configures AsNumber
type NumberOptions struct {
	// AcceptBigInt admits *big.Int values, converted to int64 when they fit
	AcceptBigInt bool
}

// AsNumber returns a rule that accepts any Go integer or float. Integers are
// converted to int64 and floats to float64. Integers encoded as {low, high}
// maps are always rejected.
func AsNumber(opts NumberOptions) Rule {
	return Rule{
		Kind: "number",
		Validate: func(value any, path string) error {
			if isSplitInteger(value) {
				return mismatch(path, "number", value,
					"integer returned as {low, high} object; configure the transport to return native integers")
			}
			if _, ok := value.(*big.Int); ok {
				if !opts.AcceptBigInt {
					return mismatch(path, "number", value, "big integers are not accepted; enable AcceptBigInt")
				}
				return nil
			}
			if !isNumber(value) {
				return mismatch(path, "number", value, "")
			}
			return nil
		},
		Convert: func(value any, path string) (any, error) {
			return toNumber(value, path)
		},
	}
}

// BigIntOptions configures AsBigInt
type BigIntOptions struct {
	// AcceptNumber admits native integers, converted to *big.Int
	AcceptNumber bool
}

// AsBigInt returns a rule that accepts *big.Int values
func AsBigInt(opts BigIntOptions) Rule {
	return Rule{
		Kind: "bigint",
		Validate: func(value any, path string) error {
			if _, ok := value.(*big.Int); ok {
				return nil
			}
			if opts.AcceptNumber {
				if _, ok := toInt64(value); ok {
					return nil
				}
			}
			return mismatch(path, "bigint", value, "")
		},
		Convert: func(value any, path string) (any, error) {
			if b, ok := value.(*big.Int); ok {
				return new(big.Int).Set(b), nil
			}
			i, _ := toInt64(value)
			return big.NewInt(i), nil
		},
	}
}

// AsList returns a rule that accepts lists and applies the element rule to
// every element. A nil result from the element converter drops the element.
func AsList(element Rule) Rule {
	kind := "list"
	if element.Kind != "" {
		kind = "list<" + element.Kind + ">"
	}
	return Rule{
		Kind: kind,
		Validate: func(value any, path string) error {
			if _, ok := value.([]any); !ok {
				return mismatch(path, "list", value, "")
			}
			return nil
		},
		Convert: func(value any, path string) (any, error) {
			list := value.([]any)
			out := make([]any, 0, len(list))
			for i, item := range list {
				converted, err := ValueAs(item, fmt.Sprintf("%s[%d]", path, i), element)
				if err != nil {
					return nil, err
				}
				if converted != nil {
					out = append(out, converted)
				}
			}
			return out, nil
		},
	}
}

// AsNode returns a rule that accepts graph nodes. The default conversion
// keeps the node; pass Convert to turn it into something else.
func AsNode() Rule {
	return Rule{
		Kind: "node",
		Validate: func(value any, path string) error {
			switch value.(type) {
			case dbtype.Node, *dbtype.Node:
				return nil
			}
			return mismatch(path, "node", value, "")
		},
	}
}

// AsRelationship returns a rule that accepts graph relationships
func AsRelationship() Rule {
	return Rule{
		Kind: "relationship",
		Validate: func(value any, path string) error {
			switch value.(type) {
			case dbtype.Relationship, *dbtype.Relationship:
				return nil
			}
			return mismatch(path, "relationship", value, "")
		},
	}
}

// PropsOf returns the property map of a node or relationship value
func PropsOf(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case dbtype.Node:
		return v.Props, true
	case *dbtype.Node:
		if v == nil {
			return nil, false
		}
		return v.Props, true
	case dbtype.Relationship:
		return v.Props, true
	case *dbtype.Relationship:
		if v == nil {
			return nil, false
		}
		return v.Props, true
	case map[string]any:
		return v, true
	}
	return nil, false
}

func mismatch(path, expected string, value any, hint string) error {
	return &TypeMismatchError{
		Path:     path,
		Expected: expected,
		Actual:   describe(value),
		Hint:     hint,
	}
}

// describe names the runtime kind of a raw value
func describe(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case *big.Int:
		return "bigint"
	case []any:
		return "list"
	case map[string]any:
		if isSplitInteger(v) {
			return "object{low, high}"
		}
		return "map"
	case dbtype.Node, *dbtype.Node:
		return "node"
	case dbtype.Relationship, *dbtype.Relationship:
		return "relationship"
	case dbtype.Path, *dbtype.Path:
		return "path"
	case dbtype.Date:
		return "date"
	case time.Time:
		return "datetime"
	case dbtype.LocalDateTime:
		return "localdatetime"
	case dbtype.Time:
		return "time"
	case dbtype.LocalTime:
		return "localtime"
	case dbtype.Duration:
		return "duration"
	case dbtype.Point2D, dbtype.Point3D, *dbtype.Point2D, *dbtype.Point3D:
		return "point"
	}
	if isNumber(value) {
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func isSplitInteger(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 2 {
		return false
	}
	_, low := m["low"]
	_, high := m["high"]
	return low && high
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	}
	return 0, false
}

func toNumber(value any, path string) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case *big.Int:
		if !v.IsInt64() {
			return nil, mismatch(path, "number", value, "big integer does not fit in int64")
		}
		return v.Int64(), nil
	}
	if i, ok := toInt64(value); ok {
		return i, nil
	}
	return nil, mismatch(path, "number", value, "integer does not fit in int64")
}

// TemporalOptions configures the temporal rules
type TemporalOptions struct {
	// Stringify converts values to their ISO-8601 form
	Stringify bool
}

// temporal builds a rule accepting values for which accept reports true;
// iso renders the accepted value when Stringify is set
func temporal(kind string, opts TemporalOptions, accept func(any) bool, iso func(any) string) Rule {
	rule := Rule{
		Kind: kind,
		Validate: func(value any, path string) error {
			if !accept(value) {
				return mismatch(path, kind, value, "")
			}
			return nil
		},
	}
	if opts.Stringify {
		rule.Convert = func(value any, path string) (any, error) {
			return iso(value), nil
		}
	}
	return rule
}

func stringer(value any) string {
	return value.(fmt.Stringer).String()
}

// AsDate returns a rule that accepts dates
func AsDate(opts TemporalOptions) Rule {
	return temporal("date", opts, func(v any) bool {
		_, ok := v.(dbtype.Date)
		return ok
	}, stringer)
}

// AsDateTime returns a rule that accepts zoned date-times, which the driver
// returns as time.Time
func AsDateTime(opts TemporalOptions) Rule {
	return temporal("datetime", opts, func(v any) bool {
		_, ok := v.(time.Time)
		return ok
	}, func(v any) string {
		return v.(time.Time).Format(time.RFC3339Nano)
	})
}

// AsLocalDateTime returns a rule that accepts local date-times
func AsLocalDateTime(opts TemporalOptions) Rule {
	return temporal("localdatetime", opts, func(v any) bool {
		_, ok := v.(dbtype.LocalDateTime)
		return ok
	}, stringer)
}

// AsTime returns a rule that accepts times with an offset
func AsTime(opts TemporalOptions) Rule {
	return temporal("time", opts, func(v any) bool {
		_, ok := v.(dbtype.Time)
		return ok
	}, stringer)
}

// AsLocalTime returns a rule that accepts local times
func AsLocalTime(opts TemporalOptions) Rule {
	return temporal("localtime", opts, func(v any) bool {
		_, ok := v.(dbtype.LocalTime)
		return ok
	}, stringer)
}

// AsDuration returns a rule that accepts durations
func AsDuration(opts TemporalOptions) Rule {
	return temporal("duration", opts, func(v any) bool {
		_, ok := v.(dbtype.Duration)
		return ok
	}, stringer)
}

// AsPoint returns a rule that accepts 2D and 3D points
func AsPoint() Rule {
	return Rule{
		Kind: "point",
		Validate: func(value any, path string) error {
			switch value.(type) {
			case dbtype.Point2D, dbtype.Point3D, *dbtype.Point2D, *dbtype.Point3D:
				return nil
			}
			return mismatch(path, "point", value, "")
		},
	}
}

// AsPath returns a rule that accepts graph paths
func AsPath() Rule {
	return Rule{
		Kind: "path",
		Validate: func(value any, path string) error {
			switch value.(type) {
			case dbtype.Path, *dbtype.Path:
				return nil
			}
			return mismatch(path, "path", value, "")
		},
	}
}
