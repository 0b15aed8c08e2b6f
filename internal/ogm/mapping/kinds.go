package mapping

import (
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

// ScalarRule returns the rule reading a scalar annotation. Big integers are
// read from native integers too, since the driver decodes every graph integer
// as int64. The second result is false for unknown kinds.
func ScalarRule(a schema.Scalar, number NumberOptions) (Rule, bool) {
	temporal := TemporalOptions{Stringify: a.Stringify}

	var rule Rule
	switch a.Kind {
	case schema.KindString:
		rule = AsString()
	case schema.KindNumber:
		rule = AsNumber(number)
	case schema.KindBoolean:
		rule = AsBoolean()
	case schema.KindBigInt:
		rule = AsBigInt(BigIntOptions{AcceptNumber: true})
	case schema.KindDate:
		rule = AsDate(temporal)
	case schema.KindDateTime:
		rule = AsDateTime(temporal)
	case schema.KindLocalDateTime:
		rule = AsLocalDateTime(temporal)
	case schema.KindTime:
		rule = AsTime(temporal)
	case schema.KindLocalTime:
		rule = AsLocalTime(temporal)
	case schema.KindDuration:
		rule = AsDuration(temporal)
	case schema.KindPoint:
		rule = AsPoint()
	default:
		return Rule{}, false
	}
	rule.Optional = a.Optional
	return rule, true
}
