package query

import (
	"fmt"
	"sort"
)

// Keys combining predicates in a document
const (
	KeyAnd = "$and"
	KeyOr  = "$or"
	KeyNot = "$not"
)

// ParseWhere builds a predicate from a decoded JSON or YAML document:
//
//	{"title": "The Matrix"}                    equality
//	{"born": {"gte": 1960, "lt": 1970}}        comparisons, ANDed
//	{"$or": [{"name": "Keanu"}, {"born": null}]}
//	{"$not": {"title": {"startsWith": "The"}}}
//
// A map value whose keys are not all operator names is compared for equality
// as a whole. An empty document yields a nil predicate.
func ParseWhere(doc map[string]any) (Predicate, error) {
	if len(doc) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts And
	fields := Where{}
	for _, k := range keys {
		v := doc[k]
		switch k {
		case KeyAnd, KeyOr:
			list, err := parseList(k, v)
			if err != nil {
				return nil, err
			}
			if k == KeyAnd {
				parts = append(parts, And(list))
			} else {
				parts = append(parts, Or(list))
			}
		case KeyNot:
			sub, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects an object, got %T", ErrInvalidComparison, k, v)
			}
			p, err := ParseWhere(sub)
			if err != nil {
				return nil, err
			}
			if p != nil {
				parts = append(parts, Not{Predicate: p})
			}
		default:
			conds, err := parseField(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			if len(conds) == 1 {
				fields[k] = conds[0]
				continue
			}
			// several operators on one field
			for _, c := range conds {
				parts = append(parts, Where{k: c})
			}
		}
	}

	if len(fields) > 0 {
		parts = append(And{fields}, parts...)
	}
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	}
	return parts, nil
}

func parseList(key string, v any) ([]Predicate, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a list, got %T", ErrInvalidComparison, key, v)
	}
	out := make([]Predicate, 0, len(items))
	for i, item := range items {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] expects an object, got %T", ErrInvalidComparison, key, i, item)
		}
		p, err := ParseWhere(sub)
		if err != nil {
			return nil, err
		}
		if p == nil {
			// an empty object matches every node
			p = And{}
		}
		out = append(out, p)
	}
	return out, nil
}

func parseField(v any) ([]any, error) {
	ops, ok := v.(map[string]any)
	if !ok || len(ops) == 0 {
		return []any{v}, nil
	}
	for name := range ops {
		if _, err := ParseOperator(name); err != nil {
			// a map literal, not an operator object
			return []any{v}, nil
		}
	}

	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, name := range names {
		op, _ := ParseOperator(name)
		arg := ops[name]
		switch op {
		case OpIsNull, OpIsNotNull:
			out = append(out, Comparison{Op: op})
		case OpIn:
			list, ok := arg.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: in expects a list, got %T", ErrInvalidComparison, arg)
			}
			out = append(out, Comparison{Op: op, Value: list})
		default:
			out = append(out, Comparison{Op: op, Value: arg})
		}
	}
	return out, nil
}
