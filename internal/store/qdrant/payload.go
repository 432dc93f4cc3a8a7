package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/Aman-CERP/ctxrank/internal/store"
)

// PayloadToMap converts a point payload to plain Go values so it can go
// through store.DecodeMetadata.
func PayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = valueToAny(item)
		}
		return out
	case *qdrant.Value_StructValue:
		return PayloadToMap(kind.StructValue.GetFields())
	default:
		return nil
	}
}

// TranslateFilter maps a store.Filter onto Qdrant conditions: Eq becomes a
// match, And becomes Must, Or becomes Should. Nested nodes are wrapped with
// NewFilterAsCondition.
func TranslateFilter(f store.Filter) (*qdrant.Filter, error) {
	if f == nil {
		return nil, nil
	}
	if err := store.ValidateFilter(f); err != nil {
		return nil, err
	}
	switch n := f.(type) {
	case store.And:
		conds, err := conditions(n.Children)
		if err != nil {
			return nil, err
		}
		return &qdrant.Filter{Must: conds}, nil
	case store.Or:
		if len(n.Children) == 0 {
			// matches nothing
			return &qdrant.Filter{MustNot: []*qdrant.Condition{
				qdrant.NewFilterAsCondition(&qdrant.Filter{}),
			}}, nil
		}
		conds, err := conditions(n.Children)
		if err != nil {
			return nil, err
		}
		return &qdrant.Filter{Should: conds}, nil
	default:
		cond, err := condition(f)
		if err != nil {
			return nil, err
		}
		return &qdrant.Filter{Must: []*qdrant.Condition{cond}}, nil
	}
}

func conditions(children []store.Filter) ([]*qdrant.Condition, error) {
	out := make([]*qdrant.Condition, 0, len(children))
	for _, c := range children {
		cond, err := condition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func condition(f store.Filter) (*qdrant.Condition, error) {
	n, ok := f.(store.Eq)
	if !ok {
		nested, err := TranslateFilter(f)
		if err != nil {
			return nil, err
		}
		return qdrant.NewFilterAsCondition(nested), nil
	}

	switch v := n.Value.(type) {
	case string:
		return qdrant.NewMatch(n.Field, v), nil
	case bool:
		return qdrant.NewMatchBool(n.Field, v), nil
	case int:
		return qdrant.NewMatchInt(n.Field, int64(v)), nil
	case int32:
		return qdrant.NewMatchInt(n.Field, int64(v)), nil
	case int64:
		return qdrant.NewMatchInt(n.Field, v), nil
	case uint32:
		return qdrant.NewMatchInt(n.Field, int64(v)), nil
	case uint64:
		return qdrant.NewMatchInt(n.Field, int64(v)), nil
	case float32:
		return exactRange(n.Field, float64(v)), nil
	case float64:
		return exactRange(n.Field, v), nil
	default:
		return nil, fmt.Errorf("qdrant filter on %q: unsupported value type %T", n.Field, n.Value)
	}
}

func exactRange(field string, v float64) *qdrant.Condition {
	return qdrant.NewRange(field, &qdrant.Range{Gte: qdrant.PtrOf(v), Lte: qdrant.PtrOf(v)})
}
