package store

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Filter is a pre-filter over hit metadata: a tree of And, Or and Eq nodes.
// A nil Filter matches everything.
type Filter interface {
	// String is canonical: equivalent trees render identically, so it can
	// be used in cache keys.
	String() string

	// Match evaluates the filter against a metadata map.
	Match(attrs map[string]any) bool

	filter()
}

// Eq matches when attrs[Field] equals Value. Numbers compare by value
// regardless of their Go type; a list attribute matches if it contains Value.
type Eq struct {
	Field string
	Value any
}

// And matches when every child matches. An empty And matches everything.
type And struct {
	Children []Filter
}

// Or matches when at least one child matches. An empty Or matches nothing.
type Or struct {
	Children []Filter
}

func (Eq) filter()  {}
func (And) filter() {}
func (Or) filter()  {}

var (
	_ Filter = Eq{}
	_ Filter = And{}
	_ Filter = Or{}
)

// AllOf joins filters with And, skipping nils. Returns nil when nothing is
// left and the lone filter when only one is.
func AllOf(filters ...Filter) Filter {
	kept := compact(filters)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Children: kept}
	}
}

// AnyOf joins filters with Or, skipping nils. Returns nil when nothing is left.
func AnyOf(filters ...Filter) Filter {
	kept := compact(filters)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return Or{Children: kept}
	}
}

func compact(filters []Filter) []Filter {
	kept := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			kept = append(kept, f)
		}
	}
	return kept
}

// FilterString renders f canonically, with "" for nil.
func FilterString(f Filter) string {
	if f == nil {
		return ""
	}
	return f.String()
}

// MatchFilter evaluates f, treating nil as match-all.
func MatchFilter(f Filter, attrs map[string]any) bool {
	if f == nil {
		return true
	}
	return f.Match(attrs)
}

// ValidateFilter rejects Eq nodes without a field and unsupported value types.
func ValidateFilter(f Filter) error {
	switch n := f.(type) {
	case nil:
		return nil
	case Eq:
		if strings.TrimSpace(n.Field) == "" {
			return fmt.Errorf("eq filter has empty field")
		}
		if _, ok := canonicalValue(n.Value); !ok {
			return fmt.Errorf("eq filter on %q: unsupported value type %T", n.Field, n.Value)
		}
		return nil
	case And:
		return validateChildren(n.Children)
	case Or:
		return validateChildren(n.Children)
	default:
		return fmt.Errorf("unknown filter node %T", f)
	}
}

func validateChildren(children []Filter) error {
	for _, c := range children {
		if c == nil {
			return fmt.Errorf("nil filter child")
		}
		if err := ValidateFilter(c); err != nil {
			return err
		}
	}
	return nil
}

func (e Eq) String() string {
	v, ok := canonicalValue(e.Value)
	if !ok {
		v = strconv.Quote(fmt.Sprint(e.Value))
	}
	return "eq(" + strconv.Quote(e.Field) + "," + v + ")"
}

func (a And) String() string { return joinCanonical("and", a.Children) }
func (o Or) String() string  { return joinCanonical("or", o.Children) }

// joinCanonical sorts rendered children so operand order does not matter.
func joinCanonical(op string, children []Filter) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = FilterString(c)
	}
	slices.Sort(parts)
	return op + "(" + strings.Join(parts, ",") + ")"
}

func (e Eq) Match(attrs map[string]any) bool {
	got, ok := attrs[e.Field]
	if !ok || got == nil {
		return false
	}
	switch list := got.(type) {
	case []string:
		for _, item := range list {
			if valuesEqual(item, e.Value) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range list {
			if valuesEqual(item, e.Value) {
				return true
			}
		}
		return false
	}
	return valuesEqual(got, e.Value)
}

func (a And) Match(attrs map[string]any) bool {
	for _, c := range a.Children {
		if !MatchFilter(c, attrs) {
			return false
		}
	}
	return true
}

func (o Or) Match(attrs map[string]any) bool {
	for _, c := range o.Children {
		if MatchFilter(c, attrs) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	ca, okA := canonicalValue(a)
	cb, okB := canonicalValue(b)
	return okA && okB && ca == cb
}

// canonicalValue renders scalars so that 42, int64(42) and 42.0 agree.
func canonicalValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 64), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	default:
		return "", false
	}
}
