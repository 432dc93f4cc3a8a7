package ctxrank

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Aman-CERP/ctxrank/internal/store"
)

// ParseFilter turns "field=value" pairs into a filter requiring all of
// them. Values that parse as a bool or an integer are typed, everything
// else is a string; quote a value ("line_start=\"10\"") to keep it a
// string. No pairs means no filter.
func ParseFilter(pairs []string) (Filter, error) {
	filters := make([]Filter, 0, len(pairs))
	for _, pair := range pairs {
		field, raw, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q: want field=value", pair)
		}
		filters = append(filters, store.Eq{Field: field, Value: parseValue(strings.TrimSpace(raw))})
	}
	return store.AllOf(filters...), nil
}

func parseValue(raw string) any {
	if unq, err := strconv.Unquote(raw); err == nil {
		return unq
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
