package pgvector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Aman-CERP/ctxrank/internal/store"
)

// BuildQuery renders the hybrid statement. Parameters $1..$5 are the query
// vector, query text, alpha, threshold and limit; filter values follow.
// ts_rank_cd normalisation 32 maps the lexical rank into [0,1).
func BuildQuery(table string, vec any, text string, alpha, threshold float64, limit int, filter store.Filter) (string, []any, error) {
	args := []any{vec, text, alpha, threshold, limit}
	where := "TRUE"
	if filter != nil {
		if err := store.ValidateFilter(filter); err != nil {
			return "", nil, err
		}
		var err error
		where, args, err = compileFilter(filter, args)
		if err != nil {
			return "", nil, err
		}
	}

	sql := `
SELECT id, text, metadata, combined FROM (
    SELECT id, text, metadata,
           $3::float8 * GREATEST(0, 1 - (embedding <=> $1::vector))
         + (1 - $3::float8) * ts_rank_cd(to_tsvector('simple', text), plainto_tsquery('simple', $2), 32)
           AS combined
    FROM ` + table + `
    WHERE embedding IS NOT NULL
      AND (` + where + `)
) scored
WHERE combined >= $4
ORDER BY combined DESC, id
LIMIT $5`
	return sql, args, nil
}

// compileFilter turns the filter tree into parameterised jsonb predicates.
// Field names are bound as parameters too.
func compileFilter(f store.Filter, args []any) (string, []any, error) {
	switch n := f.(type) {
	case store.Eq:
		value, err := textValue(n.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter on %q: %w", n.Field, err)
		}
		args = append(args, n.Field, value)
		field := "$" + strconv.Itoa(len(args)-1)
		val := "$" + strconv.Itoa(len(args))
		if _, isString := n.Value.(string); isString {
			// list attributes match on membership
			return fmt.Sprintf("(metadata->>%s = %s OR metadata->%s ? %s)", field, val, field, val), args, nil
		}
		return fmt.Sprintf("metadata->>%s = %s", field, val), args, nil
	case store.And:
		return join(n.Children, " AND ", "TRUE", args)
	case store.Or:
		return join(n.Children, " OR ", "FALSE", args)
	default:
		return "", nil, fmt.Errorf("unknown filter node %T", f)
	}
}

func join(children []store.Filter, op, empty string, args []any) (string, []any, error) {
	if len(children) == 0 {
		return empty, args, nil
	}
	parts := make([]string, len(children))
	for i, c := range children {
		var (
			part string
			err  error
		)
		part, args, err = compileFilter(c, args)
		if err != nil {
			return "", nil, err
		}
		parts[i] = part
	}
	return "(" + strings.Join(parts, op) + ")", args, nil
}

// textValue renders a scalar the way ->> renders the jsonb value.
func textValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
