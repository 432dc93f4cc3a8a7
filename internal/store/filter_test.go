package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_String_IsCanonical(t *testing.T) {
	a := AllOf(Eq{Field: "agent_scope", Value: "poet"}, Eq{Field: "document_id", Value: "42"})
	b := AllOf(Eq{Field: "document_id", Value: "42"}, Eq{Field: "agent_scope", Value: "poet"})

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, `and(eq("agent_scope","poet"),eq("document_id","42"))`, a.String())
}

func TestFilter_String_DistinguishesTypes(t *testing.T) {
	assert.NotEqual(t, Eq{Field: "page", Value: 3}.String(), Eq{Field: "page", Value: "3"}.String())
	assert.Equal(t, Eq{Field: "page", Value: 3}.String(), Eq{Field: "page", Value: 3.0}.String())
}

func TestFilter_Match(t *testing.T) {
	attrs := map[string]any{
		"document_id": "42",
		"page":        float64(3),
		"is_complete": true,
		"tags":        []any{"poem", "origin"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"nil matches all", nil, true},
		{"eq string", Eq{Field: "document_id", Value: "42"}, true},
		{"eq string mismatch", Eq{Field: "document_id", Value: "7"}, false},
		{"eq number across types", Eq{Field: "page", Value: 3}, true},
		{"eq bool", Eq{Field: "is_complete", Value: true}, true},
		{"eq missing field", Eq{Field: "agent_scope", Value: "x"}, false},
		{"eq list contains", Eq{Field: "tags", Value: "origin"}, true},
		{"and all", And{Children: []Filter{Eq{Field: "document_id", Value: "42"}, Eq{Field: "page", Value: 3}}}, true},
		{"and one fails", And{Children: []Filter{Eq{Field: "document_id", Value: "42"}, Eq{Field: "page", Value: 4}}}, false},
		{"or one matches", Or{Children: []Filter{Eq{Field: "document_id", Value: "1"}, Eq{Field: "document_id", Value: "42"}}}, true},
		{"empty and", And{}, true},
		{"empty or", Or{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchFilter(tt.filter, attrs))
		})
	}
}

func TestAllOfAnyOf_DropNils(t *testing.T) {
	eq := Eq{Field: "a", Value: "b"}

	assert.Nil(t, AllOf(nil, nil))
	assert.Equal(t, eq, AllOf(nil, eq))
	assert.Nil(t, AnyOf())
	assert.Equal(t, eq, AnyOf(eq, nil))
	assert.IsType(t, Or{}, AnyOf(eq, eq))
	assert.Empty(t, FilterString(nil))
}

func TestValidateFilter(t *testing.T) {
	assert.NoError(t, ValidateFilter(nil))
	assert.NoError(t, ValidateFilter(AllOf(Eq{Field: "a", Value: 1}, AnyOf(Eq{Field: "b", Value: true}, Eq{Field: "c", Value: "x"}))))
	assert.Error(t, ValidateFilter(Eq{Field: " ", Value: "x"}))
	assert.Error(t, ValidateFilter(Eq{Field: "a", Value: []int{1}}))
	assert.Error(t, ValidateFilter(And{Children: []Filter{nil}}))
}
