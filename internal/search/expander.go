package search

import (
	"strings"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

// QueryExpander appends pairing-table suffixes to a query.
type QueryExpander struct {
	pairings []Pairing
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithPairings replaces the default pairing table.
func WithPairings(p []Pairing) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.pairings = append([]Pairing(nil), p...)
	}
}

// WithExtraPairings appends pairings after the defaults.
func WithExtraPairings(p ...Pairing) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.pairings = append(e.pairings, p...)
	}
}

// NewQueryExpander creates an expander with DefaultPairings.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{pairings: append([]Pairing(nil), DefaultPairings...)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns query with the suffix of every matching pairing appended.
// Without a content type nothing is appended.
func (e *QueryExpander) Expand(query string, keywords []string, contentType *chunk.ChunkType) string {
	if contentType == nil {
		return query
	}

	intent := chunk.Intent{Keywords: keywords}
	seen := make(map[string]struct{})
	var sb strings.Builder
	sb.WriteString(query)

	for _, p := range e.pairings {
		if p.ContentType != *contentType || !intent.HasKeyword(p.Keyword) {
			continue
		}
		if _, dup := seen[p.Suffix]; dup {
			continue
		}
		seen[p.Suffix] = struct{}{}
		sb.WriteByte(' ')
		sb.WriteString(p.Suffix)
	}
	return sb.String()
}
