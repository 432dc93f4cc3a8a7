package search

import (
	"slices"
	"strings"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
	"github.com/Aman-CERP/ctxrank/internal/store"
)

// IntentParser reads a raw query into a chunk.Intent. It is immutable after
// construction and safe for concurrent use.
type IntentParser struct {
	stopWords map[string]struct{}
	expander  *QueryExpander
}

// IntentParserOption configures an IntentParser.
type IntentParserOption func(*IntentParser)

// WithExpander replaces the pairing expander.
func WithExpander(e *QueryExpander) IntentParserOption {
	return func(p *IntentParser) {
		if e != nil {
			p.expander = e
		}
	}
}

// WithExtraStopWords drops more words from keyword extraction.
func WithExtraStopWords(words ...string) IntentParserOption {
	return func(p *IntentParser) {
		for _, w := range words {
			p.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// NewIntentParser creates a parser with the French/English stop words and
// the default pairing table.
func NewIntentParser(opts ...IntentParserOption) *IntentParser {
	p := &IntentParser{
		stopWords: store.BuildStopWordMap(append(slices.Clone(store.DefaultStopWords), RequestStopWords...)),
		expander:  NewQueryExpander(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultIntentParser = NewIntentParser()

// ParseIntent parses query with the default parser.
func ParseIntent(query string) chunk.Intent {
	return defaultIntentParser.Parse(query)
}

// Parse never fails: unmatched input yields an Intent with every field at
// its zero value and ExpandedQuery equal to query.
func (p *IntentParser) Parse(query string) chunk.Intent {
	lowered := strings.ToLower(query)

	intent := chunk.Intent{
		WantsIntegralCitation: matchesIntegralCitation(lowered),
		ContentType:           detectContentType(lowered),
		Keywords:              p.extractKeywords(lowered),
	}
	intent.ExpandedQuery = p.expander.Expand(query, intent.Keywords, intent.ContentType)
	return intent
}

// extractKeywords returns the sorted, de-duplicated non-stop-word runs of
// three or more letters.
func (p *IntentParser) extractKeywords(lowered string) []string {
	words := keywordPattern.FindAllString(lowered, -1)
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := p.stopWords[w]; !stop {
			keywords = append(keywords, w)
		}
	}
	slices.Sort(keywords)
	return slices.Compact(keywords)
}
