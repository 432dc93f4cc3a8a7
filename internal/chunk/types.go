// Package chunk defines the retrieval unit the ranking engine works on:
// a contiguous slice of a source document plus the metadata the indexer
// attached to it.
package chunk

import (
	"slices"
	"time"
)

// ChunkType classifies the kind of content a chunk carries.
type ChunkType string

const (
	TypeProse        ChunkType = "prose"
	TypePoem         ChunkType = "poem"
	TypeSection      ChunkType = "section"
	TypeConversation ChunkType = "conversation"
)

// ParseChunkType maps an index value to a ChunkType.
// Unknown values fall back to prose.
func ParseChunkType(s string) (ChunkType, bool) {
	switch ChunkType(s) {
	case TypeProse, TypePoem, TypeSection, TypeConversation:
		return ChunkType(s), true
	default:
		return TypeProse, false
	}
}

// Metadata is the per-chunk contract shared with the indexing side.
type Metadata struct {
	DocumentID   string
	ChunkType    ChunkType
	LineStart    uint32
	LineEnd      uint32 // Inclusive, always >= LineStart
	SectionTitle *string
	Keywords     string // Comma or space separated, as indexed
	IsComplete   bool
	MergedChunks uint32 // 1 for an original hit
	CreatedAt    *time.Time

	Filename string // Display name for citations, defaults to DocumentID
	Page     uint32 // 0 when unknown
}

// Title returns the section title or "".
func (m Metadata) Title() string {
	if m.SectionTitle == nil {
		return ""
	}
	return *m.SectionTitle
}

// Span returns the number of lines covered.
func (m Metadata) Span() uint32 {
	return m.LineEnd - m.LineStart
}

// Chunk is a single hit: text, distance from the query, metadata.
// Distance follows the index convention: lower is closer, range [0, 2].
type Chunk struct {
	ID       string
	Text     string
	Distance float64
	Metadata Metadata
}

// Clone returns a deep copy, so cached values cannot be mutated through
// a shared pointer.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Metadata.SectionTitle != nil {
		title := *c.Metadata.SectionTitle
		out.Metadata.SectionTitle = &title
	}
	if c.Metadata.CreatedAt != nil {
		ts := *c.Metadata.CreatedAt
		out.Metadata.CreatedAt = &ts
	}
	return out
}

// Signals is the per-signal breakdown behind a semantic score.
// Every value is in [0, 1]; lower is better.
type Signals struct {
	Vector       float64 `json:"vector"`
	Completeness float64 `json:"completeness"`
	Keyword      float64 `json:"keyword"`
	Recency      float64 `json:"recency"`
	Diversity    float64 `json:"diversity"`
	ContentType  float64 `json:"content_type"`
}

// ScoredChunk is a chunk re-ranked by the semantic scorer.
// SemanticScore is in [0, 1], lower is more relevant.
type ScoredChunk struct {
	Chunk
	SemanticScore float64
	Signals       Signals
}

// Clone returns a deep copy.
func (s ScoredChunk) Clone() ScoredChunk {
	s.Chunk = s.Chunk.Clone()
	return s
}

// SourceRef is a UI-facing citation derived from a ranked chunk.
type SourceRef struct {
	DocumentID  string  `json:"document_id"`
	Filename    string  `json:"filename"`
	Page        uint32  `json:"page,omitempty"`
	Section     string  `json:"section,omitempty"`
	Excerpt     string  `json:"excerpt"`
	Highlighted string  `json:"highlighted"`
	Score       float64 `json:"score"` // Relevance, higher is better
}

// Intent is the structured reading of a user query.
type Intent struct {
	WantsIntegralCitation bool
	ContentType           *ChunkType
	Keywords              []string // Sorted, no duplicates
	ExpandedQuery         string
}

// HasKeyword reports whether kw is one of the intent keywords.
func (i Intent) HasKeyword(kw string) bool {
	_, found := slices.BinarySearch(i.Keywords, kw)
	return found
}

// CloneScored deep-copies a ranked slice.
func CloneScored(in []ScoredChunk) []ScoredChunk {
	if in == nil {
		return nil
	}
	out := make([]ScoredChunk, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
