// Package search turns a user query and the hits of a vector index into a
// ranked, budget-bounded context block for prompt injection, plus the
// citations shown alongside the answer.
//
// Stages run in a fixed order: intent parsing, cache lookup, retrieval on
// a miss, merging of adjacent chunks, semantic scoring, formatting. Only
// retrieval performs I/O; the other stages are pure functions.
package search

import (
	"time"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
	"github.com/Aman-CERP/ctxrank/internal/store"
)

// Pipeline defaults.
const (
	// DefaultMergeTolerance is the largest line gap bridged when stitching
	// chunks of the same document.
	DefaultMergeTolerance uint32 = 30

	// DefaultCacheTTL is how long a ranked result stays valid.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultCacheCapacity bounds the number of cached results.
	DefaultCacheCapacity = 1000

	// DefaultExcerptChars is the target length of a citation excerpt.
	DefaultExcerptChars = 320
)

// CacheEntry is one memoized merge+score result. It is never mutated after
// Set; Get hands out deep copies.
type CacheEntry struct {
	Chunks    []chunk.ScoredChunk
	Sources   []chunk.SourceRef
	CreatedAt time.Time
}

// RetrievalConfig carries the knobs passed to the index on each query.
type RetrievalConfig struct {
	TopK      int
	Alpha     float64
	Threshold float64
}

// DefaultRetrievalConfig returns the documented retrieval defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:      store.DefaultTopK,
		Alpha:     store.DefaultAlpha,
		Threshold: store.DefaultScoreThreshold,
	}
}
