// Package store defines the boundary between the ranking engine and the
// vector index it reads from, plus an in-process hybrid index (bleve BM25
// and an HNSW vector graph) used for local corpora and tests.
package store

import (
	"context"
	"fmt"
)

// Retrieval defaults shared by every VectorIndex implementation.
const (
	// DefaultAlpha weights vector similarity against lexical relevance:
	// combined = Alpha*vector + (1-Alpha)*bm25.
	DefaultAlpha = 0.6

	// DefaultScoreThreshold drops hits whose combined score is below it.
	DefaultScoreThreshold = 0.25

	// DefaultTopK over-fetches so merging has material to stitch.
	DefaultTopK = 30
)

// Query is one hybrid retrieval request.
type Query struct {
	Text      string
	Filter    Filter // nil matches everything
	TopK      int
	Alpha     float64
	Threshold float64
}

// RawHit is a single result as returned by an index, before decoding.
// Distance uses the cosine convention: 0 identical, 2 opposite.
type RawHit struct {
	ID       string
	Text     string
	Distance float64
	Metadata map[string]any
}

// VectorIndex is the only capability the engine needs from an index.
type VectorIndex interface {
	Query(ctx context.Context, q Query) ([]RawHit, error)
}

// Document is a unit of text handed to the lexical index.
type Document struct {
	ID      string
	Content string
}

// BM25Result is a single lexical match.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// BM25Index provides keyword search.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Delete(ctx context.Context, docIDs []string) error
	Count() int
	Close() error
}

// VectorResult is a single nearest-neighbour match.
type VectorResult struct {
	ID       string
	Distance float32 // 0-2 for cosine
	Score    float32 // 1 - Distance/2
}

// VectorStoreConfig configures the HNSW graph.
type VectorStoreConfig struct {
	Dimensions int

	// Metric is "cos" or "l2" (default "cos").
	Metric string

	// M is max connections per layer (default 16).
	M int

	// EfSearch is the query-time search width (default 20).
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the given dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   64,
	}
}

// VectorStore provides approximate nearest-neighbour search.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	Contains(id string) bool
	Count() int
	Close() error
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
