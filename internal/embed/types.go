// Package embed turns query and corpus text into vectors for the index
// adapters. The ranking engine itself never embeds anything; only the
// VectorIndex implementations in internal/store do.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// StaticDimensions is the embedding dimension of the hash embedder.
	StaticDimensions = 256

	// DefaultTimeout bounds a single remote embedding request.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of texts sent per remote request.
	DefaultBatchSize = 32
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector returns a unit-length copy of v.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
