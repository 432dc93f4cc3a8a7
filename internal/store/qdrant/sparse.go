package qdrant

import (
	"hash/fnv"
	"slices"
	"strings"

	"github.com/Aman-CERP/ctxrank/internal/store"
)

// SparseVector is a term-frequency vector keyed by hashed token.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// SparseVectorizer hashes folded, stop-word-filtered tokens into sparse
// indices. Collisions just add up.
type SparseVectorizer struct {
	stopWords map[string]struct{}
}

// NewSparseVectorizer uses the default stop word list.
func NewSparseVectorizer() *SparseVectorizer {
	folded := make([]string, len(store.DefaultStopWords))
	for i, w := range store.DefaultStopWords {
		folded[i] = store.FoldAccents(w)
	}
	return &SparseVectorizer{stopWords: store.BuildStopWordMap(folded)}
}

// Vectorize returns indices in ascending order.
func (v *SparseVectorizer) Vectorize(text string) SparseVector {
	tokens := store.FilterStopWords(store.TokenizeText(store.FoldAccents(strings.ToLower(text))), v.stopWords)
	if len(tokens) == 0 {
		return SparseVector{}
	}

	tf := make(map[uint32]float32, len(tokens))
	for _, t := range tokens {
		tf[hashToken(t)]++
	}
	out := SparseVector{
		Indices: make([]uint32, 0, len(tf)),
		Values:  make([]float32, 0, len(tf)),
	}
	for i := range tf {
		out.Indices = append(out.Indices, i)
	}
	slices.Sort(out.Indices)
	for _, i := range out.Indices {
		out.Values = append(out.Values, tf[i])
	}
	return out
}

func hashToken(t string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(t))
	return h.Sum32()
}
