package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

// Embedder is the subset of embed.Embedder the index adapters need.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Record is one chunk as stored in a corpus.
type Record struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// candidateMultiplier over-fetches from each side so filtering and the
// threshold still leave TopK hits.
const candidateMultiplier = 4

// LocalIndex is an in-process VectorIndex: bleve BM25 on one side, an HNSW
// cosine graph on the other, blended with Query.Alpha.
type LocalIndex struct {
	embedder Embedder
	bm25     BM25Index
	vectors  VectorStore
	logger   *slog.Logger

	mu      sync.RWMutex
	records map[string]Record
}

// LocalIndexOption configures a LocalIndex.
type LocalIndexOption func(*LocalIndex)

// WithLocalLogger sets the logger.
func WithLocalLogger(l *slog.Logger) LocalIndexOption {
	return func(idx *LocalIndex) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewLocalIndex creates an empty index that embeds text with embedder.
func NewLocalIndex(embedder Embedder, opts ...LocalIndexOption) (*LocalIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("local index: nil embedder")
	}
	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil, fmt.Errorf("local index: embedder reports %d dimensions", dims)
	}

	bm25, err := NewBleveBM25Index()
	if err != nil {
		return nil, err
	}
	vectors, err := NewHNSWStore(DefaultVectorStoreConfig(dims))
	if err != nil {
		_ = bm25.Close()
		return nil, err
	}

	idx := &LocalIndex{
		embedder: embedder,
		bm25:     bm25,
		vectors:  vectors,
		logger:   slog.Default(),
		records:  make(map[string]Record),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Add indexes records on both sides. Records without a document_id are
// rejected as a whole batch.
func (l *LocalIndex) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	texts := make([]string, len(records))
	docs := make([]*Document, len(records))
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record %d has no id", i)
		}
		if _, err := DecodeMetadata(r.Metadata); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		ids[i] = r.ID
		texts[i] = r.Text
		docs[i] = &Document{ID: r.ID, Content: r.Text}
	}

	vecs, err := l.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed records: %w", err)
	}
	if err := l.vectors.Add(ctx, ids, vecs); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	if err := l.bm25.Index(ctx, docs); err != nil {
		return fmt.Errorf("index text: %w", err)
	}

	l.mu.Lock()
	for _, r := range records {
		l.records[r.ID] = r
	}
	l.mu.Unlock()
	return nil
}

// Len returns the number of indexed records.
func (l *LocalIndex) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

type candidate struct {
	vecSim float64
	bm25   float64
}

// Query runs BM25 and vector search concurrently and blends them:
// combined = Alpha*cosineSim + (1-Alpha)*bm25/maxBM25. Hits under
// Threshold or failing the filter are dropped. Distance is reported as
// 2*(1-combined) so it stays on the cosine scale.
func (l *LocalIndex) Query(ctx context.Context, q Query) ([]RawHit, error) {
	if q.TopK <= 0 {
		return []RawHit{}, nil
	}
	alpha := q.Alpha
	if alpha < 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	fetch := q.TopK * candidateMultiplier

	start := time.Now()
	var (
		bm25Results []*BM25Result
		vecResults  []*VectorResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bm25Results, err = l.bm25.Search(gctx, q.Text, fetch)
		if err != nil {
			return fmt.Errorf("bm25 search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		vec, err := l.embedder.Embed(gctx, q.Text)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		vecResults, err = l.vectors.Search(gctx, vec, fetch)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make(map[string]*candidate, len(bm25Results)+len(vecResults))
	var maxBM25 float64
	for _, r := range bm25Results {
		maxBM25 = max(maxBM25, r.Score)
	}
	for _, r := range bm25Results {
		c := getCandidate(candidates, r.DocID)
		if maxBM25 > 0 {
			c.bm25 = r.Score / maxBM25
		}
	}
	for _, r := range vecResults {
		// cosine similarity clamped at 0
		getCandidate(candidates, r.ID).vecSim = max(0, 1-float64(r.Distance))
	}

	l.mu.RLock()
	hits := make([]RawHit, 0, len(candidates))
	for id, c := range candidates {
		rec, ok := l.records[id]
		if !ok || !MatchFilter(q.Filter, rec.Metadata) {
			continue
		}
		combined := alpha*c.vecSim + (1-alpha)*c.bm25
		if combined < q.Threshold {
			continue
		}
		hits = append(hits, RawHit{
			ID:       id,
			Text:     rec.Text,
			Distance: 2 * (1 - combined),
			Metadata: rec.Metadata,
		})
	}
	l.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}

	l.logger.Debug("local_index_query",
		slog.Int("bm25_candidates", len(bm25Results)),
		slog.Int("vector_candidates", len(vecResults)),
		slog.Int("hits", len(hits)),
		slog.Duration("duration", time.Since(start)))

	return hits, nil
}

func getCandidate(m map[string]*candidate, id string) *candidate {
	c, ok := m[id]
	if !ok {
		c = &candidate{}
		m[id] = c
	}
	return c
}

// Close releases both indexes.
func (l *LocalIndex) Close() error {
	bErr := l.bm25.Close()
	vErr := l.vectors.Close()
	if bErr != nil {
		return bErr
	}
	return vErr
}

// RecordFromChunk builds a Record from a decoded chunk.
func RecordFromChunk(c chunk.Chunk) Record {
	return Record{ID: c.ID, Text: c.Text, Metadata: EncodeMetadata(c.Metadata)}
}

var _ VectorIndex = (*LocalIndex)(nil)
