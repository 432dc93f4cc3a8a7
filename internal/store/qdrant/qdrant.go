// Package qdrant adapts a Qdrant collection with named "dense" and
// "sparse" vectors to store.VectorIndex.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/ctxrank/internal/store"
)

const (
	// DefaultDenseVector and DefaultSparseVector are the vector names the
	// collection is expected to carry.
	DefaultDenseVector  = "dense"
	DefaultSparseVector = "sparse"

	// DefaultTextField is the payload key holding the chunk text.
	DefaultTextField = "text"

	defaultPort         = 6334
	candidateMultiplier = 2
)

// Querier is the subset of *qdrant.Client the index uses.
type Querier interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// Config names the collection and its vectors.
type Config struct {
	Collection   string
	DenseVector  string
	SparseVector string
	TextField    string
}

func (c Config) withDefaults() Config {
	if c.DenseVector == "" {
		c.DenseVector = DefaultDenseVector
	}
	if c.SparseVector == "" {
		c.SparseVector = DefaultSparseVector
	}
	if c.TextField == "" {
		c.TextField = DefaultTextField
	}
	return c
}

// Index queries the dense and sparse vectors concurrently and blends the
// scores client-side the same way store.LocalIndex does.
type Index struct {
	client   Querier
	closer   func() error
	embedder store.Embedder
	sparse   *SparseVectorizer
	cfg      Config
	logger   *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Index) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithSparseVectorizer replaces the hashed term-frequency vectorizer. It
// must match the one used when the collection was written.
func WithSparseVectorizer(v *SparseVectorizer) Option {
	return func(idx *Index) {
		if v != nil {
			idx.sparse = v
		}
	}
}

// New wraps an existing client.
func New(client Querier, embedder store.Embedder, cfg Config, opts ...Option) (*Index, error) {
	if client == nil {
		return nil, fmt.Errorf("qdrant index: nil client")
	}
	if embedder == nil {
		return nil, fmt.Errorf("qdrant index: nil embedder")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant index: collection name is required")
	}
	idx := &Index{
		client:   client,
		embedder: embedder,
		sparse:   NewSparseVectorizer(),
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Dial connects to Qdrant's gRPC endpoint. addr is "host:port"; the port
// defaults to 6334.
func Dial(addr string, embedder store.Embedder, cfg Config, opts ...Option) (*Index, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		portStr = strconv.Itoa(defaultPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant address: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	idx, err := New(client, embedder, cfg, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	idx.closer = client.Close
	return idx, nil
}

// Close closes the client if Dial opened it.
func (idx *Index) Close() error {
	if idx.closer == nil {
		return nil
	}
	return idx.closer()
}

type candidate struct {
	dense   float64
	sparse  float64
	payload map[string]*qdrant.Value
}

// Query implements store.VectorIndex.
func (idx *Index) Query(ctx context.Context, q store.Query) ([]store.RawHit, error) {
	if q.TopK <= 0 {
		return []store.RawHit{}, nil
	}
	alpha := q.Alpha
	if alpha < 0 || alpha > 1 {
		alpha = store.DefaultAlpha
	}
	filter, err := TranslateFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	limit := uint64(q.TopK * candidateMultiplier)

	start := time.Now()
	var densePoints, sparsePoints []*qdrant.ScoredPoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := idx.embedder.Embed(gctx, q.Text)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		densePoints, err = idx.client.Query(gctx, &qdrant.QueryPoints{
			CollectionName: idx.cfg.Collection,
			Query:          qdrant.NewQueryDense(vec),
			Using:          qdrant.PtrOf(idx.cfg.DenseVector),
			Filter:         filter,
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return fmt.Errorf("dense query: %w", err)
		}
		return nil
	})
	sv := idx.sparse.Vectorize(q.Text)
	if len(sv.Indices) > 0 {
		g.Go(func() error {
			var err error
			sparsePoints, err = idx.client.Query(gctx, &qdrant.QueryPoints{
				CollectionName: idx.cfg.Collection,
				Query:          qdrant.NewQuerySparse(sv.Indices, sv.Values),
				Using:          qdrant.PtrOf(idx.cfg.SparseVector),
				Filter:         filter,
				Limit:          qdrant.PtrOf(limit),
				WithPayload:    qdrant.NewWithPayload(true),
			})
			if err != nil {
				return fmt.Errorf("sparse query: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make(map[string]*candidate, len(densePoints)+len(sparsePoints))
	get := func(p *qdrant.ScoredPoint) *candidate {
		id := pointID(p.GetId())
		c, ok := candidates[id]
		if !ok {
			c = &candidate{payload: p.GetPayload()}
			candidates[id] = c
		}
		return c
	}
	for _, p := range densePoints {
		get(p).dense = max(0, float64(p.GetScore()))
	}
	var maxSparse float64
	for _, p := range sparsePoints {
		maxSparse = max(maxSparse, float64(p.GetScore()))
	}
	for _, p := range sparsePoints {
		if maxSparse > 0 {
			get(p).sparse = float64(p.GetScore()) / maxSparse
		}
	}

	hits := make([]store.RawHit, 0, len(candidates))
	for id, c := range candidates {
		combined := alpha*c.dense + (1-alpha)*c.sparse
		if combined < q.Threshold {
			continue
		}
		md := PayloadToMap(c.payload)
		text, _ := md[idx.cfg.TextField].(string)
		delete(md, idx.cfg.TextField)
		hits = append(hits, store.RawHit{
			ID:       id,
			Text:     text,
			Distance: 2 * (1 - combined),
			Metadata: md,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}

	idx.logger.Debug("qdrant_query",
		slog.String("collection", idx.cfg.Collection),
		slog.Int("dense_candidates", len(densePoints)),
		slog.Int("sparse_candidates", len(sparsePoints)),
		slog.Int("hits", len(hits)),
		slog.Duration("duration", time.Since(start)))
	return hits, nil
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

var _ store.VectorIndex = (*Index)(nil)
