package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
	ctxerrors "github.com/Aman-CERP/ctxrank/internal/errors"
	"github.com/Aman-CERP/ctxrank/internal/store"
)

// Retriever wraps a VectorIndex with soft-fail semantics: it never returns
// an error. Index failures, cancellation and an open circuit all yield an
// empty slice.
type Retriever struct {
	index   store.VectorIndex
	cfg     RetrievalConfig
	breaker *ctxerrors.CircuitBreaker
	logger  *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithCircuitBreaker replaces the default breaker.
func WithCircuitBreaker(cb *ctxerrors.CircuitBreaker) RetrieverOption {
	return func(r *Retriever) {
		if cb != nil {
			r.breaker = cb
		}
	}
}

// WithRetrieverLogger sets the logger.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRetriever creates a retriever. A non-positive TopK and out-of-range
// Alpha or Threshold take the defaults.
func NewRetriever(index store.VectorIndex, cfg RetrievalConfig, opts ...RetrieverOption) *Retriever {
	def := DefaultRetrievalConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		cfg.Alpha = def.Alpha
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		cfg.Threshold = def.Threshold
	}

	r := &Retriever{
		index:   index,
		cfg:     cfg,
		breaker: ctxerrors.NewCircuitBreaker("vector_index"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Breaker exposes the circuit breaker state for health reporting.
func (r *Retriever) Breaker() *ctxerrors.CircuitBreaker {
	return r.breaker
}

// Retrieve issues one index query. topK <= 0 uses the configured default.
// Hits without a document_id are dropped.
func (r *Retriever) Retrieve(ctx context.Context, expandedQuery string, filter store.Filter, topK int) []chunk.Chunk {
	if strings.TrimSpace(expandedQuery) == "" || r.index == nil {
		return []chunk.Chunk{}
	}
	if err := ctx.Err(); err != nil {
		r.logger.Debug("retrieval skipped, request cancelled", slog.String("error", err.Error()))
		return []chunk.Chunk{}
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	q := store.Query{
		Text:      expandedQuery,
		Filter:    filter,
		TopK:      topK,
		Alpha:     r.cfg.Alpha,
		Threshold: r.cfg.Threshold,
	}

	start := time.Now()
	hits, err := ctxerrors.CircuitExecute(r.breaker, func() ([]store.RawHit, error) {
		return r.index.Query(ctx, q)
	})
	if err != nil {
		r.logFailure(err, time.Since(start))
		return []chunk.Chunk{}
	}

	chunks := make([]chunk.Chunk, 0, len(hits))
	for _, hit := range hits {
		c, err := store.HitToChunk(hit)
		if err != nil {
			r.logger.Debug("dropping malformed hit",
				slog.String("id", hit.ID),
				slog.String("error", err.Error()))
			continue
		}
		chunks = append(chunks, c)
	}

	if len(chunks) == 0 {
		r.logger.Warn("retrieval returned no hits",
			slog.Int("top_k", topK),
			slog.Duration("duration", time.Since(start)))
	} else {
		r.logger.Debug("retrieval complete",
			slog.Int("hits", len(chunks)),
			slog.Int("dropped", len(hits)-len(chunks)),
			slog.Duration("duration", time.Since(start)))
	}
	return chunks
}

func (r *Retriever) logFailure(err error, elapsed time.Duration) {
	switch {
	case errors.Is(err, ctxerrors.ErrCircuitOpen):
		r.logger.Warn("retrieval skipped, circuit open",
			slog.String("breaker", r.breaker.Name()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.logger.Warn("retrieval cancelled",
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed))
	default:
		wrapped := ctxerrors.IndexUnavailable("vector index query failed", err)
		r.logger.Warn("retrieval failed, continuing without context",
			append(ctxerrors.LogAttrs(wrapped), slog.Duration("duration", elapsed))...)
	}
}
