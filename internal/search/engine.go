package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
	ctxerrors "github.com/Aman-CERP/ctxrank/internal/errors"
	"github.com/Aman-CERP/ctxrank/internal/store"
	"github.com/Aman-CERP/ctxrank/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// BuildRequest is one call of the context pipeline.
type BuildRequest struct {
	Query       string
	Filter      store.Filter
	AgentScope  string
	DocumentIDs []string `validate:"dive,required"`
	MaxBlocks   int      `validate:"min=1"`
	MaxChars    int      `validate:"min=1"`
}

// BuildResult is the rendered context and its citations.
type BuildResult struct {
	ContextText string
	Sources     []chunk.SourceRef
	Intent      chunk.Intent

	// Ranked is the full merged and scored set the context was rendered
	// from, before the block and character limits.
	Ranked []chunk.ScoredChunk

	CacheHit  bool
	RequestID string
}

// EngineStats reports the engine's shared state.
type EngineStats struct {
	Cache        CacheStats `json:"cache"`
	BreakerState string     `json:"breaker_state"`
}

// Engine runs parse, cache lookup, retrieval, merge, score and format for
// each request. Safe for concurrent use; the cache is the only shared
// mutable state.
type Engine struct {
	index     store.VectorIndex
	retriever *Retriever
	cache     *ResultCache
	formatter *Formatter
	parser    *IntentParser
	scorer    ScorerConfig
	tolerance uint32
	metrics   *telemetry.QueryMetrics
	logger    *slog.Logger
	now       func() time.Time
	validate  *validator.Validate
	inflight  singleflight.Group

	retrieval RetrievalConfig
	breaker   *ctxerrors.CircuitBreaker
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithCache replaces the default result cache.
func WithCache(c *ResultCache) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithFormatter replaces the default formatter.
func WithFormatter(f *Formatter) EngineOption {
	return func(e *Engine) {
		if f != nil {
			e.formatter = f
		}
	}
}

// WithIntentParser replaces the default parser.
func WithIntentParser(p *IntentParser) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.parser = p
		}
	}
}

// WithScorerConfig sets the scorer configuration.
func WithScorerConfig(cfg ScorerConfig) EngineOption {
	return func(e *Engine) {
		e.scorer = cfg
	}
}

// WithMergeTolerance sets the line gap bridged by the merger.
func WithMergeTolerance(lines uint32) EngineOption {
	return func(e *Engine) {
		e.tolerance = lines
	}
}

// WithRetrievalConfig sets top-k, alpha and threshold for index queries.
func WithRetrievalConfig(cfg RetrievalConfig) EngineOption {
	return func(e *Engine) {
		e.retrieval = cfg
	}
}

// WithBreaker sets the circuit breaker guarding the index.
func WithBreaker(cb *ctxerrors.CircuitBreaker) EngineOption {
	return func(e *Engine) {
		e.breaker = cb
	}
}

// WithMetrics records a telemetry event per request.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEngineClock injects the "now" used for recency scoring.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine reading from index.
func NewEngine(index store.VectorIndex, opts ...EngineOption) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: vector index is required", ErrNilDependency)
	}

	e := &Engine{
		index:     index,
		formatter: NewFormatter(),
		parser:    NewIntentParser(),
		scorer:    DefaultScorerConfig(),
		tolerance: DefaultMergeTolerance,
		logger:    slog.Default(),
		now:       time.Now,
		validate:  validator.New(),
		retrieval: DefaultRetrievalConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		var cacheOpts []CacheOption
		if e.metrics != nil {
			cacheOpts = append(cacheOpts, WithCacheObserver(e.metrics))
		}
		e.cache = NewResultCache(DefaultCacheCapacity, cacheOpts...)
	}

	retrieverOpts := []RetrieverOption{WithRetrieverLogger(e.logger)}
	if e.breaker != nil {
		retrieverOpts = append(retrieverOpts, WithCircuitBreaker(e.breaker))
	}
	e.retriever = NewRetriever(index, e.retrieval, retrieverOpts...)
	return e, nil
}

// BuildContext runs the pipeline. The only error is a rejected request;
// every runtime failure degrades to an empty context.
func (e *Engine) BuildContext(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	requestID := uuid.NewString()
	logger := e.logger.With(slog.String("request_id", requestID))

	if strings.TrimSpace(req.Query) == "" {
		return &BuildResult{
			Sources:   []chunk.SourceRef{},
			Ranked:    []chunk.ScoredChunk{},
			RequestID: requestID,
		}, nil
	}

	intent := e.parser.Parse(req.Query)
	key := CacheKey(req.Query, req.Filter, req.AgentScope, req.DocumentIDs)

	entry, hit := e.cache.Get(key)
	if !hit {
		entry = e.rank(ctx, key, intent, EffectiveFilter(req), logger)
	}

	text, sources := e.formatter.Render(entry.Chunks, entry.Sources, req.MaxBlocks, req.MaxChars)
	result := &BuildResult{
		ContextText: text,
		Sources:     sources,
		Intent:      intent,
		Ranked:      entry.Chunks,
		CacheHit:    hit,
		RequestID:   requestID,
	}

	elapsed := time.Since(start)
	e.record(req.Query, intent, len(sources), hit, elapsed)
	logger.Info("context_built",
		slog.Bool("cache_hit", hit),
		slog.Int("ranked", len(entry.Chunks)),
		slog.Int("blocks", len(sources)),
		slog.Int("chars", len([]rune(text))),
		slog.Bool("integral_citation", intent.WantsIntegralCitation),
		slog.Duration("duration", elapsed))
	return result, nil
}

// rank fills a cache miss. Concurrent misses on the same key share one
// retrieval; only non-empty results from an uncancelled request are stored.
func (e *Engine) rank(ctx context.Context, key string, intent chunk.Intent, filter store.Filter, logger *slog.Logger) CacheEntry {
	v, _, shared := e.inflight.Do(key, func() (any, error) {
		hits := e.retriever.Retrieve(ctx, intent.ExpandedQuery, filter, 0)
		merged := MergeChunks(hits, e.tolerance)
		ranked := ScoreChunks(merged, intent, nil, e.now(), e.scorer)
		sources := e.formatter.Sources(ranked, intent)

		if len(ranked) > 0 && ctx.Err() == nil {
			e.cache.Set(key, ranked, sources)
		}
		logger.Debug("ranked on cache miss",
			slog.Int("hits", len(hits)),
			slog.Int("merged", len(merged)))
		return CacheEntry{Chunks: ranked, Sources: sources, CreatedAt: e.now()}, nil
	})

	entry := v.(CacheEntry)
	if shared {
		return copyEntry(entry)
	}
	return entry
}

// EffectiveFilter combines the caller filter with the agent scope and the
// document selection.
func EffectiveFilter(req BuildRequest) store.Filter {
	var scope, docs store.Filter
	if req.AgentScope != "" {
		scope = store.Eq{Field: store.KeyAgentScope, Value: req.AgentScope}
	}
	if len(req.DocumentIDs) > 0 {
		ids := make([]store.Filter, len(req.DocumentIDs))
		for i, id := range req.DocumentIDs {
			ids[i] = store.Eq{Field: store.KeyDocumentID, Value: id}
		}
		docs = store.AnyOf(ids...)
	}
	return store.AllOf(req.Filter, scope, docs)
}

func (e *Engine) validateRequest(req BuildRequest) error {
	if err := e.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return ctxerrors.ValidationError(
				fmt.Sprintf("%s failed %q (got %v)", first.Field(), first.Tag(), first.Value()), err).
				WithDetail("field", first.Field())
		}
		return ctxerrors.ValidationError("invalid build request", err)
	}
	if err := store.ValidateFilter(req.Filter); err != nil {
		return ctxerrors.New(ctxerrors.ErrCodeInvalidFilter, "invalid filter", err)
	}
	return nil
}

func (e *Engine) record(query string, intent chunk.Intent, results int, cacheHit bool, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   classify(intent),
		ResultCount: results,
		Latency:     latency,
		CacheHit:    cacheHit,
		Timestamp:   e.now(),
	})
}

func classify(intent chunk.Intent) telemetry.QueryType {
	switch {
	case intent.WantsIntegralCitation:
		return telemetry.QueryTypeCitation
	case intent.ContentType != nil:
		return telemetry.QueryTypeTyped
	default:
		return telemetry.QueryTypePlain
	}
}

// Stats reports cache counters and the breaker state.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Cache:        e.cache.Stats(),
		BreakerState: e.retriever.Breaker().State().String(),
	}
}

// Cache returns the engine's result cache.
func (e *Engine) Cache() *ResultCache {
	return e.cache
}
