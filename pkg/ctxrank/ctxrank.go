// Package ctxrank is the importable API of the context-ranking engine.
//
// An orchestrator decides when to retrieve; it then calls BuildContext with
// the user query and receives a budget-bounded context block for the
// prompt plus the citations to display:
//
//	eng, err := ctxrank.New(index)
//	text, sources, err := eng.BuildContext(ctx, "cite le poème en entier",
//		nil, "poet", nil, 5, 4000)
//
// Open builds the index, embedder and telemetry from a Config instead.
package ctxrank

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
	ctxerrors "github.com/Aman-CERP/ctxrank/internal/errors"
	"github.com/Aman-CERP/ctxrank/internal/search"
	"github.com/Aman-CERP/ctxrank/internal/store"
	"github.com/Aman-CERP/ctxrank/internal/telemetry"
)

// Re-exported types.
type (
	Filter      = store.Filter
	Eq          = store.Eq
	And         = store.And
	Or          = store.Or
	VectorIndex = store.VectorIndex
	Query       = store.Query
	RawHit      = store.RawHit
	SourceRef   = chunk.SourceRef
	Intent      = chunk.Intent
	ChunkType   = chunk.ChunkType
	Request     = search.BuildRequest
	Result      = search.BuildResult
	Stats       = search.EngineStats
)

type options struct {
	logger        *slog.Logger
	now           func() time.Time
	cacheCapacity int
	cacheTTL      time.Duration
	tolerance     *uint32
	pivots        []string
	retrieval     *search.RetrievalConfig
	excerptChars  int
	breakerFails  int
	breakerReset  time.Duration
	metrics       *telemetry.QueryMetrics
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock injects the time source used for recency scoring and cache
// expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCache sets the result cache capacity and TTL.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheCapacity = capacity
		o.cacheTTL = ttl
	}
}

// WithMergeTolerance sets the line gap bridged when merging chunks.
func WithMergeTolerance(lines uint32) Option {
	return func(o *options) { o.tolerance = &lines }
}

// WithPivotKeywords replaces the keywords that boost the keyword signal.
func WithPivotKeywords(words ...string) Option {
	return func(o *options) { o.pivots = words }
}

// WithRetrieval sets top-k, alpha and threshold passed to the index.
func WithRetrieval(topK int, alpha, threshold float64) Option {
	return func(o *options) {
		o.retrieval = &search.RetrievalConfig{TopK: topK, Alpha: alpha, Threshold: threshold}
	}
}

// WithExcerptChars sets the citation excerpt length.
func WithExcerptChars(n int) Option {
	return func(o *options) { o.excerptChars = n }
}

// WithBreaker configures the circuit breaker guarding the index.
func WithBreaker(maxFailures int, resetTimeout time.Duration) Option {
	return func(o *options) {
		o.breakerFails = maxFailures
		o.breakerReset = resetTimeout
	}
}

// WithMetrics records query telemetry into m.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// Engine ranks retrieved chunks into prompt context. Safe for concurrent
// use.
type Engine struct {
	engine  *search.Engine
	parser  *search.IntentParser
	metrics *telemetry.QueryMetrics
	closers []func() error
}

// New creates an engine over index.
func New(index VectorIndex, opts ...Option) (*Engine, error) {
	o := options{
		cacheCapacity: search.DefaultCacheCapacity,
		cacheTTL:      search.DefaultCacheTTL,
		breakerFails:  ctxerrors.DefaultMaxFailures,
		breakerReset:  ctxerrors.DefaultResetTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	parser := search.NewIntentParser()
	engineOpts := []search.EngineOption{
		search.WithIntentParser(parser),
		search.WithBreaker(ctxerrors.NewCircuitBreaker("vector_index",
			ctxerrors.WithMaxFailures(o.breakerFails),
			ctxerrors.WithResetTimeout(o.breakerReset))),
	}
	if o.logger != nil {
		engineOpts = append(engineOpts, search.WithLogger(o.logger))
	}
	if o.now != nil {
		engineOpts = append(engineOpts, search.WithEngineClock(o.now))
	}
	if o.tolerance != nil {
		engineOpts = append(engineOpts, search.WithMergeTolerance(*o.tolerance))
	}
	if o.pivots != nil {
		engineOpts = append(engineOpts, search.WithScorerConfig(search.ScorerConfig{PivotKeywords: o.pivots}))
	}
	if o.retrieval != nil {
		engineOpts = append(engineOpts, search.WithRetrievalConfig(*o.retrieval))
	}
	if o.excerptChars > 0 {
		engineOpts = append(engineOpts, search.WithFormatter(search.NewFormatter(search.WithExcerptChars(o.excerptChars))))
	}

	cacheOpts := []search.CacheOption{search.WithTTL(o.cacheTTL)}
	if o.now != nil {
		cacheOpts = append(cacheOpts, search.WithClock(o.now))
	}
	if o.metrics != nil {
		engineOpts = append(engineOpts, search.WithMetrics(o.metrics))
		cacheOpts = append(cacheOpts, search.WithCacheObserver(o.metrics))
	}
	engineOpts = append(engineOpts, search.WithCache(search.NewResultCache(o.cacheCapacity, cacheOpts...)))

	eng, err := search.NewEngine(index, engineOpts...)
	if err != nil {
		return nil, err
	}
	return &Engine{engine: eng, parser: parser, metrics: o.metrics}, nil
}

// BuildContext returns the context block and its citations. Errors are
// limited to a malformed filter or a non-positive budget. A blank query and
// index failures both yield an empty context with no error.
func (e *Engine) BuildContext(ctx context.Context, query string, filter Filter, agentScope string,
	documentIDs []string, maxBlocks, maxChars int) (string, []SourceRef, error) {
	res, err := e.Build(ctx, Request{
		Query:       query,
		Filter:      filter,
		AgentScope:  agentScope,
		DocumentIDs: documentIDs,
		MaxBlocks:   maxBlocks,
		MaxChars:    maxChars,
	})
	if err != nil {
		return "", nil, err
	}
	return res.ContextText, res.Sources, nil
}

// Build is BuildContext returning the full result, including the parsed
// intent and the ranked chunks.
func (e *Engine) Build(ctx context.Context, req Request) (*Result, error) {
	return e.engine.BuildContext(ctx, req)
}

// Parse reads the intent of a query without retrieving anything.
func (e *Engine) Parse(query string) Intent {
	return e.parser.Parse(query)
}

// Stats reports cache and breaker state.
func (e *Engine) Stats() Stats {
	return e.engine.Stats()
}

// Metrics returns the telemetry collector, or nil when telemetry is off.
func (e *Engine) Metrics() *telemetry.QueryMetrics {
	return e.metrics
}

// Close releases whatever Open created, in reverse order.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
