// Package pgvector adapts a Postgres table with a pgvector embedding column
// and a jsonb metadata column to store.VectorIndex.
//
// Expected schema:
//
//	CREATE TABLE chunks (
//	    id        TEXT PRIMARY KEY,
//	    text      TEXT NOT NULL,
//	    metadata  JSONB NOT NULL DEFAULT '{}',
//	    embedding vector(256)
//	);
package pgvector

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/Aman-CERP/ctxrank/internal/store"
)

// DefaultTable is the table queried when none is configured.
const DefaultTable = "chunks"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Queryer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Index runs one SQL statement per query, blending cosine similarity with
// ts_rank_cd over the chunk text.
type Index struct {
	q        Queryer
	closer   func()
	embedder store.Embedder
	table    string
	logger   *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithTable sets the table name. Schema-qualified names are accepted.
func WithTable(name string) Option {
	return func(idx *Index) {
		idx.table = name
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Index) {
		if l != nil {
			idx.logger = l
		}
	}
}

// New wraps an existing connection or pool.
func New(q Queryer, embedder store.Embedder, opts ...Option) (*Index, error) {
	if q == nil {
		return nil, fmt.Errorf("pgvector index: nil queryer")
	}
	if embedder == nil {
		return nil, fmt.Errorf("pgvector index: nil embedder")
	}
	idx := &Index{
		q:        q,
		embedder: embedder,
		table:    DefaultTable,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if !tableName.MatchString(idx.table) {
		return nil, fmt.Errorf("pgvector index: invalid table name %q", idx.table)
	}
	return idx, nil
}

// Open creates a connection pool and pings it.
func Open(ctx context.Context, dsn string, embedder store.Embedder, opts ...Option) (*Index, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	idx, err := New(pool, embedder, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	idx.closer = pool.Close
	return idx, nil
}

// Close closes the pool if Open created it.
func (idx *Index) Close() error {
	if idx.closer != nil {
		idx.closer()
	}
	return nil
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

	vec, err := idx.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sql, args, err := BuildQuery(idx.table, pgv.NewVector(vec), q.Text, alpha, q.Threshold, q.TopK, q.Filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := idx.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query hybrid search: %w", err)
	}
	defer rows.Close()

	hits := make([]store.RawHit, 0, q.TopK)
	for rows.Next() {
		var (
			h        store.RawHit
			combined float64
		)
		if err := rows.Scan(&h.ID, &h.Text, &h.Metadata, &combined); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		h.Distance = 2 * (1 - combined)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}

	idx.logger.Debug("pgvector_query",
		slog.String("table", idx.table),
		slog.Int("hits", len(hits)),
		slog.Duration("duration", time.Since(start)))
	return hits, nil
}

var _ store.VectorIndex = (*Index)(nil)
