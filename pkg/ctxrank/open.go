package ctxrank

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/ctxrank/internal/config"
	"github.com/Aman-CERP/ctxrank/internal/embed"
	"github.com/Aman-CERP/ctxrank/internal/store"
	"github.com/Aman-CERP/ctxrank/internal/store/pgvector"
	"github.com/Aman-CERP/ctxrank/internal/store/qdrant"
	"github.com/Aman-CERP/ctxrank/internal/telemetry"
)

// Config is the layered engine configuration.
type Config = config.Config

// LoadConfig loads defaults, the user config, dir/.ctxrank.yaml, dir/.env
// and CTXRANK_* variables, in that order.
func LoadConfig(dir string) (*Config, error) {
	return config.Load(dir)
}

// Backends lists the index backends Open understands.
func Backends() []string {
	return []string{"local", "qdrant", "pgvector"}
}

// Embedders lists the query embedding providers Open understands.
func Embedders() []string {
	return []string{string(embed.ProviderStatic), string(embed.ProviderOllama)}
}

// Open builds the embedder, the configured index backend and telemetry,
// then an engine over them. Options given here override the config.
// Close the engine to release everything Open created.
func Open(ctx context.Context, cfg *Config, opts ...Option) (eng *Engine, err error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.Default()
	for _, opt := range opts {
		var o options
		opt(&o)
		if o.logger != nil {
			logger = o.logger
		}
	}

	var closers []func() error
	defer func() {
		if err != nil {
			_ = (&Engine{closers: closers}).Close()
		}
	}()

	embedder, err := embed.NewEmbedder(embed.FactoryConfig{
		Provider:   cfg.Embeddings.Provider,
		Host:       cfg.Embeddings.Host,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    cfg.Embeddings.Timeout,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	closers = append(closers, embedder.Close)

	index, closeIndex, err := openIndex(ctx, cfg.Index, embedder, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeIndex)

	base := []Option{
		WithRetrieval(cfg.Retrieval.TopK, cfg.Retrieval.Alpha, cfg.Retrieval.Threshold),
		WithBreaker(cfg.Retrieval.BreakerFailures, cfg.Retrieval.BreakerReset),
		WithMergeTolerance(cfg.Merge.Tolerance),
		WithPivotKeywords(cfg.Scoring.PivotKeywords...),
		WithCache(cfg.Cache.Capacity, cfg.Cache.TTL),
		WithExcerptChars(cfg.Format.ExcerptChars),
	}

	if cfg.Telemetry.Enabled {
		var metricsStore telemetry.QueryMetricsStore
		if cfg.Telemetry.DBPath != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Telemetry.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("create telemetry directory: %w", err)
			}
			sqliteStore, err := telemetry.OpenSQLiteMetricsStore(cfg.Telemetry.DBPath)
			if err != nil {
				return nil, err
			}
			closers = append(closers, sqliteStore.Close)
			metricsStore = sqliteStore
		}
		metricsCfg := telemetry.DefaultQueryMetricsConfig()
		metricsCfg.FlushInterval = cfg.Telemetry.FlushInterval
		metrics := telemetry.NewQueryMetricsWithConfig(metricsStore, metricsCfg)
		closers = append(closers, metrics.Close)
		base = append(base, WithMetrics(metrics))
	}

	eng, err = New(index, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	eng.closers = closers
	return eng, nil
}

func openIndex(ctx context.Context, cfg config.IndexConfig, embedder embed.Embedder, logger *slog.Logger) (store.VectorIndex, func() error, error) {
	switch cfg.Backend {
	case "", "local":
		idx, err := store.NewLocalIndex(embedder, store.WithLocalLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		if cfg.CorpusPath != "" {
			n, err := store.LoadJSONL(ctx, idx, cfg.CorpusPath)
			if err != nil {
				_ = idx.Close()
				return nil, nil, err
			}
			logger.Info("corpus_loaded", slog.String("path", cfg.CorpusPath), slog.Int("records", n))
		}
		return idx, idx.Close, nil
	case "qdrant":
		idx, err := qdrant.Dial(cfg.QdrantAddr, embedder,
			qdrant.Config{Collection: cfg.QdrantCollection}, qdrant.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil
	case "pgvector":
		opts := []pgvector.Option{pgvector.WithLogger(logger)}
		if cfg.PostgresTable != "" {
			opts = append(opts, pgvector.WithTable(cfg.PostgresTable))
		}
		idx, err := pgvector.Open(ctx, cfg.PostgresDSN, embedder, opts...)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}
