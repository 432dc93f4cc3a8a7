package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ctxerrors "github.com/Aman-CERP/ctxrank/internal/errors"
	"github.com/Aman-CERP/ctxrank/internal/search"
	"github.com/Aman-CERP/ctxrank/internal/store"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "CTXRANK_"

// Project config file names, checked in order.
var projectConfigNames = []string{".ctxrank.yaml", ".ctxrank.yml"}

// Config is the complete ctxrank configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version" validate:"min=1"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval" envPrefix:"RETRIEVAL_"`
	Merge      MergeConfig      `yaml:"merge" json:"merge" envPrefix:"MERGE_"`
	Scoring    ScoringConfig    `yaml:"scoring" json:"scoring" envPrefix:"SCORING_"`
	Cache      CacheConfig      `yaml:"cache" json:"cache" envPrefix:"CACHE_"`
	Format     FormatConfig     `yaml:"format" json:"format" envPrefix:"FORMAT_"`
	Index      IndexConfig      `yaml:"index" json:"index" envPrefix:"INDEX_"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings" envPrefix:"EMBEDDINGS_"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry" envPrefix:"TELEMETRY_"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging" envPrefix:"LOG_"`
}

// RetrievalConfig configures index queries and the breaker in front of them.
type RetrievalConfig struct {
	TopK      int     `yaml:"top_k" json:"top_k" env:"TOP_K" validate:"min=1,max=1000"`
	Alpha     float64 `yaml:"alpha" json:"alpha" env:"ALPHA" validate:"gte=0,lte=1"`
	Threshold float64 `yaml:"threshold" json:"threshold" env:"THRESHOLD" validate:"gte=0,lte=1"`

	// BreakerFailures consecutive index failures open the circuit for
	// BreakerReset.
	BreakerFailures int           `yaml:"breaker_failures" json:"breaker_failures" env:"BREAKER_FAILURES" validate:"min=1"`
	BreakerReset    time.Duration `yaml:"breaker_reset" json:"breaker_reset" env:"BREAKER_RESET" validate:"gt=0"`
}

// MergeConfig configures the chunk merger.
type MergeConfig struct {
	// Tolerance is the largest line gap between two chunks of the same
	// document that still merges.
	Tolerance uint32 `yaml:"tolerance" json:"tolerance" env:"TOLERANCE"`
}

// ScoringConfig configures the scorer.
type ScoringConfig struct {
	PivotKeywords []string `yaml:"pivot_keywords" json:"pivot_keywords" env:"PIVOT_KEYWORDS" envSeparator:","`
}

// CacheConfig configures the ranked-result cache.
type CacheConfig struct {
	Capacity int           `yaml:"capacity" json:"capacity" env:"CAPACITY" validate:"min=1"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" env:"TTL" validate:"gt=0"`
}

// FormatConfig configures rendering. MaxBlocks and MaxChars are the CLI
// defaults; library callers pass limits per request.
type FormatConfig struct {
	ExcerptChars int `yaml:"excerpt_chars" json:"excerpt_chars" env:"EXCERPT_CHARS" validate:"min=1"`
	MaxBlocks    int `yaml:"max_blocks" json:"max_blocks" env:"MAX_BLOCKS" validate:"min=1"`
	MaxChars     int `yaml:"max_chars" json:"max_chars" env:"MAX_CHARS" validate:"min=1"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend string `yaml:"backend" json:"backend" env:"BACKEND" validate:"oneof=local qdrant pgvector"`

	// CorpusPath is a JSON Lines file loaded by the local backend.
	CorpusPath string `yaml:"corpus_path" json:"corpus_path" env:"CORPUS_PATH"`

	QdrantAddr       string `yaml:"qdrant_addr" json:"qdrant_addr" env:"QDRANT_ADDR" validate:"required_if=Backend qdrant"`
	QdrantCollection string `yaml:"qdrant_collection" json:"qdrant_collection" env:"QDRANT_COLLECTION" validate:"required_if=Backend qdrant"`

	PostgresDSN   string `yaml:"postgres_dsn" json:"postgres_dsn" env:"POSTGRES_DSN" validate:"required_if=Backend pgvector"`
	PostgresTable string `yaml:"postgres_table" json:"postgres_table" env:"POSTGRES_TABLE"`
}

// EmbeddingsConfig configures the query embedder used by the index adapters.
type EmbeddingsConfig struct {
	Provider   string        `yaml:"provider" json:"provider" env:"PROVIDER" validate:"oneof=static ollama"`
	Host       string        `yaml:"host" json:"host" env:"HOST"`
	Model      string        `yaml:"model" json:"model" env:"MODEL"`
	Dimensions int           `yaml:"dimensions" json:"dimensions" env:"DIMENSIONS" validate:"min=0"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT" validate:"gt=0"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size" env:"CACHE_SIZE" validate:"min=0"`
}

// TelemetryConfig configures query metrics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	// DBPath is the SQLite file aggregates are flushed to. Empty keeps
	// metrics in memory only.
	DBPath        string        `yaml:"db_path" json:"db_path" env:"DB_PATH"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval" env:"FLUSH_INTERVAL" validate:"min=0"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	FilePath  string `yaml:"file_path" json:"file_path" env:"FILE"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb" env:"MAX_SIZE_MB" validate:"min=1"`
	MaxFiles  int    `yaml:"max_files" json:"max_files" env:"MAX_FILES" validate:"min=1"`
	Stderr    bool   `yaml:"stderr" json:"stderr" env:"STDERR"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Retrieval: RetrievalConfig{
			TopK:            store.DefaultTopK,
			Alpha:           store.DefaultAlpha,
			Threshold:       store.DefaultScoreThreshold,
			BreakerFailures: ctxerrors.DefaultMaxFailures,
			BreakerReset:    ctxerrors.DefaultResetTimeout,
		},
		Merge: MergeConfig{
			Tolerance: search.DefaultMergeTolerance,
		},
		Scoring: ScoringConfig{
			PivotKeywords: search.DefaultScorerConfig().PivotKeywords,
		},
		Cache: CacheConfig{
			Capacity: search.DefaultCacheCapacity,
			TTL:      search.DefaultCacheTTL,
		},
		Format: FormatConfig{
			ExcerptChars: search.DefaultExcerptChars,
			MaxBlocks:    8,
			MaxChars:     12000,
		},
		Index: IndexConfig{
			Backend:          "local",
			QdrantAddr:       "localhost:6334",
			QdrantCollection: "chunks",
			PostgresTable:    "chunks",
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "static",
			Model:     "nomic-embed-text",
			Timeout:   30 * time.Second,
			CacheSize: 512,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			FlushInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
			Stderr:    true,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/ctxrank/config.yaml, or ~/.config/ctxrank/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ctxrank", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ctxrank", "config.yaml")
	}
	return filepath.Join(home, ".config", "ctxrank", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for dir. Later layers win:
//  1. Hardcoded defaults
//  2. User config (~/.config/ctxrank/config.yaml)
//  3. Project config (.ctxrank.yaml in dir)
//  4. .env in dir, then CTXRANK_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	dotenv, err := readDotEnv(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(dotenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults, then path, then the environment.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if !fileExists(path) {
		return nil, ctxerrors.New(ctxerrors.ErrCodeConfigNotFound, "config file not found: "+path, nil)
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range projectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path over c, so keys absent from the file keep their
// current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ctxerrors.ConfigError("failed to read config file "+path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return ctxerrors.ConfigError("failed to parse config file "+path, err)
	}
	return nil
}

// readDotEnv parses path without touching the process environment.
// A missing file yields no variables.
func readDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ctxerrors.ConfigError("invalid .env file: "+path, err)
	}
	return vars, nil
}

// applyEnvOverrides applies CTXRANK_* variables. Process variables win over
// the ones in extra.
func (c *Config) applyEnvOverrides(extra map[string]string) error {
	environ := make(map[string]string, len(extra))
	maps.Copy(environ, extra)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return ctxerrors.ConfigError("invalid environment override", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges. The first failing field is reported.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return ctxerrors.ConfigError(
			fmt.Sprintf("%s failed %q (got %v)", first.Namespace(), first.Tag(), first.Value()), err).
			WithDetail("field", first.Namespace())
	}
	return ctxerrors.ConfigError("invalid configuration", err)
}

// WriteYAML writes the configuration to a YAML file, creating parent
// directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
