package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ctxrank/internal/output"
	"github.com/Aman-CERP/ctxrank/internal/telemetry"
)

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		days       int
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query telemetry",
		Long: `Display the query telemetry persisted to telemetry.db_path:
  - Query shape distribution (citation/typed/plain)
  - Cache hits, misses and evictions
  - Latency distribution
  - Top query terms
  - Recent zero-result queries`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonOutput, days, dbPath)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include")
	cmd.Flags().StringVar(&dbPath, "db", "", "Telemetry database (default from config)")

	return cmd
}

// StatsOutput is the JSON output format for query stats.
type StatsOutput struct {
	Summary             StatsSummary          `json:"summary"`
	QueryTypeCounts     map[string]int64      `json:"query_type_counts"`
	Cache               telemetry.CacheCounts `json:"cache"`
	LatencyDistribution map[string]int64      `json:"latency_distribution"`
	TopTerms            []telemetry.TermCount `json:"top_terms"`
	ZeroResultQueries   []string              `json:"zero_result_queries"`
}

// StatsSummary provides overview statistics.
type StatsSummary struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	TotalQueries int64   `json:"total_queries"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

func runStats(cmd *cobra.Command, jsonOutput bool, days int, dbPath string) error {
	if dbPath == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dbPath = cfg.Telemetry.DBPath
	}
	if dbPath == "" {
		return fmt.Errorf("no telemetry database configured\nSet telemetry.db_path or pass --db")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no telemetry found at %s\nRun 'ctxrank context' with telemetry enabled first", dbPath)
	}

	metricsStore, err := telemetry.OpenSQLiteMetricsStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open metrics store: %w", err)
	}
	defer func() { _ = metricsStore.Close() }()

	stats, err := getStats(metricsStore, days, time.Now())
	if err != nil {
		return fmt.Errorf("failed to get query stats: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	printStats(output.New(cmd.OutOrStdout()), stats)
	return nil
}

func getStats(s telemetry.QueryMetricsStore, days int, now time.Time) (*StatsOutput, error) {
	if days < 1 {
		days = 1
	}
	to := now.Format("2006-01-02")
	from := now.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	types, err := s.GetQueryTypeCounts(from, to)
	if err != nil {
		return nil, fmt.Errorf("get query types: %w", err)
	}
	latencies, err := s.GetLatencyCounts(from, to)
	if err != nil {
		return nil, fmt.Errorf("get latencies: %w", err)
	}
	cache, err := s.GetCacheCounts(from, to)
	if err != nil {
		return nil, fmt.Errorf("get cache counts: %w", err)
	}
	topTerms, err := s.GetTopTerms(10)
	if err != nil {
		return nil, fmt.Errorf("get top terms: %w", err)
	}
	zeroResults, err := s.GetZeroResultQueries(10)
	if err != nil {
		return nil, fmt.Errorf("get zero-result queries: %w", err)
	}

	out := &StatsOutput{
		Summary:             StatsSummary{From: from, To: to},
		QueryTypeCounts:     make(map[string]int64, len(types)),
		Cache:               cache,
		LatencyDistribution: make(map[string]int64, len(latencies)),
		TopTerms:            topTerms,
		ZeroResultQueries:   zeroResults,
	}
	for qt, n := range types {
		out.QueryTypeCounts[string(qt)] = n
		out.Summary.TotalQueries += n
	}
	for b, n := range latencies {
		out.LatencyDistribution[string(b)] = n
	}
	if lookups := cache.Hits + cache.Misses; lookups > 0 {
		out.Summary.CacheHitRate = float64(cache.Hits) / float64(lookups)
	}
	if out.TopTerms == nil {
		out.TopTerms = []telemetry.TermCount{}
	}
	if out.ZeroResultQueries == nil {
		out.ZeroResultQueries = []string{}
	}
	return out, nil
}

var latencyLabels = []struct {
	bucket telemetry.LatencyBucket
	label  string
}{
	{telemetry.BucketP10, "<10ms"},
	{telemetry.BucketP50, "10-50ms"},
	{telemetry.BucketP100, "50-100ms"},
	{telemetry.BucketP500, "100-500ms"},
	{telemetry.BucketP1000, ">500ms"},
}

func printStats(out *output.Writer, s *StatsOutput) {
	out.Heading(fmt.Sprintf("Query Statistics (%s to %s)", s.Summary.From, s.Summary.To))
	out.KeyValue("total queries", s.Summary.TotalQueries)
	for _, qt := range []telemetry.QueryType{telemetry.QueryTypeCitation, telemetry.QueryTypeTyped, telemetry.QueryTypePlain} {
		out.KeyValue(string(qt), s.QueryTypeCounts[string(qt)])
	}
	out.Newline()

	out.Heading("Cache")
	out.KeyValue("hits", s.Cache.Hits)
	out.KeyValue("misses", s.Cache.Misses)
	out.KeyValue("evictions", s.Cache.Evictions)
	out.KeyValue("hit rate", fmt.Sprintf("%.1f%%", s.Summary.CacheHitRate*100))
	out.Newline()

	out.Heading("Latency")
	for _, l := range latencyLabels {
		out.KeyValue(l.label, s.LatencyDistribution[string(l.bucket)])
	}
	out.Newline()

	out.Heading("Top Query Terms")
	if len(s.TopTerms) == 0 {
		out.Status("", "(none recorded yet)")
	}
	for i, tc := range s.TopTerms {
		out.Statusf("", "%d. %s (%d)", i+1, tc.Term, tc.Count)
	}
	out.Newline()

	out.Heading("Recent Zero-Result Queries")
	if len(s.ZeroResultQueries) == 0 {
		out.Status("", "(none)")
	}
	for _, q := range s.ZeroResultQueries {
		out.Statusf("", "- %q", q)
	}
}
