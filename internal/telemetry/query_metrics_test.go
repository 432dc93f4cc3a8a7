package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CircularBuffer Tests
// =============================================================================

func TestCircularBuffer_KeepsInsertionOrder(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("query1")
	buf.Add("query2")

	assert.Equal(t, []string{"query1", "query2"}, buf.Items())
	assert.Equal(t, 2, buf.Size())
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	buf := NewCircularBuffer[int](3)
	for i := 1; i <= 5; i++ {
		buf.Add(i)
	}

	assert.Equal(t, []int{3, 4, 5}, buf.Items())
	assert.Equal(t, 3, buf.Size())
}

func TestCircularBuffer_EmptyAndClear(t *testing.T) {
	buf := NewCircularBuffer[string](0)
	assert.Empty(t, buf.Items())

	buf.Add("x")
	buf.Clear()
	assert.Equal(t, 0, buf.Size())
	assert.Empty(t, buf.Items())
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{499 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), tt.latency.String())
	}
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty", "   ", nil},
		{"short words dropped", "le poème", []string{"poème"}},
		{"punctuation trimmed", "Cite-moi « le poème » fondateur !", []string{"cite-moi", "poème", "fondateur"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTerms(tt.query))
		})
	}
}

// =============================================================================
// QueryMetrics Tests
// =============================================================================

func TestQueryMetrics_Record_IncrementsCounts(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(QueryEvent{Query: "cite le poème en entier", QueryType: QueryTypeCitation, ResultCount: 2, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{Query: "le chapitre premier", QueryType: QueryTypeTyped, ResultCount: 1, Latency: 25 * time.Millisecond})
	m.Record(QueryEvent{Query: "la fondation", QueryType: QueryTypePlain, ResultCount: 0, Latency: 200 * time.Millisecond})
	m.Record(QueryEvent{Query: "le poème fondateur", QueryType: QueryTypeTyped, ResultCount: 3, Latency: time.Second})

	s := m.Snapshot()
	assert.Equal(t, int64(4), s.TotalQueries)
	assert.Equal(t, int64(2), s.QueryTypeCounts[QueryTypeTyped])
	assert.Equal(t, int64(1), s.QueryTypeCounts[QueryTypeCitation])
	assert.Equal(t, int64(1), s.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), s.LatencyDistribution[BucketP1000])
	assert.Equal(t, []string{"la fondation"}, s.ZeroResultQueries)
	assert.InDelta(t, 25.0, s.ZeroResultPercentage(), 1e-9)

	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "poème", Count: 2}, s.TopTerms[0])
}

func TestQueryMetrics_CacheCounters(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.CacheMiss()
	m.CacheHit()
	m.CacheHit()
	m.CacheHit()
	m.CacheEviction()

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.CacheHits)
	assert.Equal(t, int64(1), s.CacheMisses)
	assert.Equal(t, int64(1), s.CacheEvictions)
	assert.InDelta(t, 0.75, s.CacheHitRate(), 1e-9)
}

func TestQueryMetrics_Concurrent_ThreadSafe(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(QueryEvent{Query: "test query", QueryType: QueryTypePlain, ResultCount: 5})
				m.CacheMiss()
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, int64(5000), s.TotalQueries)
	assert.Equal(t, int64(5000), s.CacheMisses)
}

func TestQueryMetrics_RecordAfterClose_Ignored(t *testing.T) {
	m := NewQueryMetrics(nil)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	m.Record(QueryEvent{Query: "late", QueryType: QueryTypePlain})
	assert.Equal(t, int64(0), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_Flush_WritesDeltasOnce(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultQueryMetricsConfig()
	cfg.FlushInterval = 0
	m := NewQueryMetricsWithConfig(store, cfg)

	m.Record(QueryEvent{Query: "poème fondateur", QueryType: QueryTypeTyped, ResultCount: 1, Latency: time.Millisecond})
	m.CacheMiss()
	require.NoError(t, m.Flush())

	m.Record(QueryEvent{Query: "poème", QueryType: QueryTypeTyped, ResultCount: 0, Latency: time.Millisecond})
	m.CacheHit()
	require.NoError(t, m.Close())

	today := time.Now().Format("2006-01-02")
	types, err := store.GetQueryTypeCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), types[QueryTypeTyped])

	terms, err := store.GetTopTerms(1)
	require.NoError(t, err)
	assert.Equal(t, TermCount{Term: "poème", Count: 2}, terms[0])

	cache, err := store.GetCacheCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, CacheCounts{Hits: 1, Misses: 1}, cache)

	zero, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"poème"}, zero)
}
