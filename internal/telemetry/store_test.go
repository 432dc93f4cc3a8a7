package telemetry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()

	store, err := OpenSQLiteMetricsStore(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteMetricsStore_QueryTypeCounts_Incremental(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveQueryTypeCounts("2026-10-01", map[QueryType]int64{
		QueryTypeCitation: 10,
		QueryTypePlain:    3,
	}))
	require.NoError(t, store.SaveQueryTypeCounts("2026-10-01", map[QueryType]int64{
		QueryTypeCitation: 5,
	}))

	result, err := store.GetQueryTypeCounts("2026-10-01", "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, int64(15), result[QueryTypeCitation])
	assert.Equal(t, int64(3), result[QueryTypePlain])
}

func TestSQLiteMetricsStore_DateRange(t *testing.T) {
	store := openTestStore(t)

	for i, date := range []string{"2026-10-01", "2026-10-02", "2026-10-03"} {
		require.NoError(t, store.SaveQueryTypeCounts(date, map[QueryType]int64{QueryTypeTyped: int64(10 * (i + 1))}))
	}

	result, err := store.GetQueryTypeCounts("2026-10-01", "2026-10-02")
	require.NoError(t, err)
	assert.Equal(t, int64(30), result[QueryTypeTyped])
}

func TestSQLiteMetricsStore_TopTerms(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"a": 10}))

	result, err := store.GetTopTerms(3)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, TermCount{Term: "a", Count: 11}, result[0])
	assert.Equal(t, "e", result[1].Term)
	assert.Equal(t, "d", result[2].Term)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{}))
}

func TestSQLiteMetricsStore_ZeroResultQueries_NewestFirstAndBounded(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < zeroResultRing+5; i++ {
		require.NoError(t, store.AddZeroResultQuery(fmt.Sprintf("query %d", i), now.Add(time.Duration(i)*time.Second)))
	}

	result, err := store.GetZeroResultQueries(2 * zeroResultRing)
	require.NoError(t, err)
	assert.Len(t, result, zeroResultRing)
	assert.Equal(t, fmt.Sprintf("query %d", zeroResultRing+4), result[0])
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-10-01", map[LatencyBucket]int64{BucketP10: 10, BucketP500: 2}))
	require.NoError(t, store.SaveLatencyCounts("2026-10-01", map[LatencyBucket]int64{BucketP10: 5}))

	result, err := store.GetLatencyCounts("2026-10-01", "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, int64(15), result[BucketP10])
	assert.Equal(t, int64(2), result[BucketP500])
}

func TestSQLiteMetricsStore_CacheCounts(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveCacheCounts("2026-10-01", CacheCounts{Hits: 3, Misses: 1}))
	require.NoError(t, store.SaveCacheCounts("2026-10-01", CacheCounts{Hits: 2, Evictions: 4}))
	require.NoError(t, store.SaveCacheCounts("2026-10-02", CacheCounts{Misses: 7}))

	got, err := store.GetCacheCounts("2026-10-01", "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, CacheCounts{Hits: 5, Misses: 1, Evictions: 4}, got)

	empty, err := store.GetCacheCounts("2020-01-01", "2020-01-02")
	require.NoError(t, err)
	assert.Equal(t, CacheCounts{}, empty)
}

func TestNewSQLiteMetricsStore_NilDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	assert.Error(t, err)
}
