package search

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
	"github.com/Aman-CERP/ctxrank/internal/store"
)

// CacheObserver receives cache events, typically a telemetry collector.
// Methods must not block.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	CacheEviction()
}

// CacheStats is a point-in-time view of the cache counters.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expired   uint64 `json:"expired"`
	Size      int    `json:"size"`
}

// HitRate returns hits / (hits + misses), 0 when nothing was looked up.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ResultCache memoizes ranked results with a TTL and a capacity ceiling.
// Safe for concurrent use: the LRU is internally locked and entries are
// deep-copied on the way in and out.
type ResultCache struct {
	entries  *lru.Cache[string, CacheEntry]
	ttl      time.Duration
	now      func() time.Time
	observer CacheObserver

	// Serialises expiry removal against Set so a fresh entry written
	// between the read and the removal survives.
	mu sync.Mutex

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	expired   atomic.Uint64
}

// CacheOption configures a ResultCache.
type CacheOption func(*ResultCache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheObserver forwards hit/miss/eviction events.
func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *ResultCache) {
		c.observer = o
	}
}

// NewResultCache creates a cache holding at most capacity entries.
// A non-positive capacity uses DefaultCacheCapacity.
func NewResultCache(capacity int, opts ...CacheOption) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c := &ResultCache{
		ttl: DefaultCacheTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Only errors on a non-positive size.
	c.entries, _ = lru.NewWithEvict[string, CacheEntry](capacity, c.onEvict)
	return c
}

func (c *ResultCache) onEvict(_ string, e CacheEntry) {
	if c.isExpired(e) {
		c.expired.Add(1)
		return
	}
	c.evictions.Add(1)
	if c.observer != nil {
		c.observer.CacheEviction()
	}
}

func (c *ResultCache) isExpired(e CacheEntry) bool {
	return c.now().Sub(e.CreatedAt) > c.ttl
}

// Get returns a copy of the entry for key. Expired entries are removed and
// reported as a miss.
func (c *ResultCache) Get(key string) (CacheEntry, bool) {
	e, ok := c.entries.Get(key)
	if ok && c.isExpired(e) {
		c.removeExpired(key, e.CreatedAt)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		if c.observer != nil {
			c.observer.CacheMiss()
		}
		return CacheEntry{}, false
	}

	c.hits.Add(1)
	if c.observer != nil {
		c.observer.CacheHit()
	}
	return copyEntry(e), true
}

// removeExpired drops key only if it still holds the entry created at
// createdAt and that entry is still expired.
func (c *ResultCache) removeExpired(key string, createdAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.entries.Peek(key)
	if ok && cur.CreatedAt.Equal(createdAt) && c.isExpired(cur) {
		c.entries.Remove(key)
	}
}

// Set stores a copy of chunks and sources under key, replacing any previous
// entry as a whole.
func (c *ResultCache) Set(key string, chunks []chunk.ScoredChunk, sources []chunk.SourceRef) {
	entry := CacheEntry{
		Chunks:    chunk.CloneScored(chunks),
		Sources:   slices.Clone(sources),
		CreatedAt: c.now(),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, entry)
}

// Len returns the number of stored entries, expired ones included.
func (c *ResultCache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.entries.Purge()
}

// Stats returns the counters.
func (c *ResultCache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
		Size:      c.entries.Len(),
	}
}

func copyEntry(e CacheEntry) CacheEntry {
	return CacheEntry{
		Chunks:    chunk.CloneScored(e.Chunks),
		Sources:   slices.Clone(e.Sources),
		CreatedAt: e.CreatedAt,
	}
}

// CacheKey derives the cache key for a request. The query is lowercased
// and whitespace-collapsed; document IDs are sorted, so their order does
// not matter.
func CacheKey(query string, filter store.Filter, agentScope string, documentIDs []string) string {
	ids := slices.Clone(documentIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	parts := []string{
		NormalizeQuery(query),
		store.FilterString(filter),
		agentScope,
		strings.Join(ids, ","),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery lowercases and collapses whitespace.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
