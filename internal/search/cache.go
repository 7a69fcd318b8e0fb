package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/review-compare/internal/model"
)

// DefaultTTL is how long a cached search stays fresh.
const DefaultTTL = 300 * time.Second

// Cache memoizes search results by exact (query, location). Each key holds at
// most one entry; Put overwrites (last write wins). Expiry is checked on read.
type Cache struct {
	mu      sync.Mutex
	entries map[model.SearchKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	hits    atomic.Int64
	misses  atomic.Int64
}

type cacheEntry struct {
	records    []model.BusinessRecord
	insertedAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	TTLSecs float64 `json:"ttl_secs"`
}

// NewCache creates a Cache with the given TTL (DefaultTTL when ttl <= 0).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[model.SearchKey]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached records for key. A read past the TTL is a miss and
// drops the entry. An empty cached result is a hit.
func (c *Cache) Get(key model.SearchKey) ([]model.BusinessRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if c.now().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.records, true
}

// Put stores records for key, replacing any existing entry.
func (c *Cache) Put(key model.SearchKey, records []model.BusinessRecord) {
	if records == nil {
		records = []model.BusinessRecord{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{records: records, insertedAt: c.now()}
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() CacheStats {
	entries := c.Len()
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries: entries,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
		TTLSecs: c.ttl.Seconds(),
	}
}
