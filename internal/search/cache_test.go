package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/review-compare/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(clock *fakeClock) *Cache {
	c := NewCache(DefaultTTL)
	c.now = clock.Now
	return c
}

func TestCache_BasicGetPut(t *testing.T) {
	cache := newTestCache(newFakeClock())
	key := model.SearchKey{Query: "coffee", Location: "Springfield"}

	_, ok := cache.Get(key)
	assert.False(t, ok)

	records := []model.BusinessRecord{{PlaceID: "A", Name: "Cafe X"}}
	cache.Put(key, records)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, records, got)

	_, ok = cache.Get(model.SearchKey{Query: "coffee"})
	assert.False(t, ok, "location is part of the key")
	_, ok = cache.Get(model.SearchKey{Query: "Coffee", Location: "Springfield"})
	assert.False(t, ok, "keys are not normalized")
}

func TestCache_TTLExpiration(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock)
	key := model.SearchKey{Query: "tacos"}

	cache.Put(key, []model.BusinessRecord{{PlaceID: "T"}})

	clock.Advance(299 * time.Second)
	_, ok := cache.Get(key)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = cache.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len(), "expired entry is dropped on read")
}

func TestCache_EmptyResultIsCached(t *testing.T) {
	cache := newTestCache(newFakeClock())
	key := model.SearchKey{Query: "nothing here"}

	cache.Put(key, nil)

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCache_LastWriteWins(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock)
	key := model.SearchKey{Query: "pizza"}

	cache.Put(key, []model.BusinessRecord{{PlaceID: "old"}})
	clock.Advance(200 * time.Second)
	cache.Put(key, []model.BusinessRecord{{PlaceID: "new"}})
	clock.Advance(200 * time.Second)

	got, ok := cache.Get(key)
	require.True(t, ok, "second put resets the insertion time")
	assert.Equal(t, "new", got[0].PlaceID)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Purge(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock)

	cache.Put(model.SearchKey{Query: "a"}, nil)
	clock.Advance(4 * time.Minute)
	cache.Put(model.SearchKey{Query: "b"}, nil)
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, cache.Purge())
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Stats(t *testing.T) {
	cache := newTestCache(newFakeClock())
	key := model.SearchKey{Query: "a"}

	cache.Get(key)
	cache.Put(key, nil)
	cache.Get(key)
	cache.Get(key)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.InDelta(t, 300.0, stats.TTLSecs, 1e-9)
}

func TestCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewCache(0).ttl)
	assert.Equal(t, time.Minute, NewCache(time.Minute).ttl)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(time.Hour)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := model.SearchKey{Query: "q", Location: string(rune('a' + n%10))}
			cache.Put(key, []model.BusinessRecord{{PlaceID: "x"}})
			cache.Get(key)
		}(i)
	}
	wg.Wait()

	stats := cache.Stats()
	assert.Equal(t, 10, stats.Entries)
	assert.Equal(t, int64(100), stats.Hits+stats.Misses)
}
