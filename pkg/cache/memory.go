package cache

import (
	"container/list"
	"sync"
	"time"
)

type memoryItem struct {
	key   string
	entry Entry
}

// MemoryCache is a thread-safe, bounded LRU cache of byte payloads with TTL
// expiry. When the cache is full and a new key arrives, the least recently
// used entry is evicted before the insert.
type MemoryCache struct {
	maxEntries int
	defaultTTL time.Duration
	items      map[string]*list.Element
	eviction   *list.List // front is most recently used
	stats      Stats
	now        func() time.Time
	onEvict    func(key string, e Entry)
	mu         sync.Mutex
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMemoryClock replaces time.Now. Intended for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDefaultTTL sets the TTL applied when Set receives a non-positive TTL.
func WithDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithEvictCallback registers a function called for every LRU eviction.
// It runs with the cache lock held and must not call back into the cache.
func WithEvictCallback(fn func(key string, e Entry)) MemoryOption {
	return func(c *MemoryCache) {
		c.onEvict = fn
	}
}

// NewMemoryCache creates a memory cache holding at most maxEntries entries.
// The capacity must be positive, otherwise it panics.
func NewMemoryCache(maxEntries int, opts ...MemoryOption) *MemoryCache {
	if maxEntries <= 0 {
		panic("memory cache capacity must be positive")
	}
	c := &MemoryCache{
		maxEntries: maxEntries,
		defaultTTL: time.Hour,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for key and marks it as recently used.
// Expired entries are removed and counted as misses.
// The returned Data is shared with the cache and must not be modified.
func (c *MemoryCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}

	item := elem.Value.(*memoryItem)
	now := c.now()
	if item.entry.Expired(now) {
		c.removeElement(elem)
		c.stats.Misses++
		return Entry{}, false
	}

	item.entry.LastAccessed = now
	item.entry.AccessCount++
	c.eviction.MoveToFront(elem)
	c.stats.Hits++

	return item.entry, true
}

// Set stores a copy of data under key. A non-positive ttl means the default TTL.
func (c *MemoryCache) Set(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	entry := Entry{
		Data:         append([]byte(nil), data...),
		CreatedAt:    now,
		TTL:          ttl,
		LastAccessed: now,
		Size:         len(data),
		Tier:         TierMemory,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*memoryItem)
		c.stats.MemoryUsage -= uint64(item.entry.Size)
		c.stats.MemoryUsage += uint64(entry.Size)
		item.entry = entry
		c.eviction.MoveToFront(elem)
		return
	}

	for c.eviction.Len() >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = c.eviction.PushFront(&memoryItem{key: key, entry: entry})
	c.stats.MemoryUsage += uint64(entry.Size)
}

// Remove deletes key and reports whether it was present.
func (c *MemoryCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// Clear removes every entry and resets the statistics.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.stats = Stats{}
}

// CleanupExpired removes every expired entry, read or not, and returns how
// many were removed.
func (c *MemoryCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryItem).entry.Expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Contains reports whether key holds an unexpired entry. Unlike Get it
// leaves recency and statistics untouched.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	return ok && !elem.Value.(*memoryItem).entry.Expired(c.now())
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Keys returns the cached keys from most to least recently used.
// Expired entries not yet swept are included.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.eviction.Len())
	for elem := c.eviction.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*memoryItem).key)
	}
	return keys
}

// Stats returns a snapshot of the tier statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stats
	st.Entries = uint64(c.eviction.Len())
	st.HitRate = hitRate(st.Hits, st.Misses)
	return st
}

// Must be called with lock held.
func (c *MemoryCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	item := elem.Value.(*memoryItem)
	c.removeElement(elem)
	c.stats.Evictions++

	if c.onEvict != nil {
		c.onEvict(item.key, item.entry)
	}
}

// Must be called with lock held.
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	item := elem.Value.(*memoryItem)
	delete(c.items, item.key)

	size := uint64(item.entry.Size)
	if size > c.stats.MemoryUsage {
		size = c.stats.MemoryUsage
	}
	c.stats.MemoryUsage -= size
}
