package generation

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/glyphic-ai/genflow/providers"
)

// CacheKey derives a deterministic key from the fields that define a
// response. A missing system prompt normalizes to the empty string, so
// presence and absence hash identically. xxhash is fast and
// non-cryptographic; an accidental collision only causes a stale hit,
// never corruption, because keys address the cache and nothing else.
func CacheKey(providerID, prompt, systemPrompt string, temperature float64, maxTokens int) string {
	var b strings.Builder
	b.WriteString(providerID)
	b.WriteByte('|')
	b.WriteString(prompt)
	b.WriteByte('|')
	b.WriteString(systemPrompt)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(temperature, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(maxTokens))
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// CachedResponse is the stored value: text and token counts, never cost.
type CachedResponse struct {
	Text     string
	Usage    providers.Usage
	StoredAt time.Time
}

type cacheEntry struct {
	key      string
	value    CachedResponse
	storedAt time.Time
	element  *list.Element
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.storedAt) > ttl
}

// ResponseCache is an in-memory LRU cache with TTL for prior responses.
// Thread-safe; entries never survive a process restart.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewResponseCache creates a cache with the given capacity and TTL.
func NewResponseCache(maxSize int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the stored value, or nil on a miss. An expired entry is
// evicted and reported as a miss. A hit promotes the entry to
// most-recently-used; read access counts as use.
func (c *ResponseCache) Get(key string) *CachedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(key)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++

	value := entry.value
	return &value
}

// Set stores a value under key. An existing entry is removed first so
// recency resets; at capacity the least-recently-used entry is evicted.
func (c *ResponseCache) Set(key, text string, usage providers.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeEntry(key)
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	now := time.Now()
	entry := &cacheEntry{
		key:      key,
		value:    CachedResponse{Text: text, Usage: usage, StoredAt: now},
		storedAt: now,
	}
	entry.element = c.lruList.PushFront(key)
	c.entries[key] = entry
}

// Has reports whether a live entry exists for key. Same expiry check as
// Get, but never mutates recency order.
func (c *ResponseCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	return exists && !entry.isExpired(c.ttl)
}

// PurgeExpired removes every entry whose age exceeds the TTL and returns
// the count removed. Non-expired entries keep their order.
func (c *ResponseCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	for key, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		c.removeEntry(key)
	}
	return len(expired)
}

// Clear removes all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lruList.Init()
}

// Len returns the current entry count.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// CacheStats reports cache effectiveness counters.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns a snapshot of the counters.
func (c *ResponseCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// removeEntry removes an entry; caller holds the lock.
func (c *ResponseCache) removeEntry(key string) {
	if entry, exists := c.entries[key]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, key)
	}
}

// evictLRU removes the least-recently-used entry; caller holds the lock.
func (c *ResponseCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	c.lruList.Remove(back)
	delete(c.entries, key)
}
