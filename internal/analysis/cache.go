package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/opiniq/sentilens/internal/models"
)

const (
	cacheMaxEntries = 4096
	cacheEntryTTL   = time.Hour
)

// ContentHash keys cached analysis results by input text.
func ContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

type cacheEntry struct {
	result   models.AnalysisResult
	storedAt time.Time
}

// resultCache memoizes full analysis results by content hash. Bounded
// by entry count and TTL so a long-lived process cannot grow it without
// limit. Safe for concurrent use; a lost race costs one duplicate
// remote computation, never corruption.
type resultCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
}

func newResultCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *resultCache {
	return &resultCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
	}
}

func (c *resultCache) get(key string) (models.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return models.AnalysisResult{}, false
	}
	if c.clock.Now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return models.AnalysisResult{}, false
	}
	return entry.result, true
}

func (c *resultCache) put(key string, result models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{result: result, storedAt: c.clock.Now()}
}

// evictLocked drops expired entries first, then the oldest entry if the
// cache is still full. Caller holds the lock.
func (c *resultCache) evictLocked() {
	now := c.clock.Now()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
