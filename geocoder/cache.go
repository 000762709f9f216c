package geocoder

import (
	"strings"
	"sync"
	"time"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

// Cache holds geocoding results for one run, keyed by normalised address.
// Entries older than the TTL are treated as missing and evicted on access.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	data  map[string]cacheEntry
	stats CacheStats
}

type cacheEntry struct {
	result    models.GeocodingResult
	timestamp time.Time
}

// CacheStats counts lookups served from and missed by the cache.
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// NewCache creates an empty cache. A zero ttl keeps entries for the cache's lifetime.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]cacheEntry),
	}
}

// CacheKey normalises a full address so trivially different spellings share an entry.
func CacheKey(fullAddress string) string {
	return utils.NormaliseText(strings.ReplaceAll(utils.Fold(fullAddress), ",", " "))
}

// Get returns the cached result for key.
func (c *Cache) Get(key string) (models.GeocodingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if ok && c.ttl > 0 && c.now().Sub(entry.timestamp) > c.ttl {
		delete(c.data, key)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return models.GeocodingResult{}, false
	}
	c.stats.Hits++
	return entry.result, true
}

// Set stores result under key.
func (c *Cache) Set(key string, result models.GeocodingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{result: result, timestamp: c.now()}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.data)
	return s
}
