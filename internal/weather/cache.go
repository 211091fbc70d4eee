package weather

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache stores normalized payloads by key with a per-entry TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache key prefixes
const (
	keyCurrent  = "weather:current"
	keyForecast = "weather:forecast"
	keyET0      = "weather:et0"
)

// CurrentKey returns the cache key of current conditions at a coordinate.
func CurrentKey(lat, lon float64) string {
	return fmt.Sprintf("%s:%.4f:%.4f", keyCurrent, lat, lon)
}

// ForecastKey returns the cache key of a forecast at a coordinate.
func ForecastKey(lat, lon float64, days int) string {
	return fmt.Sprintf("%s:%.4f:%.4f:%d", keyForecast, lat, lon, days)
}

// ET0Key returns the cache key of an ET0 value at a coordinate.
func ET0Key(lat, lon float64) string {
	return fmt.Sprintf("%s:%.4f:%.4f", keyET0, lat, lon)
}

// MemoryCache provides in-process caching with expiry
type MemoryCache struct {
	data    map[string]*cacheEntry
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once

	hits   int64
	misses int64
}

// cacheEntry represents a cache entry with expiration
type cacheEntry struct {
	value      []byte
	expiration time.Time
}

// CacheStats reports cache usage
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewMemoryCache creates a cache that sweeps expired entries every cleanupInterval
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	cache := &MemoryCache{
		data:    make(map[string]*cacheEntry),
		cleanup: time.NewTicker(cleanupInterval),
		done:    make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.expiration) {
		c.misses++
		return nil, false, nil
	}
	c.hits++

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores a value in the cache
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		value:      stored,
		expiration: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// DeleteByPrefix removes all entries with keys starting with the given prefix
func (c *MemoryCache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
}

// Size returns the number of entries in the cache
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{Size: len(c.data), Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// cleanupLoop periodically removes expired entries
func (c *MemoryCache) cleanupLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *MemoryCache) Stop() {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}
