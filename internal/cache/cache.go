// Package cache provides an in-memory TTL cache with ETag support for
// serialized API responses.
//
// Writers that race an invalidation must not resurrect stale data, so every
// Set is tied to the generation the caller observed before loading. An
// Invalidate bumps the generation and any load that started earlier is
// dropped instead of stored.
package cache

import (
	"crypto/md5"
	"fmt"
	"sync"
	"time"
)

// TTLPokemonList bounds how long a listing is served from memory. Keys carry
// the table version, so rows written by other processes change the key and
// miss immediately; the TTL only reclaims superseded versions.
const TTLPokemonList = 5 * time.Minute

// KeyPokemonList prefixes the keys of the strength-ordered listing.
const KeyPokemonList = "pokemon:list"

// PokemonListKey returns the listing key for one table version.
func PokemonListKey(version string) string {
	return KeyPokemonList + ":" + version
}

const evictInterval = 5 * time.Minute

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

// Cache is a thread-safe in-memory TTL cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	gen     uint64
	enabled bool

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a new cache. Pass enabled=false to create a no-op cache.
// An enabled cache runs an eviction goroutine until Close.
func New(enabled bool) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		enabled: enabled,
		stop:    make(chan struct{}),
	}
	if enabled {
		go c.evictLoop(evictInterval)
	}
	return c
}

// Close stops the eviction goroutine. Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Get retrieves a cached value. Returns data, etag, and whether the entry was found.
func (c *Cache) Get(key string) (data []byte, etag string, ok bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, "", false
	}
	return e.data, e.etag, true
}

// Generation returns the current invalidation generation. Read it before
// loading the data that will be passed to SetIfCurrent.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfCurrent stores a value with a TTL unless the cache was invalidated
// after gen was read. The ETag is returned either way.
func (c *Cache) SetIfCurrent(key string, data []byte, ttl time.Duration, gen uint64) (etag string, stored bool) {
	etag = ComputeETag(data)
	if !c.enabled {
		return etag, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return etag, false
	}
	c.entries[key] = entry{
		data:      data,
		etag:      etag,
		expiresAt: time.Now().Add(ttl),
	}
	return etag, true
}

// Invalidate drops every entry and starts a new generation, so loads that
// began before the call cannot store their results.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	clear(c.entries)
}

// Stats returns cache statistics.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := 0
	now := time.Now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return map[string]interface{}{
		"enabled":      c.enabled,
		"generation":   c.gen,
		"total_keys":   len(c.entries),
		"active_keys":  active,
		"expired_keys": len(c.entries) - active,
	}
}

// evictLoop periodically removes expired entries until Close.
func (c *Cache) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evict()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag generates a weak ETag from response data using MD5.
func ComputeETag(data []byte) string {
	hash := md5.Sum(data)
	return fmt.Sprintf(`W/"%x"`, hash[:8])
}

// CheckETagMatch checks if If-None-Match header matches the current ETag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	// Single-etag comparison
	return ifNoneMatch == etag
}
