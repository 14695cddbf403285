package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
)

// CachedFetcher wraps a WeatherFetcher with an in-memory LRU cache. Archive
// data for a past date range never changes, so entries have no TTL.
type CachedFetcher struct {
	inner geo.WeatherFetcher
	cache *lruCache
}

// NewCachedFetcher creates a cache decorator around a weather fetcher.
func NewCachedFetcher(inner geo.WeatherFetcher, maxEntries int) *CachedFetcher {
	return &CachedFetcher{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedFetcher) FetchArchive(ctx context.Context, lat, lon float64, start, end time.Time) (geo.HourlyPayload, error) {
	key := fmt.Sprintf("%.4f,%.4f|%s|%s", lat, lon, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if payload, ok := c.cache.get(key); ok {
		return payload, nil
	}
	payload, err := c.inner.FetchArchive(ctx, lat, lon, start, end)
	if err != nil {
		return payload, err
	}
	// Only cache non-empty payloads so a thin upstream response can be retried.
	if len(payload.Hourly.Time) > 0 {
		c.cache.put(key, payload)
	}
	return payload, nil
}

// lruCache is a simple thread-safe LRU cache for hourly payloads.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value geo.HourlyPayload
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (geo.HourlyPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return geo.HourlyPayload{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value geo.HourlyPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
