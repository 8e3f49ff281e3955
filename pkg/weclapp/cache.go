package weclapp

import (
	"container/list"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCacheSize is the capacity of a memory cache created without an
// explicit size.
const DefaultCacheSize = 1000

// Cache stores raw response bodies keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached response.
type CacheEntry struct {
	Data       []byte    `json:"data"`
	StatusCode int       `json:"status_code"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// CacheOptions holds settings shared by all cache backends.
type CacheOptions struct {
	// TTL is how long a GET response stays valid.
	TTL time.Duration
	// MaxSize bounds in-memory backends.
	MaxSize int
	// InvalidateOnWrite clears the cache after successful POST, PUT and DELETE.
	InvalidateOnWrite bool
}

// DefaultCacheOptions caches for five minutes and invalidates on writes.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL:               5 * time.Minute,
		MaxSize:           DefaultCacheSize,
		InvalidateOnWrite: true,
	}
}

// MemoryCache is a size-bounded in-process cache evicting the least recently
// used entry.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	items   map[string]*list.Element
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	return &MemoryCache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

// Get returns a live entry, ErrCacheMiss or ErrCacheEntryExpired.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	item, _ := elem.Value.(*memoryItem)
	if item.entry.Expired() {
		c.removeElement(elem)

		return nil, ErrCacheEntryExpired
	}

	c.order.MoveToFront(elem)

	return item.entry, nil
}

// Set stores entry, evicting the least recently used entry when full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		item, _ := elem.Value.(*memoryItem)
		item.entry = entry
		c.order.MoveToFront(elem)

		return nil
	}

	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Back())
	}

	c.items[key] = c.order.PushFront(&memoryItem{key: key, entry: entry})

	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)

	return nil
}

func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}

	item, _ := elem.Value.(*memoryItem)

	return !item.entry.Expired()
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Cleanup drops all expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()

		item, _ := elem.Value.(*memoryItem)
		if item.entry.Expired() {
			c.removeElement(elem)
		}

		elem = next
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	item, _ := c.order.Remove(elem).(*memoryItem)
	delete(c.items, item.key)
}

// CacheStats counts cache activity.
type CacheStats struct {
	Hits          int64
	Misses        int64
	Sets          int64
	Invalidations int64
}

// GetHitRate returns hits / (hits + misses), or 0 without lookups.
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CacheManager wraps a Cache with key derivation, TTL handling and stats.
type CacheManager struct {
	cache   Cache
	options *CacheOptions

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
}

// NewCacheManager creates a manager. Nil arguments select a memory cache and
// DefaultCacheOptions.
func NewCacheManager(cache Cache, options *CacheOptions) *CacheManager {
	if options == nil {
		options = DefaultCacheOptions()
	}

	if cache == nil {
		cache = NewMemoryCache(options.MaxSize)
	}

	return &CacheManager{
		cache:   cache,
		options: options,
	}
}

// Options returns the manager options.
func (m *CacheManager) Options() *CacheOptions {
	return m.options
}

// GetCacheKey derives a key from method, path and query. url.Values.Encode
// sorts by key, so equal queries produce equal keys.
func (m *CacheManager) GetCacheKey(method, path string, query url.Values) string {
	key := method + ":" + path
	if len(query) > 0 {
		key += ":" + query.Encode()
	}

	return key
}

// Get returns a cached response.
func (m *CacheManager) Get(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		m.misses.Add(1)

		return nil, err
	}

	m.hits.Add(1)

	return entry, nil
}

// Set stores a response for the configured TTL.
func (m *CacheManager) Set(ctx context.Context, key string, statusCode int, data []byte) error {
	now := time.Now()

	err := m.cache.Set(ctx, key, &CacheEntry{
		Data:       data,
		StatusCode: statusCode,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.options.TTL),
	})
	if err != nil {
		return err
	}

	m.sets.Add(1)

	return nil
}

// Invalidate clears the cache.
func (m *CacheManager) Invalidate(ctx context.Context) error {
	m.invalidations.Add(1)

	return m.cache.Clear(ctx)
}

// GetStats returns a snapshot of the counters.
func (m *CacheManager) GetStats() *CacheStats {
	return &CacheStats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Sets:          m.sets.Load(),
		Invalidations: m.invalidations.Load(),
	}
}

// CachingPolicy decides which responses are cached.
type CachingPolicy struct {
	// ExcludePaths lists path prefixes that are never cached.
	ExcludePaths []string
	// IncludePaths, when non-empty, restricts caching to these prefixes.
	IncludePaths []string
}

// DefaultCachingPolicy caches every endpoint.
func DefaultCachingPolicy() *CachingPolicy {
	return &CachingPolicy{}
}

// ShouldCache reports whether a response may be cached. Only successful GET
// responses are eligible.
func (p *CachingPolicy) ShouldCache(method, path string, statusCode int) bool {
	if method != http.MethodGet || statusCode < 200 || statusCode >= 300 {
		return false
	}

	for _, prefix := range p.ExcludePaths {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	if len(p.IncludePaths) == 0 {
		return true
	}

	for _, prefix := range p.IncludePaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
