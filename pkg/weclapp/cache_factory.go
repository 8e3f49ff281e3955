package weclapp

import (
	"context"
	"fmt"
	"time"
)

// CacheType selects where cached weclapp GET responses are kept.
type CacheType string

const (
	// CacheTypeMemory keeps responses in the process.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS keeps responses in a JetStream KV bucket shared by every
	// client pointed at the same tenant.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeChain answers from memory first and falls back to NATS KV.
	CacheTypeChain CacheType = "chain"

	// CacheTypeNone sends every query to the tenant.
	CacheTypeNone CacheType = "none"
)

// DefaultCacheCleanupInterval is how often a memory cache drops expired
// responses when no interval is configured.
const DefaultCacheCleanupInterval = time.Minute

// CacheConfig selects and sizes the response cache of a Client. Entity
// lookups and list queries are cached by method, path and rendered query, so
// two identical QueryParams share an entry.
type CacheConfig struct {
	Type CacheType

	// Memory sizes the in-process store of the memory and chain types.
	Memory *MemoryCacheConfig

	// NATS locates the KV bucket of the nats and chain types.
	NATS *NATSKVConfig

	// Options carry TTL and write invalidation. Nil means DefaultCacheOptions().
	Options *CacheOptions
}

// MemoryCacheConfig sizes the in-process response store.
type MemoryCacheConfig struct {
	// MaxSize caps the number of cached responses; the least recently read
	// one is evicted first.
	MaxSize int

	// CleanupInterval controls the background sweep of expired responses.
	// Zero selects DefaultCacheCleanupInterval, a negative value disables it.
	CleanupInterval time.Duration
}

// DefaultCacheConfig caches up to DefaultCacheSize responses in memory for
// five minutes and drops them all when the client writes.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		Memory:  &MemoryCacheConfig{MaxSize: DefaultCacheSize},
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig builds the response store described by config. The
// memory sweep stops when ctx is done; NATS connections opened here are
// released by CloseCache.
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		return NewMemoryCacheFromConfig(ctx, config.Memory), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeChain:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		shared, err := NewNATSKVCache(config.NATS)
		if err != nil {
			return nil, err
		}

		return NewCacheChain(NewMemoryCacheFromConfig(ctx, config.Memory), shared), nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates an in-process store and starts its sweep.
func NewMemoryCacheFromConfig(ctx context.Context, config *MemoryCacheConfig) *MemoryCache {
	if config == nil {
		config = &MemoryCacheConfig{MaxSize: DefaultCacheSize}
	}

	cache := NewMemoryCache(config.MaxSize)

	interval := config.CleanupInterval
	if interval == 0 {
		interval = DefaultCacheCleanupInterval
	}

	cache.StartCleanup(ctx, interval)

	return cache
}

// CloseCache releases connections held by cache, including those of every
// layer of a CacheChain. Caches without connections are left alone.
func CloseCache(cache Cache) {
	if closer, ok := cache.(interface{ Close() }); ok {
		closer.Close()
	}
}

// NoOpCache never holds a response.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses with ErrCacheDisabled.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheChain layers response stores, fastest first.
type CacheChain struct {
	layers []Cache
}

func NewCacheChain(layers ...Cache) *CacheChain {
	return &CacheChain{layers: layers}
}

// Get answers from the first layer holding key and copies the response into
// the faster layers in front of it.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, layer := range c.layers {
		entry, err := layer.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, faster := range c.layers[:i] {
			_ = faster.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrCacheMiss
}

// Set writes to every layer and reports the last failure.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(layer Cache) error { return layer.Set(ctx, key, entry) })
}

func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(layer Cache) error { return layer.Delete(ctx, key) })
}

// Clear empties every layer; a client write invalidates through here.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(layer Cache) error { return layer.Clear(ctx) })
}

func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, layer := range c.layers {
		if layer.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close releases the connections of every layer.
func (c *CacheChain) Close() {
	for _, layer := range c.layers {
		CloseCache(layer)
	}
}

func (c *CacheChain) each(apply func(layer Cache) error) error {
	var lastErr error

	for _, layer := range c.layers {
		err := apply(layer)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}
