package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Config holds the L1 memory cache configuration.
type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	// MaxItems bounds the cache; zero means unbounded.
	MaxItems int
}

// Cache is the in-process L1 cache.
type Cache struct {
	items    *gocache.Cache
	maxItems int
}

// New creates a memory cache.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = gocache.NoExpiration
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	return &Cache{
		items:    gocache.New(config.DefaultTTL, config.CleanupInterval),
		maxItems: config.MaxItems,
	}
}

// Get returns the value stored under key.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	return c.items.Get(key)
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, gocache.DefaultExpiration)
}

// SetWithTTL stores value under key with a custom TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if c.maxItems > 0 {
		if _, exists := c.items.Get(key); !exists && c.items.ItemCount() >= c.maxItems {
			c.evict()
		}
	}
	c.items.Set(key, value, ttl)
}

// evict drops expired items, then the item closest to expiry if still full.
func (c *Cache) evict() {
	c.items.DeleteExpired()
	if c.items.ItemCount() < c.maxItems {
		return
	}

	var victim string
	var soonest int64
	for key, item := range c.items.Items() {
		exp := item.Expiration
		if exp == 0 {
			exp = int64(^uint64(0) >> 1)
		}
		if victim == "" || exp < soonest {
			victim, soonest = key, exp
		}
	}
	if victim != "" {
		c.items.Delete(victim)
	}
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) {
	c.items.Delete(key)
}

// Clear removes every item.
func (c *Cache) Clear(_ context.Context) {
	c.items.Flush()
}

// Size returns the number of items, including expired ones not yet cleaned up.
func (c *Cache) Size() int {
	return c.items.ItemCount()
}

// Close releases the cache contents.
func (c *Cache) Close() error {
	c.items.Flush()
	return nil
}
