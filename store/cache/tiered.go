package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/overklassniy/stankin-schedule/plugin/timetable"
)

// ErrMiss is returned by Get when no tier holds the key and no fetcher is given.
var ErrMiss = errors.New("cache miss")

// TieredCache caches extracted timetable grids in two tiers:
// - L1: in-process memory (always on)
// - L2: Redis (optional, shared between the bot and CLI runs)
//
// A miss in both tiers calls the fetcher once per key, however many callers
// are waiting on it.
type TieredCache struct {
	l1       *Cache
	l2       RedisCacheInterface
	l2TTL    time.Duration
	group    singleflight.Group
	hits     atomic.Int64
	misses   atomic.Int64
	recorder HitRecorder
	logger   *slog.Logger
}

// Fetcher produces the grid on a full miss.
type Fetcher func(ctx context.Context) (timetable.RawGrid, error)

// HitRecorder receives one call per lookup.
type HitRecorder interface {
	RecordCache(hit bool)
}

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int           // Max grids kept in memory
	L1TTL      time.Duration // TTL for L1 entries
	L2TTL      time.Duration // TTL for L2 Redis entries
}

// DefaultTieredConfig returns the default tiered cache configuration.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems: 16,
		L1TTL:      6 * time.Hour,
		L2TTL:      6 * time.Hour,
	}
}

// Option configures a TieredCache.
type Option func(*TieredCache)

// WithHitRecorder reports every lookup to r.
func WithHitRecorder(r HitRecorder) Option {
	return func(t *TieredCache) { t.recorder = r }
}

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *TieredCache) { t.logger = logger }
}

// NewTieredCache creates a tiered cache. A nil l2 disables the Redis tier.
func NewTieredCache(config *TieredCacheConfig, l2 RedisCacheInterface, opts ...Option) *TieredCache {
	if config == nil {
		config = DefaultTieredConfig()
	}
	if l2 == nil {
		l2 = NewNilRedisCache()
	}

	t := &TieredCache{
		l1: New(Config{
			DefaultTTL:      config.L1TTL,
			CleanupInterval: time.Minute,
			MaxItems:        config.L1MaxItems,
		}),
		l2:     l2,
		l2TTL:  config.L2TTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get returns the grid under key, checking L1, then L2, then the fetcher.
// The returned grid is a copy the caller may modify.
func (t *TieredCache) Get(ctx context.Context, key string, fetch Fetcher) (timetable.RawGrid, error) {
	if value, found := t.l1.Get(ctx, key); found {
		if grid, ok := value.(timetable.RawGrid); ok {
			t.record(true)
			return cloneGrid(grid), nil
		}
	}

	if data, found := t.l2.Get(ctx, key); found {
		var grid timetable.RawGrid
		err := json.Unmarshal(data, &grid)
		if err == nil {
			t.l1.Set(ctx, key, grid)
			t.record(true)
			return cloneGrid(grid), nil
		}
		t.logger.Warn("dropping undecodable cache value", "key", key, "error", err)
		t.l2.Delete(ctx, key)
	}

	t.record(false)
	if fetch == nil {
		return nil, ErrMiss
	}

	value, err, _ := t.group.Do(key, func() (any, error) {
		grid, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		t.Set(ctx, key, grid)
		return grid, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneGrid(value.(timetable.RawGrid)), nil
}

// Set stores grid in both tiers.
func (t *TieredCache) Set(ctx context.Context, key string, grid timetable.RawGrid) {
	t.l1.Set(ctx, key, cloneGrid(grid))

	data, err := json.Marshal(grid)
	if err != nil {
		t.logger.Warn("failed to encode cache value", "key", key, "error", err)
		return
	}
	t.l2.SetWithTTL(ctx, key, data, t.l2TTL)
}

// Delete removes key from both tiers.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	t.l2.Delete(ctx, key)
}

// Invalidate removes key and, when fetch is given, stores a fresh grid.
func (t *TieredCache) Invalidate(ctx context.Context, key string, fetch Fetcher) error {
	t.Delete(ctx, key)

	if fetch != nil {
		grid, err := fetch(ctx)
		if err != nil {
			return err
		}
		t.Set(ctx, key, grid)
	}
	return nil
}

// Clear empties both tiers.
func (t *TieredCache) Clear(ctx context.Context) {
	t.l1.Clear(ctx)
	t.l2.Clear(ctx)
}

// CacheStats represents combined cache statistics.
type CacheStats struct {
	L1Size    int     `json:"l1_size"`
	L2Enabled bool    `json:"l2_enabled"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
}

// Stats returns cache statistics.
func (t *TieredCache) Stats() CacheStats {
	_, nilL2 := t.l2.(*NilRedisCache)
	stats := CacheStats{
		L1Size:    t.l1.Size(),
		L2Enabled: !nilL2,
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close closes both tiers.
func (t *TieredCache) Close() error {
	l2Err := t.l2.Close()
	l1Err := t.l1.Close()
	if l2Err != nil {
		return errors.Wrap(l2Err, "failed to close L2 cache")
	}
	return l1Err
}

func (t *TieredCache) record(hit bool) {
	if hit {
		t.hits.Add(1)
	} else {
		t.misses.Add(1)
	}
	if t.recorder != nil {
		t.recorder.RecordCache(hit)
	}
}

func cloneGrid(grid timetable.RawGrid) timetable.RawGrid {
	if grid == nil {
		return nil
	}
	out := make(timetable.RawGrid, len(grid))
	for i, row := range grid {
		out[i] = append([]string(nil), row...)
	}
	return out
}
