package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/tableextract"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
)

var sampleGrid = timetable.RawGrid{
	{"", "8:30 - 10:10"},
	{"Понедельник", "Физика. лекция. 0312. [01.09-22.12 к.н.]"},
}

func countingFetcher(calls *atomic.Int32, grid timetable.RawGrid) Fetcher {
	return func(context.Context) (timetable.RawGrid, error) {
		calls.Add(1)
		return grid, nil
	}
}

type hitCounter struct {
	hits, misses atomic.Int32
}

func (h *hitCounter) RecordCache(hit bool) {
	if hit {
		h.hits.Add(1)
	} else {
		h.misses.Add(1)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 2})
	defer c.Close()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.SetWithTTL(ctx, "c", 3, time.Hour)
	assert.Equal(t, 2, c.Size(), "adding past MaxItems evicts one item")
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)

	c.Delete(ctx, "c")
	_, ok = c.Get(ctx, "c")
	assert.False(t, ok)

	c.Clear(ctx)
	assert.Zero(t, c.Size())
}

func TestTieredCache_FetchesOnce(t *testing.T) {
	ctx := context.Background()
	recorder := &hitCounter{}
	tc := NewTieredCache(nil, nil, WithHitRecorder(recorder))
	defer tc.Close()

	var calls atomic.Int32
	grid, err := tc.Get(ctx, "k", countingFetcher(&calls, sampleGrid))
	require.NoError(t, err)
	assert.Equal(t, sampleGrid, grid)

	grid[1][0] = "changed"
	again, err := tc.Get(ctx, "k", countingFetcher(&calls, sampleGrid))
	require.NoError(t, err)
	assert.Equal(t, "Понедельник", again[1][0], "cached grid is isolated from callers")

	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, recorder.hits.Load())
	assert.EqualValues(t, 1, recorder.misses.Load())

	stats := tc.Stats()
	assert.Equal(t, 1, stats.L1Size)
	assert.False(t, stats.L2Enabled)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestTieredCache_ConcurrentMissFetchesOnce(t *testing.T) {
	tc := NewTieredCache(nil, nil)
	defer tc.Close()

	var calls atomic.Int32
	fetch := func(context.Context) (timetable.RawGrid, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return sampleGrid, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grid, err := tc.Get(context.Background(), "k", fetch)
			assert.NoError(t, err)
			assert.Len(t, grid, 2)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestTieredCache_Errors(t *testing.T) {
	ctx := context.Background()
	tc := NewTieredCache(nil, nil)
	defer tc.Close()

	_, err := tc.Get(ctx, "k", nil)
	assert.ErrorIs(t, err, ErrMiss)

	boom := errors.New("boom")
	_, err = tc.Get(ctx, "k", func(context.Context) (timetable.RawGrid, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	var calls atomic.Int32
	_, err = tc.Get(ctx, "k", countingFetcher(&calls, sampleGrid))
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load(), "failed fetches are not cached")
}

func TestTieredCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	tc := NewTieredCache(nil, nil)
	defer tc.Close()

	tc.Set(ctx, "k", sampleGrid)
	replacement := timetable.RawGrid{{"", "10:20 - 12:00"}}
	require.NoError(t, tc.Invalidate(ctx, "k", func(context.Context) (timetable.RawGrid, error) {
		return replacement, nil
	}))

	grid, err := tc.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.Equal(t, replacement, grid)

	tc.Clear(ctx)
	_, err = tc.Get(ctx, "k", nil)
	assert.ErrorIs(t, err, ErrMiss)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	config := DefaultRedisConfig()
	config.Addr = mr.Addr()
	rc, err := NewRedisCache(context.Background(), config, nil)
	require.NoError(t, err)
	return mr, rc
}

func TestTieredCache_SharedRedisTier(t *testing.T) {
	ctx := context.Background()
	mr, rc := newTestRedis(t)

	first := NewTieredCache(nil, rc)
	var calls atomic.Int32
	_, err := first.Get(ctx, "k", countingFetcher(&calls, sampleGrid))
	require.NoError(t, err)
	assert.True(t, mr.Exists("stankin:k"))
	assert.True(t, first.Stats().L2Enabled)

	// A second process with a cold L1 reads the grid from Redis.
	second := NewTieredCache(nil, rc)
	grid, err := second.Get(ctx, "k", countingFetcher(&calls, sampleGrid))
	require.NoError(t, err)
	assert.Equal(t, sampleGrid, grid)
	assert.EqualValues(t, 1, calls.Load())

	require.NoError(t, second.Close())
}

func TestTieredCache_UndecodableRedisValue(t *testing.T) {
	ctx := context.Background()
	mr, rc := newTestRedis(t)
	defer rc.Close()
	require.NoError(t, mr.Set("stankin:k", "not json"))

	tc := NewTieredCache(nil, rc)
	var calls atomic.Int32
	grid, err := tc.Get(ctx, "k", countingFetcher(&calls, sampleGrid))
	require.NoError(t, err)
	assert.Equal(t, sampleGrid, grid)
	assert.EqualValues(t, 1, calls.Load())

	stored, err := mr.Get("stankin:k")
	require.NoError(t, err)
	assert.NotEqual(t, "not json", stored)
}

func TestRedisCache_ClearKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	mr, rc := newTestRedis(t)
	defer rc.Close()

	rc.Set(ctx, "a", []byte("1"))
	rc.SetWithTTL(ctx, "b", []byte("2"), time.Minute)
	require.NoError(t, mr.Set("other:c", "3"))

	v, ok := rc.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	rc.Delete(ctx, "a")
	_, ok = rc.Get(ctx, "a")
	assert.False(t, ok)

	rc.Clear(ctx)
	assert.False(t, mr.Exists("stankin:b"))
	assert.True(t, mr.Exists("other:c"))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	config := DefaultRedisConfig()
	config.Addr = addr
	_, err = NewRedisCache(context.Background(), config, nil)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Len(t, KeyHash("x"), 16)
	assert.Equal(t, GenerateCacheKey("a", "b"), GenerateCacheKey("a", "b"))
	assert.NotEqual(t, GenerateCacheKey("a", "b"), GenerateCacheKey("a", "c"))
	assert.Contains(t, GenerateCacheKey("a", "b"), "a:b:")
}

type countingExtractor struct {
	calls atomic.Int32
}

func (e *countingExtractor) Extract(ctx context.Context, path string) (timetable.RawGrid, error) {
	e.calls.Add(1)
	return tableextract.NewCSVExtractor(nil).Extract(ctx, path)
}

func TestGridLoader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "timetable.csv")
	require.NoError(t, os.WriteFile(path, []byte(",8:30 - 10:10\nПонедельник,Физика\n"), 0o600))

	extractor := &countingExtractor{}
	loader := NewGridLoader(NewTieredCache(nil, nil), nil)
	loader.extractorFor = func(string, *tableextract.Config) (tableextract.Extractor, error) {
		return extractor, nil
	}

	grid, err := loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, timetable.RawGrid{{"", "8:30 - 10:10"}, {"Понедельник", "Физика"}}, grid)

	_, err = loader.Load(ctx, path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, extractor.calls.Load())

	// New content is a new key.
	require.NoError(t, os.WriteFile(path, []byte(",8:30 - 10:10\nВторник,Химия\n"), 0o600))
	grid, err = loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Вторник", grid[1][0])
	assert.EqualValues(t, 2, extractor.calls.Load())
	assert.Equal(t, 2, loader.Cache().Stats().L1Size)
}

func TestGridLoader_Errors(t *testing.T) {
	loader := NewGridLoader(NewTieredCache(nil, nil), nil)

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeExtractionFailed))

	_, err = loader.Load(context.Background(), "timetable.docx")
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeExtractionFailed))
}
