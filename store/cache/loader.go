package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/tableextract"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
)

// GridLoader extracts timetable grids from source files through the cache.
// Grids are keyed by file content, so replacing the timetable file takes
// effect on the next load without any invalidation.
type GridLoader struct {
	cache        *TieredCache
	config       *tableextract.Config
	extractorFor func(path string, config *tableextract.Config) (tableextract.Extractor, error)
}

// NewGridLoader creates a loader backed by cache.
func NewGridLoader(cache *TieredCache, config *tableextract.Config) *GridLoader {
	if config == nil {
		config = tableextract.DefaultConfig()
	}
	return &GridLoader{
		cache:        cache,
		config:       config,
		extractorFor: tableextract.ForPath,
	}
}

// Load returns the raw grid of the timetable file at path.
func (l *GridLoader) Load(ctx context.Context, path string) (timetable.RawGrid, error) {
	extractor, err := l.extractorFor(path, l.config)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.ExtractionFailed(path, errors.Wrap(err, "failed to read timetable file"))
	}

	return l.cache.Get(ctx, l.key(path, data), func(ctx context.Context) (timetable.RawGrid, error) {
		return extractor.Extract(ctx, path)
	})
}

// Cache returns the underlying tiered cache.
func (l *GridLoader) Cache() *TieredCache {
	return l.cache
}

func (l *GridLoader) key(path string, data []byte) string {
	sum := sha256.Sum256(data)
	return GenerateCacheKey(
		"grid",
		strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		"p"+strconv.Itoa(l.config.Page),
		hex.EncodeToString(sum[:]),
	)
}
