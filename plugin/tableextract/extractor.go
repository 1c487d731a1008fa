// Package tableextract reads the timetable table out of a source document
// into a raw grid of cell texts.
package tableextract

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
)

// SupportedExtensions lists the file extensions ForPath accepts.
var SupportedExtensions = []string{".pdf", ".csv"}

// Extractor reads the first timetable table of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (timetable.RawGrid, error)
}

// Config holds the extraction configuration.
type Config struct {
	// Page is the 1-based PDF page holding the table.
	Page int
	// Tolerance is the distance in points under which two ruling edges are the same line.
	Tolerance float64
	// Comma is the CSV field separator.
	Comma rune
}

// DefaultConfig returns the default extraction configuration.
func DefaultConfig() *Config {
	return &Config{
		Page:      1,
		Tolerance: 2,
		Comma:     ',',
	}
}

// IsSupported reports whether path has an extension ForPath can handle.
func IsSupported(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// ForPath returns the extractor for the file type of path.
func ForPath(path string, config *Config) (Extractor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDFExtractor(config), nil
	case ".csv":
		return NewCSVExtractor(config), nil
	}
	return nil, serrors.ExtractionFailed(path, serrors.InvalidConfig("unsupported timetable file type "+filepath.Ext(path)))
}

// Stats summarizes an extracted grid.
type Stats struct {
	Rows     int
	Columns  int
	NonEmpty int
}

// GridStats counts the rows, widest row and non-empty cells of grid.
func GridStats(grid timetable.RawGrid) Stats {
	s := Stats{Rows: len(grid)}
	for _, row := range grid {
		s.Columns = max(s.Columns, len(row))
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				s.NonEmpty++
			}
		}
	}
	return s
}
