package tableextract

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
)

// CSVExtractor reads a grid exported by a spreadsheet or table tool.
// Quoted fields may span lines; rows may differ in length.
type CSVExtractor struct {
	config *Config
}

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor(config *Config) *CSVExtractor {
	if config == nil {
		config = DefaultConfig()
	}
	return &CSVExtractor{config: config}
}

// Extract reads the CSV file at path.
func (e *CSVExtractor) Extract(ctx context.Context, path string) (timetable.RawGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, serrors.ExtractionFailed(path, errors.Wrap(err, "failed to open csv"))
	}
	defer f.Close()

	grid, err := e.Read(ctx, f)
	if err != nil {
		return nil, serrors.ExtractionFailed(path, err)
	}
	return grid, nil
}

// Read parses CSV records from r.
func (e *CSVExtractor) Read(ctx context.Context, r io.Reader) (timetable.RawGrid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if e.config.Comma != 0 {
		reader.Comma = e.config.Comma
	}

	var grid timetable.RawGrid
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read csv record %d", len(grid)+1)
		}
		grid = append(grid, record)
	}
	if len(grid) == 0 {
		return nil, errors.New("csv has no rows")
	}
	return grid, nil
}
