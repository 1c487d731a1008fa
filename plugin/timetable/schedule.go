package timetable

import (
	"log/slog"
	"strings"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
)

// BuildWeekly normalizes grid and parses it into a WeeklySchedule.
//
// The first row is the time header and is skipped. The remaining rows are
// read cell by cell: a weekday name starts that day, every following cell is
// the next slot of the day. Cells that do not parse cleanly are logged and
// kept in best-effort form. Cells beyond SlotsPerDay are ignored.
func BuildWeekly(grid RawGrid, logger *slog.Logger) WeeklySchedule {
	if logger == nil {
		logger = slog.Default()
	}

	normalized := Normalize(grid)
	days := make(map[string][]SlotEntry)
	if len(normalized) < 2 {
		logger.Warn("timetable grid has no day rows", slog.Int("rows", len(normalized)))
		return NewWeeklySchedule(days)
	}

	var current string
	for _, row := range normalized[1:] {
		for _, cell := range row {
			trimmed := strings.TrimSpace(cell)
			if isWeekdayHeader(trimmed) {
				current = trimmed
				days[current] = make([]SlotEntry, 0, SlotsPerDay)
				continue
			}
			if current == "" {
				continue
			}
			if len(days[current]) >= SlotsPerDay {
				if trimmed != "" {
					logger.Warn("cell beyond the last time slot ignored",
						slog.String("day", current),
						slog.String("cell", trimmed),
					)
				}
				continue
			}
			days[current] = append(days[current], parseEntry(cell, current, len(days[current]), logger))
		}
	}

	return NewWeeklySchedule(days)
}

// ParseCell tokenizes a cell and parses each of its variants.
// Errors of individual variants are joined; every variant is returned.
func ParseCell(cell string) (SlotEntry, []error) {
	var entry SlotEntry
	var errs []error
	for _, text := range Tokenize(cell) {
		v, err := ParseVariant(text)
		if err != nil {
			errs = append(errs, err)
		}
		entry.Variants = append(entry.Variants, v)
	}
	return entry, errs
}

func parseEntry(cell, day string, slot int, logger *slog.Logger) SlotEntry {
	entry, errs := ParseCell(cell)
	for _, err := range errs {
		logger.Warn("timetable cell parsed with errors",
			slog.String("day", day),
			slog.Int("slot", slot),
			slog.String("error_code", string(serrors.GetCodeFromError(err, serrors.ErrCodeMalformedTable))),
			slog.String("error", err.Error()),
		)
	}
	return entry
}
