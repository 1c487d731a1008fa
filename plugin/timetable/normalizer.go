package timetable

import (
	"slices"
	"strings"
)

// Normalize merges continuation rows into the row they continue.
//
// A row after the first whose first column is empty continues the closest row
// above it that is not itself a continuation. Each non-empty cell of the
// continuation is appended to the origin's cell in the same column, separated
// by a newline, and the continuation row is dropped. Text whose origin cell is
// empty has nothing to attach to and is lost. Rows left entirely empty are
// dropped. The input grid is not modified, and Normalize(Normalize(g)) equals
// Normalize(g).
func Normalize(grid RawGrid) RawGrid {
	if len(grid) == 0 {
		return RawGrid{}
	}

	merged := make(RawGrid, 0, len(grid))
	merged = append(merged, slices.Clone(grid[0]))
	origin := 0

	for _, row := range grid[1:] {
		if len(row) > 0 && !isBlank(row[0]) {
			merged = append(merged, slices.Clone(row))
			origin = len(merged) - 1
			continue
		}

		target := merged[origin]
		for j := 1; j < len(row); j++ {
			if isBlank(row[j]) {
				continue
			}
			if j >= len(target) || isBlank(target[j]) {
				continue
			}
			target[j] = target[j] + "\n" + row[j]
		}
	}

	result := make(RawGrid, 0, len(merged))
	for _, row := range merged {
		if !isBlankRow(row) {
			result = append(result, row)
		}
	}
	return result
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if !isBlank(cell) {
			return false
		}
	}
	return true
}
