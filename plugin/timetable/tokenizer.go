package timetable

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	tokenOpen  = '['
	tokenClose = ']'

	fieldSeparator = ". "
)

// Tokenize splits a normalized cell into its session variants.
//
// The cell text is NFC-normalized, embedded newlines become spaces, and every
// ". " sentence separator becomes a line break so each field sits on its own
// line. A variant ends at the "]" that closes its date token, so a cell with
// stacked subgroup sessions yields one string per session. Text after the last
// date token stays with the variant before it. Fragments holding nothing but a
// bracket are discarded. An empty cell yields no variants.
func Tokenize(cell string) []string {
	text := normalizeCellText(cell)
	if text == "" {
		return nil
	}

	var variants []string
	start, depth := 0, 0
	for i, r := range text {
		switch r {
		case tokenOpen:
			depth++
		case tokenClose:
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				variants = appendFragment(variants, text[start:i+1])
				start = i + 1
			}
		}
	}
	if start < len(text) {
		variants = appendTrailing(variants, text[start:])
	}

	return variants
}

func normalizeCellText(cell string) string {
	text := norm.NFC.String(cell)
	text = strings.Join(strings.Fields(text), " ")
	return strings.ReplaceAll(text, fieldSeparator, "\n")
}

func appendFragment(variants []string, fragment string) []string {
	if text, ok := fragmentText(fragment); ok {
		return append(variants, text)
	}
	return variants
}

// appendTrailing attaches text that follows the last date token to the last
// variant. A cell without any date token becomes one variant.
func appendTrailing(variants []string, fragment string) []string {
	if len(variants) == 0 {
		return appendFragment(variants, fragment)
	}
	if text, ok := fragmentText(fragment); ok {
		variants[len(variants)-1] += "\n" + text
	}
	return variants
}

func fragmentText(fragment string) (string, bool) {
	lines := splitLines(fragment)
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == string(tokenClose)) {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// splitLines splits on newlines, trims every line and drops empty ones.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
