package timetable

import (
	stderrors "errors"
	"strings"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/server/scheduler/recurrence"
)

// Kind keywords as they appear in the second field of a cell.
const (
	lectureKeyword  = "лекци" // лекция, лекции
	seminarKeyword  = "семинар"
	labKeyword      = "лабораторные занятия"
	lectureSingular = "лекция"
)

// ParseVariant parses one tokenized variant into a tagged Session.
//
// Layouts, one field per line, the date token always last:
//
//	lecture, seminar:  course / [instructor] / kind / room / [dates]
//	lab:               course / [instructor] / kind / subgroup / room / [dates]
//	practice:          course / instructor / kind / room / [dates]
//
// The kind is found by keyword; when the second field is not a known keyword
// it is an instructor name and the kind comes from the third field, with
// anything unrecognized taken as a Practice. Text after the date token is kept
// in Variant.Text only. A layout mismatch
// returns a MALFORMED_TABLE error together with a best-effort Variant, and an
// unparseable date token returns RECURRENCE_PARSE errors; the Variant is
// usable in both cases.
func ParseVariant(text string) (Variant, error) {
	body, dates, hasToken := splitDateToken(text)
	lines := splitLines(body)

	v := Variant{Text: text, Dates: dates}
	token, tokenErr := recurrence.NewParser().Parse(dates)
	v.Token = token

	if !hasToken {
		v.Session = Practice{Base: Base{Course: first(lines)}}
		return v, stderrors.Join(serrors.MalformedTable("cell has no date token", text), tokenErr)
	}

	session, layoutErr := parseSession(lines, text)
	v.Session = session
	return v, stderrors.Join(layoutErr, tokenErr)
}

func parseSession(lines []string, text string) (Session, error) {
	if len(lines) < 2 {
		return Practice{Base: Base{Course: first(lines)}}, serrors.MalformedTable("too few fields", text)
	}

	course := lines[0]
	if kind, ok := detectKind(lines[1]); ok {
		return buildSession(kind, course, "", lines[1], lines[2:], text)
	}

	instructor := withTrailingDot(lines[1])
	if len(lines) < 3 {
		return Practice{Base: Base{Course: course, Instructor: instructor}},
			serrors.MalformedTable("missing session type", text)
	}

	kind, ok := detectKind(lines[2])
	if !ok {
		kind = KindPractice
	}
	return buildSession(kind, course, instructor, lines[2], lines[3:], text)
}

func buildSession(kind Kind, course, instructor, label string, rest []string, text string) (Session, error) {
	base := Base{Course: course, Label: displayLabel(label), Instructor: instructor}

	var err error
	switch kind {
	case KindLab:
		lab := Lab{Base: base}
		if len(rest) > 0 {
			lab.Subgroup = rest[0]
			rest = rest[1:]
		}
		lab.Room, err = roomField(rest, text)
		if lab.Subgroup == "" && err == nil {
			err = serrors.MalformedTable("lab without subgroup", text)
		}
		return lab, err
	case KindLecture:
		base.Room, err = roomField(rest, text)
		return Lecture{Base: base}, err
	case KindSeminar:
		base.Room, err = roomField(rest, text)
		return Seminar{Base: base}, err
	}

	base.Room, err = roomField(rest, text)
	return Practice{Base: base}, err
}

// roomField expects exactly one remaining line. Extra lines are kept, joined
// the way they were separated in the source.
func roomField(rest []string, text string) (string, error) {
	switch len(rest) {
	case 1:
		return rest[0], nil
	case 0:
		return "", serrors.MalformedTable("missing room", text)
	}
	return strings.Join(rest, fieldSeparator), serrors.MalformedTable("unexpected extra fields", text)
}

func detectKind(field string) (Kind, bool) {
	lower := strings.ToLower(strings.TrimSpace(field))
	switch {
	case strings.HasPrefix(lower, lectureKeyword):
		return KindLecture, true
	case strings.HasPrefix(lower, seminarKeyword):
		return KindSeminar, true
	case strings.HasPrefix(lower, labKeyword):
		return KindLab, true
	}
	return "", false
}

// displayLabel normalizes the plural "лекции" used by the source to "лекция".
func displayLabel(label string) string {
	if strings.HasPrefix(strings.ToLower(label), lectureKeyword) {
		return lectureSingular
	}
	return label
}

// splitDateToken cuts the last bracketed date token off the text.
func splitDateToken(text string) (body, dates string, ok bool) {
	closeIdx := strings.LastIndexByte(text, tokenClose)
	if closeIdx < 0 {
		return text, "", false
	}
	openIdx := strings.LastIndexByte(text[:closeIdx], tokenOpen)
	if openIdx < 0 {
		return text[:closeIdx], "", false
	}
	return text[:openIdx], strings.TrimSpace(text[openIdx+1 : closeIdx]), true
}

// withTrailingDot restores the final dot of initials, which the field split consumes.
func withTrailingDot(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

func first(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
