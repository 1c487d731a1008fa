// Package timetable turns a raw timetable grid into an immutable weekly schedule.
//
// The pipeline is Normalize (merge continuation rows) -> Tokenize (split a cell
// into bracket-terminated variants) -> ParseVariant (keyword-driven layout
// detection into a tagged Session) -> BuildWeekly. Every step is pure.
package timetable

import (
	"slices"
	"time"

	"github.com/overklassniy/stankin-schedule/server/scheduler/recurrence"
)

// SlotsPerDay is the number of fixed daily time slots.
const SlotsPerDay = 8

// RawGrid is a table of free text cells as extracted from the source document.
type RawGrid [][]string

// Kind is the session type.
type Kind string

const (
	KindLecture  Kind = "lecture"
	KindSeminar  Kind = "seminar"
	KindLab      Kind = "lab"
	KindPractice Kind = "practice"
)

// Session is one parsed session description. The concrete types are
// Lecture, Seminar, Lab and Practice; each carries only the fields its
// layout actually has.
type Session interface {
	Kind() Kind
	Info() Base
	session()
}

// Base holds the fields every layout has.
type Base struct {
	Course string
	// Label is the session type as written in the source, e.g. "лекция".
	Label string
	// Room is a room number such as "0312" or a named location.
	Room string
	// Instructor is the teacher's name when the cell gives one.
	Instructor string
}

// Info returns the common fields.
func (b Base) Info() Base { return b }

func (Base) session() {}

// Lecture is a "лекции" session.
type Lecture struct{ Base }

// Kind implements Session.
func (Lecture) Kind() Kind { return KindLecture }

// Seminar is a "семинар" session.
type Seminar struct{ Base }

// Kind implements Session.
func (Seminar) Kind() Kind { return KindSeminar }

// Lab is a "лабораторные занятия" session. Labs occupy two consecutive time slots.
type Lab struct {
	Base
	// Subgroup is the subgroup label, e.g. "(А)".
	Subgroup string
}

// Kind implements Session.
func (Lab) Kind() Kind { return KindLab }

// Practice is any other session type.
type Practice struct{ Base }

// Kind implements Session.
func (Practice) Kind() Kind { return KindPractice }

// Variant is one candidate session occupying a slot, before recurrence is evaluated.
type Variant struct {
	// Text is the tokenized multi-line cell fragment the variant was parsed from.
	Text    string
	Session Session
	// Dates is the date token text without brackets.
	Dates string
	Token *recurrence.Token
}

// ActiveOn reports whether the variant's date token matches target.
func (v Variant) ActiveOn(target time.Time) bool {
	return v.Token.ActiveOn(target)
}

// SlotEntry holds the candidates of one time slot: none, one, or a group of
// parallel subgroup sessions.
type SlotEntry struct {
	Variants []Variant
}

// IsEmpty reports whether the slot has no candidates.
func (e SlotEntry) IsEmpty() bool { return len(e.Variants) == 0 }

// IsGroup reports whether the slot holds parallel candidates.
func (e SlotEntry) IsGroup() bool { return len(e.Variants) > 1 }

// Weekday names as they appear in the timetable header cells. Sunday never has classes.
const (
	Monday    = "Понедельник"
	Tuesday   = "Вторник"
	Wednesday = "Среда"
	Thursday  = "Четверг"
	Friday    = "Пятница"
	Saturday  = "Суббота"
	Sunday    = "Воскресенье"
)

var weekdayNames = map[time.Weekday]string{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// Weekdays lists the six teaching days in order.
var Weekdays = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayName returns the timetable name of a teaching day.
// It reports false for Sunday and for values outside the week.
func WeekdayName(day time.Weekday) (string, bool) {
	name, ok := weekdayNames[day]
	return name, ok
}

func isWeekdayHeader(cell string) bool {
	return slices.Contains(Weekdays, cell)
}

// WeeklySchedule maps weekday names to their slot entries in source order.
// It is immutable: accessors return copies.
type WeeklySchedule struct {
	days map[string][]SlotEntry
}

// NewWeeklySchedule builds a schedule from a day map. The map is copied.
func NewWeeklySchedule(days map[string][]SlotEntry) WeeklySchedule {
	copied := make(map[string][]SlotEntry, len(days))
	for name, slots := range days {
		copied[name] = slices.Clone(slots)
	}
	return WeeklySchedule{days: copied}
}

// Day returns the slots of a weekday.
func (w WeeklySchedule) Day(name string) ([]SlotEntry, bool) {
	slots, ok := w.days[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(slots), true
}

// Days returns the weekdays present in the schedule, Monday first.
func (w WeeklySchedule) Days() []string {
	var names []string
	for _, name := range Weekdays {
		if _, ok := w.days[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
