package announce

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/overklassniy/stankin-schedule/plugin/timetable"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

// Occurrence is one dated session of the term.
type Occurrence struct {
	// Date is the UTC midnight of the calendar day.
	Date    time.Time
	Slot    int
	Time    TimeRange
	Variant timetable.Variant
}

// String returns a one-line summary of the date, time, course and details.
func (o Occurrence) String() string {
	info := o.Variant.Session.Info()
	var b strings.Builder
	b.WriteString(timezone.FormatDate(o.Date, time.UTC))
	if o.Time != (TimeRange{}) {
		b.WriteString(" " + o.Time.String())
	}
	b.WriteString(" " + strings.TrimSuffix(info.Course, "."))

	var details []string
	for _, v := range []string{info.Label, info.Instructor, subgroup(o.Variant.Session), info.Room} {
		if v != "" {
			details = append(details, v)
		}
	}
	if len(details) > 0 {
		b.WriteString(" (" + strings.Join(details, ", ") + ")")
	}
	return b.String()
}

func subgroup(s timetable.Session) string {
	if lab, ok := s.(timetable.Lab); ok {
		return lab.Subgroup
	}
	return ""
}

// Occurrences expands weekly into the sessions held in [from, to], ordered by
// date and slot. A variant counts only on the weekdays of its own column.
func (f *Formatter) Occurrences(weekly timetable.WeeklySchedule, from, to time.Time) []Occurrence {
	var out []Occurrence
	for _, name := range weekly.Days() {
		slots, _ := weekly.Day(name)
		for slot, entry := range slots {
			for _, v := range entry.Variants {
				r, _ := f.slotTime(slot, v.Session.Kind())
				for _, date := range v.Token.Between(from, to) {
					if day, ok := timetable.WeekdayName(date.Weekday()); !ok || day != name {
						continue
					}
					out = append(out, Occurrence{Date: date, Slot: slot, Time: r, Variant: v})
				}
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Occurrence) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})
	return out
}
