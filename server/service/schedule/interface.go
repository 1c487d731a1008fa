package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/overklassniy/stankin-schedule/plugin/timetable"
)

// Service resolves a weekly timetable into the sessions of one date.
// Implementations hold no schedule state: the WeeklySchedule is passed with
// every call, so concurrent calls for different dates never share data.
type Service interface {
	// Resolve returns the sessions active on target.
	// Sundays resolve to a day-off result without reading weekly.
	Resolve(ctx context.Context, weekly timetable.WeeklySchedule, target time.Time) (*ResolvedDay, error)

	// ResolveOffset resolves the date offset days away from now, in the service time zone.
	ResolveOffset(ctx context.Context, weekly timetable.WeeklySchedule, now time.Time, offset int) (*ResolvedDay, error)
}

// ResolvedSlot is one fixed time slot of a resolved day.
type ResolvedSlot struct {
	// Index is the position in the fixed daily time table.
	Index int
	// Variants holds the sessions active in the slot; empty for a gap.
	Variants []timetable.Variant
}

// IsGap reports whether no session is active in the slot.
func (s ResolvedSlot) IsGap() bool {
	return len(s.Variants) == 0
}

// String returns the course names of the slot joined by " / ", or GapLabel.
func (s ResolvedSlot) String() string {
	if s.IsGap() {
		return GapLabel
	}
	names := make([]string, len(s.Variants))
	for i, v := range s.Variants {
		names[i] = v.Session.Info().Course
	}
	return strings.Join(names, " / ")
}

// IsGroup reports whether parallel sessions are active in the slot.
func (s ResolvedSlot) IsGroup() bool {
	return len(s.Variants) > 1
}

// ResolvedDay is the timetable of one date.
type ResolvedDay struct {
	Date time.Time
	// Weekday is the timetable name of the day, empty on a day off.
	Weekday string
	DayOff  bool
	Slots   []ResolvedSlot
}

// SessionCount returns the number of active sessions across all slots.
func (d *ResolvedDay) SessionCount() int {
	n := 0
	for _, slot := range d.Slots {
		n += len(slot.Variants)
	}
	return n
}

// Outline lists the slots in order, gaps included.
func (d *ResolvedDay) Outline() []string {
	out := make([]string, len(d.Slots))
	for i, slot := range d.Slots {
		out[i] = slot.String()
	}
	return out
}

// HasSessions reports whether any session is active on the day.
func (d *ResolvedDay) HasSessions() bool {
	return d.SessionCount() > 0
}
