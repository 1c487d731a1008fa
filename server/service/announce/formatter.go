// Package announce renders a resolved day as the Russian timetable message
// posted to the group chat.
package announce

import (
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
	"github.com/overklassniy/stankin-schedule/server/service/schedule"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

// Mode selects the opening sentence of a message.
type Mode int

const (
	// Announcement is the morning post for the current day.
	Announcement Mode = iota
	// Query answers a request for a given day.
	Query
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Query {
		return "query"
	}
	return "announcement"
}

// DayOff is returned instead of a message for a day that never has classes.
// Callers turn it into their own notice.
const DayOff = "Выходной"

// NoClasses is written under the header when no session is active.
const NoClasses = "Занятий нет."

// Field glyphs, one per block line kind.
const (
	GlyphCourse     = "📚"
	GlyphInstructor = "👤"
	GlyphKind       = "⚙️"
	GlyphSubgroup   = "📁"
	GlyphRoom       = "📍"
	GlyphDuration   = "🗓"
	GlyphTime       = "⏰"
)

const roomPrefix = "Кабинет "

// TimeRange is one fixed daily time slot.
type TimeRange struct {
	Start string
	End   string
}

// String returns "start - end".
func (r TimeRange) String() string {
	return r.Start + " - " + r.End
}

// DefaultTimeTable holds the eight daily slots.
var DefaultTimeTable = []TimeRange{
	{"8:30", "10:10"},
	{"10:20", "12:00"},
	{"12:20", "14:00"},
	{"14:10", "15:50"},
	{"16:00", "17:40"},
	{"18:00", "19:30"},
	{"19:40", "21:10"},
	{"21:20", "22:50"},
}

// Formatter renders resolved days. It is safe for concurrent use.
type Formatter struct {
	markup Markup
	times  []TimeRange
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithTimeTable replaces the default time table.
func WithTimeTable(times []TimeRange) Option {
	return func(f *Formatter) { f.times = times }
}

// NewFormatter creates a formatter writing markup. A nil markup renders plain text.
func NewFormatter(markup Markup, opts ...Option) *Formatter {
	if markup == nil {
		markup = Plain{}
	}
	f := &Formatter{markup: markup, times: DefaultTimeTable}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Markup returns the renderer in use.
func (f *Formatter) Markup() Markup {
	return f.markup
}

// Format renders day. A day off returns DayOff verbatim.
//
// Slots are walked with a pointer into the time table that advances once per
// slot, gaps included, so every session keeps the time of its column. A lab
// is shown from the start of its slot to the end of the next one.
func (f *Formatter) Format(day *schedule.ResolvedDay, target time.Time, mode Mode) (string, error) {
	if day == nil {
		return "", errors.New("resolved day is nil")
	}
	if day.DayOff {
		return DayOff, nil
	}

	name := day.Weekday
	if name == "" {
		var ok bool
		if name, ok = timetable.WeekdayName(target.Weekday()); !ok {
			return "", serrors.UnknownWeekday(target.Weekday())
		}
	}

	var b strings.Builder
	b.WriteString(f.markup.Bold(f.markup.Escape(header(name, target, mode))))
	b.WriteString("\n")

	var blocks []string
	pointer := 0
	for _, slot := range day.Slots {
		for _, v := range slot.Variants {
			blocks = append(blocks, f.markup.Quote(f.block(v, pointer)))
		}
		pointer++
	}

	if len(blocks) == 0 {
		b.WriteString(f.markup.Escape(NoClasses))
		return b.String(), nil
	}
	b.WriteString(strings.Join(blocks, f.markup.Separator()))
	return b.String(), nil
}

func header(weekday string, target time.Time, mode Mode) string {
	day := strings.ToLower(weekday)
	if mode == Query {
		return "Расписание на " + accusative(day) + " (" + timezone.FormatDate(target, target.Location()) + "):"
	}
	return "Доброе утро, сегодня " + day + ". Расписание на сегодня:"
}

// accusative turns a weekday name into the accusative case used after "на".
// Only the feminine names change: среда -> среду.
func accusative(day string) string {
	if strings.HasSuffix(day, "а") {
		return strings.TrimSuffix(day, "а") + "у"
	}
	return day
}

func (f *Formatter) block(v timetable.Variant, pointer int) string {
	var lines []string
	add := func(glyph, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, glyph+" "+f.markup.Escape(value))
		}
	}

	info := v.Session.Info()
	add(GlyphCourse, info.Course)
	add(GlyphInstructor, info.Instructor)
	add(GlyphKind, info.Label)
	if lab, ok := v.Session.(timetable.Lab); ok {
		add(GlyphSubgroup, lab.Subgroup)
	}
	add(GlyphRoom, roomLabel(info.Room))
	add(GlyphDuration, durationLabel(v.Dates))
	add(GlyphTime, f.timeRange(pointer, v.Session.Kind()))

	return strings.Join(lines, "\n")
}

// timeRange returns the time of the slot at pointer; labs take two slots.
// Pointers past the table have no time.
func (f *Formatter) timeRange(pointer int, kind timetable.Kind) string {
	r, ok := f.slotTime(pointer, kind)
	if !ok {
		return ""
	}
	return r.String()
}

func (f *Formatter) slotTime(pointer int, kind timetable.Kind) (TimeRange, bool) {
	if pointer < 0 || pointer >= len(f.times) {
		return TimeRange{}, false
	}
	r := f.times[pointer]
	if kind == timetable.KindLab && pointer+1 < len(f.times) {
		r.End = f.times[pointer+1].End
	}
	return r, true
}

func roomLabel(room string) string {
	if room != "" && strings.IndexFunc(room, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return roomPrefix + room
	}
	return room
}

func durationLabel(dates string) string {
	dates = strings.Trim(strings.TrimSpace(dates), "[]")
	return strings.ReplaceAll(dates, "-", " – ")
}
