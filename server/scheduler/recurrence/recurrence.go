// Package recurrence parses and evaluates timetable date tokens.
//
// A date token is the bracketed annotation attached to every session in the
// timetable, for example "[01.09-22.12 к.н., 29.12]". It holds comma-separated
// rules of three shapes:
//
//   - "dd.mm"                 exact date, recurring every year
//   - "dd.mm-dd.mm к.н."      every week inside the inclusive range
//   - "dd.mm-dd.mm ч.н."      every other week inside the range, parity fixed by the start
//
// A token is active on a date when any of its rules is.
package recurrence

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
)

// Kind represents the rule shape.
type Kind string

const (
	Exact      Kind = "EXACT"
	Continuous Kind = "CONTINUOUS"
	Biweekly   Kind = "BIWEEKLY"
)

const (
	// ContinuousSuffix marks a range that runs every week ("каждую неделю").
	ContinuousSuffix = "к.н."
	// BiweeklySuffix marks a range that runs every other week ("через неделю").
	BiweeklySuffix = "ч.н."

	ruleSeparator  = ", "
	rangeSeparator = "-"

	biweeklyPeriodDays = 14
	// maxBetweenDays bounds Between to about ten years of days.
	maxBetweenDays = 3660
)

// DayMonth is a year-less calendar date.
type DayMonth struct {
	Day   int
	Month time.Month
}

// String returns the "dd.mm" form.
func (d DayMonth) String() string {
	return fmt.Sprintf("%02d.%02d", d.Day, int(d.Month))
}

func (d DayMonth) in(year int) time.Time {
	return time.Date(year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Rule represents one parsed recurrence rule.
type Rule struct {
	Kind  Kind
	Start DayMonth
	End   DayMonth // zero for Exact
}

// Token represents a parsed date token.
type Token struct {
	Raw   string
	Rules []Rule
}

// Parser parses date tokens.
type Parser struct{}

// NewParser creates a new date token parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a date token with or without its surrounding brackets.
// Rules that cannot be parsed are left out of the token and reported as
// RECURRENCE_PARSE errors joined into the returned error. The token is
// never nil, so callers may keep evaluating the rules that did parse.
func (p *Parser) Parse(token string) (*Token, error) {
	raw := strings.TrimSpace(token)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	raw = strings.TrimSpace(raw)

	t := &Token{Raw: raw}
	if raw == "" {
		return t, serrors.RecurrenceParse(raw, fmt.Errorf("empty date token"))
	}

	var errs []error
	for _, part := range strings.Split(raw, ruleSeparator) {
		rule, err := p.ParseRule(part)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.Rules = append(t.Rules, rule)
	}

	return t, stderrors.Join(errs...)
}

// ParseRule parses a single rule such as "05.09", "01.09-22.12 к.н." or "08.09-15.12 ч.н.".
func (p *Parser) ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)

	if !strings.Contains(s, rangeSeparator) {
		dm, err := parseDayMonth(s)
		if err != nil {
			return Rule{}, serrors.RecurrenceParse(s, err)
		}
		return Rule{Kind: Exact, Start: dm}, nil
	}

	var kind Kind
	body := s
	switch {
	case strings.HasSuffix(s, ContinuousSuffix):
		kind = Continuous
		body = strings.TrimSuffix(s, ContinuousSuffix)
	case strings.HasSuffix(s, BiweeklySuffix):
		kind = Biweekly
		body = strings.TrimSuffix(s, BiweeklySuffix)
	default:
		return Rule{}, serrors.RecurrenceParse(s, fmt.Errorf("range without %q or %q suffix", ContinuousSuffix, BiweeklySuffix))
	}

	bounds := strings.Split(strings.TrimSpace(body), rangeSeparator)
	if len(bounds) != 2 {
		return Rule{}, serrors.RecurrenceParse(s, fmt.Errorf("range must have exactly two bounds"))
	}
	start, err := parseDayMonth(bounds[0])
	if err != nil {
		return Rule{}, serrors.RecurrenceParse(s, err)
	}
	end, err := parseDayMonth(bounds[1])
	if err != nil {
		return Rule{}, serrors.RecurrenceParse(s, err)
	}

	return Rule{Kind: kind, Start: start, End: end}, nil
}

func parseDayMonth(s string) (DayMonth, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 {
		return DayMonth{}, fmt.Errorf("expected dd.mm, got %q", s)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return DayMonth{}, fmt.Errorf("invalid day in %q: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return DayMonth{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return DayMonth{}, fmt.Errorf("month out of range in %q", s)
	}
	// 2024 is a leap year, so 29.02 is accepted.
	if day < 1 || day > daysInMonth(2024, month) {
		return DayMonth{}, fmt.Errorf("day out of range in %q", s)
	}
	return DayMonth{Day: day, Month: time.Month(month)}, nil
}

// ActiveOn reports whether the rule matches the calendar date of target.
// The time of day and the location offset of target are ignored.
func (r Rule) ActiveOn(target time.Time) bool {
	day := civilDate(target)

	switch r.Kind {
	case Exact:
		return day.Day() == r.Start.Day && day.Month() == r.Start.Month
	case Continuous:
		start, end := r.window(day)
		return !day.Before(start) && !day.After(end)
	case Biweekly:
		start, end := r.window(day)
		if day.Before(start) || day.After(end) {
			return false
		}
		return daysBetween(start, day)%biweeklyPeriodDays == 0
	}
	return false
}

// window builds the range in the target's year. A range whose end precedes its
// start spans a year boundary: the end rolls into the next year, and a target
// in the early part of the year falls into the range anchored one year before.
func (r Rule) window(day time.Time) (time.Time, time.Time) {
	year := day.Year()
	start := r.Start.in(year)
	end := r.End.in(year)
	if end.Before(start) {
		if day.Before(start) {
			return r.Start.in(year - 1), end
		}
		end = r.End.in(year + 1)
	}
	return start, end
}

// String returns the rule in token form.
func (r Rule) String() string {
	switch r.Kind {
	case Continuous:
		return fmt.Sprintf("%s-%s %s", r.Start, r.End, ContinuousSuffix)
	case Biweekly:
		return fmt.Sprintf("%s-%s %s", r.Start, r.End, BiweeklySuffix)
	}
	return r.Start.String()
}

// ActiveOn reports whether any rule of the token matches target.
func (t *Token) ActiveOn(target time.Time) bool {
	if t == nil {
		return false
	}
	for _, rule := range t.Rules {
		if rule.ActiveOn(target) {
			return true
		}
	}
	return false
}

// Between lists the dates in [from, to] on which the token is active.
// Dates are returned as UTC midnights of the calendar days.
func (t *Token) Between(from, to time.Time) []time.Time {
	var dates []time.Time

	current := civilDate(from)
	last := civilDate(to)
	for i := 0; !current.After(last) && i < maxBetweenDays; i++ {
		if t.ActiveOn(current) {
			dates = append(dates, current)
		}
		current = current.AddDate(0, 0, 1)
	}

	return dates
}

// String returns the normalized token without brackets.
func (t *Token) String() string {
	parts := make([]string, len(t.Rules))
	for i, rule := range t.Rules {
		parts[i] = rule.String()
	}
	return strings.Join(parts, ruleSeparator)
}

// IsActive parses token and reports whether it is active on target.
// Unparseable rules never match.
func IsActive(token string, target time.Time) bool {
	t, _ := NewParser().Parse(token)
	return t.ActiveOn(target)
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	}
	return 30
}

func isLeapYear(year int) bool {
	if year%4 != 0 {
		return false
	}
	if year%100 != 0 {
		return true
	}
	return year%400 == 0
}
