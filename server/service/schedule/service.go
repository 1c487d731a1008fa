// Package schedule resolves which timetable sessions are active on a date.
//
// Key features:
//   - Sunday short-circuits to a day-off result
//   - Gap slots keep their place so later slots map to the right time of day
//   - Parallel subgroup sessions are filtered by their own date tokens
//
// The service is a pure layer over plugin/timetable and server/scheduler/recurrence;
// it performs no I/O.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

type service struct {
	loc     *time.Location
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures the service.
type Option func(*service)

// WithLogger sets the logger used when the context carries no query context.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// NewService creates a new schedule service computing offsets in loc.
func NewService(loc *time.Location, opts ...Option) Service {
	if loc == nil {
		loc = timezone.MustParseTimezone(DefaultTimezone)
	}
	s := &service{
		loc:     loc,
		logger:  slog.Default(),
		metrics: observability.GlobalMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the sessions active on target.
func (s *service) Resolve(ctx context.Context, weekly timetable.WeeklySchedule, target time.Time) (*ResolvedDay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	day, err := resolveDay(weekly, target, target.Weekday())
	s.metrics.RecordOp(observability.OpResolve, time.Since(start), err)

	q := observability.FromContextOr(ctx, s.logger, observability.SourceCLI)
	if err != nil {
		q.Error("failed to resolve day", err,
			slog.String(observability.LogFieldTargetDate, timezone.FormatDate(target, target.Location())),
			slog.String(observability.LogFieldErrorCode, string(serrors.GetCodeFromError(err, serrors.ErrCodeUnknownWeekday))),
		)
		return nil, err
	}

	q.Debug("day resolved",
		slog.String(observability.LogFieldTargetDate, timezone.FormatDate(target, target.Location())),
		slog.Bool("day_off", day.DayOff),
		slog.Int(observability.LogFieldSlots, len(day.Slots)),
		slog.Int("sessions", day.SessionCount()),
		slog.Any("outline", day.Outline()),
	)
	return day, nil
}

// ResolveOffset resolves the date offset days away from now.
func (s *service) ResolveOffset(ctx context.Context, weekly timetable.WeeklySchedule, now time.Time, offset int) (*ResolvedDay, error) {
	if offset > MaxOffsetDays || offset < -MaxOffsetDays {
		return nil, serrors.InvalidConfig(fmt.Sprintf("day offset %d out of range ±%d", offset, MaxOffsetDays))
	}
	return s.Resolve(ctx, weekly, timezone.TargetDate(now, offset, s.loc))
}

// resolveDay takes the weekday separately from target so the lookup failure
// path can be reached.
func resolveDay(weekly timetable.WeeklySchedule, target time.Time, weekday time.Weekday) (*ResolvedDay, error) {
	if weekday == time.Sunday {
		return &ResolvedDay{Date: target, DayOff: true}, nil
	}

	name, ok := timetable.WeekdayName(weekday)
	if !ok {
		return nil, serrors.UnknownWeekday(weekday).WithContext("date", timezone.FormatDate(target, target.Location()))
	}

	entries, _ := weekly.Day(name)
	day := &ResolvedDay{
		Date:    target,
		Weekday: name,
		Slots:   make([]ResolvedSlot, 0, len(entries)),
	}
	for i, entry := range entries {
		day.Slots = append(day.Slots, resolveSlot(i, entry, target))
	}
	return day, nil
}

func resolveSlot(index int, entry timetable.SlotEntry, target time.Time) ResolvedSlot {
	slot := ResolvedSlot{Index: index}
	for _, v := range entry.Variants {
		if v.ActiveOn(target) {
			slot.Variants = append(slot.Variants, v)
		}
	}
	return slot
}
