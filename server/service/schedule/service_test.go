package schedule

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

// mondayGrid has one teaching day of three slots: a weekly lecture, two
// alternating lab subgroups and a one-off seminar.
func mondayGrid() timetable.RawGrid {
	return timetable.RawGrid{
		{"", "8:30 - 10:10", "10:20 - 12:00", "12:20 - 14:00"},
		{
			timetable.Monday,
			"Математический анализ. лекции. 0201. [01.09-22.12 к.н.]",
			"Физика. лабораторные занятия. (А). 0312. [07.09-14.12 ч.н.]",
			"Философия. семинар. 0415. [08.09]",
		},
		{"", "", "Физика. лабораторные занятия. (Б). 0312. [14.09-21.12 ч.н.]", ""},
	}
}

func newTestService() (Service, timetable.WeeklySchedule) {
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(timezone.LocationMoscow, WithLogger(logger), WithMetrics(observability.NewMetrics(10)))
	return svc, timetable.BuildWeekly(mondayGrid(), logger)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, timezone.LocationMoscow)
}

func TestResolve_ActiveVariantsAndGaps(t *testing.T) {
	svc, weekly := newTestService()
	target := date(2026, time.September, 7) // Monday

	day, err := svc.Resolve(context.Background(), weekly, target)
	require.NoError(t, err)

	assert.False(t, day.DayOff)
	assert.Equal(t, timetable.Monday, day.Weekday)
	require.Len(t, day.Slots, 3)

	require.Len(t, day.Slots[0].Variants, 1)
	assert.Equal(t, timetable.KindLecture, day.Slots[0].Variants[0].Session.Kind())

	require.Len(t, day.Slots[1].Variants, 1, "only subgroup (А) is on this week")
	assert.Equal(t, "(А)", day.Slots[1].Variants[0].Session.(timetable.Lab).Subgroup)

	assert.True(t, day.Slots[2].IsGap())
	assert.Equal(t, 2, day.Slots[2].Index)
	assert.Equal(t, 2, day.SessionCount())

	outline := day.Outline()
	require.Len(t, outline, 3)
	assert.Equal(t, GapLabel, outline[2])
	assert.Equal(t, day.Slots[0].Variants[0].Session.Info().Course, outline[0])
}

func TestResolve_AlternatingSubgroups(t *testing.T) {
	svc, weekly := newTestService()

	day, err := svc.Resolve(context.Background(), weekly, date(2026, time.September, 14))
	require.NoError(t, err)
	require.Len(t, day.Slots[1].Variants, 1)
	assert.Equal(t, "(Б)", day.Slots[1].Variants[0].Session.(timetable.Lab).Subgroup)

	day, err = svc.Resolve(context.Background(), weekly, date(2026, time.September, 21))
	require.NoError(t, err)
	assert.Equal(t, "(А)", day.Slots[1].Variants[0].Session.(timetable.Lab).Subgroup)
}

func TestResolve_SundayIsDayOff(t *testing.T) {
	svc, weekly := newTestService()

	for _, target := range []time.Time{
		date(2026, time.September, 13),
		date(2026, time.October, 18),
		date(2027, time.January, 3),
	} {
		require.Equal(t, time.Sunday, target.Weekday())

		day, err := svc.Resolve(context.Background(), weekly, target)
		require.NoError(t, err)
		assert.True(t, day.DayOff)
		assert.Empty(t, day.Slots)
		assert.Empty(t, day.Weekday)
	}

	// Even a schedule that lists Sunday is ignored.
	sundayGrid := timetable.RawGrid{{"", "8:30"}, {timetable.Sunday, "Физика. лекции. 0201. [01.09-22.12 к.н.]"}}
	day, err := svc.Resolve(context.Background(), timetable.BuildWeekly(sundayGrid, nil), date(2026, time.September, 13))
	require.NoError(t, err)
	assert.True(t, day.DayOff)
}

func TestResolve_DayWithoutEntries(t *testing.T) {
	svc, weekly := newTestService()

	day, err := svc.Resolve(context.Background(), weekly, date(2026, time.September, 8)) // Tuesday
	require.NoError(t, err)
	assert.False(t, day.DayOff)
	assert.Equal(t, timetable.Tuesday, day.Weekday)
	assert.Empty(t, day.Slots)
	assert.False(t, day.HasSessions())
}

func TestResolveDay_UnknownWeekday(t *testing.T) {
	_, weekly := newTestService()

	_, err := resolveDay(weekly, date(2026, time.September, 7), time.Weekday(9))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeUnknownWeekday))
}

func TestResolveOffset(t *testing.T) {
	svc, weekly := newTestService()
	now := time.Date(2026, time.September, 6, 23, 30, 0, 0, timezone.LocationMoscow)

	day, err := svc.ResolveOffset(context.Background(), weekly, now, 1)
	require.NoError(t, err)
	assert.Equal(t, timetable.Monday, day.Weekday)
	assert.Equal(t, "07.09.2026", timezone.FormatDate(day.Date, timezone.LocationMoscow))

	day, err = svc.ResolveOffset(context.Background(), weekly, now, 0)
	require.NoError(t, err)
	assert.True(t, day.DayOff)

	_, err = svc.ResolveOffset(context.Background(), weekly, now, MaxOffsetDays+1)
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeInvalidConfig))
}

func TestResolve_CanceledContext(t *testing.T) {
	svc, weekly := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Resolve(ctx, weekly, date(2026, time.September, 7))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_Concurrent(t *testing.T) {
	svc, weekly := newTestService()
	start := date(2026, time.September, 1)

	var wg sync.WaitGroup
	results := make([]*ResolvedDay, 28)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			day, err := svc.Resolve(context.Background(), weekly, start.AddDate(0, 0, i))
			assert.NoError(t, err)
			results[i] = day
		}()
	}
	wg.Wait()

	for i, day := range results {
		want, err := resolveDay(weekly, start.AddDate(0, 0, i), start.AddDate(0, 0, i).Weekday())
		require.NoError(t, err)
		assert.Equal(t, want, day)
	}
}
