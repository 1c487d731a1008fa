package announce

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overklassniy/stankin-schedule/plugin/timetable"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	"github.com/overklassniy/stankin-schedule/server/service/schedule"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

type staticSource struct {
	grid  timetable.RawGrid
	err   error
	paths []string
}

func (s *staticSource) Load(_ context.Context, path string) (timetable.RawGrid, error) {
	s.paths = append(s.paths, path)
	return s.grid, s.err
}

func newTestComposer(source GridSource) *Composer {
	logger := slog.New(slog.DiscardHandler)
	return NewComposer(
		source,
		"timetable.pdf",
		schedule.NewService(timezone.LocationMoscow, schedule.WithLogger(logger)),
		NewFormatter(HTML{}),
		logger,
	)
}

func composerGrid() timetable.RawGrid {
	return timetable.RawGrid{
		{"", "8:30 - 10:10", "10:20 - 12:00"},
		{timetable.Monday, "Математический анализ. лекции. 0201. [01.09-22.12 к.н.]", ""},
		{timetable.Tuesday, "", ""},
	}
}

func TestComposer_Compose(t *testing.T) {
	source := &staticSource{grid: composerGrid()}
	c := newTestComposer(source)
	now := time.Date(2026, time.September, 7, 7, 0, 0, 0, timezone.LocationMoscow)

	msg, err := c.Compose(context.Background(), now, 0, Announcement)
	require.NoError(t, err)
	assert.Equal(t, []string{"timetable.pdf"}, source.paths)
	assert.False(t, msg.DayOff)
	assert.Equal(t, "HTML", msg.ParseMode)
	assert.Contains(t, msg.Text, "сегодня понедельник")
	assert.Contains(t, msg.Text, "📚 Математический анализ")
	assert.Len(t, msg.Hash(), 16)
	assert.Equal(t, 7, msg.Date.Day())
}

func TestComposer_ComposeDayOff(t *testing.T) {
	c := newTestComposer(&staticSource{grid: composerGrid()})
	now := time.Date(2026, time.September, 7, 7, 0, 0, 0, timezone.LocationMoscow)

	msg, err := c.Compose(context.Background(), now, 6, Query)
	require.NoError(t, err)
	assert.True(t, msg.DayOff)
	assert.Equal(t, DayOff, msg.Text)
	assert.Equal(t, time.Sunday, msg.Date.Weekday())
}

func TestComposer_ComposeDate(t *testing.T) {
	c := newTestComposer(&staticSource{grid: composerGrid()})
	weekly, err := c.Weekly(context.Background())
	require.NoError(t, err)

	tuesday := time.Date(2026, time.September, 8, 0, 0, 0, 0, timezone.LocationMoscow)
	msg, err := c.ComposeDate(context.Background(), weekly, tuesday, Query)
	require.NoError(t, err)
	assert.Equal(t, "<b>Расписание на вторник (08.09.2026):</b>\n"+NoClasses, msg.Text)
}

func TestComposer_SourceError(t *testing.T) {
	boom := errors.New("unreadable")
	c := newTestComposer(&staticSource{err: boom})

	_, err := c.Compose(context.Background(), time.Now(), 0, Announcement)
	assert.ErrorIs(t, err, boom)
}

func TestMessageHash_DiffersByText(t *testing.T) {
	a := &Message{Text: "a"}
	b := &Message{Text: "b"}
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestComposer_RecordsGridLoads(t *testing.T) {
	tests := []struct {
		name       string
		source     *staticSource
		wantErrors int64
	}{
		{name: "loaded", source: &staticSource{grid: composerGrid()}},
		{name: "failed", source: &staticSource{err: errors.New("no file")}, wantErrors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetrics(10)
			logger := slog.New(slog.DiscardHandler)
			c := NewComposer(
				tt.source,
				"timetable.pdf",
				schedule.NewService(timezone.LocationMoscow, schedule.WithLogger(logger)),
				NewFormatter(Plain{}),
				logger,
				WithComposerMetrics(metrics),
			)

			_, _ = c.Weekly(context.Background())

			op := metrics.Snapshot().Ops[observability.OpExtract]
			assert.Equal(t, int64(1), op.Count)
			assert.Equal(t, tt.wantErrors, op.Errors)
		})
	}
}
