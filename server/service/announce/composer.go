package announce

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/overklassniy/stankin-schedule/plugin/timetable"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	"github.com/overklassniy/stankin-schedule/server/service/schedule"
)

// GridSource loads the raw timetable grid of a source file.
type GridSource interface {
	Load(ctx context.Context, path string) (timetable.RawGrid, error)
}

// Message is one rendered timetable message.
type Message struct {
	Date      time.Time
	Mode      Mode
	Text      string
	ParseMode string
	DayOff    bool
	Day       *schedule.ResolvedDay
}

// Hash returns a short digest of the message text.
func (m *Message) Hash() string {
	sum := sha256.Sum256([]byte(m.Text))
	return hex.EncodeToString(sum[:])[:16]
}

// Composer runs the whole pipeline: load grid, build the week, resolve a
// date and format it. The weekly schedule is rebuilt on every call from the
// cached grid, so a replaced timetable file is picked up without a restart.
type Composer struct {
	source    GridSource
	path      string
	resolver  schedule.Service
	formatter *Formatter
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithComposerMetrics sets the collector grid loads are recorded to.
func WithComposerMetrics(m *observability.Metrics) ComposerOption {
	return func(c *Composer) { c.metrics = m }
}

// NewComposer creates a composer reading the timetable at path.
func NewComposer(source GridSource, path string, resolver schedule.Service, formatter *Formatter, logger *slog.Logger, opts ...ComposerOption) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Composer{
		source:    source,
		path:      path,
		resolver:  resolver,
		formatter: formatter,
		logger:    logger,
		metrics:   observability.GlobalMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Weekly loads and parses the timetable.
func (c *Composer) Weekly(ctx context.Context) (timetable.WeeklySchedule, error) {
	start := time.Now()
	grid, err := c.source.Load(ctx, c.path)
	c.metrics.RecordOp(observability.OpExtract, time.Since(start), err)
	if err != nil {
		return timetable.WeeklySchedule{}, err
	}

	q := observability.FromContextOr(ctx, c.logger, observability.SourceCLI)
	return timetable.BuildWeekly(grid, q.Logger), nil
}

// Compose renders the day offset days away from now.
func (c *Composer) Compose(ctx context.Context, now time.Time, offset int, mode Mode) (*Message, error) {
	weekly, err := c.Weekly(ctx)
	if err != nil {
		return nil, err
	}

	day, err := c.resolver.ResolveOffset(ctx, weekly, now, offset)
	if err != nil {
		return nil, err
	}
	return c.render(day, mode)
}

// ComposeDate renders target against an already loaded week.
func (c *Composer) ComposeDate(ctx context.Context, weekly timetable.WeeklySchedule, target time.Time, mode Mode) (*Message, error) {
	day, err := c.resolver.Resolve(ctx, weekly, target)
	if err != nil {
		return nil, err
	}
	return c.render(day, mode)
}

func (c *Composer) render(day *schedule.ResolvedDay, mode Mode) (*Message, error) {
	text, err := c.formatter.Format(day, day.Date, mode)
	if err != nil {
		return nil, err
	}
	return &Message{
		Date:      day.Date,
		Mode:      mode,
		Text:      text,
		ParseMode: c.formatter.Markup().ParseMode(),
		DayOff:    day.DayOff,
		Day:       day,
	}, nil
}
