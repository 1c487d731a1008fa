// Package announce posts the day's timetable to the group chat every morning.
package announce

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	svcannounce "github.com/overklassniy/stankin-schedule/server/service/announce"
	"github.com/overklassniy/stankin-schedule/store"
)

// deliveryRetention is how long sent announcements are remembered.
const deliveryRetention = 90 * 24 * time.Hour

// Sender delivers a rendered message to a chat and returns the message id.
type Sender interface {
	Send(ctx context.Context, chatID int64, text, parseMode string) (int, error)
}

// Outcome tells what one run did.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeDayOff    Outcome = "day_off"
	OutcomeDelivered Outcome = "already_delivered"
)

type Runner struct {
	composer *svcannounce.Composer
	sender   Sender
	store    *store.Store
	chatID   int64
	schedule cron.Schedule
	loc      *time.Location
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// Option configures the runner.
type Option func(*Runner)

// WithStore enables the delivery log, so a restart never re-sends the day's message.
func WithStore(s *store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner firing at the standard five-field cron spec in loc.
func NewRunner(composer *svcannounce.Composer, sender Sender, chatID int64, spec string, loc *time.Location, opts ...Option) (*Runner, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, serrors.InvalidConfig("invalid announce cron " + spec + ": " + err.Error())
	}
	if loc == nil {
		loc = time.UTC
	}

	r := &Runner{
		composer: composer,
		sender:   sender,
		chatID:   chatID,
		schedule: schedule,
		loc:      loc,
		logger:   slog.Default(),
		metrics:  observability.GlobalMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run fires the announcement on schedule until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	logger := cronLogger{r.logger}
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(r.schedule, cron.FuncJob(func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("daily announcement failed", "error", err)
		}
	}))
	c.Start()
	r.logger.Info("announce runner started", "chat_id", r.chatID, "next", r.Next(r.now()))

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("announce runner stopped")
}

// Next returns the first fire time after now.
func (r *Runner) Next(now time.Time) time.Time {
	return r.schedule.Next(now.In(r.loc))
}

// RunOnce composes today's announcement and sends it unless today is a day
// off or it was already delivered.
func (r *Runner) RunOnce(ctx context.Context) (Outcome, error) {
	q := observability.NewQueryContext(r.logger, observability.SourceRunner, r.chatID)
	ctx = observability.WithQueryContext(ctx, q)

	start := time.Now()
	outcome, err := r.announce(ctx, q)
	r.metrics.RecordOp(observability.OpAnnounce, time.Since(start), err)
	if err != nil {
		q.Error("announcement not sent", err,
			slog.String(observability.LogFieldErrorCode, string(serrors.GetCodeFromError(err, serrors.ErrCodeDeliveryFailed))),
		)
		return "", err
	}

	q.Info("announcement run finished",
		slog.String("outcome", string(outcome)),
		slog.Int64(observability.LogFieldDuration, q.DurationMs()),
	)
	return outcome, nil
}

func (r *Runner) announce(ctx context.Context, q *observability.QueryContext) (Outcome, error) {
	now := r.now().In(r.loc)

	msg, err := r.composer.Compose(ctx, now, 0, svcannounce.Announcement)
	if err != nil {
		return "", err
	}
	if msg.DayOff {
		return OutcomeDayOff, nil
	}

	if r.store != nil {
		delivered, err := r.store.HasDelivered(ctx, r.chatID, msg.Date, store.DeliveryKindAnnouncement)
		if err != nil {
			return "", err
		}
		if delivered {
			return OutcomeDelivered, nil
		}
	}

	messageID, err := r.sender.Send(ctx, r.chatID, msg.Text, msg.ParseMode)
	if err != nil {
		return "", err
	}

	if r.store != nil {
		if _, err := r.store.CreateDelivery(ctx, &store.Delivery{
			ChatID:      r.chatID,
			Date:        msg.Date.Format(store.DeliveryDateLayout),
			Kind:        store.DeliveryKindAnnouncement,
			ContentHash: msg.Hash(),
			MessageID:   messageID,
		}); err != nil {
			// The message is out; a missing log entry only risks a duplicate after a restart.
			q.Warn("failed to record delivery", slog.String("error", err.Error()))
		}
		if removed, err := r.store.PruneDeliveries(ctx, now.Add(-deliveryRetention)); err != nil {
			q.Warn("failed to prune delivery log", slog.String("error", err.Error()))
		} else if removed > 0 {
			q.Debug("delivery log pruned", slog.Int64("removed", removed))
		}
	}
	return OutcomeSent, nil
}

// cronLogger adapts slog to the cron logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
