// Package bot serves the timetable over Telegram: it answers the schedule
// commands and delivers the runner's announcements.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	"github.com/overklassniy/stankin-schedule/server/middleware"
	"github.com/overklassniy/stankin-schedule/server/service/announce"
	"github.com/overklassniy/stankin-schedule/store"
)

// API is the part of tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Composer renders timetable messages.
type Composer interface {
	Compose(ctx context.Context, now time.Time, offset int, mode announce.Mode) (*announce.Message, error)
}

// Config holds the bot settings.
type Config struct {
	// GroupName is the study group named in the private-chat notice.
	GroupName string
	// RepoURL is the source repository link sent by /code.
	RepoURL string
	// SendRate is the number of messages per second; zero or less is unlimited.
	SendRate float64
	// Location is the time zone "today" is computed in.
	Location *time.Location
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
}

// Bot is a Telegram timetable bot.
type Bot struct {
	api      API
	composer Composer
	config   Config
	limiter  *rate.Limiter
	commands *middleware.RateLimiter
	store    *store.Store
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// Option configures the bot.
type Option func(*Bot)

// WithStore records every command reply in the delivery log.
func WithStore(s *store.Store) Option {
	return func(b *Bot) { b.store = s }
}

// WithLogger sets the bot logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// WithCommandLimit allows each chat one schedule command per every, with burst.
func WithCommandLimit(every time.Duration, burst int) Option {
	return func(b *Bot) { b.commands = middleware.NewRateLimiter(every, burst) }
}

// New creates a bot.
func New(api API, composer Composer, config Config, opts ...Option) *Bot {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30
	}

	limit := rate.Inf
	if config.SendRate > 0 {
		limit = rate.Limit(config.SendRate)
	}

	b := &Bot{
		api:      api,
		composer: composer,
		config:   config,
		limiter:  rate.NewLimiter(limit, 1),
		commands: middleware.NewRateLimiter(10*time.Second, 3),
		logger:   slog.Default(),
		metrics:  observability.GlobalMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Commands lists the commands the bot registers with Telegram.
var Commands = []tgbotapi.BotCommand{
	{Command: CommandToday, Description: "Расписание на сегодня"},
	{Command: CommandTomorrow, Description: "Расписание на завтра"},
	{Command: CommandCode, Description: "Получить ссылку на GitHub репозиторий бота"},
}

// RegisterCommands publishes Commands to the Telegram command menu.
func (b *Bot) RegisterCommands() error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(Commands...)); err != nil {
		return errors.Wrap(err, "failed to register bot commands")
	}
	return nil
}

// Send delivers text to chatID and returns the Telegram message id.
// Sends are paced by the configured rate.
func (b *Bot) Send(ctx context.Context, chatID int64, text, parseMode string) (int, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "send rate limit wait")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = true

	sent, err := b.api.Send(msg)
	if err != nil {
		b.metrics.RecordDeliveryFailure()
		return 0, serrors.DeliveryFailed(fmt.Sprintf("send to chat %d", chatID), err)
	}
	b.metrics.RecordSent()
	return sent.MessageID, nil
}

// Run polls Telegram for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("update channel closed")
			}
			b.HandleUpdate(ctx, update)
		}
	}
}
