// Package server wires the timetable pipeline, the Telegram bot and the
// announcement runner into one process.
package server

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/internal/profile"
	"github.com/overklassniy/stankin-schedule/plugin/tableextract"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	"github.com/overklassniy/stankin-schedule/server/router/bot"
	runner "github.com/overklassniy/stankin-schedule/server/runner/announce"
	"github.com/overklassniy/stankin-schedule/server/service/announce"
	"github.com/overklassniy/stankin-schedule/server/service/schedule"
	"github.com/overklassniy/stankin-schedule/server/stats"
	"github.com/overklassniy/stankin-schedule/store"
	"github.com/overklassniy/stankin-schedule/store/cache"
)

const statsInterval = time.Hour

// Timetable is the composer together with the grid cache it reads through.
type Timetable struct {
	*announce.Composer

	cache *cache.TieredCache
}

// NewTimetable builds the pipeline for p's timetable source, rendering with
// markup. A configured but unreachable Redis leaves the in-process cache only.
func NewTimetable(ctx context.Context, p *profile.Profile, markup announce.Markup, logger *slog.Logger) *Timetable {
	var l2 cache.RedisCacheInterface
	if p.IsRedisEnabled() {
		config := cache.DefaultRedisConfig()
		config.Addr = p.RedisAddr
		config.Password = p.RedisPassword
		config.DB = p.RedisDB
		if p.CacheTTL > 0 {
			config.DefaultTTL = p.CacheTTL
		}
		redisCache, err := cache.NewRedisCache(ctx, config, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-process grid cache", "addr", p.RedisAddr, "error", err)
		} else {
			l2 = redisCache
		}
	}

	tieredConfig := cache.DefaultTieredConfig()
	if p.CacheTTL > 0 {
		tieredConfig.L1TTL = p.CacheTTL
		tieredConfig.L2TTL = p.CacheTTL
	}
	grids := cache.NewTieredCache(tieredConfig, l2,
		cache.WithHitRecorder(observability.GlobalMetrics()),
		cache.WithLogger(logger),
	)

	resolver := schedule.NewService(p.Location(),
		schedule.WithLogger(logger),
		schedule.WithMetrics(observability.GlobalMetrics()),
	)
	composer := announce.NewComposer(
		cache.NewGridLoader(grids, tableextract.DefaultConfig()),
		p.SourcePath(),
		resolver,
		announce.NewFormatter(markup),
		logger,
		announce.WithComposerMetrics(observability.GlobalMetrics()),
	)
	return &Timetable{Composer: composer, cache: grids}
}

// CacheStats returns the grid cache counters.
func (t *Timetable) CacheStats() cache.CacheStats {
	return t.cache.Stats()
}

// Close releases the grid cache.
func (t *Timetable) Close() error {
	return t.cache.Close()
}

// Server is the running bot process.
type Server struct {
	Profile   *profile.Profile
	Store     *store.Store
	Timetable *Timetable
	Bot       *bot.Bot
	Runner    *runner.Runner
	Stats     *stats.Collector

	logger *slog.Logger
}

// NewServer connects to Telegram and assembles the server.
func NewServer(ctx context.Context, p *profile.Profile, st *store.Store, logger *slog.Logger) (*Server, error) {
	api, err := tgbotapi.NewBotAPI(p.BotToken)
	if err != nil {
		return nil, serrors.DeliveryFailed("connect to telegram", err)
	}
	logger.Info("authorized on telegram", "bot", api.Self.UserName)
	return newServer(ctx, p, st, api, logger)
}

func newServer(ctx context.Context, p *profile.Profile, st *store.Store, api bot.API, logger *slog.Logger) (*Server, error) {
	tt := NewTimetable(ctx, p, announce.HTML{}, logger.With("component", "timetable"))

	b := bot.New(api, tt.Composer, bot.Config{
		GroupName: p.GroupName,
		RepoURL:   p.RepoURL,
		SendRate:  p.SendRate,
		Location:  p.Location(),
	},
		bot.WithStore(st),
		bot.WithLogger(logger.With("component", "bot")),
	)

	r, err := runner.NewRunner(tt.Composer, b, p.GroupID, p.AnnounceCron, p.Location(),
		runner.WithStore(st),
		runner.WithLogger(logger.With("component", "announce")),
	)
	if err != nil {
		tt.Close()
		return nil, err
	}

	return &Server{
		Profile:   p,
		Store:     st,
		Timetable: tt,
		Bot:       b,
		Runner:    r,
		Stats:     stats.NewCollector(st, p.Location()),
		logger:    logger,
	}, nil
}

// Start runs the bot, the announcement runner and the statistics collector
// until ctx is done or the bot loses its update stream.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Bot.RegisterCommands(); err != nil {
		s.logger.Warn("failed to register bot commands", "error", err)
	}
	s.logger.Info("server started",
		"version", s.Profile.Version,
		"mode", s.Profile.Mode,
		"source", s.Profile.SourcePath(),
		"group_id", s.Profile.GroupID,
		"next_announcement", s.Runner.Next(time.Now()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Bot.Run(ctx)
	})
	g.Go(func() error {
		s.Runner.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.Stats.Start(ctx, statsInterval, s.reportStats)
		return nil
	})
	return g.Wait()
}

func (s *Server) reportStats(st *stats.Stats) {
	s.logger.Info("delivery stats",
		"announcements_week", st.AnnouncementsLastWeek,
		"streak_days", st.StreakDays,
		"queries_today", st.QueriesToday,
		"active_chats", st.ActiveChats,
	)
}

// Shutdown releases the cache and the store and logs the process counters.
func (s *Server) Shutdown(ctx context.Context) {
	snapshot := observability.GlobalMetrics().Snapshot()
	s.logger.Info("server stopping",
		"messages_sent", snapshot.MessagesSent,
		"delivery_failures", snapshot.DeliveryFailures,
		"cache_hits", snapshot.CacheHits,
		"cache_misses", snapshot.CacheMisses,
	)

	if err := s.Timetable.Close(); err != nil {
		s.logger.Error("failed to close grid cache", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
	s.logger.Info("server stopped properly")
}
