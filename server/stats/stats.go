// Package stats summarizes the delivery log: how the announcements went out
// and how often the group asks the bot for the timetable.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/overklassniy/stankin-schedule/store"
)

// Stats represents delivery statistics.
type Stats struct {
	// Announcement stats
	TotalAnnouncements    int64
	AnnouncementsLastWeek int64
	LastAnnouncement      time.Time
	// StreakDays counts consecutive teaching days, ending today or on the last
	// teaching day, that got their announcement. Sundays do not break it.
	StreakDays int64

	// Query stats
	TotalQueries    int64
	QueriesToday    int64
	QueriesLastWeek int64
	ActiveChats     int64

	LastUpdated time.Time
}

// Collector collects and manages delivery statistics.
type Collector struct {
	store *store.Store
	loc   *time.Location
	stats *Stats
	mu    sync.Mutex
}

// NewCollector creates a new statistics collector computing days in loc.
func NewCollector(st *store.Store, loc *time.Location) *Collector {
	if loc == nil {
		loc = time.UTC
	}
	return &Collector{
		store: st,
		loc:   loc,
		stats: &Stats{},
	}
}

// Start collects statistics every interval until ctx is done.
func (c *Collector) Start(ctx context.Context, interval time.Duration, report func(*Stats)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Collect(ctx, time.Now()); err == nil && report != nil {
				report(c.GetStats())
			}
		case <-ctx.Done():
			return
		}
	}
}

// GetStats returns a copy of current statistics.
func (c *Collector) GetStats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *c.stats
	return &copied
}

// Collect recomputes the statistics from the delivery log as of now.
func (c *Collector) Collect(ctx context.Context, now time.Time) error {
	deliveries, err := c.store.ListDeliveries(ctx, &store.FindDelivery{})
	if err != nil {
		return err
	}

	now = now.In(c.loc)
	today := now.Format(store.DeliveryDateLayout)
	weekAgo := now.AddDate(0, 0, -7)

	s := &Stats{LastUpdated: now}
	chats := make(map[int64]bool)
	announced := make(map[string]bool)

	for _, d := range deliveries {
		sent := time.Unix(d.SentTs, 0).In(c.loc)
		recent := !sent.Before(weekAgo)

		switch d.Kind {
		case store.DeliveryKindAnnouncement:
			s.TotalAnnouncements++
			if recent {
				s.AnnouncementsLastWeek++
			}
			if sent.After(s.LastAnnouncement) {
				s.LastAnnouncement = sent
			}
			announced[d.Date] = true
		case store.DeliveryKindQuery:
			s.TotalQueries++
			if recent {
				s.QueriesLastWeek++
			}
			if d.Date == today {
				s.QueriesToday++
			}
			chats[d.ChatID] = true
		}
	}
	s.ActiveChats = int64(len(chats))
	s.StreakDays = streakDays(announced, now)

	c.mu.Lock()
	c.stats = s
	c.mu.Unlock()
	return nil
}

// streakDays walks back from now over teaching days. Today may still be
// waiting for its announcement and does not end the streak.
func streakDays(announced map[string]bool, now time.Time) int64 {
	streak := int64(0)
	for i := 0; i < 366; i++ {
		day := now.AddDate(0, 0, -i)
		if day.Weekday() == time.Sunday {
			continue
		}
		if announced[day.Format(store.DeliveryDateLayout)] {
			streak++
			continue
		}
		if i == 0 {
			continue
		}
		break
	}
	return streak
}

// GetSummary returns a human-readable summary.
func (s *Stats) GetSummary() string {
	return fmt.Sprintf(
		`📊 Статистика рассылки (обновлено: %s)

📢 Утренние сообщения
  Всего: %d
  За неделю: %d
  Серия: %d дн.
  Последнее: %s

🔍 Запросы расписания
  Всего: %d
  Сегодня: %d
  За неделю: %d
  Чатов: %d`,
		s.LastUpdated.Format("02.01.2006 15:04"),
		s.TotalAnnouncements,
		s.AnnouncementsLastWeek,
		s.StreakDays,
		formatLastAnnouncement(s.LastAnnouncement),
		s.TotalQueries,
		s.QueriesToday,
		s.QueriesLastWeek,
		s.ActiveChats,
	)
}

func formatLastAnnouncement(t time.Time) string {
	if t.IsZero() {
		return "нет"
	}
	return t.Format("02.01.2006 15:04")
}
