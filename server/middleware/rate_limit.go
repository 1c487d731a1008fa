package middleware

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per key, so one noisy chat cannot
// use up the bot's command budget for everyone.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	every  time.Duration
	burst  int
}

// NewRateLimiter creates a limiter allowing one event per every, with burst.
func NewRateLimiter(every time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		every:  every,
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Every(rl.every), rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if an event is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// AllowChat is Allow keyed by a chat id.
func (rl *RateLimiter) AllowChat(chatID int64) bool {
	return rl.Allow(strconv.FormatInt(chatID, 10))
}
