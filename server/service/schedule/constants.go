package schedule

// Package-level constants for day resolution.

const (
	// DefaultTimezone is the zone target dates are computed in when none is configured.
	DefaultTimezone = "Europe/Moscow"

	// GapLabel is how a slot without an active session is called.
	GapLabel = "Окно"

	// MaxOffsetDays bounds the day offset accepted by ResolveOffset in either direction.
	MaxOffsetDays = 366
)
