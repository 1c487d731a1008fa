package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

// Defaults applied by FromEnv and Validate.
const (
	DefaultTimezone     = timezone.TimezoneMoscow
	DefaultAnnounceCron = "0 7 * * 1-6"
	DefaultLogsDir      = "logs"
	DefaultCacheTTL     = 6 * time.Hour
	DefaultSendRate     = 1.0
	DefaultRepoURL      = "https://github.com/overklassniy/stankin_schedule_bot/"
	DefaultGroupName    = "ИДБ-24-10"
)

// Profile is the configuration to start the bot and the CLI commands.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to the delivery log database
	DSN string
	// Version is the current version of the program
	Version string

	// Timetable source; GridPath (CSV) wins over PDFPath when both are set.
	PDFPath  string // STANKIN_PDF_PATH (legacy: PDF_PATH)
	GridPath string // STANKIN_GRID_PATH
	Timezone string // STANKIN_TIMEZONE (default: Europe/Moscow)

	// Telegram
	BotToken  string  // STANKIN_BOT_TOKEN (legacy: BOT_TOKEN)
	GroupID   int64   // STANKIN_GROUP_ID (legacy: GROUP_ID)
	GroupName string  // STANKIN_GROUP_NAME (default: ИДБ-24-10)
	SendRate  float64 // STANKIN_SEND_RATE, messages per second (default: 1)
	RepoURL   string  // STANKIN_REPO_URL

	// AnnounceCron is the standard five-field cron spec of the daily post.
	AnnounceCron string // STANKIN_ANNOUNCE_CRON (default: 0 7 * * 1-6)
	LogsDir      string // STANKIN_LOGS_DIR (legacy: LOGS_DIR)

	// Grid cache
	RedisAddr     string        // STANKIN_REDIS_ADDR; empty disables the Redis tier
	RedisPassword string        // STANKIN_REDIS_PASSWORD
	RedisDB       int           // STANKIN_REDIS_DB
	CacheTTL      time.Duration // STANKIN_CACHE_TTL (default: 6h)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRedisEnabled returns true if a Redis address is configured.
func (p *Profile) IsRedisEnabled() bool {
	return p.RedisAddr != ""
}

// SourcePath returns the timetable file to read.
func (p *Profile) SourcePath() string {
	if p.GridPath != "" {
		return p.GridPath
	}
	return p.PDFPath
}

// Location returns the configured time zone, falling back to Moscow.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return timezone.LocationMoscow
	}
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return timezone.LocationMoscow
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Supports STANKIN_* and, for the original bot settings, unprefixed legacy names.
func (p *Profile) FromEnv() {
	getEnvWithDefault := func(newKey, legacyKey, defaultValue string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		if legacyKey != "" {
			if val := os.Getenv(legacyKey); val != "" {
				return val
			}
		}
		return defaultValue
	}

	p.PDFPath = getEnvWithDefault("STANKIN_PDF_PATH", "PDF_PATH", p.PDFPath)
	p.GridPath = getEnvOrDefault("STANKIN_GRID_PATH", p.GridPath)
	p.Timezone = getEnvOrDefault("STANKIN_TIMEZONE", orDefault(p.Timezone, DefaultTimezone))

	p.BotToken = getEnvWithDefault("STANKIN_BOT_TOKEN", "BOT_TOKEN", p.BotToken)
	if raw := getEnvWithDefault("STANKIN_GROUP_ID", "GROUP_ID", ""); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			p.GroupID = id
		} else {
			slog.Warn("ignoring invalid group id", slog.String("value", raw))
		}
	}
	p.GroupName = getEnvOrDefault("STANKIN_GROUP_NAME", orDefault(p.GroupName, DefaultGroupName))
	if raw := os.Getenv("STANKIN_SEND_RATE"); raw != "" {
		if rate, err := strconv.ParseFloat(raw, 64); err == nil {
			p.SendRate = rate
		}
	}
	p.RepoURL = getEnvOrDefault("STANKIN_REPO_URL", orDefault(p.RepoURL, DefaultRepoURL))

	p.AnnounceCron = getEnvOrDefault("STANKIN_ANNOUNCE_CRON", orDefault(p.AnnounceCron, DefaultAnnounceCron))
	p.LogsDir = getEnvWithDefault("STANKIN_LOGS_DIR", "LOGS_DIR", orDefault(p.LogsDir, DefaultLogsDir))

	p.RedisAddr = getEnvOrDefault("STANKIN_REDIS_ADDR", p.RedisAddr)
	p.RedisPassword = getEnvOrDefault("STANKIN_REDIS_PASSWORD", p.RedisPassword)
	if raw := os.Getenv("STANKIN_REDIS_DB"); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			p.RedisDB = db
		}
	}
	if raw := os.Getenv("STANKIN_CACHE_TTL"); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil {
			p.CacheTTL = ttl
		}
	}
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and checks the settings every command needs.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "stankin-schedule")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/stankin-schedule"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir
	if p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("stankin_%s.db", p.Mode))
	}

	if p.SourcePath() == "" {
		return serrors.InvalidConfig("no timetable source: set pdf_path or grid_path")
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return serrors.InvalidConfig(fmt.Sprintf("unknown time zone %q", p.Timezone))
	}
	if p.AnnounceCron == "" {
		p.AnnounceCron = DefaultAnnounceCron
	}
	if _, err := cron.ParseStandard(p.AnnounceCron); err != nil {
		return serrors.InvalidConfig(fmt.Sprintf("invalid announce_cron %q: %v", p.AnnounceCron, err))
	}
	if p.SendRate <= 0 {
		p.SendRate = DefaultSendRate
	}
	if p.CacheTTL < 0 {
		return serrors.InvalidConfig("cache_ttl must not be negative")
	}
	if p.CacheTTL == 0 {
		p.CacheTTL = DefaultCacheTTL
	}
	if p.RedisDB < 0 {
		return serrors.InvalidConfig("redis_db must not be negative")
	}
	if p.RepoURL == "" {
		p.RepoURL = DefaultRepoURL
	}
	if p.GroupName == "" {
		p.GroupName = DefaultGroupName
	}
	return nil
}

// ValidateBot checks the settings needed to talk to Telegram.
func (p *Profile) ValidateBot() error {
	if p.BotToken == "" {
		return serrors.InvalidConfig("bot_token is required")
	}
	if p.GroupID == 0 {
		return serrors.InvalidConfig("group_id is required")
	}
	return nil
}
