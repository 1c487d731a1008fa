package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/overklassniy/stankin-schedule/internal/profile"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const logFileLayout = "2006-01-02_15-04-05"

var (
	rootCmd = &cobra.Command{
		Use:           "stankin-schedule",
		Short:         "Telegram timetable bot for a Stankin study group",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return readConfig()
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "optional config file (yaml, json or toml)")
	flags.String("mode", "dev", `mode of the process, "prod" or "dev" or "demo"`)
	flags.String("data", "", "data directory holding the delivery log")
	flags.String("dsn", "", "delivery log database path")
	flags.String("pdf-path", "", "timetable PDF")
	flags.String("grid-path", "", "timetable CSV export, used instead of the PDF when set")
	flags.String("timezone", "", "time zone the days are computed in")
	flags.String("logs-dir", "", "directory of the serve log files")

	for _, name := range []string{"config", "mode", "data", "dsn", "pdf-path", "grid-path", "timezone", "logs-dir"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("stankin")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, showCmd, weekCmd, calendarCmd, statsCmd)
}

func readConfig() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config %s", path)
	}
	return nil
}

// loadProfile reads the environment first; flags and the config file win
// where they are set.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Version: version,
	}
	p.FromEnv()

	overrides := map[string]*string{
		"data":          &p.Data,
		"dsn":           &p.DSN,
		"pdf-path":      &p.PDFPath,
		"grid-path":     &p.GridPath,
		"timezone":      &p.Timezone,
		"logs-dir":      &p.LogsDir,
		"bot-token":     &p.BotToken,
		"repo-url":      &p.RepoURL,
		"group-name":    &p.GroupName,
		"announce-cron": &p.AnnounceCron,
		"redis-addr":    &p.RedisAddr,
	}
	for key, field := range overrides {
		if viper.IsSet(key) {
			*field = viper.GetString(key)
		}
	}
	if viper.IsSet("group-id") {
		p.GroupID = viper.GetInt64("group-id")
	}
	if viper.IsSet("send-rate") {
		p.SendRate = viper.GetFloat64("send-rate")
	}
	if viper.IsSet("cache-ttl") {
		p.CacheTTL = viper.GetDuration("cache-ttl")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// newLogger logs to stderr and, when withFile is set, also to a file named
// after the start time in the logs directory.
func newLogger(p *profile.Profile, withFile bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closer := func() {}
	if withFile {
		if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to create logs directory %s", p.LogsDir)
		}
		name := filepath.Join(p.LogsDir, time.Now().Format(logFileLayout)+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open log file")
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
