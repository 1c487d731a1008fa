package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/overklassniy/stankin-schedule/internal/profile"
	"github.com/overklassniy/stankin-schedule/server"
	"github.com/overklassniy/stankin-schedule/store"
	"github.com/overklassniy/stankin-schedule/store/db"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot: answer commands and post the daily timetable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		if err := p.ValidateBot(); err != nil {
			return err
		}

		logger, closeLog, err := newLogger(p, true)
		if err != nil {
			return err
		}
		defer closeLog()
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, p)
		if err != nil {
			logger.Error("failed to open delivery log", "error", err)
			return err
		}

		s, err := server.NewServer(ctx, p, st, logger)
		if err != nil {
			st.Close()
			logger.Error("failed to create server", "error", err)
			return err
		}

		printGreetings(p)
		err = s.Start(ctx)
		s.Shutdown(context.Background())
		if err != nil && ctx.Err() == nil {
			logger.Error("server stopped with error", "error", err)
			return err
		}
		return nil
	},
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("stankin-schedule %s started\n", p.Version)
	fmt.Printf("  group:     %s (%d)\n", p.GroupName, p.GroupID)
	fmt.Printf("  timetable: %s\n", p.SourcePath())
	fmt.Printf("  schedule:  %s (%s)\n", p.AnnounceCron, p.Timezone)
	fmt.Printf("  logs:      %s\n", p.LogsDir)
}
