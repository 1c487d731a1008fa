package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/internal/profile"
	"github.com/overklassniy/stankin-schedule/server"
	"github.com/overklassniy/stankin-schedule/server/service/announce"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

const (
	dateLayout   = "02.01.2006"
	calendarDays = 30
)

var (
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the timetable message of one day",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}
	weekCmd = &cobra.Command{
		Use:   "week",
		Short: "Print the seven days starting today",
		Args:  cobra.NoArgs,
		RunE:  runWeek,
	}
	calendarCmd = &cobra.Command{
		Use:   "calendar",
		Short: "List every dated session between two days",
		Args:  cobra.NoArgs,
		RunE:  runCalendar,
	}
)

func init() {
	showCmd.Flags().Int("offset", 0, "days after today, 1 is tomorrow")
	showCmd.Flags().Bool("query", false, `render the "/today" reply instead of the morning post`)
	for _, c := range []*cobra.Command{showCmd, weekCmd} {
		c.Flags().String("format", "plain", `output markup: "plain", "html" or "markdown"`)
	}
	weekCmd.Flags().String("from", "", "first day, DD.MM.YYYY (default today)")
	calendarCmd.Flags().String("from", "", "first day, DD.MM.YYYY (default today)")
	calendarCmd.Flags().String("to", "", fmt.Sprintf("last day, DD.MM.YYYY (default %d days after from)", calendarDays))
}

// openTimetable loads the profile and builds a pipeline logging to stderr.
func openTimetable(ctx context.Context, cmd *cobra.Command) (*profile.Profile, *server.Timetable, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, nil, err
	}
	logger, _, err := newLogger(p, false)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	markup := announce.Markup(announce.Plain{})
	if f := cmd.Flags().Lookup("format"); f != nil {
		var ok bool
		if markup, ok = announce.MarkupByName(f.Value.String()); !ok {
			return nil, nil, serrors.InvalidConfig(fmt.Sprintf("unknown format %q", f.Value.String()))
		}
	}
	return p, server.NewTimetable(ctx, p, markup, logger), nil
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, tt, err := openTimetable(ctx, cmd)
	if err != nil {
		return err
	}
	defer tt.Close()

	offset, _ := cmd.Flags().GetInt("offset")
	query, _ := cmd.Flags().GetBool("query")
	mode := announce.Announcement
	if query {
		mode = announce.Query
	}

	msg, err := tt.Compose(ctx, timezone.NowInTimezone(p.Location()), offset, mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg.Text)
	return nil
}

func runWeek(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, tt, err := openTimetable(ctx, cmd)
	if err != nil {
		return err
	}
	defer tt.Close()

	from, err := dateFlag(cmd, "from", timezone.NowInTimezone(p.Location()), p.Location())
	if err != nil {
		return err
	}
	weekly, err := tt.Weekly(ctx)
	if err != nil {
		return err
	}

	texts := make([]string, 7)
	g, gctx := errgroup.WithContext(ctx)
	for i := range texts {
		g.Go(func() error {
			msg, err := tt.ComposeDate(gctx, weekly, from.AddDate(0, 0, i), announce.Query)
			if err != nil {
				return err
			}
			texts[i] = msg.Text
			if msg.DayOff {
				texts[i] = timezone.FormatDate(msg.Date, p.Location()) + ": " + msg.Text
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(texts, "\n\n"))
	return nil
}

func runCalendar(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, tt, err := openTimetable(ctx, cmd)
	if err != nil {
		return err
	}
	defer tt.Close()

	from, err := dateFlag(cmd, "from", timezone.NowInTimezone(p.Location()), time.UTC)
	if err != nil {
		return err
	}
	to, err := dateFlag(cmd, "to", from.AddDate(0, 0, calendarDays), time.UTC)
	if err != nil {
		return err
	}
	if to.Before(from) {
		return serrors.InvalidConfig("--to is before --from")
	}

	weekly, err := tt.Weekly(ctx)
	if err != nil {
		return err
	}
	for _, o := range announce.NewFormatter(nil).Occurrences(weekly, from, to) {
		fmt.Fprintln(cmd.OutOrStdout(), o.String())
	}
	return nil
}

// dateFlag parses a DD.MM.YYYY flag as a midnight in loc, or returns the
// calendar day of fallback when the flag is empty.
func dateFlag(cmd *cobra.Command, name string, fallback time.Time, loc *time.Location) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Date(fallback.Year(), fallback.Month(), fallback.Day(), 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, serrors.InvalidConfig(fmt.Sprintf("--%s must be DD.MM.YYYY, got %q", name, raw))
	}
	return t, nil
}
