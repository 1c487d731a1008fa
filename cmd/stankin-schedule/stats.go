package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overklassniy/stankin-schedule/server/stats"
	"github.com/overklassniy/stankin-schedule/server/timezone"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the delivery log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		collector := stats.NewCollector(st, p.Location())
		if err := collector.Collect(cmd.Context(), timezone.NowInTimezone(p.Location())); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), collector.GetStats().GetSummary())
		return nil
	},
}
