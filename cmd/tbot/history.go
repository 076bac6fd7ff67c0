package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franz/tutorial-bot/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent populate runs and render jobs",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 10, "number of entries per table")
	historyCmd.Flags().Bool("runs", false, "only show populate runs")
	historyCmd.Flags().Bool("renders", false, "only show render jobs")
	historyCmd.MarkFlagsMutuallyExclusive("runs", "renders")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	runsOnly, _ := cmd.Flags().GetBool("runs")
	rendersOnly, _ := cmd.Flags().GetBool("renders")
	if limit <= 0 {
		limit = 10
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if !rendersOnly {
		runs, err := db.RecentRuns(limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Populate runs")
		if len(runs) == 0 {
			fmt.Fprintln(out, "  (none)")
		} else {
			fmt.Fprintln(out, report.RunsTable(runs))
		}
	}

	if !runsOnly {
		if !rendersOnly {
			fmt.Fprintln(out)
		}
		jobs, err := db.RecentRenderJobs(limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Render jobs")
		if len(jobs) == 0 {
			fmt.Fprintln(out, "  (none)")
		} else {
			fmt.Fprintln(out, report.RenderJobsTable(jobs))
		}
	}
	return nil
}
