package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded harvest runs",
		Long: `Print the most recent harvest runs and probe totals from the history
database. Requires database.enabled.`,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 10, "Number of runs to show")
	cmd.Flags().String("address", "", "Show the working rate of one proxy address")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	address, err := cmd.Flags().GetString("address")
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.history == nil {
		return errors.New("history database is disabled (set database.enabled)")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if address != "" {
		rate, samples, err := a.history.WorkingRate(ctx, address)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %.1f%% working over %d checks\n", address, rate*100, samples)
		return nil
	}

	runs, err := a.history.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tFINISHED\tCANDIDATES\tWORKING\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n",
			shortID(run.RunID),
			run.FinishedAt.Local().Format(time.DateTime),
			run.Candidates,
			run.Working,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats, err := a.history.GetStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d runs, %d checks, %d healthy\n", stats.Runs, stats.Checks, stats.Healthy)

	return nil
}

func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
