package main

import (
	"time"

	"github.com/spf13/cobra"
)

func NewHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Scrape, validate and persist working proxies",
		Long: `Fetch the configured proxy listing, validate every candidate in parallel
and overwrite the proxy file with the working ones.

With --interval the harvest repeats until interrupted.`,
		RunE: runHarvestCmd,
	}

	cmd.Flags().Duration("interval", 0, "Repeat the harvest at this interval (0 runs once)")

	return cmd
}

func runHarvestCmd(cmd *cobra.Command, _ []string) error {
	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	harvester, err := a.newHarvester()
	if err != nil {
		return err
	}

	if interval <= 0 {
		result, err := harvester.Run(ctx)
		if err != nil {
			return err
		}
		a.logger.InfoBg("Harvest %s saved %d working proxies in %v", result.RunID,
			len(result.Working), result.FinishedAt.Sub(result.StartedAt).Round(time.Second))
		a.cleanupHistory(ctx)
		return nil
	}

	if err := harvester.Start(ctx, interval); err != nil {
		return err
	}
	a.logger.InfoBg("Press Ctrl+C to stop")

	<-ctx.Done()
	a.logger.InfoBg("Shutting down...")
	harvester.Stop()
	a.cleanupHistory(cmd.Context())

	return nil
}
