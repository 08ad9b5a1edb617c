package main

import (
	"context"

	"github.com/spf13/cobra"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest proxies, then crawl datasets through them",
		RunE:  runRunCmd,
	}

	cmd.Flags().String("countries-url", "", "Override crawler.countries_url")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
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

	result, err := harvester.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoBg("Harvest %s saved %d working proxies", result.RunID, len(result.Working))
	a.cleanupHistory(ctx)

	listURL, err := countriesURL(cmd, a)
	if err != nil {
		return err
	}

	return a.crawl(ctx, listURL)
}

func countriesURL(cmd *cobra.Command, a *app) (string, error) {
	listURL, err := cmd.Flags().GetString("countries-url")
	if err != nil {
		return "", err
	}
	if listURL == "" {
		listURL = a.cfg.Crawler.CountriesURL
	}
	return listURL, nil
}

func (a *app) crawl(ctx context.Context, listURL string) error {
	rotator, err := a.loadRotator()
	if err != nil {
		return err
	}

	c := a.newCrawler()
	result, err := c.Crawl(ctx, listURL, rotator)
	if err != nil {
		return err
	}

	dirs, err := c.ListDirectory(a.cfg.Crawler.DataDir)
	if err != nil {
		return err
	}

	a.logger.InfoBg("Crawled %d of %d countries (%d archives, %d failures); %d country directories in %s",
		result.Crawled, result.Countries, result.Archives, result.Failures, len(dirs), a.cfg.Crawler.DataDir)
	return nil
}
