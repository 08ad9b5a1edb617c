package main

import (
	"github.com/spf13/cobra"
)

func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Download country datasets through the saved proxies",
		Long: `Discover every country on the index page and download its CSV archives
into the data directory. Country pages are fetched through the saved proxies in
round-robin order; without proxies the crawler connects directly.`,
		RunE: runCrawlCmd,
	}

	cmd.Flags().String("countries-url", "", "Override crawler.countries_url")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	listURL, err := countriesURL(cmd, a)
	if err != nil {
		return err
	}

	return a.crawl(ctx, listURL)
}
