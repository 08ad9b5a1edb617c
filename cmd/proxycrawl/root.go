package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Banner = `
______ ______ ______ ______ ______ ______ ______ ______

  ___ ___  _____ ____   _____ ___    ___      _____
 | _ \ _ \/ _ \ \/ /\ \/ / __| _ \  /_\ \    / / |
 |  _/   / (_) >  <  \  / (__|   / / _ \ \/\/ /| |__
 |_| |_|_\\___/_/\_\ |_| \___|_|_\/_/ \_\_/\_/ |____|

______ ______ ______ ______ ______ ______ ______ ______

ProxyCrawl - Free Proxy Harvester & Dataset Crawler %s

______ ______ ______ ______ ______ ______ ______ ______

`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxycrawl",
		Short: "Harvest working free proxies and crawl datasets through them",
		Long: `proxycrawl scrapes a public free-proxy listing, validates every candidate
against a test endpoint in parallel and persists the working ones. The crawler
then downloads per-country CSV archives, rotating through the saved proxies.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), Banner, getVersion())
			}
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Do not print the banner")

	cmd.AddCommand(NewHarvestCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewGenConfigCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
