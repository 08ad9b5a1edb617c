package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"proxycrawl/internal/config"
)

func NewGenConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen-config",
		Short: "Generate a default config file",
		Long: `Write every configuration key with its default value to a YAML file.
An existing file is never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}

			if err := config.SaveConfigTemplate(output); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Default config generated: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "config.yaml", "Output file path")

	return cmd
}
