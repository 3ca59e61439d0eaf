package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/bookscrape/internal/config"
)

// NewSummaryCmd creates the summary command.
func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [category...]",
		Short: "Print statistics over the scraped CSV files",
		Long: `Summary reads the CSV files written by scrape and prints the number of
products, stock statistics and price statistics (incl. tax).

With no arguments every <category>.csv file in the output directory is
read. Requested categories without a file are reported and skipped.

Examples:
  # Summarize ./data
  bookscrape summary

  # Summarize two categories as Markdown into a file
  bookscrape summary travel_2 poetry_23 --markdown --report-file summary.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runSummaryCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory holding the CSV files")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .bookscrape in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "",
		"Write the summary to a file instead of stdout")

	return cmd
}

func runSummaryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	setupLogger(cmd, cfg.Verbose)

	return summarize(cfg, args, cmd.OutOrStdout())
}
