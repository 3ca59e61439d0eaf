package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for bookscrape.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookscrape",
		Short: "Scrape book data from books.toscrape.com",
		Long: `bookscrape crawls every category of books.toscrape.com (or a store with
the same layout), extracts each product page into <output>/<category>.csv,
downloads the cover images into <output>/img/<category>/ and prints a
summary of the collected data.

Settings are read from defaults, a .bookscrape YAML file, BOOKSCRAPE_*
environment variables (and a .env file) and flags, in increasing order of
precedence.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewSummaryCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
