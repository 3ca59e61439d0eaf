package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/nao1215/bookscrape/internal/database"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past scrape runs",
		Long: `History lists the runs recorded in the history database, newest first.

Each run shows when it started, how long it took and how many categories,
products and images it produced.

Examples:
  # Show the last 20 runs
  bookscrape history

  # Show one run as JSON
  bookscrape history --run 3 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().Int64("run", 0,
		"Show a single run by ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output as JSON")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .bookscrape in current or home directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cmd, cfg.Verbose)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runs, err := loadRuns(cmd.Context(), db, runID, limit)
	if err != nil {
		return err
	}

	if cfg.JSONReport {
		return writeRunsJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	writeRunsTable(out, runs)
	return nil
}

func loadRuns(ctx context.Context, db *database.CrawlDB, runID int64, limit int) ([]database.RunRecord, error) {
	if runID == 0 {
		return db.ListRuns(ctx, limit)
	}

	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	return []database.RunRecord{*run}, nil
}

func writeRunsJSON(out io.Writer, runs []database.RunRecord) error {
	if runs == nil {
		runs = []database.RunRecord{}
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(runs)
}

func writeRunsTable(out io.Writer, runs []database.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"ID", "Started", "Duration", "Categories", "Products", "Images", "Failures", "Store"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(r),
			r.Categories,
			r.Products,
			r.Images,
			r.Failures,
			r.BaseURL,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func runDuration(r database.RunRecord) string {
	if !r.Finished() {
		return "unfinished"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
