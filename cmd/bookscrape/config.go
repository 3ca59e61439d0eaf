package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/bookscrape/internal/config"
	"github.com/nao1215/bookscrape/internal/log"
	"github.com/nao1215/bookscrape/internal/report"
)

// dotenvFile is loaded from the working directory when present.
const dotenvFile = ".env"

// loadConfig builds the configuration of a command from, in increasing
// precedence, the defaults, the config file, the environment and the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := stringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	// An explicit path must exist; otherwise a missing file is fine.
	if found := config.FindConfigFile(configPath); found != "" {
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		file.Apply(cfg)
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if err := config.LoadEnv(cfg, dotenvFile); err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}

	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg. Flags a command does
// not define are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	set := func(name string, apply func() error) {
		if err != nil {
			return
		}
		if f := flags.Lookup(name); f != nil && f.Changed {
			err = apply()
		}
	}

	set("base-url", func() (e error) { cfg.BaseURL, e = flags.GetString("base-url"); return })
	set("output", func() (e error) { cfg.OutputDir, e = flags.GetString("output"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = flags.GetDuration("timeout"); return })
	set("concurrency", func() (e error) { cfg.Concurrency, e = flags.GetInt("concurrency"); return })
	set("user-agent", func() (e error) { cfg.UserAgent, e = flags.GetString("user-agent"); return })
	set("proxy", func() (e error) { cfg.ProxyAddress, e = flags.GetString("proxy"); return })
	set("db-dir", func() (e error) { cfg.DBDir, e = flags.GetString("db-dir"); return })
	set("exclude", func() (e error) { cfg.Exclude, e = flags.GetStringSlice("exclude"); return })
	set("product", func() (e error) { cfg.ProductURL, e = flags.GetString("product"); return })
	set("json", func() (e error) { cfg.JSONReport, e = flags.GetBool("json"); return })
	set("markdown", func() (e error) { cfg.MarkdownReport, e = flags.GetBool("markdown"); return })
	set("report-file", func() (e error) { cfg.ReportFile, e = flags.GetString("report-file"); return })
	set("no-images", func() error {
		v, e := flags.GetBool("no-images")
		cfg.DownloadImages = !v
		return e
	})
	set("no-db", func() error {
		v, e := flags.GetBool("no-db")
		cfg.SaveToDB = !v
		return e
	})
	set("ignore-robots", func() error {
		v, e := flags.GetBool("ignore-robots")
		cfg.RespectRobots = !v
		return e
	})

	return err
}

func stringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	return cmd.Flags().GetString(name)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger installs the redacting logger on stderr as the default.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := log.NewLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)
	return logger
}

// reportFormat maps the report flags to a report.Format.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatTable
	}
}

// openReportOutput returns the destination of a report: cfg.ReportFile
// when set, stdout otherwise. The returned close function is never nil.
func openReportOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, f.Close, nil
}

// summarize computes the summary over dir and renders it.
func summarize(cfg *config.Config, slugs []string, stdout io.Writer) (err error) {
	summary, err := report.Summarize(cfg.OutputDir, slugs)
	if err != nil {
		return err
	}

	out, closeOut, err := openReportOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeOut())
	}()

	w, err := report.NewWriter(reportFormat(cfg), out)
	if err != nil {
		return err
	}
	_, err = w.Write(summary)
	return err
}
