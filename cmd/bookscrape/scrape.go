package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/bookscrape/internal/config"
	"github.com/nao1215/bookscrape/internal/database"
	"github.com/nao1215/bookscrape/internal/fetch"
	"github.com/nao1215/bookscrape/internal/model"
	"github.com/nao1215/bookscrape/internal/output"
	"github.com/nao1215/bookscrape/internal/pipeline"
	"github.com/nao1215/bookscrape/internal/scraper"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [category...]",
		Short: "Scrape categories into CSV files and download cover images",
		Long: `Scrape crawls the store and writes one CSV file per category.

Categories may be given as slugs (travel_2) or names (Travel). With no
arguments every category listed on the home page is crawled. After the
crawl a summary of the written files is printed.

Examples:
  # Scrape the whole store into ./data
  bookscrape scrape

  # Scrape two categories without images
  bookscrape scrape travel_2 Poetry --no-images

  # Scrape everything except one category, 4 categories at a time
  bookscrape scrape --exclude default_15 -n 4

  # Extract a single product page into data/product.csv
  bookscrape scrape --product http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html

  # Go through a SOCKS5 proxy
  bookscrape scrape -p 127.0.0.1:1080`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	cmd.Flags().StringP("base-url", "u", config.DefaultBaseURL,
		"Root URL of the store")
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory for CSV files and images")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of categories scraped at once")
	cmd.Flags().Bool("no-images", false,
		"Skip downloading cover images")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().StringP("proxy", "p", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("ignore-robots", false,
		"Do not honor robots.txt")
	cmd.Flags().StringSlice("exclude", nil,
		"Categories to skip (slug or name, repeatable)")
	cmd.Flags().String("product", "",
		"Extract a single product page into <output>/product.csv")
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

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Categories = args
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScrape(ctx, cfg, logger, cmd.OutOrStdout())
}

// runScrape performs a full crawl, or a single-product extraction when
// cfg.ProductURL is set.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	fetcher, err := newFetcher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	s, err := scraper.New(fetcher, cfg.BaseURL, scraper.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var images *output.ImageDownloader
	if cfg.DownloadImages {
		images = output.NewImageDownloader(fetcher, cfg.OutputDir, output.WithImageLogger(logger))
	}

	if cfg.ProductURL != "" {
		return runSingleProduct(ctx, cfg, s, images, out)
	}

	slugs, err := selectCategories(ctx, cfg, s, logger)
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		return errors.New("no categories to scrape")
	}

	var db *database.CrawlDB
	var runID int64
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runID, err = db.StartRun(ctx, cfg.BaseURL)
		if err != nil {
			return err
		}
		logger.Info("run started", "run_id", runID, "db", db.Path())
	}

	stats, err := crawlCategories(ctx, crawlJob{
		cfg:     cfg,
		slugs:   slugs,
		scraper: s,
		images:  images,
		db:      db,
		runID:   runID,
		logger:  logger,
		out:     out,
	})

	if db != nil {
		// The run is closed even when the crawl was interrupted.
		if ferr := db.FinishRun(context.WithoutCancel(ctx), runID, stats); ferr != nil {
			logger.Error("failed to finish run", "run_id", runID, "error", ferr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Done! csv files are in the %q folder\n\n", cfg.OutputDir)
	return summarize(cfg, slugs, out)
}

// newFetcher builds the page fetcher, checking the proxy first when one
// is configured.
func newFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fetch.Fetcher, error) {
	opts := []fetch.Option{
		fetch.WithLogger(logger),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithRobots(cfg.RespectRobots),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(cfg.Headers))
	}
	if cfg.Cookie != "" {
		opts = append(opts, fetch.WithCookie(cfg.Cookie))
	}
	if cfg.ProxyAddress != "" {
		status := fetch.CheckProxy(ctx, cfg.ProxyAddress, cfg.ProxyUsername != "")
		if status != fetch.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				status.Error(), cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		opts = append(opts, fetch.WithProxy(cfg.ProxyAddress, cfg.ProxyUsername, cfg.ProxyPassword))
	}

	return fetch.New(opts...)
}

// selectCategories reads the category menu and applies the requested and
// excluded category lists. The menu is always read so that names can be
// given instead of slugs.
func selectCategories(ctx context.Context, cfg *config.Config, s *scraper.Scraper, logger *slog.Logger) ([]string, error) {
	all, err := s.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read category list from %s: %w", s.IndexURL(), err)
	}

	matched := make(map[string]bool, len(cfg.Categories))
	slugs := make([]string, 0, len(all))
	for _, slug := range all {
		c := model.Category{Slug: slug}
		if len(cfg.Categories) > 0 && !c.MatchesAny(cfg.Categories) {
			continue
		}
		for _, name := range cfg.Categories {
			if c.MatchesAny([]string{name}) {
				matched[name] = true
			}
		}
		if c.MatchesAny(cfg.Exclude) {
			logger.Debug("category excluded", "category", slug)
			continue
		}
		slugs = append(slugs, slug)
	}

	for _, name := range cfg.Categories {
		if !matched[name] {
			logger.Warn("unknown category", "category", name)
		}
	}
	return slugs, nil
}

// crawlJob holds what crawlCategories needs. images and db are nil when
// disabled.
type crawlJob struct {
	cfg     *config.Config
	slugs   []string
	scraper *scraper.Scraper
	images  *output.ImageDownloader
	db      *database.CrawlDB
	runID   int64
	logger  *slog.Logger
	out     io.Writer
}

// crawlCategories runs the category pipelines and prints progress.
func crawlCategories(ctx context.Context, job crawlJob) (database.RunStats, error) {
	logger, out := job.logger, job.out

	steps := pipeline.Steps{
		Scraper:   job.scraper,
		OutputDir: job.cfg.OutputDir,
		RunID:     job.runID,
		Logger:    logger,
	}
	// Typed nil pointers must not reach the interface fields.
	if job.images != nil {
		steps.Images = job.images
	}
	if job.db != nil {
		steps.Store = job.db
	}

	var (
		mu    sync.Mutex
		stats database.RunStats
	)
	cp := pipeline.NewCategoryProcessor(
		func() *pipeline.Pipeline { return pipeline.NewCategoryPipeline(steps) },
		pipeline.WithConcurrency(job.cfg.Concurrency),
		pipeline.WithProcessorLogger(logger),
		pipeline.WithOnStart(func(slug string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "Scraping %s books...\n", model.DisplayName(slug))
		}),
	)

	startTime := time.Now()
	err := cp.ProcessWithCallback(ctx, job.slugs, func(result *model.CategoryResult, _ int) {
		mu.Lock()
		defer mu.Unlock()

		stats.Categories++
		stats.Products += len(result.Products)
		stats.Images += len(result.Images)
		stats.Failures += len(result.Failures)

		if result.CSVPath == "" {
			fmt.Fprintf(out, "  %s: no data written\n", model.DisplayName(result.Category.Slug))
			return
		}
		fmt.Fprintf(out, "  %d products written to %s", len(result.Products), result.CSVPath)
		if n := len(result.Failures); n > 0 {
			fmt.Fprintf(out, " (%d skipped)", n)
		}
		fmt.Fprintln(out)
	})

	logger.Info("crawl finished",
		"categories", stats.Categories,
		"products", stats.Products,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)
	return stats, err
}

// runSingleProduct extracts one product page into <output>/product.csv.
func runSingleProduct(ctx context.Context, cfg *config.Config, s *scraper.Scraper, images *output.ImageDownloader, out io.Writer) error {
	record, err := s.Product(ctx, cfg.ProductURL)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", cfg.ProductURL, err)
	}

	path, err := output.WriteCategoryCSV(cfg.OutputDir, output.SingleProductName, []model.ProductRecord{record})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Product %q written to %s\n", record.Title, path)

	if images != nil && record.ImageURL != "" {
		img, err := images.Download(ctx, output.SingleProductName, record)
		if err == nil {
			fmt.Fprintf(out, "Cover image saved to %s\n", img.Path)
		}
	}
	return nil
}
