package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/bookscrape/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "bookscrape.db"

// CrawlDB stores run history, products and image digests.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates <dbDir>/bookscrape.db.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		base_url TEXT NOT NULL,
		categories INTEGER DEFAULT 0,
		products INTEGER DEFAULT 0,
		images INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS products (
		page_url TEXT PRIMARY KEY,
		upc TEXT,
		title TEXT,
		category TEXT,
		category_slug TEXT,
		price_including_tax TEXT,
		price_excluding_tax TEXT,
		number_available INTEGER,
		description TEXT,
		rating INTEGER,
		image_url TEXT,
		run_id INTEGER REFERENCES runs(id),
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_upc ON products(upc);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_slug);

	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER REFERENCES runs(id),
		product_url TEXT NOT NULL,
		path TEXT NOT NULL,
		digest TEXT NOT NULL,
		size INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_images_run ON images(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	BaseURL    string    `json:"base_url"`
	Categories int       `json:"categories"`
	Products   int       `json:"products"`
	Images     int       `json:"images"`
	Failures   int       `json:"failures"`
}

// Finished reports whether the run completed.
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// RunStats are the counts written by FinishRun.
type RunStats struct {
	Categories int
	Products   int
	Images     int
	Failures   int
}

// StartRun inserts a run and returns its ID.
func (cdb *CrawlDB) StartRun(ctx context.Context, baseURL string) (int64, error) {
	result, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, base_url) VALUES (?, ?)`,
		formatTimestamp(time.Now()), baseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun stamps the finish time and counts of a run.
func (cdb *CrawlDB) FinishRun(ctx context.Context, runID int64, stats RunStats) error {
	_, err := cdb.db.ExecContext(ctx, `
	UPDATE runs SET finished_at = ?, categories = ?, products = ?, images = ?, failures = ?
	WHERE id = ?`,
		formatTimestamp(time.Now()),
		stats.Categories, stats.Products, stats.Images, stats.Failures,
		runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// SaveCategory upserts every product of a category result and records its
// images, in one transaction.
func (cdb *CrawlDB) SaveCategory(ctx context.Context, runID int64, result *model.CategoryResult) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := formatTimestamp(time.Now())
	for _, p := range result.Products {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO products (page_url, upc, title, category, category_slug, price_including_tax,
			price_excluding_tax, number_available, description, rating, image_url, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_url) DO UPDATE SET
			upc = excluded.upc,
			title = excluded.title,
			category = excluded.category,
			category_slug = excluded.category_slug,
			price_including_tax = excluded.price_including_tax,
			price_excluding_tax = excluded.price_excluding_tax,
			number_available = excluded.number_available,
			description = excluded.description,
			rating = excluded.rating,
			image_url = excluded.image_url,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
			p.PageURL, p.UPC, p.Title, p.Category, result.Category.Slug,
			p.PriceIncludingTax, p.PriceExcludingTax, nullableStock(p),
			p.Description, nullableRating(p.Rating), p.ImageURL, runID, now)
		if err != nil {
			return fmt.Errorf("failed to save product %s: %w", p.PageURL, err)
		}
	}

	for _, img := range result.Images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO images (run_id, product_url, path, digest, size) VALUES (?, ?, ?, ?, ?)`,
			runID, img.ProductURL, img.Path, img.Digest, img.Size)
		if err != nil {
			return fmt.Errorf("failed to save image %s: %w", img.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category %s: %w", result.Category.Slug, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, started_at, finished_at, base_url, categories, products, images, failures
	FROM runs
	ORDER BY id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run by ID, or nil when there is none.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, started_at, finished_at, base_url, categories, products, images, failures
	FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetProduct returns the stored product for a page URL, or nil when there
// is none.
func (cdb *CrawlDB) GetProduct(ctx context.Context, pageURL string) (*model.ProductRecord, error) {
	var (
		p      model.ProductRecord
		stock  sql.NullInt64
		rating sql.NullInt64
	)
	err := cdb.db.QueryRowContext(ctx, `
	SELECT page_url, upc, title, category, price_including_tax, price_excluding_tax,
		number_available, description, rating, image_url
	FROM products WHERE page_url = ?`, pageURL).Scan(
		&p.PageURL, &p.UPC, &p.Title, &p.Category, &p.PriceIncludingTax, &p.PriceExcludingTax,
		&stock, &p.Description, &rating, &p.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if stock.Valid {
		n := int(stock.Int64)
		p.NumberAvailable = &n
	}
	if rating.Valid {
		p.Rating = model.Rating(rating.Int64)
	}
	return &p, nil
}

// CountProducts returns the number of distinct products stored.
func (cdb *CrawlDB) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// CountImages returns the number of image rows recorded for a run.
func (cdb *CrawlDB) CountImages(ctx context.Context, runID int64) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run      RunRecord
		started  string
		finished sql.NullString
	)
	err := row.Scan(&run.ID, &started, &finished, &run.BaseURL,
		&run.Categories, &run.Products, &run.Images, &run.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(started)
	if finished.Valid {
		run.FinishedAt = parseTimestamp(finished.String)
	}
	return run, nil
}

func nullableStock(p model.ProductRecord) sql.NullInt64 {
	n, ok := p.Stock()
	return sql.NullInt64{Int64: int64(n), Valid: ok}
}

func nullableRating(r model.Rating) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(r), Valid: r.Valid()}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
