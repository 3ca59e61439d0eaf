package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/bookscrape/internal/model"
	"github.com/nao1215/bookscrape/internal/output"
)

// Step names.
const (
	StepPaginate        = "paginate"
	StepCollectProducts = "collect_products"
	StepExtractProducts = "extract_products"
	StepWriteCSV        = "write_csv"
	StepDownloadImages  = "download_images"
	StepPersist         = "persist"
)

// ErrNoListingPages is returned by the paginate step when not even the
// first listing page of a category is reachable.
var ErrNoListingPages = errors.New("category has no reachable listing page")

// CategoryScraper is the part of *scraper.Scraper the steps use.
type CategoryScraper interface {
	ListingPages(ctx context.Context, slug string) []string
	ProductURLs(ctx context.Context, pageURL string) ([]string, error)
	Product(ctx context.Context, pageURL string) (model.ProductRecord, error)
}

// ImageDownloader is the part of *output.ImageDownloader the steps use.
type ImageDownloader interface {
	Download(ctx context.Context, category string, p model.ProductRecord) (model.ImageResult, error)
}

// ResultStore persists a finished category. *database.CrawlDB implements it.
type ResultStore interface {
	SaveCategory(ctx context.Context, runID int64, result *model.CategoryResult) error
}

// PaginateStep discovers the listing pages of the category.
type PaginateStep struct {
	scraper CategoryScraper
}

// NewPaginateStep creates the paginate step.
func NewPaginateStep(s CategoryScraper) *PaginateStep {
	return &PaginateStep{scraper: s}
}

// Name returns the step name.
func (s *PaginateStep) Name() string {
	return StepPaginate
}

// Do fills result.Category.PageURLs.
func (s *PaginateStep) Do(ctx context.Context, result *model.CategoryResult) error {
	pages := s.scraper.ListingPages(ctx, result.Category.Slug)
	if len(pages) == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrNoListingPages, result.Category.Slug)
	}
	result.Category.PageURLs = pages
	return nil
}

// CollectProductsStep reads the product URLs from every listing page.
type CollectProductsStep struct {
	scraper CategoryScraper
}

// NewCollectProductsStep creates the collect_products step.
func NewCollectProductsStep(s CategoryScraper) *CollectProductsStep {
	return &CollectProductsStep{scraper: s}
}

// Name returns the step name.
func (s *CollectProductsStep) Name() string {
	return StepCollectProducts
}

// Do fills result.Category.ProductURLs in listing order. A listing page
// that cannot be read is recorded as a failure and skipped.
func (s *CollectProductsStep) Do(ctx context.Context, result *model.CategoryResult) error {
	for _, pageURL := range result.Category.PageURLs {
		if err := ctx.Err(); err != nil {
			return err
		}
		urls, err := s.scraper.ProductURLs(ctx, pageURL)
		if err != nil {
			result.AddFailure(s.Name(), pageURL, err)
			continue
		}
		result.Category.ProductURLs = append(result.Category.ProductURLs, urls...)
	}
	return nil
}

// ExtractProductsStep fetches every product page of the category.
type ExtractProductsStep struct {
	scraper CategoryScraper
}

// NewExtractProductsStep creates the extract_products step.
func NewExtractProductsStep(s CategoryScraper) *ExtractProductsStep {
	return &ExtractProductsStep{scraper: s}
}

// Name returns the step name.
func (s *ExtractProductsStep) Name() string {
	return StepExtractProducts
}

// Do fills result.Products in product URL order. Unreachable product
// pages are recorded as failures and contribute no record.
func (s *ExtractProductsStep) Do(ctx context.Context, result *model.CategoryResult) error {
	result.Products = make([]model.ProductRecord, 0, len(result.Category.ProductURLs))
	for _, productURL := range result.Category.ProductURLs {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := s.scraper.Product(ctx, productURL)
		if err != nil {
			result.AddFailure(s.Name(), productURL, err)
			continue
		}
		result.Products = append(result.Products, record)
	}
	return nil
}

// WriteCSVStep writes the category's records to <dir>/<slug>.csv.
type WriteCSVStep struct {
	dir string
}

// NewWriteCSVStep creates the write_csv step writing below dir.
func NewWriteCSVStep(dir string) *WriteCSVStep {
	return &WriteCSVStep{dir: dir}
}

// Name returns the step name.
func (s *WriteCSVStep) Name() string {
	return StepWriteCSV
}

// Do writes the file and sets result.CSVPath. A category with no products
// still gets a file holding only the header.
func (s *WriteCSVStep) Do(_ context.Context, result *model.CategoryResult) error {
	path, err := output.WriteCategoryCSV(s.dir, result.Category.Slug, result.Products)
	if err != nil {
		return err
	}
	result.CSVPath = path
	return nil
}

// DownloadImagesStep saves the cover image of every product.
type DownloadImagesStep struct {
	downloader ImageDownloader
	logger     *slog.Logger
}

// DownloadImagesStepOption configures a DownloadImagesStep.
type DownloadImagesStepOption func(*DownloadImagesStep)

// WithImagesLogger sets a custom logger for the download_images step.
func WithImagesLogger(logger *slog.Logger) DownloadImagesStepOption {
	return func(s *DownloadImagesStep) {
		s.logger = logger
	}
}

// NewDownloadImagesStep creates the download_images step.
func NewDownloadImagesStep(d ImageDownloader, opts ...DownloadImagesStepOption) *DownloadImagesStep {
	s := &DownloadImagesStep{
		downloader: d,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DownloadImagesStep) Name() string {
	return StepDownloadImages
}

// Do downloads each product image. Products without an image URL and
// failed downloads are skipped; the latter are recorded as failures.
func (s *DownloadImagesStep) Do(ctx context.Context, result *model.CategoryResult) error {
	for _, p := range result.Products {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.ImageURL == "" {
			s.logger.Debug("product has no image", "url", p.PageURL)
			continue
		}
		img, err := s.downloader.Download(ctx, result.Category.Slug, p)
		if err != nil {
			result.AddFailure(s.Name(), p.ImageURL, err)
			continue
		}
		result.Images = append(result.Images, img)
	}
	return nil
}

// PersistStep stores the category in the run history database.
type PersistStep struct {
	store ResultStore
	runID int64
}

// NewPersistStep creates the persist step for the given run.
func NewPersistStep(store ResultStore, runID int64) *PersistStep {
	return &PersistStep{store: store, runID: runID}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return StepPersist
}

// Do saves the products and images of the category.
func (s *PersistStep) Do(ctx context.Context, result *model.CategoryResult) error {
	return s.store.SaveCategory(ctx, s.runID, result)
}

// Steps holds the collaborators of a default category pipeline. Images
// and Store are optional.
type Steps struct {
	Scraper   CategoryScraper
	OutputDir string
	Images    ImageDownloader
	Store     ResultStore
	RunID     int64
	Logger    *slog.Logger
}

// NewCategoryPipeline builds the default step sequence: download_images is
// added when Images is set and persist when Store is set.
func NewCategoryPipeline(s Steps, opts ...Option) *Pipeline {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(append([]Option{WithLogger(logger)}, opts...)...)
	p.AddSteps(
		NewPaginateStep(s.Scraper),
		NewCollectProductsStep(s.Scraper),
		NewExtractProductsStep(s.Scraper),
		NewWriteCSVStep(s.OutputDir),
	)
	if s.Images != nil {
		p.AddStep(NewDownloadImagesStep(s.Images, WithImagesLogger(logger)))
	}
	if s.Store != nil {
		p.AddStep(NewPersistStep(s.Store, s.RunID))
	}
	return p
}
