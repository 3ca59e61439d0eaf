package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/bookscrape/internal/bookstoretest"
	"github.com/nao1215/bookscrape/internal/database"
	"github.com/nao1215/bookscrape/internal/fetch"
	"github.com/nao1215/bookscrape/internal/log"
	"github.com/nao1215/bookscrape/internal/model"
	"github.com/nao1215/bookscrape/internal/output"
	"github.com/nao1215/bookscrape/internal/scraper"
)

type testEnv struct {
	srv     *bookstoretest.Server
	scraper *scraper.Scraper
	images  *output.ImageDownloader
	dir     string
}

func newTestEnv(t *testing.T, site bookstoretest.Site) *testEnv {
	t.Helper()

	srv := bookstoretest.NewServer(t, site)
	f, err := fetch.New(fetch.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("fetch.New() error = %v", err)
	}
	s, err := scraper.New(f, srv.URL, scraper.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("scraper.New() error = %v", err)
	}
	dir := filepath.Join(t.TempDir(), "data")
	return &testEnv{
		srv:     srv,
		scraper: s,
		images:  output.NewImageDownloader(f, dir),
		dir:     dir,
	}
}

func TestCategoryPipeline_EndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, bookstoretest.DefaultSite())
	p := NewCategoryPipeline(Steps{
		Scraper:   env.scraper,
		OutputDir: env.dir,
		Images:    env.images,
		Logger:    log.Discard(),
	})

	result := model.NewCategoryResult("travel_2")
	if err := p.Execute(context.Background(), result); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	wantSteps := []string{StepPaginate, StepCollectProducts, StepExtractProducts, StepWriteCSV, StepDownloadImages}
	if diff := cmp.Diff(wantSteps, result.PerformedSteps); diff != "" {
		t.Errorf("performed steps mismatch (-want +got):\n%s", diff)
	}
	if len(result.Category.PageURLs) != 2 {
		t.Errorf("expected 2 listing pages, got %d", len(result.Category.PageURLs))
	}
	if len(result.Failures) != 0 {
		t.Errorf("unexpected failures: %+v", result.Failures)
	}

	t.Run("csv has header and three rows", func(t *testing.T) {
		if result.CSVPath != filepath.Join(env.dir, "travel_2.csv") {
			t.Errorf("CSVPath = %q", result.CSVPath)
		}
		records, err := output.ReadCategoryCSV(result.CSVPath)
		if err != nil {
			t.Fatalf("ReadCategoryCSV() error = %v", err)
		}
		titles := make([]string, 0, len(records))
		for _, r := range records {
			titles = append(titles, r.Title)
		}
		want := []string{
			"It's Only the Himalayas",
			"Full Moon over Noah’s Ark",
			"See America: A Celebration of Our National Parks & Treasured Sites",
		}
		if diff := cmp.Diff(want, titles); diff != "" {
			t.Errorf("titles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("three images are written", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(env.dir, output.ImageDir, "travel_2"))
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 3 {
			t.Errorf("expected 3 images, got %d", len(entries))
		}
		if len(result.Images) != 3 {
			t.Errorf("expected 3 image results, got %d", len(result.Images))
		}
	})

	t.Run("one request in flight at a time", func(t *testing.T) {
		if got := env.srv.MaxInFlight(); got != 1 {
			t.Errorf("MaxInFlight() = %d, want 1", got)
		}
	})
}

func TestCategoryPipeline_Persist(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, bookstoretest.DefaultSite())
	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	runID, err := db.StartRun(ctx, env.srv.URL)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	p := NewCategoryPipeline(Steps{
		Scraper:   env.scraper,
		OutputDir: env.dir,
		Images:    env.images,
		Store:     db,
		RunID:     runID,
		Logger:    log.Discard(),
	})
	if diff := cmp.Diff(StepPersist, p.StepNames()[p.StepCount()-1]); diff != "" {
		t.Errorf("last step mismatch (-want +got):\n%s", diff)
	}

	result := model.NewCategoryResult("poetry_23")
	if err := p.Execute(ctx, result); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	n, err := db.CountProducts(ctx)
	if err != nil {
		t.Fatalf("CountProducts() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountProducts() = %d, want 1", n)
	}
	images, err := db.CountImages(ctx, runID)
	if err != nil {
		t.Fatalf("CountImages() error = %v", err)
	}
	if images != 1 {
		t.Errorf("CountImages() = %d, want 1", images)
	}
}

func TestPaginateStep_UnknownCategory(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, bookstoretest.DefaultSite())
	p := NewCategoryPipeline(Steps{
		Scraper:   env.scraper,
		OutputDir: env.dir,
		Logger:    log.Discard(),
	})

	result := model.NewCategoryResult("missing_99")
	err := p.Execute(context.Background(), result)
	if !errors.Is(err, ErrNoListingPages) {
		t.Fatalf("expected ErrNoListingPages, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(env.dir, "missing_99.csv")); !os.IsNotExist(statErr) {
		t.Error("no CSV should be written for an unreachable category")
	}
}

// stubScraper serves canned data and fails for URLs listed in broken.
type stubScraper struct {
	pages    []string
	products map[string][]string
	broken   map[string]bool
}

func (s stubScraper) ListingPages(context.Context, string) []string { return s.pages }

func (s stubScraper) ProductURLs(_ context.Context, pageURL string) ([]string, error) {
	if s.broken[pageURL] {
		return nil, fetch.ErrUnreachable
	}
	return s.products[pageURL], nil
}

func (s stubScraper) Product(_ context.Context, pageURL string) (model.ProductRecord, error) {
	if s.broken[pageURL] {
		return model.ProductRecord{}, fetch.ErrUnreachable
	}
	return model.ProductRecord{PageURL: pageURL, Title: pageURL, ImageURL: pageURL + ".jpg"}, nil
}

func TestSteps_RecordFailuresAndContinue(t *testing.T) {
	t.Parallel()

	stub := stubScraper{
		pages: []string{"page-1", "page-2", "page-3"},
		products: map[string][]string{
			"page-1": {"p1", "p2"},
			"page-3": {"p3"},
		},
		broken: map[string]bool{"page-2": true, "p2": true},
	}
	result := model.NewCategoryResult("stub_1")
	ctx := context.Background()

	if err := NewPaginateStep(stub).Do(ctx, result); err != nil {
		t.Fatalf("paginate error = %v", err)
	}
	if err := NewCollectProductsStep(stub).Do(ctx, result); err != nil {
		t.Fatalf("collect_products error = %v", err)
	}
	if diff := cmp.Diff([]string{"p1", "p2", "p3"}, result.Category.ProductURLs); diff != "" {
		t.Errorf("product URLs mismatch (-want +got):\n%s", diff)
	}

	if err := NewExtractProductsStep(stub).Do(ctx, result); err != nil {
		t.Fatalf("extract_products error = %v", err)
	}
	if len(result.Products) != 2 {
		t.Errorf("expected 2 products, got %d", len(result.Products))
	}

	want := []model.Failure{
		{Step: StepCollectProducts, URL: "page-2", Error: fetch.ErrUnreachable.Error()},
		{Step: StepExtractProducts, URL: "p2", Error: fetch.ErrUnreachable.Error()},
	}
	if diff := cmp.Diff(want, result.Failures); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
}

type failingDownloader struct{}

func (failingDownloader) Download(_ context.Context, _ string, p model.ProductRecord) (model.ImageResult, error) {
	return model.ImageResult{}, errors.New("no image for " + p.PageURL)
}

func TestDownloadImagesStep_SkipsFailures(t *testing.T) {
	t.Parallel()

	result := model.NewCategoryResult("stub_1")
	result.Products = []model.ProductRecord{
		{PageURL: "p1", ImageURL: "p1.jpg"},
		{PageURL: "p2"},
	}

	step := NewDownloadImagesStep(failingDownloader{}, WithImagesLogger(log.Discard()))
	if err := step.Do(context.Background(), result); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(result.Images) != 0 {
		t.Errorf("expected no images, got %d", len(result.Images))
	}
	if len(result.Failures) != 1 || result.Failures[0].URL != "p1.jpg" {
		t.Errorf("expected one failure for p1.jpg, got %+v", result.Failures)
	}
}
