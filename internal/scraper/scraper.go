package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bookscrape/internal/log"
	"github.com/nao1215/bookscrape/internal/model"
)

// DefaultMaxListingPages bounds pagination for a site that never answers
// a missing page with an error.
const DefaultMaxListingPages = 1000

// ErrInvalidBaseURL is returned by New for a base URL that cannot be parsed
// or is not absolute.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// PageFetcher retrieves and parses pages. *fetch.Fetcher implements it.
type PageFetcher interface {
	Document(ctx context.Context, rawURL string) (*goquery.Document, error)
	Reachable(ctx context.Context, rawURL string) bool
}

// Scraper navigates one bookstore site.
type Scraper struct {
	fetcher         PageFetcher
	base            *url.URL
	logger          *slog.Logger
	maxListingPages int
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithMaxListingPages overrides DefaultMaxListingPages.
func WithMaxListingPages(n int) Option {
	return func(s *Scraper) {
		s.maxListingPages = n
	}
}

// New returns a Scraper for the site rooted at baseURL.
func New(fetcher PageFetcher, baseURL string, opts ...Option) (*Scraper, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	s := &Scraper{
		fetcher:         fetcher,
		base:            base,
		logger:          log.Discard(),
		maxListingPages: DefaultMaxListingPages,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IndexURL returns the URL of the site's index page.
func (s *Scraper) IndexURL() string {
	return s.base.JoinPath("index.html").String()
}

// CategoryURL returns the first listing page of a category.
func (s *Scraper) CategoryURL(slug string) string {
	return s.ListingPageURL(slug, 1)
}

// ListingPageURL returns listing page n (1-based) of a category.
func (s *Scraper) ListingPageURL(slug string, n int) string {
	page := "index.html"
	if n > 1 {
		page = fmt.Sprintf("page-%d.html", n)
	}
	return s.base.JoinPath("catalogue", "category", "books", slug, page).String()
}

// Categories fetches the index page and returns the category slugs in
// menu order. An unreachable index page is returned as an error because
// nothing else can be crawled without it.
func (s *Scraper) Categories(ctx context.Context) ([]string, error) {
	doc, err := s.fetcher.Document(ctx, s.IndexURL())
	if err != nil {
		return nil, err
	}
	return ParseCategories(doc), nil
}

// ListingPages returns the listing page URLs of a category in ascending
// page order. It probes index.html, then page-2.html and so on, stopping
// at the first page that cannot be fetched. An unreachable index.html
// yields an empty list.
func (s *Scraper) ListingPages(ctx context.Context, slug string) []string {
	var pages []string
	for n := 1; n <= s.maxListingPages; n++ {
		if ctx.Err() != nil {
			break
		}
		pageURL := s.ListingPageURL(slug, n)
		if !s.fetcher.Reachable(ctx, pageURL) {
			break
		}
		pages = append(pages, pageURL)
	}
	s.logger.Debug("listing pages found", "category", slug, "pages", len(pages))
	return pages
}

// ProductURLs fetches a listing page and returns its product URLs in
// heading order.
func (s *Scraper) ProductURLs(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := s.fetcher.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	base := doc.Url
	if base == nil {
		base, _ = url.Parse(pageURL) //nolint:errcheck // already fetched successfully
	}
	return ParseProductURLs(doc, base), nil
}

// Product fetches and extracts one product page. A missing UPC or price
// is logged once per product and left empty.
func (s *Scraper) Product(ctx context.Context, pageURL string) (model.ProductRecord, error) {
	doc, err := s.fetcher.Document(ctx, pageURL)
	if err != nil {
		return model.ProductRecord{}, err
	}

	record, missing := ParseProduct(doc, pageURL)
	if len(missing) > 0 {
		s.logger.Warn("product page is missing attributes",
			"url", pageURL,
			"missing", strings.Join(missing, ", "))
	}
	return record, nil
}
