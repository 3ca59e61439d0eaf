// Package scraper walks the bookstore and extracts product records.
//
// The Scraper drives a fetch.Fetcher through the site structure:
//
//	index.html                              -> category slugs
//	catalogue/category/books/<slug>/index.html,
//	page-2.html, page-3.html, ...           -> listing pages
//	listing page                            -> product page URLs
//	product page                            -> model.ProductRecord
//
// The Parse* functions hold the HTML extraction rules and work on an already
// parsed document, so they can be tested without a server.
//
// # Usage
//
//	s, err := scraper.New(fetcher, "http://books.toscrape.com", scraper.WithLogger(logger))
//	slugs, err := s.Categories(ctx)
//	for _, page := range s.ListingPages(ctx, slugs[0]) {
//		urls, _ := s.ProductURLs(ctx, page)
//		...
//	}
package scraper
