package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is one category of the store, identified by the slug used in
// its URL path (e.g. "travel_2").
type Category struct {
	Slug string `json:"slug"`

	// PageURLs are the listing pages, index.html first, in page order.
	PageURLs []string `json:"page_urls,omitempty"`

	// ProductURLs are the product detail pages in listing order.
	ProductURLs []string `json:"product_urls,omitempty"`
}

// DisplayName derives a human-readable name from the slug by dropping the
// numeric suffix: "science-fiction_16" becomes "Science Fiction".
func (c Category) DisplayName() string {
	return DisplayName(c.Slug)
}

// DisplayName is Category.DisplayName for a bare slug.
func DisplayName(slug string) string {
	name := slug
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, "-", " ")
	// A Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(name)
}

// MatchesAny reports whether the category is named by one of names, either
// by slug or by display name, ignoring case.
func (c Category) MatchesAny(names []string) bool {
	display := c.DisplayName()
	for _, n := range names {
		n = strings.TrimSpace(n)
		if strings.EqualFold(n, c.Slug) || strings.EqualFold(n, display) {
			return true
		}
	}
	return false
}
