// Package bookstoretest serves a small fake bookstore with the same page
// structure as books.toscrape.com, for use in tests.
package bookstoretest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Product is one book of the fake store.
type Product struct {
	// Slug is the product directory, e.g. "a-light-in-the-attic_1000".
	Slug         string
	Title        string
	UPC          string
	PriceInclTax string
	PriceExclTax string
	Availability string
	Description  string
	// RatingWord is the star-rating class, e.g. "Three".
	RatingWord string
	// Image is served at /media/cache/<Slug>.jpg. Nil serves a 404.
	Image []byte
	// OmitUPC drops the UPC row from the attribute table.
	OmitUPC bool
}

// Category is one category with its products split into listing pages.
type Category struct {
	Slug  string
	Name  string
	Pages [][]Product
}

// Site is the full content of the fake store.
type Site struct {
	Categories []Category
}

// JPEG is a minimal payload served as a cover image.
var JPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xff, 0xd9}

// DefaultSite has one category with two listing pages and three products,
// and a second single-page category with one product.
func DefaultSite() Site {
	return Site{Categories: []Category{
		{
			Slug: "travel_2",
			Name: "Travel",
			Pages: [][]Product{
				{
					{
						Slug: "it-s-only-the-himalayas_981", Title: "It's Only the Himalayas",
						UPC: "a22124811bfa8350", PriceInclTax: "£45.17", PriceExclTax: "£45.17",
						Availability: "In stock (19 available)", Description: "Wherever you go...",
						RatingWord: "Two", Image: JPEG,
					},
					{
						Slug: "full-moon-over-noahs-ark_980", Title: "Full Moon over Noah’s Ark",
						UPC: "feb7cc7701ecf901", PriceInclTax: "£49.43", PriceExclTax: "£49.43",
						Availability: "In stock (15 available)", Description: "Acclaimed travel writer...",
						RatingWord: "Four", Image: JPEG,
					},
				},
				{
					{
						Slug: "see-america_979", Title: "See America: A Celebration of Our National Parks & Treasured Sites",
						UPC: "f9705c362f070608", PriceInclTax: "£48.87", PriceExclTax: "£48.87",
						Availability: "In stock (14 available)", RatingWord: "Three", Image: JPEG,
					},
				},
			},
		},
		{
			Slug: "poetry_23",
			Name: "Poetry",
			Pages: [][]Product{
				{
					{
						Slug: "a-light-in-the-attic_1000", Title: "A Light in the Attic",
						UPC: "a897fe39b1053632", PriceInclTax: "£51.77", PriceExclTax: "£51.77",
						Availability: "In stock (22 available)", Description: "It's hard to imagine a world without A Light in the Attic.",
						RatingWord: "Three", Image: JPEG,
					},
				},
			},
		},
	}}
}

// Server is a running fake store.
type Server struct {
	*httptest.Server

	site       Site
	products   map[string]Product
	categoryOf map[string]string

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	requests    int
}

// NewServer starts a fake store serving site. It is closed on test cleanup.
func NewServer(t testing.TB, site Site) *Server {
	t.Helper()

	s := &Server{
		site:       site,
		products:   make(map[string]Product),
		categoryOf: make(map[string]string),
	}
	for _, c := range site.Categories {
		for _, page := range c.Pages {
			for _, p := range page {
				s.products[p.Slug] = p
				s.categoryOf[p.Slug] = c.Name
			}
		}
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// MaxInFlight returns the largest number of concurrent requests seen.
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// Requests returns the number of requests served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// ProductURL returns the absolute URL of a product page.
func (s *Server) ProductURL(slug string) string {
	return s.URL + "/catalogue/" + slug + "/index.html"
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.inFlight++
	s.requests++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	p := r.URL.Path
	switch {
	case p == "/" || p == "/index.html":
		writeHTML(w, s.indexPage())
	case strings.HasPrefix(p, "/catalogue/category/books/"):
		s.serveListing(w, r, strings.TrimPrefix(p, "/catalogue/category/books/"))
	case strings.HasPrefix(p, "/catalogue/"):
		slug := strings.TrimSuffix(strings.TrimPrefix(p, "/catalogue/"), "/index.html")
		prod, ok := s.products[slug]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeHTML(w, productPage(prod, s.categoryOf[slug]))
	case strings.HasPrefix(p, "/media/cache/"):
		slug := strings.TrimSuffix(strings.TrimPrefix(p, "/media/cache/"), ".jpg")
		prod, ok := s.products[slug]
		if !ok || prod.Image == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(prod.Image)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveListing(w http.ResponseWriter, r *http.Request, rest string) {
	slug, page, ok := strings.Cut(rest, "/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var cat *Category
	for i := range s.site.Categories {
		if s.site.Categories[i].Slug == slug {
			cat = &s.site.Categories[i]
		}
	}
	if cat == nil {
		http.NotFound(w, r)
		return
	}

	n := 1
	if page != "index.html" {
		num, found := strings.CutPrefix(page, "page-")
		num, found2 := strings.CutSuffix(num, ".html")
		v, err := strconv.Atoi(num)
		if !found || !found2 || err != nil || v < 2 {
			http.NotFound(w, r)
			return
		}
		n = v
	}
	if n > len(cat.Pages) {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, listingPage(cat.Pages[n-1]))
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func (s *Server) indexPage() string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="side_categories"><ul class="nav nav-list"><li>`)
	b.WriteString(`<a href="catalogue/category/books_1/index.html">Books</a><ul>`)
	for _, c := range s.site.Categories {
		fmt.Fprintf(&b, `<li><a href="catalogue/category/books/%s/index.html">%s</a></li>`,
			c.Slug, html.EscapeString(c.Name))
	}
	b.WriteString(`</ul></li></ul></div></body></html>`)
	return b.String()
}

func listingPage(products []Product) string {
	var b strings.Builder
	b.WriteString(`<html><body><section><ol class="row">`)
	for _, p := range products {
		fmt.Fprintf(&b, `<li><article class="product_pod"><h3><a href="../../../%s/index.html" title="%s">%s</a></h3></article></li>`,
			p.Slug, html.EscapeString(p.Title), html.EscapeString(p.Title))
	}
	b.WriteString(`</ol></section></body></html>`)
	return b.String()
}

func productPage(p Product, category string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="breadcrumb"><li><a href="../../index.html">Home</a></li>`)
	b.WriteString(`<li><a href="../category/books_1/index.html">Books</a></li>`)
	fmt.Fprintf(&b, `<li><a href="#">%s</a></li>`, html.EscapeString(category))
	fmt.Fprintf(&b, `<li class="active">%s</li></ul>`, html.EscapeString(p.Title))
	fmt.Fprintf(&b, `<div id="product_gallery"><div class="item active"><img src="../../media/cache/%s.jpg" alt="%s"/></div></div>`,
		p.Slug, html.EscapeString(p.Title))
	fmt.Fprintf(&b, `<div class="product_main"><h1>%s</h1>`, html.EscapeString(p.Title))
	if p.RatingWord != "" {
		fmt.Fprintf(&b, `<p class="star-rating %s"><i class="icon-star"></i></p>`, p.RatingWord)
	}
	b.WriteString(`</div>`)
	if p.Description != "" {
		b.WriteString(`<div id="product_description" class="sub-header"><h2>Product Description</h2></div>`)
		fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(p.Description))
	}
	b.WriteString(`<table class="table table-striped">`)
	if !p.OmitUPC {
		fmt.Fprintf(&b, `<tr><th>UPC</th><td>%s</td></tr>`, html.EscapeString(p.UPC))
	}
	b.WriteString(`<tr><th>Product Type</th><td>Books</td></tr>`)
	fmt.Fprintf(&b, `<tr><th>Price (excl. tax)</th><td>%s</td></tr>`, html.EscapeString(p.PriceExclTax))
	fmt.Fprintf(&b, `<tr><th>Price (incl. tax)</th><td>%s</td></tr>`, html.EscapeString(p.PriceInclTax))
	b.WriteString(`<tr><th>Tax</th><td>£0.00</td></tr>`)
	fmt.Fprintf(&b, `<tr><th>Availability</th><td>%s</td></tr>`, html.EscapeString(p.Availability))
	b.WriteString(`<tr><th>Number of reviews</th><td>0</td></tr></table></body></html>`)
	return b.String()
}
