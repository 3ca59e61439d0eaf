package scraper

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bookscrape/internal/model"
)

// Labels of the product attribute table.
const (
	labelUPC          = "UPC"
	labelPriceInclTax = "Price (incl. tax)"
	labelPriceExclTax = "Price (excl. tax)"
	labelAvailability = "Availability"
)

// requiredLabels must be present in every product attribute table.
var requiredLabels = []string{labelUPC, labelPriceInclTax, labelPriceExclTax}

var digitsPattern = regexp.MustCompile(`\d+`)

// ParseCategories returns the category slugs linked from the navigation
// menu of the index page, in menu order.
func ParseCategories(doc *goquery.Document) []string {
	var slugs []string
	doc.Find("ul.nav-list ul a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if slug := slugFromHref(href); slug != "" {
			slugs = append(slugs, slug)
		}
	})
	return slugs
}

// slugFromHref extracts "travel_2" from
// "catalogue/category/books/travel_2/index.html".
func slugFromHref(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "books" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	dir := path.Base(path.Dir(u.Path))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// ParseProductURLs returns the product detail URLs of a listing page in
// heading order, resolved against base.
func ParseProductURLs(doc *goquery.Document, base *url.URL) []string {
	var urls []string
	doc.Find("article.product_pod h3 a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if resolved := resolve(base, href); resolved != "" {
			urls = append(urls, resolved)
		}
	})
	return urls
}

// ParseProduct extracts a ProductRecord from a product detail page. Missing
// optional fields are left empty. The second return value lists required
// attribute table labels that were absent; their fields are empty too.
func ParseProduct(doc *goquery.Document, pageURL string) (model.ProductRecord, []string) {
	attrs := parseAttributeTable(doc)

	var missing []string
	for _, label := range requiredLabels {
		if _, ok := attrs[label]; !ok {
			missing = append(missing, label)
		}
	}

	record := model.ProductRecord{
		PageURL:           pageURL,
		UPC:               attrs[labelUPC],
		Title:             strings.TrimSpace(doc.Find("h1").First().Text()),
		PriceIncludingTax: attrs[labelPriceInclTax],
		PriceExcludingTax: attrs[labelPriceExclTax],
		NumberAvailable:   ParseStock(attrs[labelAvailability]),
		Description:       parseDescription(doc),
		Category:          strings.TrimSpace(doc.Find("li.active").First().Prev().Text()),
		Rating:            parseRating(doc),
	}

	if src, ok := doc.Find("#product_gallery img").First().Attr("src"); ok {
		base, _ := url.Parse(pageURL) //nolint:errcheck // a nil base leaves src unresolved
		record.ImageURL = resolve(base, src)
	}

	return record, missing
}

// ParseStock returns the first run of digits in an availability text such
// as "In stock (22 available)". It returns nil when there is none.
func ParseStock(availability string) *int {
	m := digitsPattern.FindString(availability)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

func parseAttributeTable(doc *goquery.Document) map[string]string {
	attrs := make(map[string]string)
	doc.Find("table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("th").First().Text())
		if label == "" {
			return
		}
		attrs[label] = strings.TrimSpace(row.Find("td").First().Text())
	})
	return attrs
}

func parseDescription(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("#product_description").First().NextAllFiltered("p").First().Text())
}

// parseRating reads the word class of <p class="star-rating Three">.
func parseRating(doc *goquery.Document) model.Rating {
	class, ok := doc.Find("p.star-rating").First().Attr("class")
	if !ok {
		return model.RatingNone
	}
	fields := strings.Fields(class)
	if len(fields) < 2 {
		return model.RatingNone
	}
	return model.ParseRating(fields[1])
}

// resolve returns ref resolved against base, or ref itself when base is nil.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return r.String()
	}
	return base.ResolveReference(r).String()
}
