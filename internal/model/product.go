package model

import "strconv"

// Rating is a product's star rating from 1 to 5. The zero value means the
// page carried no recognizable rating.
type Rating int

// RatingNone marks an absent rating.
const RatingNone Rating = 0

var ratingWords = map[string]Rating{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// ParseRating maps the star-rating word used by the store ("One" to "Five")
// to a Rating. Any other word yields RatingNone.
func ParseRating(word string) Rating {
	return ratingWords[word]
}

// Valid reports whether r is within 1..5.
func (r Rating) Valid() bool {
	return r >= 1 && r <= 5
}

// String returns the numeric rating, or an empty string when absent.
func (r Rating) String() string {
	if !r.Valid() {
		return ""
	}
	return strconv.Itoa(int(r))
}

// ProductRecord holds the attributes of one product detail page. Prices
// are kept verbatim as displayed, currency symbol included.
type ProductRecord struct {
	PageURL           string `json:"page_url"`
	UPC               string `json:"upc"`
	Title             string `json:"title"`
	PriceIncludingTax string `json:"price_including_tax"`
	PriceExcludingTax string `json:"price_excluding_tax"`
	// NumberAvailable is nil when the availability text had no digits.
	NumberAvailable *int   `json:"number_available,omitempty"`
	Description     string `json:"description,omitempty"`
	Category        string `json:"category"`
	Rating          Rating `json:"rating,omitempty"`
	ImageURL        string `json:"image_url"`
}

// Stock returns the number available and whether it is known.
func (p ProductRecord) Stock() (int, bool) {
	if p.NumberAvailable == nil {
		return 0, false
	}
	return *p.NumberAvailable, true
}
