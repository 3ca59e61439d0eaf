package model

import "time"

// Summary holds descriptive statistics over a set of category CSV files.
// Stock statistics cover only products whose stock is known; price
// statistics cover only products whose price could be parsed.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalProducts int `json:"total_products"`

	TotalStock   int     `json:"total_stock"`
	StockCounted int     `json:"stock_counted"`
	AverageStock float64 `json:"average_stock"`
	MinStock     int     `json:"min_stock"`
	MaxStock     int     `json:"max_stock"`

	PriceCounted int     `json:"price_counted"`
	AveragePrice float64 `json:"average_price"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`

	Categories []CategoryStats `json:"categories,omitempty"`

	// MissingCategories lists requested categories with no CSV file.
	MissingCategories []string `json:"missing_categories,omitempty"`
}

// CategoryStats is the per-category breakdown of a Summary.
type CategoryStats struct {
	Slug         string  `json:"slug"`
	Products     int     `json:"products"`
	Stock        int     `json:"stock"`
	AveragePrice float64 `json:"average_price"`
}

// HasData reports whether any product was summarized.
func (s *Summary) HasData() bool {
	return s.TotalProducts > 0
}
