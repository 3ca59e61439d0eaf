package report

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/nao1215/bookscrape/internal/model"
	"github.com/nao1215/bookscrape/internal/output"
)

// ParsePrice strips any leading currency symbol from a displayed price and
// parses the rest. Both "£51.77" and the mis-decoded "Â£51.77" give 51.77.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimLeftFunc(strings.TrimSpace(s), func(r rune) bool {
		return !unicode.IsDigit(r) && r != '-' && r != '.'
	})
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Summarize reads <dir>/<slug>.csv for every slug and computes the summary.
// With no slugs, every *.csv file in dir is read except the single-product
// file. A requested category without a file is listed in
// MissingCategories and skipped.
func Summarize(dir string, slugs []string) (*model.Summary, error) {
	if len(slugs) == 0 {
		found, err := csvSlugs(dir)
		if err != nil {
			return nil, err
		}
		slugs = found
	}

	acc := newAccumulator()
	for _, slug := range slugs {
		path, err := output.CSVPath(dir, slug)
		if err != nil {
			return nil, err
		}
		records, err := output.ReadCategoryCSV(path)
		if errors.Is(err, fs.ErrNotExist) {
			acc.summary.MissingCategories = append(acc.summary.MissingCategories, slug)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		acc.addCategory(slug, records)
	}
	return acc.finish(), nil
}

func csvSlugs(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list CSV files: %w", err)
	}
	sort.Strings(matches)

	slugs := make([]string, 0, len(matches))
	for _, m := range matches {
		slug := strings.TrimSuffix(filepath.Base(m), ".csv")
		if slug == output.SingleProductName {
			continue
		}
		slugs = append(slugs, slug)
	}
	return slugs, nil
}

type accumulator struct {
	summary  *model.Summary
	priceSum float64
}

func newAccumulator() *accumulator {
	return &accumulator{
		summary: &model.Summary{GeneratedAt: time.Now()},
	}
}

func (a *accumulator) addCategory(slug string, records []model.ProductRecord) {
	s := a.summary
	stats := model.CategoryStats{Slug: slug, Products: len(records)}

	var (
		catPriceSum float64
		catPrices   int
	)
	for _, r := range records {
		s.TotalProducts++

		if n, ok := r.Stock(); ok {
			if s.StockCounted == 0 || n < s.MinStock {
				s.MinStock = n
			}
			if s.StockCounted == 0 || n > s.MaxStock {
				s.MaxStock = n
			}
			s.StockCounted++
			s.TotalStock += n
			stats.Stock += n
		}

		if price, ok := ParsePrice(r.PriceIncludingTax); ok {
			if s.PriceCounted == 0 || price < s.MinPrice {
				s.MinPrice = price
			}
			if s.PriceCounted == 0 || price > s.MaxPrice {
				s.MaxPrice = price
			}
			s.PriceCounted++
			a.priceSum += price
			catPriceSum += price
			catPrices++
		}
	}

	if catPrices > 0 {
		stats.AveragePrice = catPriceSum / float64(catPrices)
	}
	s.Categories = append(s.Categories, stats)
}

func (a *accumulator) finish() *model.Summary {
	s := a.summary
	if s.StockCounted > 0 {
		s.AverageStock = float64(s.TotalStock) / float64(s.StockCounted)
	}
	if s.PriceCounted > 0 {
		s.AveragePrice = a.priceSum / float64(s.PriceCounted)
	}
	return s
}
