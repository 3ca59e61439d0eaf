package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/bookscrape/internal/model"
	"github.com/nao1215/bookscrape/internal/output"
)

func intPtr(n int) *int { return &n }

func writeCSV(t *testing.T, dir, slug string, records []model.ProductRecord) {
	t.Helper()
	if _, err := output.WriteCategoryCSV(dir, slug, records); err != nil {
		t.Fatalf("WriteCategoryCSV() error = %v", err)
	}
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"£51.77", 51.77, true},
		{"Â£51.77", 51.77, true},
		{" £10.00 ", 10, true},
		{"51.77", 51.77, true},
		{"", 0, false},
		{"£", 0, false},
		{"free", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, ok := ParsePrice(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParsePrice(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "travel_2", []model.ProductRecord{
		{Title: "A", PriceIncludingTax: "£45.17", NumberAvailable: intPtr(19)},
		{Title: "B", PriceIncludingTax: "£49.43", NumberAvailable: intPtr(15)},
		{Title: "C", PriceIncludingTax: "£48.87"},
	})
	writeCSV(t, dir, "poetry_23", []model.ProductRecord{
		{Title: "D", PriceIncludingTax: "£51.77", NumberAvailable: intPtr(22)},
	})

	t.Run("requested categories", func(t *testing.T) {
		t.Parallel()

		s, err := Summarize(dir, []string{"travel_2", "poetry_23", "mystery_3"})
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}

		if s.TotalProducts != 4 {
			t.Errorf("TotalProducts = %d, want 4", s.TotalProducts)
		}
		if s.StockCounted != 3 || s.TotalStock != 56 {
			t.Errorf("stock = %d over %d products, want 56 over 3", s.TotalStock, s.StockCounted)
		}
		if s.MinStock != 15 || s.MaxStock != 22 {
			t.Errorf("stock range = [%d, %d], want [15, 22]", s.MinStock, s.MaxStock)
		}
		if math.Abs(s.AverageStock-56.0/3) > 1e-9 {
			t.Errorf("AverageStock = %v", s.AverageStock)
		}
		if s.PriceCounted != 4 || s.MinPrice != 45.17 || s.MaxPrice != 51.77 {
			t.Errorf("price stats = %d [%v, %v]", s.PriceCounted, s.MinPrice, s.MaxPrice)
		}
		if math.Abs(s.AveragePrice-48.81) > 1e-9 {
			t.Errorf("AveragePrice = %v, want 48.81", s.AveragePrice)
		}
		if diff := cmp.Diff([]string{"mystery_3"}, s.MissingCategories); diff != "" {
			t.Errorf("missing categories mismatch (-want +got):\n%s", diff)
		}
		if len(s.Categories) != 2 || s.Categories[0].Slug != "travel_2" || s.Categories[0].Stock != 34 {
			t.Errorf("unexpected category stats: %+v", s.Categories)
		}
	})

	t.Run("all files in directory", func(t *testing.T) {
		t.Parallel()

		s, err := Summarize(dir, nil)
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		got := make([]string, 0, len(s.Categories))
		for _, c := range s.Categories {
			got = append(got, c.Slug)
		}
		if diff := cmp.Diff([]string{"poetry_23", "travel_2"}, got); diff != "" {
			t.Errorf("categories mismatch (-want +got):\n%s", diff)
		}
		if len(s.MissingCategories) != 0 {
			t.Errorf("unexpected missing categories: %v", s.MissingCategories)
		}
	})
}

func TestSummarize_SkipsSingleProductFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, output.SingleProductName, []model.ProductRecord{
		{Title: "single", PriceIncludingTax: "£1.00"},
	})

	s, err := Summarize(dir, nil)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.HasData() {
		t.Errorf("single-product file should be skipped, got %d products", s.TotalProducts)
	}
}

func TestSummarize_InvalidFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken_1.csv"), []byte("a,b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Summarize(dir, nil); err == nil {
		t.Error("expected error for malformed CSV")
	}
}
