package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/bookscrape/internal/model"
)

func intPtr(n int) *int { return &n }

func sampleRecords() []model.ProductRecord {
	return []model.ProductRecord{
		{
			PageURL:           "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
			UPC:               "a897fe39b1053632",
			Title:             "A Light in the Attic",
			PriceIncludingTax: "£51.77",
			PriceExcludingTax: "£51.77",
			NumberAvailable:   intPtr(22),
			Description:       "It's hard to imagine a world; without \"quotes\".\nSecond line.",
			Category:          "Poetry",
			Rating:            3,
			ImageURL:          "http://books.toscrape.com/media/cache/fe/72/x.jpg",
		},
		{
			PageURL:           "http://books.toscrape.com/catalogue/b_1/index.html",
			UPC:               "",
			Title:             "Untitled",
			PriceIncludingTax: "£10.00",
			PriceExcludingTax: "£10.00",
			Category:          "Poetry",
			ImageURL:          "http://books.toscrape.com/media/cache/b.jpg",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()[:1]); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.SplitN(buf.String(), "\n", 2)
	wantHeader := "product_page_url;universal_product_code (upc);title;price_including_tax;" +
		"price_excluding_tax;number_available;product_description;category;review_rating;image_url"
	if lines[0] != wantHeader {
		t.Errorf("header = %q\nwant     %q", lines[0], wantHeader)
	}
	if !strings.Contains(lines[1], `"It's hard to imagine a world; without ""quotes"".`) {
		t.Errorf("expected quoted description, got %q", lines[1])
	}
}

func TestCategoryCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	records := sampleRecords()

	path, err := WriteCategoryCSV(dir, "poetry_23", records)
	if err != nil {
		t.Fatalf("WriteCategoryCSV() error = %v", err)
	}
	if path != filepath.Join(dir, "poetry_23.csv") {
		t.Errorf("path = %q", path)
	}

	got, err := ReadCategoryCSV(path)
	if err != nil {
		t.Fatalf("ReadCategoryCSV() error = %v", err)
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCategoryCSV_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := WriteCategoryCSV(dir, "travel_2", sampleRecords()); err != nil {
		t.Fatal(err)
	}
	path, err := WriteCategoryCSV(dir, "travel_2", sampleRecords()[:1])
	if err != nil {
		t.Fatal(err)
	}

	got, err := ReadCategoryCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 record after overwrite, got %d", len(got))
	}
}

func TestWriteCategoryCSV_EmptyCategory(t *testing.T) {
	t.Parallel()

	if _, err := WriteCategoryCSV(t.TempDir(), "", nil); !errors.Is(err, ErrEmptyCategory) {
		t.Errorf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestWriteCategoryCSV_NoRecords(t *testing.T) {
	t.Parallel()

	path, err := WriteCategoryCSV(t.TempDir(), "empty_1", nil)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("expected header only, got %q", data)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty file", input: "", wantErr: ErrInvalidHeader},
		{name: "foreign header", input: "a;b;c;d;e;f;g;h;i;j\n", wantErr: ErrInvalidHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ReadCSV(strings.NewReader(tt.input)); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("wrong column count", func(t *testing.T) {
		t.Parallel()
		input := strings.Join(Header, ";") + "\nonly;three;columns\n"
		if _, err := ReadCSV(strings.NewReader(input)); err == nil {
			t.Error("expected error for short row")
		}
	})
}
