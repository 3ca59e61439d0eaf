package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/bookscrape/internal/model"
)

// Delimiter separates CSV columns.
const Delimiter = ';'

// SingleProductName is the file name, without extension, written by the
// single-product mode. Summaries over a whole directory skip it.
const SingleProductName = "product"

// Header is the fixed column schema of a category file.
var Header = []string{
	"product_page_url",
	"universal_product_code (upc)",
	"title",
	"price_including_tax",
	"price_excluding_tax",
	"number_available",
	"product_description",
	"category",
	"review_rating",
	"image_url",
}

// Column indexes into Header.
const (
	colPageURL = iota
	colUPC
	colTitle
	colPriceInclTax
	colPriceExclTax
	colNumberAvailable
	colDescription
	colCategory
	colRating
	colImageURL
)

var (
	// ErrEmptyCategory is returned when a CSV path is requested for an
	// empty category name.
	ErrEmptyCategory = errors.New("category name must not be empty")

	// ErrInvalidHeader is returned when a CSV file does not start with Header.
	ErrInvalidHeader = errors.New("unexpected CSV header")
)

// CSVPath returns <dir>/<category>.csv.
func CSVPath(dir, category string) (string, error) {
	if category == "" {
		return "", ErrEmptyCategory
	}
	return filepath.Join(dir, filepath.Base(category)+".csv"), nil
}

// WriteCategoryCSV writes records to <dir>/<category>.csv, replacing any
// existing file, and returns the path. The directory is created if needed.
func WriteCategoryCSV(dir, category string, records []model.ProductRecord) (string, error) {
	path, err := CSVPath(dir, category)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // path is built from the output dir and a category slug
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// WriteCSV writes the header and one row per record to w.
func WriteCSV(w io.Writer, records []model.ProductRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(recordToRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCategoryCSV reads a file written by WriteCategoryCSV.
func ReadCategoryCSV(path string) ([]model.ProductRecord, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the output directory
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses rows written by WriteCSV. Rows with an unparsable stock or
// rating keep that field absent.
func ReadCSV(r io.Reader) ([]model.ProductRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidHeader)
		}
		return nil, err
	}
	if header[0] != Header[0] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, header[0])
	}

	var records []model.ProductRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rowToRecord(row))
	}
}

func recordToRow(r model.ProductRecord) []string {
	row := make([]string, len(Header))
	row[colPageURL] = r.PageURL
	row[colUPC] = r.UPC
	row[colTitle] = r.Title
	row[colPriceInclTax] = r.PriceIncludingTax
	row[colPriceExclTax] = r.PriceExcludingTax
	if n, ok := r.Stock(); ok {
		row[colNumberAvailable] = strconv.Itoa(n)
	}
	row[colDescription] = r.Description
	row[colCategory] = r.Category
	row[colRating] = r.Rating.String()
	row[colImageURL] = r.ImageURL
	return row
}

func rowToRecord(row []string) model.ProductRecord {
	r := model.ProductRecord{
		PageURL:           row[colPageURL],
		UPC:               row[colUPC],
		Title:             row[colTitle],
		PriceIncludingTax: row[colPriceInclTax],
		PriceExcludingTax: row[colPriceExclTax],
		Description:       row[colDescription],
		Category:          row[colCategory],
		ImageURL:          row[colImageURL],
	}
	if n, err := strconv.Atoi(row[colNumberAvailable]); err == nil {
		r.NumberAvailable = &n
	}
	if n, err := strconv.Atoi(row[colRating]); err == nil && model.Rating(n).Valid() {
		r.Rating = model.Rating(n)
	}
	return r
}
