package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/bookscrape/internal/model"
)

// Writer renders a summary.
type Writer interface {
	// Write outputs the summary and returns the number of bytes written.
	Write(summary *model.Summary) (int, error)
}

// Format selects a Writer implementation.
type Format string

// Supported formats.
const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// NewWriter returns the Writer for format writing to output.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatTable, "":
		return NewTableWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes a summary to several Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to every Writer, stopping on the first error.
func (m *MultiWriter) Write(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// summaryRow is one label/value line shared by the table and Markdown
// renderers.
type summaryRow struct {
	label string
	value string
}

func summaryRows(s *model.Summary) []summaryRow {
	return []summaryRow{
		{"Total products", strconv.Itoa(s.TotalProducts)},
		{"Total available items in stock", strconv.Itoa(s.TotalStock)},
		{"Average stock per product", strconv.FormatFloat(s.AverageStock, 'f', 1, 64)},
		{"Min stock per product", strconv.Itoa(s.MinStock)},
		{"Max stock per product", strconv.Itoa(s.MaxStock)},
		{"Average price (incl. tax)", formatPrice(s.AveragePrice)},
		{"Min price (incl. tax)", formatPrice(s.MinPrice)},
		{"Max price (incl. tax)", formatPrice(s.MaxPrice)},
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func missingMessage(slug string) string {
	return "File not found for category " + slug
}
