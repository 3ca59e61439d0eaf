package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nao1215/bookscrape/internal/model"
)

// TableWriter renders the summary as terminal tables.
type TableWriter struct {
	baseWriter

	// showCategories adds the per-category breakdown table.
	showCategories bool

	style table.Style
}

// TableWriterOption configures a TableWriter.
type TableWriterOption func(*TableWriter)

// WithCategories enables or disables the per-category table.
func WithCategories(show bool) TableWriterOption {
	return func(w *TableWriter) {
		w.showCategories = show
	}
}

// WithStyle sets the go-pretty table style.
func WithStyle(style table.Style) TableWriterOption {
	return func(w *TableWriter) {
		w.style = style
	}
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer, opts ...TableWriterOption) *TableWriter {
	w := &TableWriter{
		baseWriter:     newBaseWriter(output),
		showCategories: true,
		style:          table.StyleRounded,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the missing-file notices, the summary table and, when
// enabled, the per-category table.
func (w *TableWriter) Write(s *model.Summary) (int, error) {
	var b strings.Builder

	for _, slug := range s.MissingCategories {
		b.WriteString(missingMessage(slug))
		b.WriteString("\n")
	}

	if !s.HasData() {
		b.WriteString("No product data to summarize.\n")
		return io.WriteString(w.output, b.String())
	}

	t := table.NewWriter()
	t.SetTitle("Data summary")
	t.AppendHeader(table.Row{"Data", "Value"})
	for _, row := range summaryRows(s) {
		t.AppendRow(table.Row{row.label, row.value})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	t.SetStyle(w.style)
	b.WriteString(t.Render())
	b.WriteString("\n")

	if w.showCategories && len(s.Categories) > 1 {
		ct := table.NewWriter()
		ct.SetTitle("By category")
		ct.AppendHeader(table.Row{"Category", "Products", "Stock", "Average price (incl. tax)"})
		for _, c := range s.Categories {
			ct.AppendRow(table.Row{
				model.DisplayName(c.Slug),
				strconv.Itoa(c.Products),
				strconv.Itoa(c.Stock),
				formatPrice(c.AveragePrice),
			})
		}
		ct.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
		})
		ct.SetStyle(w.style)
		b.WriteString(ct.Render())
		b.WriteString("\n")
	}

	return io.WriteString(w.output, b.String())
}
