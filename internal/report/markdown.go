package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/bookscrape/internal/model"
)

// MarkdownWriter outputs the summary as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Data summary")
	md.PlainText("")
	md.PlainTextf("Generated at %s", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	md.PlainText("")

	w.writeMissing(md, s)

	if !s.HasData() {
		md.Note("No product data to summarize.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	w.writeTotals(md, s)
	w.writeCategories(md, s)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeMissing(md *markdown.Markdown, s *model.Summary) {
	if len(s.MissingCategories) == 0 {
		return
	}
	messages := make([]string, 0, len(s.MissingCategories))
	for _, slug := range s.MissingCategories {
		messages = append(messages, missingMessage(slug))
	}
	md.Warningf("%d requested categories have no CSV file.", len(s.MissingCategories))
	md.PlainText("")
	md.BulletList(messages...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, s *model.Summary) {
	rows := summaryRows(s)
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{r.label, r.value})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Data", "Value"},
		Rows:   tableRows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, s *model.Summary) {
	if len(s.Categories) == 0 {
		return
	}

	md.H2("By category")
	md.PlainText("")

	rows := make([][]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		rows = append(rows, []string{
			model.DisplayName(c.Slug),
			strconv.Itoa(c.Products),
			strconv.Itoa(c.Stock),
			formatPrice(c.AveragePrice),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Products", "Stock", "Average price (incl. tax)"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(s.Categories) > 1 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Products per category"),
			piechart.WithShowData(true),
		)
		for _, c := range s.Categories {
			if c.Products > 0 {
				chart.LabelAndIntValue(model.DisplayName(c.Slug), uint64(c.Products)) //nolint:gosec // count is non-negative
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}
