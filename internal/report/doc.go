// Package report computes descriptive statistics over the category CSV
// files and renders them.
//
// Summarize reads the files; a Writer renders the resulting model.Summary
// as a terminal table (go-pretty), Markdown (nao1215/markdown) or JSON.
package report
