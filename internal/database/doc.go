// Package database records bookscrape runs in a SQLite file
// (modernc.org/sqlite, no cgo).
//
// The CSV files stay the primary output. The database keeps what the files
// cannot: one row per run with its counts, the latest version of every
// product keyed by page URL, and the path and SHA3-256 digest of each
// downloaded image. The history command reads it back.
package database
