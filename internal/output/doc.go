// Package output writes scraped data to disk.
//
// Layout under the output directory:
//
//	<category>.csv               one row per product, ';'-separated
//	img/<category>/<title>.jpg   product cover images
//
// The CSV file is rewritten on every run. ReadCategoryCSV reads it back for
// the summary reporter.
package output
