// Package pipeline runs the scraping steps of one category in sequence and
// fans categories out over a bounded number of goroutines.
//
// A category flows through paginate, collect_products, extract_products,
// write_csv, download_images and, when a database is open, persist. Each
// step reads what earlier steps left in the model.CategoryResult and adds
// its own output. Per-URL failures are recorded in the result and never
// stop the crawl; a step only returns an error when the category cannot
// continue (no listing pages, unwritable output directory).
//
// CategoryProcessor runs one fresh pipeline per category through errgroup
// with SetLimit. The default limit is 1, which keeps exactly one request in
// flight at a time.
package pipeline
