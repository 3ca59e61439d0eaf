// Package model defines the data shared by the scraper, the pipeline, the
// writers and the reporters:
//   - ProductRecord: the fixed set of attributes extracted from one product page
//   - Category: a category slug plus the listing and product URLs found for it
//   - CategoryResult: the state carried through one category's pipeline
//   - Summary: descriptive statistics over the written CSV files
package model
