// Package main provides the entry point for the bookscrape CLI.
//
// bookscrape crawls an online bookstore laid out like books.toscrape.com,
// writes one semicolon-separated CSV file per category, downloads cover
// images and prints a summary of the collected data.
//
// Usage:
//
//	bookscrape scrape
//	bookscrape scrape travel_2 Poetry
//	bookscrape summary
//
// See --help for all available options.
package main

func main() {
	Execute()
}
