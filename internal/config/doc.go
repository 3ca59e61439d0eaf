// Package config holds the bookscrape configuration and the loaders that
// populate it. Values are layered in this order, later sources winning:
// built-in defaults, the .bookscrape YAML file, BOOKSCRAPE_* environment
// variables (optionally read from a .env file), and explicit CLI flags.
package config
