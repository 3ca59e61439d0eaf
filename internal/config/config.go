package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths and the env prefix.
	AppName = "bookscrape"

	// DefaultBaseURL is the bookstore that bookscrape was written for.
	DefaultBaseURL = "http://books.toscrape.com"

	// DefaultOutputDir receives the CSV files and the img/ tree.
	DefaultOutputDir = "data"

	// DefaultTimeout bounds every single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency keeps the crawl sequential: one category at a time,
	// one request in flight.
	DefaultConcurrency = 1

	// DefaultUserAgent identifies bookscrape in server logs.
	DefaultUserAgent = "bookscrape/1.0 (+https://github.com/nao1215/bookscrape)"

	// DefaultMaxBodySize caps a response body. Cover images on the store
	// are a few dozen kilobytes.
	DefaultMaxBodySize = 10 * 1024 * 1024
)

// Config holds every option of a bookscrape run. It is built once by the
// CLI and passed down; no package reads global configuration.
type Config struct {
	// BaseURL is the site root, without a trailing index.html.
	BaseURL string

	// OutputDir receives <category>.csv files and img/<category>/ images.
	OutputDir string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Concurrency is the number of categories crawled at once.
	Concurrency int

	// UserAgent is sent with every request.
	UserAgent string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Cookie is a raw Cookie header value sent with every request.
	Cookie string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// ProxyUsername and ProxyPassword authenticate against the proxy.
	ProxyUsername string
	ProxyPassword string

	// RespectRobots makes the fetcher honor the site's robots.txt.
	RespectRobots bool

	// DownloadImages enables the image download step.
	DownloadImages bool

	// MaxBodySize is the largest response body accepted, in bytes.
	// Zero means no limit.
	MaxBodySize int64

	// Categories restricts the crawl to these slugs or display names.
	// Empty means every category.
	Categories []string

	// Exclude removes these slugs or display names from the crawl.
	Exclude []string

	// ProductURL switches the scrape command to single-product mode.
	ProductURL string

	// SaveToDB records the run in the history database under DBDir.
	SaveToDB bool

	// DBDir is the directory holding bookscrape.db.
	DBDir string

	// Verbose lowers the log level to Debug.
	Verbose bool

	// JSONReport and MarkdownReport select the summary format. The default
	// is a terminal table.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the summary to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is an explicit .bookscrape path.
	ConfigFilePath string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		OutputDir:      DefaultOutputDir,
		Timeout:        DefaultTimeout,
		Concurrency:    DefaultConcurrency,
		UserAgent:      DefaultUserAgent,
		RespectRobots:  true,
		DownloadImages: true,
		MaxBodySize:    DefaultMaxBodySize,
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for bookscrape
// (~/.local/share/bookscrape on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for bookscrape
// (~/.config/bookscrape on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate reports the first invalid setting it finds.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ProxyAddress == "" && (c.ProxyUsername != "" || c.ProxyPassword != "") {
		return ErrProxyCredentialsWithoutProxy
	}

	return nil
}
