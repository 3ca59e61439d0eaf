package output

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/bookscrape/internal/log"
	"github.com/nao1215/bookscrape/internal/model"
)

// ImageDir is the subdirectory of the output directory holding images.
const ImageDir = "img"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9 ]`)

// ImageFileName derives a file name from a product title: every character
// outside [A-Za-z0-9 ] is removed and each space becomes "_".
// "A Light in the Attic: Poems!" becomes "A_Light_in_the_Attic_Poems".
func ImageFileName(title string) string {
	name := unsafeFileChars.ReplaceAllString(title, "")
	return strings.ReplaceAll(name, " ", "_")
}

// ImageFetcher retrieves raw image bytes. *fetch.Fetcher implements it.
type ImageFetcher interface {
	Bytes(ctx context.Context, rawURL string) ([]byte, error)
}

// ImageDownloader saves product cover images under <dir>/img/<category>/.
type ImageDownloader struct {
	fetcher ImageFetcher
	dir     string
	logger  *slog.Logger
}

// ImageOption configures an ImageDownloader.
type ImageOption func(*ImageDownloader)

// WithImageLogger sets the logger for skipped downloads.
func WithImageLogger(logger *slog.Logger) ImageOption {
	return func(d *ImageDownloader) {
		d.logger = logger
	}
}

// NewImageDownloader returns a downloader writing below dir.
func NewImageDownloader(fetcher ImageFetcher, dir string, opts ...ImageOption) *ImageDownloader {
	d := &ImageDownloader{
		fetcher: fetcher,
		dir:     dir,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CategoryDir returns <dir>/img/<category>.
func (d *ImageDownloader) CategoryDir(category string) string {
	return filepath.Join(d.dir, ImageDir, filepath.Base(category))
}

// Download fetches the product's image and writes it as
// <dir>/img/<category>/<ImageFileName(title)>.jpg, creating directories as
// needed. A title with no usable characters falls back to the UPC, then to
// a digest of the image URL. Failed downloads are logged and returned;
// nothing is written for them.
func (d *ImageDownloader) Download(ctx context.Context, category string, p model.ProductRecord) (model.ImageResult, error) {
	if category == "" {
		return model.ImageResult{}, ErrEmptyCategory
	}

	data, err := d.fetcher.Bytes(ctx, p.ImageURL)
	if err != nil {
		d.logger.Warn("image download failed", "url", p.ImageURL, "product", p.PageURL, "error", err)
		return model.ImageResult{}, err
	}

	dir := d.CategoryDir(category)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return model.ImageResult{}, fmt.Errorf("failed to create image directory: %w", err)
	}

	path := filepath.Join(dir, imageBaseName(p)+".jpg")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return model.ImageResult{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	sum := sha3.Sum256(data)
	return model.ImageResult{
		ProductURL: p.PageURL,
		Path:       path,
		Size:       int64(len(data)),
		Digest:     hex.EncodeToString(sum[:]),
	}, nil
}

func imageBaseName(p model.ProductRecord) string {
	if name := ImageFileName(p.Title); name != "" {
		return name
	}
	if name := ImageFileName(p.UPC); name != "" {
		return name
	}
	sum := sha3.Sum256([]byte(p.ImageURL))
	return hex.EncodeToString(sum[:8])
}
