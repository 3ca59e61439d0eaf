package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/nao1215/bookscrape/internal/log"
)

// maxRedirects stops redirect loops.
const maxRedirects = 10

// Fetcher issues GET requests for pages and images.
// It is safe for concurrent use.
type Fetcher struct {
	client *resty.Client
	logger *slog.Logger
	robots *robotsChecker

	// Settings applied by options before the client is built.
	timeout       time.Duration
	userAgent     string
	headers       map[string]string
	cookie        string
	proxyAddress  string
	proxyUsername string
	proxyPassword string
	respectRobots bool
	maxBodySize   int64
	transport     http.RoundTripper
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for unreachable pages and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header. Its product token (the part
// before the first "/") is also the robots.txt agent name.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithCookie sends a raw Cookie header with every request.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithProxy routes every request through a SOCKS5 proxy at host:port.
// Username and password may be empty.
func WithProxy(address, username, password string) Option {
	return func(f *Fetcher) {
		f.proxyAddress = address
		f.proxyUsername = username
		f.proxyPassword = password
	}
}

// WithRobots enables robots.txt compliance.
func WithRobots(respect bool) Option {
	return func(f *Fetcher) {
		f.respectRobots = respect
	}
}

// WithMaxBodySize limits response bodies to size bytes. Zero disables the limit.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithTransport replaces the HTTP transport. It takes precedence over WithProxy.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = rt
	}
}

// New builds a Fetcher. It fails only on an invalid proxy configuration.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger:    log.Discard(),
		timeout:   30 * time.Second,
		userAgent: "bookscrape",
	}
	for _, opt := range opts {
		opt(f)
	}

	transport := f.transport
	if transport == nil && f.proxyAddress != "" {
		pt, err := newProxyTransport(f.proxyAddress, f.proxyUsername, f.proxyPassword)
		if err != nil {
			return nil, err
		}
		transport = pt
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options
	httpClient := &http.Client{Jar: jar}
	if transport != nil {
		httpClient.Transport = transport
	}

	client := resty.NewWithClient(httpClient)
	client.SetTimeout(f.timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	client.SetHeader("User-Agent", f.userAgent)
	client.SetHeaders(f.headers)
	if f.cookie != "" {
		client.SetHeader("Cookie", f.cookie)
	}
	client.SetLogger(restyLogger{logger: f.logger})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		f.logger.Debug("fetched",
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time())
		return nil
	})
	f.client = client

	if f.respectRobots {
		f.robots = newRobotsChecker(client, agentToken(f.userAgent), f.logger)
	}
	return f, nil
}

// Document fetches rawURL and parses it as HTML. The returned document's
// Url is set so relative links can be resolved against it.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, u, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Url = u
	return doc, nil
}

// Bytes fetches rawURL and returns the response body.
func (f *Fetcher) Bytes(ctx context.Context, rawURL string) ([]byte, error) {
	body, _, err := f.get(ctx, rawURL)
	return body, err
}

// Reachable reports whether a GET for rawURL succeeds. The pagination
// walker uses it to probe for the next listing page.
func (f *Fetcher) Reachable(ctx context.Context, rawURL string) bool {
	_, _, err := f.get(ctx, rawURL)
	return err == nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, rawURL, err)
	}

	if f.robots != nil && !f.robots.allowed(ctx, u) {
		f.logger.Warn("skipping page disallowed by robots.txt", "url", rawURL)
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, rawURL, ErrDisallowed)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		f.logger.Warn("the requested page is unreachable", "url", rawURL, "error", err)
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, rawURL, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if !resp.IsSuccess() {
		f.logger.Warn("the requested page is unreachable", "url", rawURL, "status", resp.StatusCode())
		return nil, nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode()}
	}

	var r io.Reader = raw
	if f.maxBodySize > 0 {
		r = io.LimitReader(raw, f.maxBodySize+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		f.logger.Warn("failed to read response body", "url", rawURL, "error", err)
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, rawURL, err)
	}
	if f.maxBodySize > 0 && int64(len(body)) > f.maxBodySize {
		f.logger.Warn("response body too large", "url", rawURL, "limit", f.maxBodySize)
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, rawURL, ErrBodyTooLarge)
	}

	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		u = resp.RawResponse.Request.URL
	}
	return body, u, nil
}

// restyLogger routes resty's internal messages to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
