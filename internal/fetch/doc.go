// Package fetch retrieves pages and images for the scraper.
//
// A Fetcher wraps a resty client. Pages come back as goquery documents built
// from a golang.org/x/net/html tree; images come back as raw bytes. Every
// failure, whether a transport error or a non-2xx status, wraps
// ErrUnreachable so callers can treat it as "no data" and move on.
//
// Optional behavior:
//   - a SOCKS5 proxy (golang.org/x/net/proxy), checked with CheckProxy
//   - robots.txt compliance (github.com/temoto/robotstxt)
//   - extra headers, a cookie and a response size limit
package fetch
