package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
)

// robotsChecker caches one robots.txt group per origin. A robots.txt that
// is missing, unreadable or unparsable allows everything.
type robotsChecker struct {
	client *resty.Client
	agent  string
	logger *slog.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func newRobotsChecker(client *resty.Client, agent string, logger *slog.Logger) *robotsChecker {
	return &robotsChecker{
		client: client,
		agent:  agent,
		logger: logger,
		groups: make(map[string]*robotstxt.Group),
	}
}

func (r *robotsChecker) allowed(ctx context.Context, u *url.URL) bool {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	group, ok := r.groups[origin]
	r.mu.Unlock()

	if !ok {
		group = r.load(ctx, origin)
		r.mu.Lock()
		r.groups[origin] = group
		r.mu.Unlock()
	}

	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (r *robotsChecker) load(ctx context.Context, origin string) *robotstxt.Group {
	resp, err := r.client.R().SetContext(ctx).Get(origin + "/robots.txt")
	if err != nil {
		r.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	if !resp.IsSuccess() {
		r.logger.Debug("robots.txt not found", "origin", origin, "status", resp.StatusCode())
		return nil
	}

	data, err := robotstxt.FromBytes(resp.Body())
	if err != nil {
		r.logger.Debug("robots.txt unparsable", "origin", origin, "error", err)
		return nil
	}
	return data.FindGroup(r.agent)
}

// agentToken returns the product token of a User-Agent string:
// "bookscrape/1.0 (+https://...)" becomes "bookscrape".
func agentToken(userAgent string) string {
	token, _, _ := strings.Cut(userAgent, "/")
	token = strings.TrimSpace(token)
	if token == "" {
		return "*"
	}
	return token
}
