package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// Gate evaluates robots.txt rules with per-origin caching.
// It is owned by the single crawl loop, so no locking is needed.
type Gate struct {
	// client performs the robots.txt fetches.
	client *http.Client

	// userAgent is the agent token matched against robots groups.
	// The wildcard group applies when no specific group matches.
	userAgent string

	// logger reports fetch failures and disallowed paths.
	logger *slog.Logger

	// cache maps "scheme://host" origins to their fetched policy.
	// A nil entry value means the fetch failed and the origin is open.
	cache map[string]*robotstxt.RobotsData
}

// NewGate creates a robots gate that fetches policies with the given
// client and evaluates them for the given agent token.
func NewGate(client *http.Client, userAgent string, logger *slog.Logger) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the target URL may be fetched.
// The first reference to an origin fetches its robots.txt; failures are
// logged and treated as allowed.
func (g *Gate) Allowed(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() {
		return false
	}

	data := g.policy(ctx, u)
	if data == nil {
		// Fetch failed earlier; fail open.
		return true
	}

	group := g.group(data)
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

// CrawlDelay returns the crawl-delay hint for the URL's origin, or zero
// when the policy has none. The scheduler uses it as a lower bound on
// the configured delay.
func (g *Gate) CrawlDelay(ctx context.Context, target string) time.Duration {
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() {
		return 0
	}

	data := g.policy(ctx, u)
	if data == nil {
		return 0
	}
	if group := g.group(data); group != nil {
		return group.CrawlDelay
	}
	return 0
}

// group resolves the rule group for the configured agent token,
// falling back to the wildcard group.
func (g *Gate) group(data *robotstxt.RobotsData) *robotstxt.Group {
	if group := data.FindGroup(g.userAgent); group != nil {
		return group
	}
	return data.FindGroup("*")
}

// policy returns the cached policy for the URL's origin, fetching it on
// first reference. A nil return means the origin is open because its
// robots.txt could not be fetched or parsed.
func (g *Gate) policy(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	origin := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
	if data, ok := g.cache[origin]; ok {
		return data
	}

	data, err := g.fetch(ctx, origin)
	if err != nil {
		g.logger.Warn("robots.txt unavailable, failing open for origin",
			"origin", origin, "error", err)
		data = nil
	}
	// Cache success and failure alike; robots are never refetched mid-run.
	g.cache[origin] = data
	return data
}

// fetch retrieves and parses robots.txt for an origin.
func (g *Gate) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
