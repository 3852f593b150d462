package robots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/webstar923/SEO-Spider/internal/cache"
)

const defaultTimeout = 10 * time.Second

// policy is the cached per-host decision. A nil group means allow-all,
// either because the host has no robots.txt or because fetching it failed.
type policy struct {
	group *robotstxt.Group
}

// Cache answers robots.txt allow/deny questions per host. The first query
// for a host fetches /robots.txt once; concurrent first queries share a
// single fetch. The decision is cached for the run's lifetime and never
// revalidated. Missing or unfetchable robots.txt fails open.
type Cache struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	policies  *cache.Cache[*policy]
	group     singleflight.Group
}

// New creates a Cache that fetches robots.txt with client. The user agent is
// matched against robots.txt groups, falling back to the wildcard group.
func New(client *http.Client, timeout time.Duration, userAgent string, logger *slog.Logger) *Cache {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Cache{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger,
		policies:  cache.New[*policy](),
	}
}

// Allowed reports whether u may be fetched according to its host's
// robots.txt.
func (c *Cache) Allowed(ctx context.Context, u *url.URL) bool {
	pol := c.policyFor(ctx, u)
	if pol.group == nil {
		return true
	}

	return pol.group.Test(u.RequestURI())
}

// CrawlDelay returns the host's Crawl-delay hint when its robots.txt
// declares one. The host must have been queried through Allowed first;
// unknown hosts report no hint.
func (c *Cache) CrawlDelay(host string) (time.Duration, bool) {
	pol, ok := c.policies.Get(hostKey(host))
	if !ok || pol.group == nil || pol.group.CrawlDelay <= 0 {
		return 0, false
	}

	return pol.group.CrawlDelay, true
}

func (c *Cache) policyFor(ctx context.Context, u *url.URL) *policy {
	key := hostKey(u.Host)
	if pol, ok := c.policies.Get(key); ok {
		return pol
	}

	result, _, _ := c.group.Do(key, func() (any, error) {
		pol := c.fetchPolicy(ctx, u.Scheme, u.Host)
		c.policies.Set(key, pol)

		return pol, nil
	})

	return result.(*policy)
}

func (c *Cache) fetchPolicy(ctx context.Context, scheme, host string) *policy {
	robotsURL := scheme + "://" + host + "/robots.txt"

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &policy{}
	}

	if c.userAgent != "" {
		request.Header.Set("User-Agent", c.userAgent)
	}

	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Warn("robots.txt fetch failed, allowing all", "host", host, "error", err)

		return &policy{}
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return &policy{}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		c.logger.Warn("robots.txt read failed, allowing all", "host", host, "error", err)

		return &policy{}
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Warn("robots.txt parse failed, allowing all", "host", host, "error", err)

		return &policy{}
	}

	return &policy{group: data.FindGroup(c.userAgent)}
}

func hostKey(host string) string {
	return strings.ToLower(host)
}
