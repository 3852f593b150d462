package robots

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return fn(req) }

func robotsClient(t *testing.T, fetches *int32, status int, body string) *http.Client {
	t.Helper()

	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/robots.txt", req.URL.Path)
			if fetches != nil {
				atomic.AddInt32(fetches, 1)
			}

			return &http.Response{
				StatusCode: status,
				Header:     http.Header{},
				Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			}, nil
		}),
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func TestAllowedHonorsDisallow(t *testing.T) {
	t.Parallel()

	body := "User-agent: *\nDisallow: /private\nAllow: /private/open\n"
	c := New(robotsClient(t, nil, http.StatusOK, body), time.Second, "seo-spider", nil)

	ctx := context.Background()
	require.True(t, c.Allowed(ctx, mustURL(t, "https://example.com/public")))
	require.False(t, c.Allowed(ctx, mustURL(t, "https://example.com/private")))
	require.False(t, c.Allowed(ctx, mustURL(t, "https://example.com/private/page")))
	require.True(t, c.Allowed(ctx, mustURL(t, "https://example.com/private/open")))
}

func TestAllowedFailsOpenOnFetchError(t *testing.T) {
	t.Parallel()

	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}),
	}

	c := New(client, time.Second, "seo-spider", nil)
	require.True(t, c.Allowed(context.Background(), mustURL(t, "https://example.com/anything")))
}

func TestAllowedFailsOpenOnMissingRobots(t *testing.T) {
	t.Parallel()

	c := New(robotsClient(t, nil, http.StatusNotFound, "not found"), time.Second, "seo-spider", nil)
	require.True(t, c.Allowed(context.Background(), mustURL(t, "https://example.com/private")))
}

func TestRobotsFetchedOncePerHost(t *testing.T) {
	t.Parallel()

	var fetches int32
	c := New(robotsClient(t, &fetches, http.StatusOK, "User-agent: *\nDisallow: /private\n"), time.Second, "seo-spider", nil)

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Allowed(ctx, mustURL(t, "https://example.com/page"))
		}()
	}
	wg.Wait()

	c.Allowed(ctx, mustURL(t, "https://example.com/other"))
	require.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestCrawlDelayHint(t *testing.T) {
	t.Parallel()

	body := "User-agent: *\nCrawl-delay: 2\nDisallow: /private\n"
	c := New(robotsClient(t, nil, http.StatusOK, body), time.Second, "seo-spider", nil)

	ctx := context.Background()

	// Unknown host: no hint yet.
	_, ok := c.CrawlDelay("example.com")
	require.False(t, ok)

	c.Allowed(ctx, mustURL(t, "https://example.com/page"))

	delay, ok := c.CrawlDelay("example.com")
	require.True(t, ok)
	require.Equal(t, 2*time.Second, delay)
}

func TestCrawlDelayAbsent(t *testing.T) {
	t.Parallel()

	c := New(robotsClient(t, nil, http.StatusOK, "User-agent: *\nDisallow:\n"), time.Second, "seo-spider", nil)
	c.Allowed(context.Background(), mustURL(t, "https://example.com/page"))

	_, ok := c.CrawlDelay("example.com")
	require.False(t, ok)
}

func TestHostsCachedIndependently(t *testing.T) {
	t.Parallel()

	var fetches int32
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&fetches, 1)

			body := "User-agent: *\nDisallow: /\n"
			if req.URL.Host == "open.example.com" {
				body = "User-agent: *\nDisallow:\n"
			}

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{},
				Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			}, nil
		}),
	}

	c := New(client, time.Second, "seo-spider", nil)
	ctx := context.Background()

	require.False(t, c.Allowed(ctx, mustURL(t, "https://closed.example.com/page")))
	require.True(t, c.Allowed(ctx, mustURL(t, "https://open.example.com/page")))
	require.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}
