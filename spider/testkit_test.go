package spider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const fixtureBaseURL = "http://example.com"

var fixtureTime = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return fn(req) }

// testClock keeps a fixed now and records sleeps without blocking, so rate
// limiting decisions stay observable while tests run instantly.
type testClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newTestClock() *testClock {
	return &testClock{now: fixtureTime}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Sleep(ctx context.Context, duration time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, duration)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (c *testClock) recordedSleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)

	return out
}

func responseForRequest(req *http.Request, status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "text/html")
	}

	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Request:    req,
	}
}

// siteTransport serves a fixed set of pages for example.com and counts page
// fetches. robots.txt answers 404 unless robotsBody is set, and robots
// requests are not counted as fetches.
type siteTransport struct {
	mu         sync.Mutex
	pages      map[string]string // path -> HTML body
	statuses   map[string]int    // path -> status, default 200
	robotsBody string
	fetched    []string // request paths in arrival order, robots excluded
}

func newSiteTransport(pages map[string]string) *siteTransport {
	return &siteTransport{pages: pages, statuses: map[string]int{}}
}

func (st *siteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	if path == "/robots.txt" {
		if st.robotsBody == "" {
			return responseForRequest(req, http.StatusNotFound, "not found", nil), nil
		}

		return responseForRequest(req, http.StatusOK, st.robotsBody, http.Header{
			"Content-Type": []string{"text/plain"},
		}), nil
	}

	st.mu.Lock()
	st.fetched = append(st.fetched, req.URL.Host+path)
	st.mu.Unlock()

	if !strings.EqualFold(req.URL.Hostname(), "example.com") {
		return responseForRequest(req, http.StatusOK, "<html><body>external</body></html>", nil), nil
	}

	status, ok := st.statuses[path]
	if !ok {
		status = http.StatusOK
	}

	body, ok := st.pages[path]
	if !ok && status == http.StatusOK {
		status = http.StatusNotFound
		body = "not found"
	}

	return responseForRequest(req, status, body, nil), nil
}

func (st *siteTransport) fetchedPaths() []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]string, len(st.fetched))
	copy(out, st.fetched)

	return out
}

func (st *siteTransport) fetchCount(hostAndPath string) int {
	count := 0
	for _, fetched := range st.fetchedPaths() {
		if fetched == hostAndPath {
			count++
		}
	}

	return count
}

func (st *siteTransport) client() *http.Client {
	return &http.Client{Transport: st}
}
