package spider

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/webstar923/SEO-Spider/internal/limiter"
	"github.com/webstar923/SEO-Spider/internal/store"
)

const defaultUserAgent = "seo-spider/1.0"

// Options configures a crawl run. URL is required; everything else falls
// back to the defaults below. Options are immutable for the run's lifetime.
type Options struct {
	// URL is the start URL. Its host defines the crawl scope.
	URL string

	// MaxDepth bounds expansion; the start URL is depth 0. Default 3.
	MaxDepth int

	// Delay is the minimum spacing between requests to one host.
	// A robots.txt Crawl-delay hint overrides it when larger. Default 500ms.
	Delay time.Duration

	// Workers is the crawl worker pool size. Default 5.
	Workers int

	// Timeout bounds the whole run; zero means no bound.
	Timeout time.Duration

	// RequestTimeout bounds a single fetch. Default 15s.
	RequestTimeout time.Duration

	// Retries is the number of extra fetch attempts for temporary failures.
	// Default 0: every URL is fetched at most once per run.
	Retries int

	// RPS caps overall requests per second across all hosts; zero disables
	// the cap.
	RPS float64

	// MaxConcurrentFetch bounds simultaneous in-flight requests.
	// Defaults to Workers.
	MaxConcurrentFetch int

	// UserAgent is sent with every request and matched against robots.txt.
	UserAgent string

	// Resources selects which referenced resource types ("image", "script",
	// "style") are status-checked in addition to pages. Resources are never
	// expanded.
	Resources map[string]bool

	// HTTPClient performs all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Clock drives rate limiting and timestamps; tests inject fakes.
	Clock limiter.Timer

	// Logger receives progress and robots diagnostics. Defaults to discard.
	Logger *slog.Logger

	// Store receives PageResults. Defaults to an in-memory store.
	Store store.Store
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}

	if o.Delay <= 0 {
		o.Delay = 500 * time.Millisecond
	}

	if o.Workers <= 0 {
		o.Workers = 5
	}

	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}

	if o.MaxConcurrentFetch <= 0 {
		o.MaxConcurrentFetch = o.Workers
	}

	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}

	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}

	if o.Clock == nil {
		o.Clock = limiter.Clock{}
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if o.Store == nil {
		o.Store = store.NewMemory()
	}

	return o
}
