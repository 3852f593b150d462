package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/webstar923/SEO-Spider/internal/limiter"
)

const (
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

var errInvalidRequest = errors.New("invalid request")

// Result contains the HTTP response data from the final attempt.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the media type of the response without parameters.
func (r Result) ContentType() string {
	contentType := r.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	return strings.TrimSpace(strings.ToLower(contentType))
}

// IsHTML reports whether the response body is parseable as an HTML page.
func (r Result) IsHTML() bool {
	contentType := r.ContentType()

	return contentType == "" || contentType == "text/html" || contentType == "application/xhtml+xml"
}

// Config configures a Fetcher. Client is required; everything else has a
// usable zero value.
type Config struct {
	Client     *http.Client
	Timeout    time.Duration
	UserAgent  string
	Retries    int           // extra attempts after the first, 0 disables retry
	RetryDelay time.Duration // base backoff, doubled per attempt
	Global     *rate.Limiter // optional cap on overall requests per second
	Clock      limiter.Timer
}

// Fetcher performs GET requests with a bounded timeout, an optional global
// rate cap, and optional bounded retries for temporary failures.
type Fetcher struct {
	client     *http.Client
	timeout    time.Duration
	userAgent  string
	retries    int
	retryDelay time.Duration
	global     *rate.Limiter
	clock      limiter.Timer
}

// New creates a Fetcher from cfg.
func New(cfg Config) *Fetcher {
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = baseRetryDelay
	}

	clock := cfg.Clock
	if clock == nil {
		clock = limiter.Clock{}
	}

	return &Fetcher{
		client:     cfg.Client,
		timeout:    cfg.Timeout,
		userAgent:  cfg.UserAgent,
		retries:    cfg.Retries,
		retryDelay: retryDelay,
		global:     cfg.Global,
		clock:      clock,
	}
}

// Fetch performs a GET request. When retries are configured, temporary
// failures (network errors, 429, 5xx) are retried with exponential backoff
// and the result of the last attempt is returned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	attempts := f.retries + 1

	var lastResult Result
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if f.global != nil {
			if err := f.global.Wait(ctx); err != nil {
				return Result{}, err
			}
		}

		result, err := f.doRequest(ctx, rawURL)
		lastResult = result
		lastErr = err

		if err == nil && result.StatusCode < http.StatusBadRequest {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}

			return result, nil
		}

		if ctx.Err() != nil {
			return result, coalesceError(err, ctx.Err())
		}

		if !isRetryable(result.StatusCode, err) || attempt == attempts-1 {
			return result, err
		}

		if sleepErr := f.clock.Sleep(ctx, f.backoff(attempt+1)); sleepErr != nil {
			return result, sleepErr
		}
	}

	return lastResult, lastErr
}

func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (Result, error) {
	requestCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	if parsedURL.Path == "" {
		parsedURL.Path = "/"
	}

	request, err := http.NewRequestWithContext(requestCtx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	if f.userAgent != "" {
		request.Header.Set("User-Agent", f.userAgent)
	}

	response, err := f.client.Do(request)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return Result{StatusCode: response.StatusCode, Header: response.Header}, fmt.Errorf("read body: %w", err)
	}

	return Result{StatusCode: response.StatusCode, Header: response.Header, Body: body}, nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.retryDelay
	for i := 1; i < attempt; i++ {
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}

		delay *= 2
	}

	if delay > maxRetryDelay {
		return maxRetryDelay
	}

	return delay
}

func isRetryable(statusCode int, err error) bool {
	if err != nil {
		return isRetryableError(err)
	}

	if statusCode == http.StatusTooManyRequests {
		return true
	}

	return statusCode >= http.StatusInternalServerError
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, errInvalidRequest) {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}

func coalesceError(primary, fallback error) error {
	if primary != nil {
		return primary
	}

	return fallback
}
