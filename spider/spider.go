// Package spider implements a bounded, polite, concurrent web crawler: a
// fixed worker pool drains a depth-ordered frontier, gated by per-host rate
// limiting and robots.txt, and appends one immutable PageResult per visited
// URL to a result store.
package spider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/webstar923/SEO-Spider/internal/fetcher"
	"github.com/webstar923/SEO-Spider/internal/frontier"
	"github.com/webstar923/SEO-Spider/internal/limiter"
	"github.com/webstar923/SEO-Spider/internal/parser"
	"github.com/webstar923/SEO-Spider/internal/robots"
	"github.com/webstar923/SEO-Spider/internal/store"
	"github.com/webstar923/SEO-Spider/internal/urlutil"
)

// PageResult is the immutable record of one completed crawl task.
type PageResult = store.PageResult

// ErrCancelled is returned by Run when the crawl was stopped by a cancel
// signal or context cancellation. Results gathered before the cancellation
// remain available.
var ErrCancelled = errors.New("crawl cancelled")

// Spider owns one crawl run: its frontier, worker pool, rate limiter, robots
// cache and result store. All of that state is scoped to the run; two
// sequential runs never share caches or visited sets.
type Spider struct {
	opts     Options
	base     *url.URL
	siteHost string

	queue    *frontier.Queue
	robots   *robots.Cache
	hosts    *limiter.Hosts
	fetch    *fetcher.Fetcher
	fetchSem *semaphore.Weighted
	results  store.Store
	ctrl     *control
	clock    limiter.Timer
	logger   *slog.Logger

	visited atomic.Int64
	started atomic.Bool

	stopMu sync.Mutex
	stop   context.CancelFunc
}

// New validates opts and prepares a run. An unparseable start URL is the one
// fatal configuration error.
func New(opts Options) (*Spider, error) {
	opts = opts.withDefaults()

	base, err := urlutil.ParseStart(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("start url: %w", err)
	}

	var global *rate.Limiter
	if opts.RPS > 0 {
		global = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	return &Spider{
		opts:     opts,
		base:     base,
		siteHost: urlutil.Host(base),
		queue:    frontier.New(opts.MaxDepth),
		robots:   robots.New(opts.HTTPClient, opts.RequestTimeout, opts.UserAgent, opts.Logger),
		hosts:    limiter.NewHosts(opts.Clock),
		fetch: fetcher.New(fetcher.Config{
			Client:    opts.HTTPClient,
			Timeout:   opts.RequestTimeout,
			UserAgent: opts.UserAgent,
			Retries:   opts.Retries,
			Global:    global,
			Clock:     opts.Clock,
		}),
		fetchSem: semaphore.NewWeighted(int64(opts.MaxConcurrentFetch)),
		results:  opts.Store,
		ctrl:     newControl(),
		clock:    opts.Clock,
		logger:   opts.Logger,
	}, nil
}

// Run seeds the frontier with the start URL and blocks until the crawl
// completes or is cancelled. It can be called once per Spider.
func (s *Spider) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("crawl already started")
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	// runCtx aborts the waiting points (frontier, limiter, semaphore) on
	// cancellation. In-flight fetches are detached from it and bounded by
	// RequestTimeout instead, so cancellation never rips a connection out
	// from under a worker.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	s.stopMu.Lock()
	s.stop = stop
	if s.ctrl.State() == StateCancelled {
		stop()
	}
	s.stopMu.Unlock()

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-watchDone:
		}
	}()

	s.queue.Push(frontier.Task{
		URL:   s.base.String(),
		Host:  s.base.Host,
		Depth: 0,
	})

	s.logger.Info("crawl started",
		"url", s.base.String(),
		"max_depth", s.opts.MaxDepth,
		"workers", s.opts.Workers,
	)

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(runCtx)
		}()
	}
	wg.Wait()

	close(watchDone)
	s.ctrl.Complete()

	state := s.ctrl.State()
	s.logger.Info("crawl finished", "state", state.String(), "visited", s.visited.Load())

	if state == StateCancelled {
		return ErrCancelled
	}

	return nil
}

// Pause suspends the crawl: no further tasks are dequeued and no further
// fetches start until Resume or Cancel. It reports whether the signal
// applied.
func (s *Spider) Pause() bool {
	return s.ctrl.Pause()
}

// Resume continues a paused crawl from exactly the unfinished frontier state.
func (s *Spider) Resume() bool {
	return s.ctrl.Resume()
}

// Cancel stops the crawl. Workers observe the signal at their next
// checkpoint; a fetch already in flight completes or times out first.
// Results recorded before cancellation are retained.
func (s *Spider) Cancel() bool {
	if !s.ctrl.Cancel() {
		return false
	}

	s.queue.Close()

	s.stopMu.Lock()
	if s.stop != nil {
		s.stop()
	}
	s.stopMu.Unlock()

	return true
}

// State returns the run's current control state.
func (s *Spider) State() RunState {
	return s.ctrl.State()
}

// Results returns a point-in-time copy of all recorded PageResults, safe to
// call during and after the run.
func (s *Spider) Results() ([]PageResult, error) {
	return s.results.Snapshot()
}

// ExternalHosts returns the distinct hosts of recorded external URLs, for
// collaborators that run WHOIS or similar lookups. Order follows first
// appearance.
func (s *Spider) ExternalHosts() ([]string, error) {
	snapshot, err := s.results.Snapshot()
	if err != nil {
		return nil, err
	}

	hosts := []string{}
	seen := map[string]bool{}
	for _, result := range snapshot {
		if !result.External || seen[result.Host] {
			continue
		}

		seen[result.Host] = true
		hosts = append(hosts, result.Host)
	}

	return hosts, nil
}

func (s *Spider) worker(ctx context.Context) {
	for {
		if s.ctrl.AwaitResume().Terminal() {
			return
		}

		task, ok := s.queue.Pop()
		if !ok {
			return
		}

		// A pause that landed while this worker was blocked in Pop must
		// still keep the fetch from starting.
		if s.ctrl.AwaitResume() == StateCancelled {
			s.queue.Done()

			return
		}

		s.process(ctx, task)
		s.queue.Done()
	}
}

func (s *Spider) process(ctx context.Context, task frontier.Task) {
	pageURL, err := url.Parse(task.URL)
	if err != nil {
		// Frontier URLs passed through Normalize; treat the impossible as a
		// skipped malformed link.
		s.logger.Warn("dropping unparseable frontier url", "url", task.URL, "error", err)

		return
	}

	result := PageResult{
		URL:          task.URL,
		Host:         urlutil.Host(pageURL),
		Depth:        task.Depth,
		Referrer:     task.Referrer,
		ResourceType: task.Resource,
		Timestamp:    s.clock.Now().UTC().Format(time.RFC3339),
	}

	if !urlutil.SameSite(s.siteHost, pageURL) {
		result.Outcome = store.OutcomeExternal
		result.External = true
		s.append(result)

		return
	}

	if !s.robots.Allowed(ctx, pageURL) {
		result.Outcome = store.OutcomeRobotsExcluded
		s.append(result)

		return
	}

	interval := s.opts.Delay
	if hint, ok := s.robots.CrawlDelay(pageURL.Host); ok && hint > interval {
		interval = hint
	}

	if err := s.hosts.Wait(ctx, pageURL.Host, interval); err != nil {
		// Only cancellation interrupts the wait; the task is abandoned, not
		// recorded as a failure.
		return
	}

	if s.ctrl.State() == StateCancelled {
		return
	}

	fetched, err := s.fetchOne(ctx, task.URL)
	result.HTTPStatus = fetched.StatusCode

	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		result.Outcome = store.OutcomeFetchError
		result.FailureReason = err.Error()
	case fetched.StatusCode >= http.StatusBadRequest:
		result.Outcome = store.OutcomeBroken
		result.FailureReason = statusText(fetched.StatusCode)
	default:
		result.Outcome = store.OutcomeReachable
	}

	expandable := result.Outcome == store.OutcomeReachable &&
		task.Resource == "" &&
		task.Depth < s.opts.MaxDepth &&
		fetched.IsHTML()
	if expandable {
		result.Links = s.expand(pageURL, task, fetched.Body)
	}

	s.append(result)

	if visited := s.visited.Add(1); visited%10 == 0 {
		s.logger.Info("crawl progress", "visited", visited, "pending", s.queue.Len())
	}
}

func (s *Spider) fetchOne(ctx context.Context, rawURL string) (fetcher.Result, error) {
	if err := s.fetchSem.Acquire(ctx, 1); err != nil {
		return fetcher.Result{}, err
	}
	defer s.fetchSem.Release(1)

	// The fetch itself is detached from run cancellation and bounded by the
	// request timeout, so an in-flight request completes or times out.
	return s.fetch.Fetch(context.WithoutCancel(ctx), rawURL)
}

// expand parses the page, records every discovered outbound link in document
// order, and pushes candidates back to the frontier at depth+1. Malformed
// links are skipped; in-scope pages and enabled resource types are enqueued,
// external URLs are enqueued only to be recorded as terminal.
func (s *Spider) expand(base *url.URL, task frontier.Task, body []byte) []string {
	parsed, err := parser.Parse(body)
	if err != nil {
		s.logger.Warn("html parse failed", "url", task.URL, "error", err)

		return nil
	}

	links := make([]string, 0, len(parsed.Links))
	seen := map[string]bool{}

	for _, href := range parsed.Links {
		if urlutil.Skippable(href) {
			continue
		}

		candidate, err := urlutil.Normalize(href, base)
		if err != nil {
			continue
		}

		normalized := candidate.String()
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		links = append(links, normalized)
		s.queue.Push(frontier.Task{
			URL:      normalized,
			Host:     candidate.Host,
			Depth:    task.Depth + 1,
			Referrer: task.URL,
		})
	}

	for _, ref := range parsed.Resources {
		if !s.opts.Resources[ref.Type] || urlutil.Skippable(ref.URL) {
			continue
		}

		candidate, err := urlutil.Normalize(ref.URL, base)
		if err != nil {
			continue
		}

		normalized := candidate.String()
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		s.queue.Push(frontier.Task{
			URL:      normalized,
			Host:     candidate.Host,
			Depth:    task.Depth + 1,
			Referrer: task.URL,
			Resource: ref.Type,
		})
	}

	return links
}

func (s *Spider) append(result PageResult) {
	if err := s.results.Append(result); err != nil {
		s.logger.Error("append result failed", "url", result.URL, "error", err)
	}
}

func statusText(statusCode int) string {
	text := http.StatusText(statusCode)
	if text == "" {
		return fmt.Sprintf("http status %d", statusCode)
	}

	return text
}
