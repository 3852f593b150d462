package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/webstar923/SEO-Spider/internal/limiter"
	"github.com/webstar923/SEO-Spider/internal/store"
	"github.com/webstar923/SEO-Spider/spider"
)

// Run executes the CLI and writes the JSON crawl report to stdout. A first
// interrupt cancels the crawl gracefully and still prints the partial report.
// If URL is missing, it prints help and returns nil.
func Run(args []string, stdout, stderr io.Writer, client *http.Client, clock limiter.Timer) error {
	app := cli.NewApp()
	app.Name = "seo-spider"
	app.Usage = "crawl a website and report page status per URL"
	app.UsageText = "seo-spider [global options] <url>"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "depth",
			Usage: "maximum link depth from the start URL",
			Value: 3,
		},
		cli.DurationFlag{
			Name:  "delay",
			Usage: "minimum delay between requests to one host (example: 200ms, 1s)",
			Value: 500 * time.Millisecond,
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "number of concurrent crawl workers",
			Value: 5,
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "overall crawl timeout (0 means unbounded)",
		},
		cli.DurationFlag{
			Name:  "request-timeout",
			Usage: "per-request timeout",
			Value: 15 * time.Second,
		},
		cli.IntFlag{
			Name:  "retries",
			Usage: "number of retries for temporarily failed requests",
		},
		cli.Float64Flag{
			Name:  "rps",
			Usage: "cap total requests per second across all hosts",
		},
		cli.StringFlag{
			Name:  "user-agent",
			Usage: "custom user agent (also matched against robots.txt)",
		},
		cli.StringFlag{
			Name:  "db",
			Usage: "persist results to a sqlite database at `PATH`",
		},
		cli.StringFlag{
			Name:  "resources",
			Usage: "comma-separated resource types to status-check (image,script,style)",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log crawl progress to stderr",
		},
	}
	app.Action = func(c *cli.Context) error {
		rootURL := c.Args().First()
		if rootURL == "" {
			_ = cli.ShowAppHelp(c)

			return nil
		}

		return crawl(c, rootURL, stdout, stderr, client, clock)
	}

	return app.Run(args)
}

func crawl(c *cli.Context, rootURL string, stdout, stderr io.Writer, client *http.Client, clock limiter.Timer) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if c.Bool("verbose") {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	results, err := openStore(c.String("db"))
	if err != nil {
		return err
	}
	defer func() {
		if err := results.Close(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	s, err := spider.New(optionsFromCLI(c, rootURL, client, clock, logger, results))
	if err != nil {
		return err
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	stopped := make(chan struct{})
	go func() {
		select {
		case <-interrupts:
			logger.Info("interrupt received, cancelling crawl")
			s.Cancel()
		case <-stopped:
		}
	}()

	runErr := s.Run(context.Background())
	close(stopped)

	if runErr != nil && !errors.Is(runErr, spider.ErrCancelled) {
		return runErr
	}

	report, err := s.Report()
	if err != nil {
		return err
	}

	if _, err := stdout.Write(report.Marshal(true)); err != nil {
		return err
	}

	return nil
}

func optionsFromCLI(
	c *cli.Context,
	rootURL string,
	client *http.Client,
	clock limiter.Timer,
	logger *slog.Logger,
	results store.Store,
) spider.Options {
	return spider.Options{
		URL:            rootURL,
		MaxDepth:       c.Int("depth"),
		Delay:          c.Duration("delay"),
		Workers:        c.Int("workers"),
		Timeout:        c.Duration("timeout"),
		RequestTimeout: c.Duration("request-timeout"),
		Retries:        c.Int("retries"),
		RPS:            c.Float64("rps"),
		UserAgent:      c.String("user-agent"),
		Resources:      parseResources(c.String("resources")),
		HTTPClient:     client,
		Clock:          clock,
		Logger:         logger,
		Store:          results,
	}
}

func openStore(path string) (store.Store, error) {
	if path == "" {
		return store.NewMemory(), nil
	}

	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}

	return db, nil
}

func parseResources(raw string) map[string]bool {
	if raw == "" {
		return nil
	}

	types := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			types[part] = true
		}
	}

	return types
}
