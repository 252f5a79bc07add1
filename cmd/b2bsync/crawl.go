package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	stdout := &lockedWriter{w: deps.Stdout}
	stderr := &lockedWriter{w: deps.Stderr}

	creds := b2bsync.Credentials{Username: c.Username, Password: c.Password}
	if err := creds.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %s. Set B2BSYNC_USERNAME and B2BSYNC_PASSWORD.\n", b2bsync.ErrorMessage(err))
		return err
	}

	margin, err := parseMargin(c.Margin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}

	crawler := deps.Crawler
	if crawler == nil {
		err := b2bsync.Errorf(b2bsync.EINTERNAL, "crawler not configured")
		fmt.Fprintf(stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}
	c.configure(crawler, margin)

	ctx, cancel := context.WithCancel(deps.Ctx)
	defer cancel()
	go watchInterrupts(ctx, deps.Interrupts, crawler, cancel, stderr)

	if c.MetricsAddr != "" && deps.Metrics != nil {
		shutdown := serveMetrics(c.MetricsAddr, deps)
		defer shutdown()
	}

	progress := func(event crawl.ProgressEvent) {
		deps.Metrics.ObserveProgress(event)
		switch event.Type {
		case crawl.ProgressLoginFailed, crawl.ProgressPageSkipped:
			fmt.Fprintf(stderr, "  %s\n", crawl.FormatEvent(event))
		default:
			fmt.Fprintf(stdout, "  %s\n", crawl.FormatEvent(event))
		}
	}

	fmt.Fprintf(stdout, "Crawling %s with %d workers\n", crawler.Site.CatalogURL, crawler.Workers)
	begin := deps.now()
	result, err := crawler.Crawl(ctx, creds, progress)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}
	deps.Metrics.ObserveImages(result.Images)
	deps.Metrics.ObserveDuration(deps.now().Sub(begin))

	fmt.Fprintf(stdout, "Crawled %d of %d pages (%d skipped): %d products\n",
		result.Pages, result.TotalPages, result.Skipped, len(result.Products))
	if crawler.Images != nil {
		fmt.Fprintf(stdout, "Images: %d fetched, %d already stored, %d failed, %d without image\n",
			result.Images.Fetched, result.Images.Existing, result.Images.Failed, result.Images.Skipped)
	}
	if result.Stopped {
		fmt.Fprintln(stdout, "Crawl stopped early; saving partial results.")
	}

	if result.Workers > 0 && result.FailedWorkers == result.Workers && len(result.Products) == 0 {
		err := b2bsync.Errorf(b2bsync.EUNAUTHORIZED, "no worker could sign in to the portal")
		fmt.Fprintf(stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}
	if len(result.Products) == 0 {
		fmt.Fprintln(stdout, "No products found.")
		return nil
	}

	// Partial results are saved even when the crawl was aborted, so the
	// store uses the parent context.
	saved, err := deps.Products.UpsertProducts(deps.Ctx, result.Products)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}
	deps.Metrics.ObserveUpsert(saved)

	fmt.Fprintf(stdout, "Saved: %d new, %d updated, %d unchanged\n", saved.Inserted, saved.Updated, saved.Unchanged)
	return nil
}

// configure applies command flags to the crawler.
func (c *CrawlCmd) configure(crawler *crawl.Crawler, margin decimal.Decimal) {
	crawler.Margin = margin
	if c.Workers > 0 {
		crawler.Workers = c.Workers
	}
	if c.TotalPages > 0 {
		crawler.Site.TotalPages = c.TotalPages
		if crawler.Navigator != nil {
			crawler.Navigator.FallbackPages = c.TotalPages
		}
	}
	crawler.DiscoverPages = c.DiscoverPages

	var limiter crawl.Limiter
	if c.RateLimit > 0 {
		limiter = crawl.NewHostLimiter(c.RateLimit)
		crawler.RateLimiter = limiter
	}

	if crawler.Images != nil {
		crawler.Images.LookupOnly = c.NoImages
		if c.ImageRetries {
			crawler.Images.RetryDelays = crawl.DefaultRetryDelays()
		}
		if c.ImageConcurrency > 0 {
			crawler.Images.Concurrency = c.ImageConcurrency
		}
		if limiter != nil {
			crawler.Images.RateLimiter = limiter
		}
	}
}

// parseMargin accepts either decimal separator.
func parseMargin(raw string) (decimal.Decimal, error) {
	margin, err := decimal.NewFromString(b2bsync.NormalizeDecimal(raw))
	if err != nil {
		return decimal.Decimal{}, b2bsync.Errorf(b2bsync.EINVALID, "invalid margin %q", raw)
	}
	if err := b2bsync.ValidateMargin(margin); err != nil {
		return decimal.Decimal{}, err
	}
	return margin, nil
}

// watchInterrupts stops the crawl on the first signal and cancels it on the
// second.
func watchInterrupts(ctx context.Context, sigs <-chan os.Signal, crawler *crawl.Crawler, cancel context.CancelFunc, w io.Writer) {
	if sigs == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-sigs:
		fmt.Fprintln(w, "Stopping after the pages in progress. Press Ctrl+C again to abort.")
		crawler.RequestStop()
	}

	select {
	case <-ctx.Done():
	case <-sigs:
		fmt.Fprintln(w, "Aborting.")
		cancel()
	}
}

// serveMetrics exposes the crawl metrics until the returned function is
// called.
func serveMetrics(addr string, deps *Dependencies) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.logger().Error("metrics server failed", "err", err)
		}
	}()
	deps.logger().Info("metrics server enabled", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			deps.logger().Error("metrics server shutdown failed", "err", err)
		}
	}
}

// lockedWriter serializes writes from the progress callback and the
// interrupt watcher.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

func (d *Dependencies) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
