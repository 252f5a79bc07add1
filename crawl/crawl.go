// Package crawl drives browser sessions through the supplier catalog. It
// signs workers in, moves them across their page windows, extracts products
// and downloads missing images.
package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/b2bsync"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Defaults for Crawler.
const (
	DefaultEmptyPageLimit = 3

	// emptyPageGrace is the last page on which an empty result never stops
	// a worker.
	emptyPageGrace = 3
)

// Crawler walks the supplier catalog with one browser session per worker.
type Crawler struct {
	Browser   b2bsync.Browser
	Extractor b2bsync.CatalogExtractor
	Navigator *Navigator
	Auth      *Authenticator

	// Images, if set, downloads missing images after each page.
	Images *ImageSyncer

	// RateLimiter, if set, paces page loads against the catalog host.
	RateLimiter Limiter

	Site b2bsync.Site

	// Workers is the number of concurrent sessions. Defaults to 1.
	Workers int

	// Margin is applied to every scraped product.
	Margin decimal.Decimal

	// EmptyPageLimit ends a worker's window after this many consecutive
	// pages without products, once past page 3. Defaults to
	// DefaultEmptyPageLimit.
	EmptyPageLimit int

	// DiscoverPages reads the page count from the live catalog instead of
	// using Site.TotalPages.
	DiscoverPages bool

	Logger *slog.Logger

	stop       atomic.Bool
	progressMu sync.Mutex
}

// NewCrawler creates a Crawler for site with default collaborators.
func NewCrawler(browser b2bsync.Browser, extractor b2bsync.CatalogExtractor, site b2bsync.Site, logger *slog.Logger) *Crawler {
	return &Crawler{
		Browser:        browser,
		Extractor:      extractor,
		Navigator:      NewNavigator(extractor, site.TotalPages, logger),
		Auth:           NewAuthenticator(site, logger),
		Site:           site,
		Workers:        1,
		Margin:         b2bsync.DefaultMarginPercentage,
		EmptyPageLimit: DefaultEmptyPageLimit,
		Logger:         logger,
	}
}

// Result holds the outcome of a crawl.
type Result struct {
	Products []*b2bsync.Product

	TotalPages    int
	Pages         int
	Skipped       int
	Workers       int
	FailedWorkers int
	Images        ImageStats

	// Stopped is set when the crawl ended because of RequestStop or context
	// cancellation.
	Stopped bool
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type     ProgressType
	Worker   int
	Page     int
	Window   b2bsync.PageWindow
	Products int
	Error    error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressWorkerStarted ProgressType = iota
	ProgressLoginFailed
	ProgressPageCompleted
	ProgressPageSkipped
	ProgressStoppedEarly
	ProgressWorkerFinished
)

func (t ProgressType) String() string {
	switch t {
	case ProgressWorkerStarted:
		return "worker_started"
	case ProgressLoginFailed:
		return "login_failed"
	case ProgressPageCompleted:
		return "page_completed"
	case ProgressPageSkipped:
		return "page_skipped"
	case ProgressStoppedEarly:
		return "stopped_early"
	case ProgressWorkerFinished:
		return "worker_finished"
	}
	return fmt.Sprintf("progress(%d)", int(t))
}

// ProgressFunc is a callback for reporting crawl progress. Calls are
// serialized.
type ProgressFunc func(event ProgressEvent)

// RequestStop asks running workers to finish after their current page. It
// is safe to call from any goroutine, and it also stops any later Crawl call
// on the same Crawler.
func (c *Crawler) RequestStop() {
	c.stop.Store(true)
}

// StopRequested reports whether RequestStop has been called.
func (c *Crawler) StopRequested() bool {
	return c.stop.Load()
}

// workerResult is what one worker collected before it finished.
type workerResult struct {
	products []*b2bsync.Product
	pages    int
	skipped  int
	failed   bool
	stopped  bool
	images   ImageStats
}

// Crawl logs in one session per page window and collects every product in
// the catalog. Page failures, login failures and worker panics are logged
// and leave partial results. Stopping or canceling ctx is not an error.
// Crawl only fails on invalid input, before any worker starts.
func (c *Crawler) Crawl(ctx context.Context, creds b2bsync.Credentials, progress ProgressFunc) (*Result, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if err := c.Site.Validate(); err != nil {
		return nil, err
	}
	if c.Browser == nil || c.Extractor == nil || c.Navigator == nil || c.Auth == nil {
		return nil, b2bsync.Errorf(b2bsync.EINVALID, "crawler is missing a collaborator")
	}

	total := c.Site.TotalPages
	if c.DiscoverPages && !c.stopped(ctx) {
		total = c.discoverTotalPages(ctx, creds)
	}
	windows := b2bsync.PartitionPages(total, c.Workers)
	c.logger().Info("crawl starting", "pages", total, "workers", len(windows))

	results := make([]workerResult, len(windows))
	var g errgroup.Group
	for i, w := range windows {
		g.Go(func() error {
			results[i] = c.runWorker(ctx, i+1, w, creds, progress)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{TotalPages: total, Workers: len(windows)}
	for _, r := range results {
		res.Products = append(res.Products, r.products...)
		res.Pages += r.pages
		res.Skipped += r.skipped
		res.Images.Existing += r.images.Existing
		res.Images.Fetched += r.images.Fetched
		res.Images.Failed += r.images.Failed
		res.Images.Skipped += r.images.Skipped
		if r.failed {
			res.FailedWorkers++
		}
		if r.stopped {
			res.Stopped = true
		}
	}
	if c.stopped(ctx) {
		res.Stopped = true
	}

	c.logger().Info("crawl finished",
		"products", len(res.Products),
		"pages", res.Pages,
		"skipped", res.Skipped,
		"failed_workers", res.FailedWorkers,
		"stopped", res.Stopped,
	)
	return res, nil
}

// discoverTotalPages signs a throwaway session in and reads the page count
// from the first catalog page. Any failure falls back to Site.TotalPages.
func (c *Crawler) discoverTotalPages(ctx context.Context, creds b2bsync.Credentials) (total int) {
	total = c.Site.TotalPages
	logger := c.logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("page discovery panicked", "panic", r)
			total = c.Site.TotalPages
		}
	}()

	session, err := c.Browser.NewSession(ctx)
	if err != nil {
		logger.Warn("page discovery session failed", "err", err)
		return total
	}
	defer session.Close()

	if err := c.Auth.Login(ctx, session, creds); err != nil {
		logger.Warn("page discovery login failed", "err", err)
		return total
	}
	if err := session.Navigate(ctx, c.Site.CatalogURL); err != nil {
		logger.Warn("page discovery navigation failed", "err", err)
		return total
	}
	html, err := session.HTML(ctx)
	if err != nil {
		logger.Warn("page discovery read failed", "err", err)
		return total
	}
	return c.Navigator.DiscoverTotalPages(html)
}

// runWorker crawls one window. It never panics; whatever was collected
// before a failure is returned.
func (c *Crawler) runWorker(ctx context.Context, id int, w b2bsync.PageWindow, creds b2bsync.Credentials, progress ProgressFunc) (res workerResult) {
	logger := c.logger().With("worker", id, "start", w.Start, "end", w.End)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker panicked", "panic", r)
			res.failed = true
		}
		c.emit(progress, ProgressEvent{Type: ProgressWorkerFinished, Worker: id, Window: w, Products: len(res.products)})
	}()

	c.emit(progress, ProgressEvent{Type: ProgressWorkerStarted, Worker: id, Window: w})

	if c.stopped(ctx) {
		res.stopped = true
		return res
	}

	session, err := c.Browser.NewSession(ctx)
	if err != nil {
		logger.Error("session failed", "err", err)
		res.failed = true
		c.emit(progress, ProgressEvent{Type: ProgressLoginFailed, Worker: id, Window: w, Error: err})
		return res
	}
	defer session.Close()

	if err := c.Auth.Login(ctx, session, creds); err != nil {
		logger.Error("login failed", "err", err)
		res.failed = true
		c.emit(progress, ProgressEvent{Type: ProgressLoginFailed, Worker: id, Window: w, Error: err})
		return res
	}

	limit := c.EmptyPageLimit
	if limit <= 0 {
		limit = DefaultEmptyPageLimit
	}
	host := hostOf(c.Site.CatalogURL)

	empty := 0
	for page := w.Start; page <= w.End; page++ {
		if c.stopped(ctx) {
			logger.Info("stop requested", "page", page)
			res.stopped = true
			break
		}
		if c.RateLimiter != nil {
			if err := c.RateLimiter.Wait(ctx, host); err != nil {
				res.stopped = true
				break
			}
		}

		products, err := c.crawlPage(ctx, session, w, page)
		if err != nil {
			logger.Warn("skipping page", "page", page, "err", err)
			res.skipped++
			c.emit(progress, ProgressEvent{Type: ProgressPageSkipped, Worker: id, Window: w, Page: page, Error: err})
			continue
		}
		res.pages++

		if len(products) == 0 {
			empty++
			logger.Warn("no products on page", "page", page, "consecutive", empty)
		} else {
			empty = 0
			if c.Images != nil {
				stats := c.Images.FetchMissing(ctx, products)
				res.images.Existing += stats.Existing
				res.images.Fetched += stats.Fetched
				res.images.Failed += stats.Failed
				res.images.Skipped += stats.Skipped
			}
			res.products = append(res.products, products...)
		}

		c.emit(progress, ProgressEvent{Type: ProgressPageCompleted, Worker: id, Window: w, Page: page, Products: len(products)})

		if page > emptyPageGrace && empty >= limit {
			logger.Info("stopping early after empty pages", "page", page, "empty", empty)
			c.emit(progress, ProgressEvent{Type: ProgressStoppedEarly, Worker: id, Window: w, Page: page})
			break
		}
	}

	return res
}

// crawlPage brings the session to page and extracts its products.
func (c *Crawler) crawlPage(ctx context.Context, s b2bsync.Session, w b2bsync.PageWindow, page int) ([]*b2bsync.Product, error) {
	if page == w.Start {
		if err := c.openWindow(ctx, s, page); err != nil {
			return nil, err
		}
	} else if !c.Navigator.GotoPage(ctx, s, page) {
		return nil, b2bsync.Errorf(b2bsync.ENOTFOUND, "could not navigate to page %d", page)
	}

	html, err := s.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	return c.Extractor.ExtractProducts(html, c.Margin)
}

// openWindow loads the first page of a window. Without a page URL format,
// windows starting after page 1 click through from the catalog entry page.
func (c *Crawler) openWindow(ctx context.Context, s b2bsync.Session, page int) error {
	if page > 1 && c.Site.PageURLFormat != "" {
		if err := s.Navigate(ctx, fmt.Sprintf(c.Site.PageURLFormat, page)); err != nil {
			return fmt.Errorf("opening page %d: %w", page, err)
		}
		return nil
	}

	if err := s.Navigate(ctx, c.Site.CatalogURL); err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	if page > 1 && !c.Navigator.GotoPage(ctx, s, page) {
		return b2bsync.Errorf(b2bsync.ENOTFOUND, "could not navigate to page %d", page)
	}
	return nil
}

func (c *Crawler) stopped(ctx context.Context) bool {
	return c.stop.Load() || ctx.Err() != nil
}

func (c *Crawler) emit(progress ProgressFunc, event ProgressEvent) {
	if progress == nil {
		return
	}
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	progress(event)
}

func (c *Crawler) logger() *slog.Logger {
	return loggerOrDiscard(c.Logger)
}

// loggerOrDiscard returns logger, or a logger that drops everything when
// logger is nil.
func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
