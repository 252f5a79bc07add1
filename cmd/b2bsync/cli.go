package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
	"github.com/fwojciec/b2bsync/prometheus"
	"github.com/fwojciec/b2bsync/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	DB       *sqlite.DB
	Products b2bsync.ProductService
	Crawler  *crawl.Crawler
	Metrics  *prometheus.Metrics

	// Interrupts delivers Ctrl+C presses during a crawl. The first stops
	// the crawl after the pages in flight, the second aborts it.
	Interrupts <-chan os.Signal

	Now func() time.Time
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool   `short:"v" help:"Enable debug logging"`
	Config  string `name:"config" env:"B2BSYNC_CONFIG" type:"path" help:"Site profile YAML file"`

	Crawl    CrawlCmd    `cmd:"" help:"Crawl the supplier catalog and store every product"`
	List     ListCmd     `cmd:"" help:"List stored products"`
	Show     ShowCmd     `cmd:"" help:"Show one product in detail"`
	Margin   MarginCmd   `cmd:"" help:"Set a product's margin percentage"`
	Delete   DeleteCmd   `cmd:"" help:"Hide a product from listings"`
	Restore  RestoreCmd  `cmd:"" help:"Restore a deleted product"`
	Outdated OutdatedCmd `cmd:"" help:"List products the last crawls did not refresh"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Username         string  `short:"u" env:"B2BSYNC_USERNAME" help:"Portal username"`
	Password         string  `env:"B2BSYNC_PASSWORD" help:"Portal password (prefer the environment variable)"`
	Workers          int     `short:"w" default:"4" help:"Concurrent browser sessions"`
	Margin           string  `default:"40" help:"Margin percentage for newly seen products"`
	TotalPages       int     `help:"Override the cached catalog page count"`
	DiscoverPages    bool    `help:"Read the page count from the live catalog"`
	ImageConcurrency int     `default:"8" help:"Concurrent image downloads per page"`
	NoImages         bool    `help:"Only link images already on disk, download nothing"`
	ImageRetries     bool    `help:"Retry failed image downloads after 1s, 2s and 4s"`
	RateLimit        float64 `default:"0" help:"Max page loads per second across workers (0 = unlimited)"`
	MetricsAddr      string  `help:"Serve Prometheus metrics on this address during the crawl (e.g. :9090)"`
	Headful          bool    `help:"Show the browser window"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Search  string `short:"s" help:"Match a substring of the code or name"`
	Deleted bool   `help:"Include deleted products"`
	Limit   int    `short:"n" help:"Maximum number of products to show"`
	Offset  int    `help:"Number of products to skip"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Code string `arg:"" help:"Product code"`
}

// MarginCmd is the "margin" subcommand.
type MarginCmd struct {
	Code       string `arg:"" help:"Product code"`
	Percentage string `arg:"" help:"Margin percentage between 0 and 100"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Code string `arg:"" help:"Product code"`
}

// RestoreCmd is the "restore" subcommand.
type RestoreCmd struct {
	Code string `arg:"" help:"Product code"`
}

// OutdatedCmd is the "outdated" subcommand.
type OutdatedCmd struct {
	Months int `default:"3" help:"Report products not refreshed for this many months"`
}
