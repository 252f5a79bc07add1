package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
	"github.com/fwojciec/b2bsync/fs"
	"github.com/fwojciec/b2bsync/goquery"
	b2bhttp "github.com/fwojciec/b2bsync/http"
	"github.com/fwojciec/b2bsync/prometheus"
	"github.com/fwojciec/b2bsync/rod"
	b2bslog "github.com/fwojciec/b2bsync/slog"
	"github.com/fwojciec/b2bsync/sqlite"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Data directory holding images. Set before calling Run().
	DataDir string

	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	ProductService b2bsync.ProductService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	dir := defaultDataDir()
	return &Main{
		DataDir: dir,
		DBPath:  defaultDBPath(dir),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    time.Now,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("b2bsync"),
		kong.Description("Mirror a B2B supplier catalog into a local database."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		fmt.Fprintln(stderr, "error: no command specified. Run 'b2bsync --help' to see available commands")
		return b2bsync.Errorf(b2bsync.EINVALID, "no command specified")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return err
	}

	deps.Logger = b2bslog.NewLogger(stderr, cli.Verbose)

	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set B2BSYNC_DB to use a different database path\n")
		fmt.Fprintf(stderr, "error: failed to open database at %q: %v\n", m.DBPath, err)
		return err
	}
	defer m.Close()

	m.ProductService = b2bslog.NewLoggingProductService(sqlite.NewProductService(m.DB), deps.Logger)
	deps.DB = m.DB
	deps.Products = m.ProductService

	if strings.HasPrefix(kongCtx.Command(), "crawl") {
		site, path, err := LoadSite(cli.Config)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", b2bsync.ErrorMessage(err))
			return err
		}
		if path != "" {
			deps.Logger.Info("loaded site profile", "path", path)
		}

		browser, err := rod.NewBrowser(rod.WithHeadless(!cli.Crawl.Headful))
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			fmt.Fprintf(stderr, "error: failed to start browser: %v\n", err)
			return err
		}
		defer browser.Close()

		crawler, err := newCrawler(site, rod.NewLoggingBrowser(browser, deps.Logger), m.DataDir, deps.Logger)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", b2bsync.ErrorMessage(err))
			return err
		}
		deps.Crawler = crawler
		deps.Metrics = prometheus.NewMetrics()

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)
		deps.Interrupts = sigs
	}

	return kongCtx.Run(deps)
}

// newCrawler wires the production collaborators of a crawl.
func newCrawler(site b2bsync.Site, browser b2bsync.Browser, dataDir string, logger *slog.Logger) (*crawl.Crawler, error) {
	fetcher, err := b2bhttp.NewImageFetcher(site.BaseURL)
	if err != nil {
		return nil, err
	}

	extractor := goquery.NewCatalogExtractor(goquery.WithLogger(logger))
	c := crawl.NewCrawler(browser, extractor, site, logger)
	c.Images = &crawl.ImageSyncer{
		Fetcher:        b2bslog.NewLoggingImageFetcher(fetcher, logger),
		Store:          fs.NewImageStore(dataDir),
		NoImageMarkers: site.NoImageMarkers,
		Concurrency:    crawl.DefaultImageConcurrency,
		Logger:         logger,
	}
	return c, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".b2bsync")
}

func defaultDBPath(dataDir string) string {
	if path := os.Getenv("B2BSYNC_DB"); path != "" {
		return path
	}
	_ = os.MkdirAll(dataDir, 0755)
	return filepath.Join(dataDir, "b2bsync.db")
}
