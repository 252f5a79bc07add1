// Package rod drives Chrome through go-rod to give crawl workers isolated
// browser sessions.
package rod

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultPageTimeout bounds a single navigation including the load event.
const DefaultPageTimeout = 60 * time.Second

// Ensure Browser implements b2bsync.Browser at compile time.
var _ b2bsync.Browser = (*Browser)(nil)

// Browser owns one Chrome process. Every session runs in its own incognito
// context, so cookies and logins are never shared between workers.
//
// Browser is safe for concurrent use.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher

	headless    bool
	bin         string
	pageTimeout time.Duration

	mu     sync.Mutex
	closed atomic.Bool
}

// Option configures a Browser.
type Option func(*Browser)

// WithHeadless controls whether Chrome runs without a window. Defaults to
// true.
func WithHeadless(headless bool) Option {
	return func(b *Browser) {
		b.headless = headless
	}
}

// WithBin sets the Chrome executable. By default rod finds or downloads one.
func WithBin(path string) Option {
	return func(b *Browser) {
		b.bin = path
	}
}

// WithPageTimeout bounds each navigation. Defaults to DefaultPageTimeout.
func WithPageTimeout(d time.Duration) Option {
	return func(b *Browser) {
		b.pageTimeout = d
	}
}

// NewBrowser launches Chrome. Close must be called when the Browser is no
// longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewBrowser(opts ...Option) (*Browser, error) {
	b := &Browser{
		headless:    true,
		pageTimeout: DefaultPageTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := b.launch(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewSession opens a tab in a fresh incognito context.
func (b *Browser) NewSession(ctx context.Context) (b2bsync.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, b2bsync.Errorf(b2bsync.EINVALID, "browser is closed")
	}

	b.mu.Lock()
	browser := b.browser
	b.mu.Unlock()

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("opening tab: %w", err)
	}

	return &Session{context: incognito, page: page, timeout: b.pageTimeout}, nil
}

// Close shuts Chrome down. Close is safe to call multiple times.
func (b *Browser) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher = nil
	}
	return err
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (b *Browser) LauncherPID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.launcher == nil {
		return 0
	}
	return b.launcher.PID()
}

// launch starts Chrome with flags that keep background tabs running at full
// speed, since every worker's tab is a background tab.
func (b *Browser) launch() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(b.headless)
	if b.bin != "" {
		l = l.Bin(b.bin)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	b.browser = browser
	b.launcher = l
	return nil
}
