package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/b2bsync"
)

// DefaultSettle is how long the DOM must stay unchanged after a pagination
// click before the active page is read back.
const DefaultSettle = 300 * time.Millisecond

// Scripts run against pagination links. A script click avoids pointer
// hit-testing against overlays.
const (
	scrollIntoViewJS = `() => this.scrollIntoView(true)`
	clickJS          = `() => this.click()`
)

// activePageLocator finds the element marking the page being displayed.
var activePageLocator = b2bsync.ByCSS(".pagination .active, .pagination .current, .page-numbers .current")

// pageLinkLocators returns the fallback chain used to find the link to page n.
func pageLinkLocators(n int) []b2bsync.Locator {
	return []b2bsync.Locator{
		b2bsync.ByXPath(fmt.Sprintf(`//a[text()='%d' and contains(@class, 'page')]`, n)),
		b2bsync.ByXPath(fmt.Sprintf(`//a[text()='%d']`, n)),
		b2bsync.ByXPath(fmt.Sprintf(`//a[contains(@href, 'page=%d')]`, n)),
		b2bsync.ByXPath(fmt.Sprintf(`//*[contains(@class, 'pagination')]//a[text()='%d']`, n)),
		b2bsync.ByXPath(fmt.Sprintf(`//*[contains(@class, 'page-numbers')]//a[text()='%d']`, n)),
	}
}

// Navigator moves a session between catalog pages.
type Navigator struct {
	Extractor b2bsync.CatalogExtractor

	// FallbackPages is returned by DiscoverTotalPages when the page count
	// cannot be read from the pagination control.
	FallbackPages int

	// Settle is passed to Session.WaitStable after each click. Zero skips
	// the wait.
	Settle time.Duration

	// StrictVerify makes GotoPage fail when the active page indicator is
	// missing after a click. By default a missing indicator counts as
	// success because some skins drop it while the next page renders.
	StrictVerify bool

	Logger *slog.Logger
}

// NewNavigator creates a Navigator with the default settle time.
func NewNavigator(extractor b2bsync.CatalogExtractor, fallbackPages int, logger *slog.Logger) *Navigator {
	return &Navigator{
		Extractor:     extractor,
		FallbackPages: fallbackPages,
		Settle:        DefaultSettle,
		Logger:        logger,
	}
}

// DiscoverTotalPages reads the page count from a catalog page, falling back
// to FallbackPages.
func (n *Navigator) DiscoverTotalPages(html string) int {
	if total, ok := n.Extractor.DiscoverTotalPages(html); ok {
		return total
	}
	n.logger().Warn("page count not found, using configured value", "pages", n.FallbackPages)
	return n.FallbackPages
}

// CurrentPage reads the active page indicator. Returns ENOTFOUND when the
// indicator is absent and EINVALID when its text is not a page number.
func (n *Navigator) CurrentPage(ctx context.Context, s b2bsync.Session) (int, error) {
	el, err := s.Find(ctx, activePageLocator)
	if err != nil {
		return 0, err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return 0, err
	}
	page, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, b2bsync.Errorf(b2bsync.EINVALID, "active page indicator %q is not a number", text)
	}
	return page, nil
}

// GotoPage clicks through to target and reports whether the session arrived.
// It does nothing when target is already displayed.
func (n *Navigator) GotoPage(ctx context.Context, s b2bsync.Session, target int) bool {
	logger := n.logger().With("page", target)

	if current, err := n.CurrentPage(ctx, s); err == nil && current == target {
		logger.Debug("already on page")
		return true
	}

	link, loc, err := b2bsync.FindFirst(ctx, s, pageLinkLocators(target)...)
	if err != nil {
		logger.Warn("page link not found", "err", err)
		return false
	}
	logger.Debug("page link found", "locator", loc.String())

	if err := link.Eval(ctx, scrollIntoViewJS); err != nil {
		logger.Warn("scroll to page link failed", "err", err)
		return false
	}
	if err := link.Eval(ctx, clickJS); err != nil {
		logger.Warn("page link click failed", "err", err)
		return false
	}
	if n.Settle > 0 {
		if err := s.WaitStable(ctx, n.Settle); err != nil {
			logger.Debug("page did not settle", "err", err)
		}
	}

	current, err := n.CurrentPage(ctx, s)
	switch {
	case err == nil:
		if current != target {
			logger.Warn("landed on wrong page", "actual", current)
		}
		return current == target
	case b2bsync.ErrorCode(err) == b2bsync.ENOTFOUND:
		logger.Warn("active page indicator missing after click", "strict", n.StrictVerify)
		return !n.StrictVerify
	default:
		logger.Warn("active page unreadable after click", "err", err)
		return false
	}
}

func (n *Navigator) logger() *slog.Logger {
	return loggerOrDiscard(n.Logger)
}
