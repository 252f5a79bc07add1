package b2bsync

import (
	"context"
	"time"
)

// LocatorKind selects the query language of a Locator.
type LocatorKind int

const (
	CSS LocatorKind = iota
	XPath
)

// Locator identifies an element on the current page.
type Locator struct {
	Kind  LocatorKind
	Query string
}

// ByCSS returns a CSS selector locator.
func ByCSS(query string) Locator {
	return Locator{Kind: CSS, Query: query}
}

// ByXPath returns an XPath locator.
func ByXPath(query string) Locator {
	return Locator{Kind: XPath, Query: query}
}

func (l Locator) String() string {
	if l.Kind == XPath {
		return "xpath=" + l.Query
	}
	return "css=" + l.Query
}

// Browser creates isolated browser sessions.
type Browser interface {
	// NewSession opens a session that is not shared with any other caller.
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Session is a single browser tab driven by one worker.
type Session interface {
	// Navigate loads url and waits for the page load event.
	Navigate(ctx context.Context, url string) error

	// Find returns the first element matching loc. It does not wait for the
	// element to appear and returns ENOTFOUND when nothing matches.
	Find(ctx context.Context, loc Locator) (Element, error)

	// HTML returns the rendered page source.
	HTML(ctx context.Context) (string, error)

	// URL returns the current page location.
	URL(ctx context.Context) (string, error)

	// WaitStable blocks until the DOM stops changing for d.
	WaitStable(ctx context.Context, d time.Duration) error

	Close() error
}

// Element is a node on a Session's current page.
type Element interface {
	Click(ctx context.Context) error

	// Input clears the element and types text into it.
	Input(ctx context.Context, text string) error

	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)

	// Eval runs a JavaScript function with this bound to the element.
	Eval(ctx context.Context, js string) error
}

// FindFirst tries each locator in order and returns the first match.
// Returns ENOTFOUND when no locator matches.
func FindFirst(ctx context.Context, s Session, locs ...Locator) (Element, Locator, error) {
	for _, loc := range locs {
		el, err := s.Find(ctx, loc)
		if err == nil {
			return el, loc, nil
		}
		if ErrorCode(err) != ENOTFOUND {
			return nil, loc, err
		}
	}
	return nil, Locator{}, Errorf(ENOTFOUND, "no element matched %d locators", len(locs))
}
