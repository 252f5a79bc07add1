package rod

import (
	"context"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var (
	_ b2bsync.Session = (*Session)(nil)
	_ b2bsync.Element = (*Element)(nil)
)

// Session is one tab inside its own incognito browser context.
type Session struct {
	context *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Find looks up loc without waiting for it to appear.
func (s *Session) Find(ctx context.Context, loc b2bsync.Locator) (b2bsync.Element, error) {
	page := s.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	if loc.Kind == b2bsync.XPath {
		has, el, err = page.HasX(loc.Query)
	} else {
		has, el, err = page.Has(loc.Query)
	}
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, b2bsync.Errorf(b2bsync.ENOTFOUND, "no element matches %s", loc)
	}
	return &Element{el: el}, nil
}

// HTML returns the rendered page source.
func (s *Session) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// URL returns the current location of the tab.
func (s *Session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// WaitStable waits until the DOM has not changed for d.
func (s *Session) WaitStable(ctx context.Context, d time.Duration) error {
	return s.page.Context(ctx).WaitDOMStable(d, 0)
}

// Close closes the tab and disposes of its browser context.
func (s *Session) Close() error {
	err := s.page.Close()
	if cerr := s.context.Close(); err == nil {
		err = cerr
	}
	return err
}

// Element wraps a rod element.
type Element struct {
	el *rod.Element
}

// Click performs a left mouse click.
func (e *Element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// Input clears the field and types text into it.
func (e *Element) Input(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if _, err := el.Eval(`() => { this.value = '' }`); err != nil {
		return err
	}
	return el.Input(text)
}

// Text returns the element's visible text.
func (e *Element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

// Attribute returns the value of attribute name.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// Eval runs js with this bound to the element.
func (e *Element) Eval(ctx context.Context, js string) error {
	_, err := e.el.Context(ctx).Eval(js)
	return err
}
