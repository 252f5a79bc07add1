package mock

import (
	"context"
	"time"

	"github.com/fwojciec/b2bsync"
)

var (
	_ b2bsync.Browser = (*Browser)(nil)
	_ b2bsync.Session = (*Session)(nil)
	_ b2bsync.Element = (*Element)(nil)
)

// Browser is a mock implementation of b2bsync.Browser.
type Browser struct {
	NewSessionFn func(ctx context.Context) (b2bsync.Session, error)
	CloseFn      func() error
}

func (b *Browser) NewSession(ctx context.Context) (b2bsync.Session, error) {
	return b.NewSessionFn(ctx)
}

func (b *Browser) Close() error {
	return b.CloseFn()
}

// Session is a mock implementation of b2bsync.Session.
type Session struct {
	NavigateFn   func(ctx context.Context, url string) error
	FindFn       func(ctx context.Context, loc b2bsync.Locator) (b2bsync.Element, error)
	HTMLFn       func(ctx context.Context) (string, error)
	URLFn        func(ctx context.Context) (string, error)
	WaitStableFn func(ctx context.Context, d time.Duration) error
	CloseFn      func() error
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.NavigateFn(ctx, url)
}

func (s *Session) Find(ctx context.Context, loc b2bsync.Locator) (b2bsync.Element, error) {
	return s.FindFn(ctx, loc)
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	return s.HTMLFn(ctx)
}

func (s *Session) URL(ctx context.Context) (string, error) {
	return s.URLFn(ctx)
}

func (s *Session) WaitStable(ctx context.Context, d time.Duration) error {
	return s.WaitStableFn(ctx, d)
}

func (s *Session) Close() error {
	return s.CloseFn()
}

// Element is a mock implementation of b2bsync.Element.
type Element struct {
	ClickFn     func(ctx context.Context) error
	InputFn     func(ctx context.Context, text string) error
	TextFn      func(ctx context.Context) (string, error)
	AttributeFn func(ctx context.Context, name string) (string, bool, error)
	EvalFn      func(ctx context.Context, js string) error
}

func (e *Element) Click(ctx context.Context) error {
	return e.ClickFn(ctx)
}

func (e *Element) Input(ctx context.Context, text string) error {
	return e.InputFn(ctx, text)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.TextFn(ctx)
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	return e.AttributeFn(ctx, name)
}

func (e *Element) Eval(ctx context.Context, js string) error {
	return e.EvalFn(ctx, js)
}
