package rod

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/b2bsync"
)

var (
	_ b2bsync.Browser = (*LoggingBrowser)(nil)
	_ b2bsync.Session = (*LoggingSession)(nil)
)

// LoggingBrowser wraps a Browser so every session it opens is logged.
type LoggingBrowser struct {
	next   b2bsync.Browser
	logger *slog.Logger
}

// NewLoggingBrowser creates a new LoggingBrowser.
func NewLoggingBrowser(next b2bsync.Browser, logger *slog.Logger) *LoggingBrowser {
	return &LoggingBrowser{next: next, logger: logger}
}

// NewSession opens a session on the wrapped browser and decorates it.
func (b *LoggingBrowser) NewSession(ctx context.Context) (b2bsync.Session, error) {
	s, err := b.next.NewSession(ctx)
	if err != nil {
		b.logger.Warn("new session", "err", err)
		return nil, err
	}
	return NewLoggingSession(s, b.logger), nil
}

// Close delegates to the wrapped browser.
func (b *LoggingBrowser) Close() error {
	return b.next.Close()
}

// LoggingSession wraps a Session with logging. Navigation is logged at info
// level, element lookups at debug level.
type LoggingSession struct {
	next   b2bsync.Session
	logger *slog.Logger
}

// NewLoggingSession creates a new LoggingSession.
func NewLoggingSession(next b2bsync.Session, logger *slog.Logger) *LoggingSession {
	return &LoggingSession{next: next, logger: logger}
}

// Navigate logs the URL being loaded and delegates to the wrapped session.
func (s *LoggingSession) Navigate(ctx context.Context, url string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("navigate",
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Navigate(ctx, url)
}

// Find logs the locator and whether it matched.
func (s *LoggingSession) Find(ctx context.Context, loc b2bsync.Locator) (el b2bsync.Element, err error) {
	defer func() {
		s.logger.Debug("find",
			"locator", loc.String(),
			"found", err == nil,
			"code", b2bsync.ErrorCode(err),
		)
	}()
	return s.next.Find(ctx, loc)
}

// HTML logs the size of the returned source.
func (s *LoggingSession) HTML(ctx context.Context) (html string, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("html",
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.HTML(ctx)
}

// URL delegates to the wrapped session.
func (s *LoggingSession) URL(ctx context.Context) (string, error) {
	return s.next.URL(ctx)
}

// WaitStable delegates to the wrapped session.
func (s *LoggingSession) WaitStable(ctx context.Context, d time.Duration) error {
	return s.next.WaitStable(ctx, d)
}

// Close delegates to the wrapped session.
func (s *LoggingSession) Close() error {
	return s.next.Close()
}
