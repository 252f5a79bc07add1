package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/b2bsync"
)

// Login form locators.
var (
	usernameLocator = b2bsync.ByCSS("#Username")
	passwordLocator = b2bsync.ByCSS("#Password")

	submitLocators = []b2bsync.Locator{
		b2bsync.ByXPath(`//input[@type='submit']`),
		b2bsync.ByXPath(`//button[@type='submit']`),
		b2bsync.ByXPath(`//button[contains(text(), 'Giriş')]`),
		b2bsync.ByXPath(`//input[@value='Giriş']`),
	}
)

// Authenticator signs a browser session into the supplier portal.
type Authenticator struct {
	LoginURL string

	// Settle is passed to Session.WaitStable after submitting the form.
	Settle time.Duration

	Logger *slog.Logger
}

// NewAuthenticator creates an Authenticator for the site's login page.
func NewAuthenticator(site b2bsync.Site, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		LoginURL: site.LoginURL,
		Settle:   DefaultSettle,
		Logger:   logger,
	}
}

// Login fills in and submits the login form. Returns EUNAUTHORIZED when the
// resulting page does not look like a signed-in session.
func (a *Authenticator) Login(ctx context.Context, s b2bsync.Session, creds b2bsync.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	logger := a.logger().With("user", creds.Username)

	if err := s.Navigate(ctx, a.LoginURL); err != nil {
		return err
	}

	if err := fill(ctx, s, usernameLocator, creds.Username); err != nil {
		return err
	}
	if err := fill(ctx, s, passwordLocator, creds.Password); err != nil {
		return err
	}

	submit, loc, err := b2bsync.FindFirst(ctx, s, submitLocators...)
	if err != nil {
		return b2bsync.Errorf(b2bsync.EUNAUTHORIZED, "login submit control not found")
	}
	logger.Debug("submitting login form", "locator", loc.String())
	if err := submit.Click(ctx); err != nil {
		return err
	}
	if a.Settle > 0 {
		if err := s.WaitStable(ctx, a.Settle); err != nil {
			logger.Debug("login page did not settle", "err", err)
		}
	}

	url, err := s.URL(ctx)
	if err != nil {
		return err
	}
	html, err := s.HTML(ctx)
	if err != nil {
		return err
	}
	if !b2bsync.ClassifyLogin(url, html) {
		logger.Warn("login rejected", "url", url)
		return b2bsync.Errorf(b2bsync.EUNAUTHORIZED, "login failed for %q", creds.Username)
	}

	logger.Info("logged in", "url", url)
	return nil
}

func fill(ctx context.Context, s b2bsync.Session, loc b2bsync.Locator, value string) error {
	el, err := s.Find(ctx, loc)
	if err != nil {
		if b2bsync.ErrorCode(err) == b2bsync.ENOTFOUND {
			return b2bsync.Errorf(b2bsync.EUNAUTHORIZED, "login field %s not found", loc)
		}
		return err
	}
	return el.Input(ctx, value)
}

func (a *Authenticator) logger() *slog.Logger {
	return loggerOrDiscard(a.Logger)
}
