// Package http downloads product images from the supplier portal over plain
// HTTP.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/b2bsync"
)

// DefaultFetchTimeout is the default timeout for a single image request.
const DefaultFetchTimeout = 30 * time.Second

// MaxImageSize caps how much of a response body is read.
const MaxImageSize = 20 << 20

// Ensure ImageFetcher implements b2bsync.ImageFetcher at compile time.
var _ b2bsync.ImageFetcher = (*ImageFetcher)(nil)

// ImageFetcher retrieves product images. Catalog pages use relative and
// Windows-style image paths, so URLs are normalized against the portal's
// base URL before requesting them.
type ImageFetcher struct {
	client    *http.Client
	base      *url.URL
	timeout   time.Duration
	transport http.RoundTripper
	userAgent string
}

// Option configures an ImageFetcher.
type Option func(*ImageFetcher)

// WithTimeout sets the timeout for image requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *ImageFetcher) {
		f.timeout = d
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *ImageFetcher) {
		f.transport = rt
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *ImageFetcher) {
		f.userAgent = ua
	}
}

// NewImageFetcher creates an ImageFetcher that resolves relative image
// paths against baseURL.
func NewImageFetcher(baseURL string, opts ...Option) (*ImageFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, b2bsync.Errorf(b2bsync.EINVALID, "invalid base URL %q", baseURL)
	}

	f := &ImageFetcher{
		base:    base,
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout:   f.timeout,
		Transport: f.transport,
	}
	return f, nil
}

// Resolve normalizes a catalog image reference into an absolute URL.
func (f *ImageFetcher) Resolve(raw string) (string, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	if raw == "" {
		return "", b2bsync.Errorf(b2bsync.EINVALID, "empty image URL")
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", b2bsync.Errorf(b2bsync.EINVALID, "invalid image URL %q", raw)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// Fetch downloads the image at rawURL. Non-2xx responses are errors.
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (*b2bsync.Image, error) {
	u, err := f.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, u)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize))
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &b2bsync.Image{URL: u, ContentType: contentType, Data: data}, nil
}
