package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/b2bsync"
)

// Ensure LoggingImageFetcher implements b2bsync.ImageFetcher.
var _ b2bsync.ImageFetcher = (*LoggingImageFetcher)(nil)

// LoggingImageFetcher wraps an ImageFetcher with debug logging.
type LoggingImageFetcher struct {
	next   b2bsync.ImageFetcher
	logger *slog.Logger
}

// NewLoggingImageFetcher creates a new LoggingImageFetcher.
func NewLoggingImageFetcher(next b2bsync.ImageFetcher, logger *slog.Logger) *LoggingImageFetcher {
	return &LoggingImageFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingImageFetcher) Fetch(ctx context.Context, url string) (img *b2bsync.Image, err error) {
	defer func(begin time.Time) {
		var size int
		var contentType string
		if img != nil {
			size = len(img.Data)
			contentType = img.ContentType
		}
		f.logger.Debug("fetch image",
			"url", url,
			"bytes", size,
			"content_type", contentType,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
