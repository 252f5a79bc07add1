package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/b2bsync"
)

// FetchFunc downloads a single image.
type FetchFunc func(ctx context.Context, url string) (*b2bsync.Image, error)

// RetryFunc is called before each retry with the attempt about to start.
type RetryFunc func(url string, attempt int, err error)

// DefaultRetryDelays returns backoff delays of 1s, 2s and 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetryDelays calls fetch until it succeeds, making one attempt
// plus one retry per delay. A nil or empty delays slice means a single
// attempt.
func FetchWithRetryDelays(ctx context.Context, url string, fetch FetchFunc, onRetry RetryFunc, delays []time.Duration) (*b2bsync.Image, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		img, err := fetch(ctx, url)
		if err == nil {
			return img, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 {
			break
		}

		if onRetry != nil {
			onRetry(url, attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return nil, lastErr
}
