package crawl

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fwojciec/b2bsync"
	"golang.org/x/sync/errgroup"
)

// DefaultImageConcurrency caps in-flight image downloads per batch.
const DefaultImageConcurrency = 8

// ImageSyncer downloads product images that are not yet stored.
type ImageSyncer struct {
	Fetcher b2bsync.ImageFetcher
	Store   b2bsync.ImageStore

	// NoImageMarkers are URL substrings identifying placeholder images.
	NoImageMarkers []string

	// Concurrency caps in-flight downloads. Defaults to
	// DefaultImageConcurrency.
	Concurrency int

	// RetryDelays are waited between attempts. Nil means a single attempt.
	RetryDelays []time.Duration

	// RateLimiter, if set, paces downloads per image host.
	RateLimiter Limiter

	// LookupOnly resolves images already on disk and downloads nothing.
	// Products whose image is missing count as skipped.
	LookupOnly bool

	Logger *slog.Logger
}

// ImageStats summarizes a FetchMissing call.
type ImageStats struct {
	Existing int
	Fetched  int
	Failed   int
	Skipped  int
}

// FetchMissing sets LocalImagePath on each product whose image is already
// stored, and downloads the rest. A failed download leaves the product's
// LocalImagePath empty and does not affect the others. Products sharing a
// code are downloaded once.
func (s *ImageSyncer) FetchMissing(ctx context.Context, products []*b2bsync.Product) ImageStats {
	var stats ImageStats
	logger := s.logger()

	pending := make(map[string][]*b2bsync.Product)
	var order []string
	for _, p := range products {
		if !s.wantsImage(p) {
			stats.Skipped++
			continue
		}

		path, err := s.Store.Find(p.Code)
		if err == nil {
			p.LocalImagePath = path
			stats.Existing++
			continue
		}
		if b2bsync.ErrorCode(err) != b2bsync.ENOTFOUND {
			logger.Warn("image lookup failed", "code", p.Code, "err", err)
			stats.Failed++
			continue
		}

		if _, ok := pending[p.Code]; !ok {
			order = append(order, p.Code)
		}
		pending[p.Code] = append(pending[p.Code], p)
	}

	if len(order) == 0 {
		return stats
	}
	if s.LookupOnly {
		for _, code := range order {
			stats.Skipped += len(pending[code])
		}
		return stats
	}

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultImageConcurrency
	}

	var fetched, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, code := range order {
		group := pending[code]
		g.Go(func() error {
			path, err := s.download(ctx, code, group[0].ImageURL)
			for _, p := range group {
				p.LocalImagePath = path
			}
			if err != nil {
				failed.Add(1)
				logger.Warn("image download failed", "code", code, "url", group[0].ImageURL, "err", err)
				return nil
			}
			fetched.Add(1)
			logger.Debug("image saved", "code", code, "path", path)
			return nil
		})
	}
	_ = g.Wait()

	stats.Fetched = int(fetched.Load())
	stats.Failed += int(failed.Load())
	return stats
}

// wantsImage reports whether p has a real image URL.
func (s *ImageSyncer) wantsImage(p *b2bsync.Product) bool {
	if p.ImageURL == "" || p.Code == "" {
		return false
	}
	url := strings.ToLower(p.ImageURL)
	for _, marker := range s.NoImageMarkers {
		if marker != "" && strings.Contains(url, strings.ToLower(marker)) {
			return false
		}
	}
	return true
}

func (s *ImageSyncer) download(ctx context.Context, code, url string) (string, error) {
	if s.RateLimiter != nil {
		if err := s.RateLimiter.Wait(ctx, hostOf(url)); err != nil {
			return "", err
		}
	}
	onRetry := func(url string, attempt int, err error) {
		s.logger().Debug("retrying image", "code", code, "url", url, "attempt", attempt, "err", err)
	}
	img, err := FetchWithRetryDelays(ctx, url, s.Fetcher.Fetch, onRetry, s.RetryDelays)
	if err != nil {
		return "", err
	}
	return s.Store.Save(code, img)
}

func (s *ImageSyncer) logger() *slog.Logger {
	return loggerOrDiscard(s.Logger)
}
