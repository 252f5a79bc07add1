package crawl_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
	"github.com/fwojciec/b2bsync/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imageDir is an in-memory image store.
type imageDir struct {
	mu    sync.Mutex
	files map[string]string
}

func newImageDir(existing map[string]string) *imageDir {
	files := map[string]string{}
	for k, v := range existing {
		files[k] = v
	}
	return &imageDir{files: files}
}

func (d *imageDir) store() *mock.ImageStore {
	return &mock.ImageStore{
		FindFn: func(code string) (string, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			if path, ok := d.files[code]; ok {
				return path, nil
			}
			return "", b2bsync.Errorf(b2bsync.ENOTFOUND, "no image for %s", code)
		},
		SaveFn: func(code string, img *b2bsync.Image) (string, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			path := b2bsync.ImagePath(code, b2bsync.ImageExtension(img.ContentType, img.URL))
			d.files[code] = path
			return path, nil
		},
	}
}

func countingFetcher(calls *atomic.Int32) *mock.ImageFetcher {
	return &mock.ImageFetcher{
		FetchFn: func(_ context.Context, url string) (*b2bsync.Image, error) {
			calls.Add(1)
			return &b2bsync.Image{URL: url, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}, nil
		},
	}
}

func TestImageSyncer_FetchMissing(t *testing.T) {
	t.Parallel()

	t.Run("never fetches an image already on disk", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		dir := newImageDir(map[string]string{"KV-12": "images/products/KV-12.webp"})
		s := &crawl.ImageSyncer{Fetcher: countingFetcher(&calls), Store: dir.store()}

		products := []*b2bsync.Product{{Code: "KV-12", ImageURL: "/img/KV-12.jpg"}}
		stats := s.FetchMissing(context.Background(), products)

		assert.EqualValues(t, 0, calls.Load())
		assert.Equal(t, 1, stats.Existing)
		assert.Equal(t, "images/products/KV-12.webp", products[0].LocalImagePath)
	})

	t.Run("rechecks disk even when a path was recorded", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		dir := newImageDir(nil)
		s := &crawl.ImageSyncer{Fetcher: countingFetcher(&calls), Store: dir.store()}

		products := []*b2bsync.Product{{
			Code:           "KV-12",
			ImageURL:       "/img/KV-12.jpg",
			LocalImagePath: "images/products/KV-12.jpg",
		}}
		stats := s.FetchMissing(context.Background(), products)

		assert.EqualValues(t, 1, calls.Load())
		assert.Equal(t, 1, stats.Fetched)
		assert.Equal(t, "images/products/KV-12.jpg", products[0].LocalImagePath)
	})

	t.Run("lookup only links stored images without downloading", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		dir := newImageDir(map[string]string{"KV-12": "images/products/KV-12.png"})
		s := &crawl.ImageSyncer{Fetcher: countingFetcher(&calls), Store: dir.store(), LookupOnly: true}

		products := []*b2bsync.Product{
			{Code: "KV-12", ImageURL: "/img/KV-12.jpg"},
			{Code: "KV-13", ImageURL: "/img/KV-13.jpg"},
		}
		stats := s.FetchMissing(context.Background(), products)

		assert.EqualValues(t, 0, calls.Load())
		assert.Equal(t, 1, stats.Existing)
		assert.Equal(t, 1, stats.Skipped)
		assert.Equal(t, "images/products/KV-12.png", products[0].LocalImagePath)
		assert.Empty(t, products[1].LocalImagePath)
	})

	t.Run("skips empty and placeholder URLs", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		s := &crawl.ImageSyncer{
			Fetcher:        countingFetcher(&calls),
			Store:          newImageDir(nil).store(),
			NoImageMarkers: []string{"noimage"},
		}

		products := []*b2bsync.Product{
			{Code: "A", ImageURL: ""},
			{Code: "B", ImageURL: "/Content/img/NoImage.png"},
		}
		stats := s.FetchMissing(context.Background(), products)

		assert.EqualValues(t, 0, calls.Load())
		assert.Equal(t, 2, stats.Skipped)
		assert.Empty(t, products[0].LocalImagePath)
		assert.Empty(t, products[1].LocalImagePath)
	})

	t.Run("isolates failed downloads", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.ImageFetcher{
			FetchFn: func(_ context.Context, url string) (*b2bsync.Image, error) {
				if url == "/img/bad.jpg" {
					return nil, errors.New("404 Not Found")
				}
				return &b2bsync.Image{URL: url, ContentType: "image/png"}, nil
			},
		}
		s := &crawl.ImageSyncer{Fetcher: fetcher, Store: newImageDir(nil).store()}

		products := []*b2bsync.Product{
			{Code: "BAD", ImageURL: "/img/bad.jpg"},
			{Code: "GOOD", ImageURL: "/img/good"},
		}
		stats := s.FetchMissing(context.Background(), products)

		assert.Equal(t, 1, stats.Fetched)
		assert.Equal(t, 1, stats.Failed)
		assert.Empty(t, products[0].LocalImagePath)
		assert.Equal(t, "images/products/GOOD.png", products[1].LocalImagePath)
	})

	t.Run("downloads each code once", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		s := &crawl.ImageSyncer{Fetcher: countingFetcher(&calls), Store: newImageDir(nil).store()}

		products := []*b2bsync.Product{
			{Code: "DUP", ImageURL: "/img/dup.jpg"},
			{Code: "DUP", ImageURL: "/img/dup.jpg"},
		}
		s.FetchMissing(context.Background(), products)

		assert.EqualValues(t, 1, calls.Load())
		assert.Equal(t, products[0].LocalImagePath, products[1].LocalImagePath)
		assert.NotEmpty(t, products[1].LocalImagePath)
	})

	t.Run("caps concurrent downloads", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int32
		fetcher := &mock.ImageFetcher{
			FetchFn: func(_ context.Context, url string) (*b2bsync.Image, error) {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
				return &b2bsync.Image{URL: url}, nil
			},
		}
		s := &crawl.ImageSyncer{Fetcher: fetcher, Store: newImageDir(nil).store(), Concurrency: 2}

		var products []*b2bsync.Product
		for _, code := range []string{"A", "B", "C", "D", "E", "F"} {
			products = append(products, &b2bsync.Product{Code: code, ImageURL: "/img/" + code + ".jpg"})
		}
		stats := s.FetchMissing(context.Background(), products)

		assert.Equal(t, 6, stats.Fetched)
		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("retries with configured delays", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		fetcher := &mock.ImageFetcher{
			FetchFn: func(_ context.Context, url string) (*b2bsync.Image, error) {
				if calls.Add(1) == 1 {
					return nil, errors.New("connection reset")
				}
				return &b2bsync.Image{URL: url}, nil
			},
		}
		s := &crawl.ImageSyncer{
			Fetcher:     fetcher,
			Store:       newImageDir(nil).store(),
			RetryDelays: []time.Duration{time.Millisecond},
		}

		products := []*b2bsync.Product{{Code: "R", ImageURL: "/img/r.jpg"}}
		stats := s.FetchMissing(context.Background(), products)

		assert.EqualValues(t, 2, calls.Load())
		assert.Equal(t, 1, stats.Fetched)
	})

	t.Run("store lookup error skips download", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		store := &mock.ImageStore{
			FindFn: func(string) (string, error) { return "", errors.New("permission denied") },
		}
		s := &crawl.ImageSyncer{Fetcher: countingFetcher(&calls), Store: store}

		stats := s.FetchMissing(context.Background(), []*b2bsync.Product{{Code: "X", ImageURL: "/x.jpg"}})

		require.Equal(t, 1, stats.Failed)
		assert.EqualValues(t, 0, calls.Load())
	})
}
