package mock

import (
	"context"

	"github.com/fwojciec/b2bsync"
)

var (
	_ b2bsync.ImageFetcher = (*ImageFetcher)(nil)
	_ b2bsync.ImageStore   = (*ImageStore)(nil)
)

// ImageFetcher is a mock implementation of b2bsync.ImageFetcher.
type ImageFetcher struct {
	FetchFn func(ctx context.Context, url string) (*b2bsync.Image, error)
}

func (f *ImageFetcher) Fetch(ctx context.Context, url string) (*b2bsync.Image, error) {
	return f.FetchFn(ctx, url)
}

// ImageStore is a mock implementation of b2bsync.ImageStore.
type ImageStore struct {
	FindFn func(code string) (string, error)
	SaveFn func(code string, img *b2bsync.Image) (string, error)
}

func (s *ImageStore) Find(code string) (string, error) {
	return s.FindFn(code)
}

func (s *ImageStore) Save(code string, img *b2bsync.Image) (string, error) {
	return s.SaveFn(code, img)
}
