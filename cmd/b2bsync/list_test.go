package main_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/b2bsync"
	main "github.com/fwojciec/b2bsync/cmd/b2bsync"
	"github.com/fwojciec/b2bsync/mock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProduct(code, name string) *b2bsync.Product {
	p := &b2bsync.Product{
		Code:                 code,
		Name:                 name,
		ListPrice:            decimal.RequireFromString("1500"),
		BuyPriceExcludingVAT: decimal.RequireFromString("1000"),
		BuyPriceIncludingVAT: decimal.RequireFromString("1200"),
		VATRate:              decimal.NewFromInt(20),
		MarginPercentage:     decimal.NewFromInt(40),
		UpdatedAt:            time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		ScrapedAt:            time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	p.Reprice()
	return p
}

func TestListCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints products", func(t *testing.T) {
		t.Parallel()

		deleted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		gone := sampleProduct("B-2", "Discontinued pump")
		gone.DeletedAt = &deleted

		var got b2bsync.ProductFilter
		products := &mock.ProductService{
			FindProductsFn: func(_ context.Context, filter b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
				got = filter
				return []*b2bsync.Product{sampleProduct("A-1", "Ball valve"), gone}, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Products: products,
		}

		cmd := &main.ListCmd{Search: "pump", Deleted: true, Limit: 10, Offset: 5}
		err := cmd.Run(deps)

		require.NoError(t, err)
		require.NotNil(t, got.Search)
		assert.Equal(t, "pump", *got.Search)
		assert.True(t, got.IncludeDeleted)
		assert.Equal(t, 10, got.Limit)
		assert.Equal(t, 5, got.Offset)

		out := stdout.String()
		assert.Contains(t, out, "CODE")
		assert.Contains(t, out, "A-1")
		assert.Contains(t, out, "Ball valve")
		assert.Contains(t, out, "1.000,00")
		assert.Contains(t, out, "1.680,00")
		assert.Contains(t, out, "40%")
		assert.Contains(t, out, "[deleted]")
	})

	t.Run("truncates long names", func(t *testing.T) {
		t.Parallel()

		long := "Stainless steel three piece ball valve with lockable handle"
		products := &mock.ProductService{
			FindProductsFn: func(_ context.Context, _ b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
				return []*b2bsync.Product{sampleProduct("A-1", long)}, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Products: products,
		}

		err := (&main.ListCmd{}).Run(deps)

		require.NoError(t, err)
		assert.NotContains(t, stdout.String(), long)
		assert.Contains(t, stdout.String(), "...")
	})

	t.Run("explains empty catalog", func(t *testing.T) {
		t.Parallel()

		var got b2bsync.ProductFilter
		products := &mock.ProductService{
			FindProductsFn: func(_ context.Context, filter b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
				got = filter
				return nil, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Products: products,
		}

		err := (&main.ListCmd{}).Run(deps)

		require.NoError(t, err)
		assert.Nil(t, got.Search)
		assert.Contains(t, stdout.String(), "b2bsync crawl")
	})

	t.Run("reports search without matches", func(t *testing.T) {
		t.Parallel()

		products := &mock.ProductService{
			FindProductsFn: func(_ context.Context, _ b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
				return nil, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Products: products,
		}

		err := (&main.ListCmd{Search: "flange"}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), `No products match "flange"`)
	})

	t.Run("returns store errors", func(t *testing.T) {
		t.Parallel()

		products := &mock.ProductService{
			FindProductsFn: func(_ context.Context, _ b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
				return nil, errors.New("disk full")
			},
		}

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   &bytes.Buffer{},
			Stderr:   stderr,
			Products: products,
		}

		err := (&main.ListCmd{}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "error: disk full")
	})
}

func TestOutdatedCmd_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("lists products older than the threshold", func(t *testing.T) {
		t.Parallel()

		var got b2bsync.ProductFilter
		products := &mock.ProductService{
			FindProductsFn: func(_ context.Context, filter b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
				got = filter
				return []*b2bsync.Product{sampleProduct("A-1", "Ball valve")}, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Products: products,
			Now:      func() time.Time { return now },
		}

		err := (&main.OutdatedCmd{Months: 3}).Run(deps)

		require.NoError(t, err)
		require.NotNil(t, got.UpdatedBefore)
		assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), *got.UpdatedBefore)
		assert.False(t, got.IncludeDeleted)
		assert.Contains(t, stdout.String(), "1 products not updated since 2026-03-15")
		assert.Contains(t, stdout.String(), "2026-01-15")
	})

	t.Run("rejects non-positive months", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   &bytes.Buffer{},
			Stderr:   stderr,
			Products: &mock.ProductService{},
			Now:      func() time.Time { return now },
		}

		err := (&main.OutdatedCmd{Months: 0}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, b2bsync.EINVALID, b2bsync.ErrorCode(err))
		assert.Contains(t, stderr.String(), "months must be positive")
	})
}
