package mock

import (
	"context"

	"github.com/fwojciec/b2bsync"
	"github.com/shopspring/decimal"
)

var _ b2bsync.ProductService = (*ProductService)(nil)

// ProductService is a mock implementation of b2bsync.ProductService.
type ProductService struct {
	UpsertProductsFn    func(ctx context.Context, products []*b2bsync.Product) (*b2bsync.UpsertResult, error)
	FindProductByCodeFn func(ctx context.Context, code string) (*b2bsync.Product, error)
	FindProductsFn      func(ctx context.Context, filter b2bsync.ProductFilter) ([]*b2bsync.Product, error)
	UpdateMarginFn      func(ctx context.Context, code string, margin decimal.Decimal) (*b2bsync.Product, error)
	DeleteProductFn     func(ctx context.Context, code string) error
	RestoreProductFn    func(ctx context.Context, code string) error
}

func (s *ProductService) UpsertProducts(ctx context.Context, products []*b2bsync.Product) (*b2bsync.UpsertResult, error) {
	return s.UpsertProductsFn(ctx, products)
}

func (s *ProductService) FindProductByCode(ctx context.Context, code string) (*b2bsync.Product, error) {
	return s.FindProductByCodeFn(ctx, code)
}

func (s *ProductService) FindProducts(ctx context.Context, filter b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
	return s.FindProductsFn(ctx, filter)
}

func (s *ProductService) UpdateMargin(ctx context.Context, code string, margin decimal.Decimal) (*b2bsync.Product, error) {
	return s.UpdateMarginFn(ctx, code, margin)
}

func (s *ProductService) DeleteProduct(ctx context.Context, code string) error {
	return s.DeleteProductFn(ctx, code)
}

func (s *ProductService) RestoreProduct(ctx context.Context, code string) error {
	return s.RestoreProductFn(ctx, code)
}
