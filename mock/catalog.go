package mock

import (
	"github.com/fwojciec/b2bsync"
	"github.com/shopspring/decimal"
)

var _ b2bsync.CatalogExtractor = (*CatalogExtractor)(nil)

// CatalogExtractor is a mock implementation of b2bsync.CatalogExtractor.
type CatalogExtractor struct {
	ExtractProductsFn    func(html string, margin decimal.Decimal) ([]*b2bsync.Product, error)
	DiscoverTotalPagesFn func(html string) (int, bool)
}

func (e *CatalogExtractor) ExtractProducts(html string, margin decimal.Decimal) ([]*b2bsync.Product, error) {
	return e.ExtractProductsFn(html, margin)
}

func (e *CatalogExtractor) DiscoverTotalPages(html string) (int, bool) {
	return e.DiscoverTotalPagesFn(html)
}
