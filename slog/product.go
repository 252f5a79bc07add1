package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/shopspring/decimal"
)

// Ensure LoggingProductService implements b2bsync.ProductService.
var _ b2bsync.ProductService = (*LoggingProductService)(nil)

// LoggingProductService wraps a ProductService and logs writes. Reads are
// delegated without logging.
type LoggingProductService struct {
	next   b2bsync.ProductService
	logger *slog.Logger
}

// NewLoggingProductService creates a new LoggingProductService.
func NewLoggingProductService(next b2bsync.ProductService, logger *slog.Logger) *LoggingProductService {
	return &LoggingProductService{next: next, logger: logger}
}

func (s *LoggingProductService) UpsertProducts(ctx context.Context, products []*b2bsync.Product) (res *b2bsync.UpsertResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"products", len(products),
			"duration", time.Since(begin),
		}
		if res != nil {
			attrs = append(attrs, "inserted", res.Inserted, "updated", res.Updated, "unchanged", res.Unchanged)
		}
		if err != nil {
			s.logger.Error("upsert products", append(attrs, "err", err)...)
			return
		}
		s.logger.Info("upsert products", attrs...)
	}(time.Now())
	return s.next.UpsertProducts(ctx, products)
}

func (s *LoggingProductService) FindProductByCode(ctx context.Context, code string) (*b2bsync.Product, error) {
	return s.next.FindProductByCode(ctx, code)
}

func (s *LoggingProductService) FindProducts(ctx context.Context, filter b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
	return s.next.FindProducts(ctx, filter)
}

func (s *LoggingProductService) UpdateMargin(ctx context.Context, code string, margin decimal.Decimal) (p *b2bsync.Product, err error) {
	defer func() {
		s.logger.Info("update margin",
			"code", code,
			"margin", margin.String(),
			"err", err,
		)
	}()
	return s.next.UpdateMargin(ctx, code, margin)
}

func (s *LoggingProductService) DeleteProduct(ctx context.Context, code string) (err error) {
	defer func() {
		s.logger.Info("delete product", "code", code, "err", err)
	}()
	return s.next.DeleteProduct(ctx, code)
}

func (s *LoggingProductService) RestoreProduct(ctx context.Context, code string) (err error) {
	defer func() {
		s.logger.Info("restore product", "code", code, "err", err)
	}()
	return s.next.RestoreProduct(ctx, code)
}
