package b2bsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// DefaultMarginPercentage is the markup applied to freshly scraped products.
var DefaultMarginPercentage = decimal.NewFromInt(40)

var hundred = decimal.NewFromInt(100)

// Product represents one supplier catalog entry.
type Product struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`

	ListPrice            decimal.Decimal `json:"listPrice"`
	BuyPriceExcludingVAT decimal.Decimal `json:"buyPriceExcludingVat"`
	BuyPriceIncludingVAT decimal.Decimal `json:"buyPriceIncludingVat"`

	Discount1 decimal.Decimal `json:"discount1"`
	Discount2 decimal.Decimal `json:"discount2"`
	Discount3 decimal.Decimal `json:"discount3"`

	VATRate          decimal.Decimal `json:"vatRate"`
	MarginPercentage decimal.Decimal `json:"marginPercentage"`

	// SalePrice is derived from the buy price, margin and VAT rate. It is
	// recomputed whenever one of them changes.
	SalePrice decimal.Decimal `json:"salePrice"`

	ImageURL       string `json:"imageUrl,omitempty"`
	LocalImagePath string `json:"localImagePath,omitempty"`

	ScrapedAt time.Time  `json:"scrapedAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Validate returns an error if the product contains invalid fields.
func (p *Product) Validate() error {
	if p.Code == "" {
		return Errorf(EINVALID, "product code required")
	}
	if p.Name == "" {
		return Errorf(EINVALID, "product name required")
	}
	return nil
}

// Reprice recomputes SalePrice from the product's own buy price, margin and
// VAT rate.
func (p *Product) Reprice() {
	p.SalePrice = ComputeSalePrice(p.BuyPriceExcludingVAT, p.MarginPercentage, p.VATRate)
}

// SalePriceExcludingVAT returns the sale price with VAT removed.
func (p *Product) SalePriceExcludingVAT() decimal.Decimal {
	if !p.VATRate.IsPositive() {
		return p.SalePrice
	}
	return p.SalePrice.DivRound(decimal.NewFromInt(1).Add(p.VATRate.Div(hundred)), 2)
}

// IsDeleted reports whether the product has been soft deleted.
func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Fingerprint returns a hash of the scraped fields. Two scrapes of an
// unchanged catalog entry produce the same fingerprint.
func (p *Product) Fingerprint() string {
	var b strings.Builder
	for _, s := range []string{
		p.Code,
		p.Name,
		p.ListPrice.String(),
		p.BuyPriceExcludingVAT.String(),
		p.BuyPriceIncludingVAT.String(),
		p.Discount1.String(),
		p.Discount2.String(),
		p.Discount3.String(),
		p.VATRate.String(),
		p.ImageURL,
	} {
		b.WriteString(s)
		b.WriteByte(0)
	}
	return fmt.Sprintf("%x", xxhash.Sum64String(b.String()))
}

// ComputeSalePrice applies the margin to the VAT-exclusive buy price and then
// adds VAT back on top.
func ComputeSalePrice(buyExcludingVAT, margin, vatRate decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	withMargin := buyExcludingVAT.Mul(one.Add(margin.Div(hundred)))
	return withMargin.Mul(one.Add(vatRate.Div(hundred)))
}

// ValidateMargin returns an error if margin is outside [0, 100].
func ValidateMargin(margin decimal.Decimal) error {
	if margin.IsNegative() || margin.GreaterThan(hundred) {
		return Errorf(EINVALID, "margin percentage must be between 0 and 100")
	}
	return nil
}

// ProductService represents a service for managing stored products.
type ProductService interface {
	// UpsertProducts stores scraped products keyed by code. Existing rows
	// keep their margin percentage and have every other field overwritten.
	UpsertProducts(ctx context.Context, products []*Product) (*UpsertResult, error)

	// FindProductByCode retrieves a product by its supplier code.
	// Returns ENOTFOUND if product does not exist.
	FindProductByCode(ctx context.Context, code string) (*Product, error)

	// FindProducts retrieves products matching the filter.
	FindProducts(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// UpdateMargin sets a product's margin and recomputes its sale price.
	// Returns EINVALID if margin is outside [0, 100].
	UpdateMargin(ctx context.Context, code string, margin decimal.Decimal) (*Product, error)

	// DeleteProduct soft deletes a product.
	// Returns ECONFLICT if the product is already deleted.
	DeleteProduct(ctx context.Context, code string) error

	// RestoreProduct reverses a soft delete.
	// Returns ECONFLICT if the product is not deleted.
	RestoreProduct(ctx context.Context, code string) error
}

// ProductFilter represents a filter for FindProducts.
type ProductFilter struct {
	// Search matches a substring of the code or name.
	Search *string `json:"search"`

	IncludeDeleted bool `json:"includeDeleted"`

	// UpdatedBefore selects products last refreshed before this time.
	UpdatedBefore *time.Time `json:"updatedBefore"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// UpsertResult summarizes an UpsertProducts call.
type UpsertResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}
