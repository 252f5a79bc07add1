package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Compile-time interface verification.
var _ b2bsync.ProductService = (*ProductService)(nil)

const productColumns = `id, code, name, list_price, buy_price_excl_vat, buy_price_incl_vat,
	discount1, discount2, discount3, vat_rate, margin_percentage, sale_price,
	image_url, local_image_path, scraped_at, updated_at, deleted_at`

// ProductService implements b2bsync.ProductService using SQLite.
type ProductService struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewProductService creates a new ProductService.
func NewProductService(db *DB) *ProductService {
	return &ProductService{db: db, Now: time.Now}
}

// UpsertProducts stores products keyed by code in a single transaction.
//
// A product that already exists keeps its stored margin percentage, and its
// sale price is recomputed with that margin. Its soft-delete state and, when
// the new scrape has none, its local image path are kept as well. The
// products are updated in place to reflect what was stored.
func (s *ProductService) UpsertProducts(ctx context.Context, products []*b2bsync.Product) (*b2bsync.UpsertResult, error) {
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.Now().UTC().Truncate(time.Second)
	result := &b2bsync.UpsertResult{}

	for _, p := range products {
		if p.ScrapedAt.IsZero() {
			p.ScrapedAt = now
		}
		p.UpdatedAt = now

		var (
			id, hash  string
			margin    decimal.Decimal
			deletedAt sql.NullString
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, margin_percentage, content_hash, deleted_at
			FROM products
			WHERE code = ?
		`, p.Code).Scan(&id, &margin, &hash, &deletedAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			p.ID = uuid.New().String()
			p.Reprice()
			if err := insertProduct(ctx, tx, p); err != nil {
				return nil, err
			}
			result.Inserted++
		case err != nil:
			return nil, err
		default:
			p.ID = id
			p.MarginPercentage = margin
			p.Reprice()
			p.DeletedAt = nil
			if deletedAt.Valid {
				t, err := parseRFC3339(deletedAt.String, "deleted_at")
				if err != nil {
					return nil, err
				}
				p.DeletedAt = &t
			}
			if err := updateProduct(ctx, tx, p); err != nil {
				return nil, err
			}
			if hash == p.Fingerprint() {
				result.Unchanged++
			} else {
				result.Updated++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func insertProduct(ctx context.Context, tx *sql.Tx, p *b2bsync.Product) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Code, p.Name, p.ListPrice.String(), p.BuyPriceExcludingVAT.String(), p.BuyPriceIncludingVAT.String(),
		p.Discount1.String(), p.Discount2.String(), p.Discount3.String(), p.VATRate.String(),
		p.MarginPercentage.String(), p.SalePrice.String(), p.ImageURL, p.LocalImagePath,
		formatTime(p.ScrapedAt), formatTime(p.UpdatedAt), nullTime(p.DeletedAt), p.Fingerprint())
	return err
}

func updateProduct(ctx context.Context, tx *sql.Tx, p *b2bsync.Product) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = ?, list_price = ?, buy_price_excl_vat = ?, buy_price_incl_vat = ?,
			discount1 = ?, discount2 = ?, discount3 = ?, vat_rate = ?, sale_price = ?,
			image_url = ?, local_image_path = ?, content_hash = ?, scraped_at = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.ListPrice.String(), p.BuyPriceExcludingVAT.String(), p.BuyPriceIncludingVAT.String(),
		p.Discount1.String(), p.Discount2.String(), p.Discount3.String(), p.VATRate.String(), p.SalePrice.String(),
		p.ImageURL, p.LocalImagePath, p.Fingerprint(), formatTime(p.ScrapedAt), formatTime(p.UpdatedAt),
		p.ID)
	return err
}

// FindProductByCode retrieves a product by its supplier code, including soft
// deleted products.
func (s *ProductService) FindProductByCode(ctx context.Context, code string) (*b2bsync.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE code = ?`, code)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, b2bsync.Errorf(b2bsync.ENOTFOUND, "product not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindProducts retrieves products matching the filter. Results are ordered
// by name, or oldest first when filtering by UpdatedBefore.
func (s *ProductService) FindProducts(ctx context.Context, filter b2bsync.ProductFilter) ([]*b2bsync.Product, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + productColumns + " FROM products WHERE 1=1")

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		term := "%" + escapeLike(strings.TrimSpace(*filter.Search)) + "%"
		query.WriteString(` AND (code LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\')`)
		args = append(args, term, term)
	}
	if !filter.IncludeDeleted {
		query.WriteString(" AND deleted_at IS NULL")
	}
	if filter.UpdatedBefore != nil {
		query.WriteString(" AND updated_at < ?")
		args = append(args, formatTime(*filter.UpdatedBefore))
		query.WriteString(" ORDER BY updated_at, name")
	} else {
		query.WriteString(" ORDER BY name, code")
	}

	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*b2bsync.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateMargin sets a product's margin and recomputes its sale price.
func (s *ProductService) UpdateMargin(ctx context.Context, code string, margin decimal.Decimal) (*b2bsync.Product, error) {
	if err := b2bsync.ValidateMargin(margin); err != nil {
		return nil, err
	}

	p, err := s.FindProductByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	p.MarginPercentage = margin
	p.Reprice()
	p.UpdatedAt = s.Now().UTC().Truncate(time.Second)

	_, err = s.db.ExecContext(ctx, `
		UPDATE products
		SET margin_percentage = ?, sale_price = ?, updated_at = ?
		WHERE id = ?
	`, p.MarginPercentage.String(), p.SalePrice.String(), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct soft deletes a product.
func (s *ProductService) DeleteProduct(ctx context.Context, code string) error {
	p, err := s.FindProductByCode(ctx, code)
	if err != nil {
		return err
	}
	if p.IsDeleted() {
		return b2bsync.Errorf(b2bsync.ECONFLICT, "product %s is already deleted", code)
	}

	_, err = s.db.ExecContext(ctx, "UPDATE products SET deleted_at = ? WHERE id = ?",
		formatTime(s.Now()), p.ID)
	return err
}

// RestoreProduct reverses a soft delete.
func (s *ProductService) RestoreProduct(ctx context.Context, code string) error {
	p, err := s.FindProductByCode(ctx, code)
	if err != nil {
		return err
	}
	if !p.IsDeleted() {
		return b2bsync.Errorf(b2bsync.ECONFLICT, "product %s is not deleted", code)
	}

	_, err = s.db.ExecContext(ctx, "UPDATE products SET deleted_at = NULL WHERE id = ?", p.ID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*b2bsync.Product, error) {
	var p b2bsync.Product
	var scrapedAt, updatedAt string
	var deletedAt sql.NullString

	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.ListPrice, &p.BuyPriceExcludingVAT, &p.BuyPriceIncludingVAT,
		&p.Discount1, &p.Discount2, &p.Discount3, &p.VATRate, &p.MarginPercentage, &p.SalePrice,
		&p.ImageURL, &p.LocalImagePath, &scrapedAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	var err error
	if p.ScrapedAt, err = parseRFC3339(scrapedAt, "scraped_at"); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t, err := parseRFC3339(deletedAt.String, "deleted_at")
		if err != nil {
			return nil, err
		}
		p.DeletedAt = &t
	}
	return &p, nil
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike escapes LIKE wildcards in a user supplied search term.
func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
