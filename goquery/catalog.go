// Package goquery extracts catalog data from rendered supplier pages.
package goquery

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/b2bsync"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

// Ensure CatalogExtractor implements b2bsync.CatalogExtractor at compile time.
var _ b2bsync.CatalogExtractor = (*CatalogExtractor)(nil)

// Selector fallback chains, most precise first. The first selector that
// matches anything wins.
var (
	productSectionSelectors = []string{
		"section[id^='urun-']",
		"section[id]",
		"div[class*='product'], div[class*='item'], div[id*='product']",
	}

	priceTableSelectors = []string{
		"table[class='fiyat-tablosu']",
		"table[class*='fiyat']",
		"table",
	}

	paginationSelectors = []string{
		".pagination",
		".page-numbers",
		".pager",
		"[class*='pagination']",
		"[class*='page']",
	}
)

// Product section attributes.
const (
	attrName      = "title"
	attrCode      = "data-stok-kodu"
	attrVAT       = "data-kdv"
	attrDiscount1 = "data-isk1"
	attrDiscount2 = "data-isk2"
	attrDiscount3 = "data-isk3"
)

// CatalogExtractor reads products from the supplier's stock listing.
// CatalogExtractor is safe for concurrent use by multiple goroutines.
type CatalogExtractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a CatalogExtractor.
type Option func(*CatalogExtractor)

// WithLogger sets the logger used for skipped sections and unparseable prices.
func WithLogger(logger *slog.Logger) Option {
	return func(e *CatalogExtractor) {
		e.logger = logger
	}
}

// WithClock sets the function used to stamp ScrapedAt.
func WithClock(now func() time.Time) Option {
	return func(e *CatalogExtractor) {
		e.now = now
	}
}

// NewCatalogExtractor creates a new CatalogExtractor.
func NewCatalogExtractor(opts ...Option) *CatalogExtractor {
	e := &CatalogExtractor{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractProducts returns the products found on a catalog page. Sections
// missing a code or name are skipped; missing prices default to zero.
func (e *CatalogExtractor) ExtractProducts(html string, margin decimal.Decimal) ([]*b2bsync.Product, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, b2bsync.Errorf(b2bsync.EINVALID, "failed to parse HTML: %v", err)
	}

	sections := findFirst(doc.Selection, productSectionSelectors)
	if sections == nil {
		return nil, nil
	}

	scrapedAt := e.now().UTC()
	var products []*b2bsync.Product
	sections.Each(func(_ int, s *goquery.Selection) {
		p := e.extractSection(s)
		if err := p.Validate(); err != nil {
			e.logger.Warn("skipping product section",
				"code", p.Code,
				"name", p.Name,
				"reason", b2bsync.ErrorMessage(err),
			)
			return
		}
		p.MarginPercentage = margin
		p.ScrapedAt = scrapedAt
		p.Reprice()
		products = append(products, p)
	})

	return products, nil
}

func (e *CatalogExtractor) extractSection(s *goquery.Selection) *b2bsync.Product {
	p := &b2bsync.Product{
		Name:      strings.TrimSpace(s.AttrOr(attrName, "")),
		Code:      strings.TrimSpace(s.AttrOr(attrCode, "")),
		VATRate:   b2bsync.ParseAttributeDecimal(s.AttrOr(attrVAT, "")),
		Discount1: b2bsync.ParseAttributeDecimal(s.AttrOr(attrDiscount1, "")),
		Discount2: b2bsync.ParseAttributeDecimal(s.AttrOr(attrDiscount2, "")),
		Discount3: b2bsync.ParseAttributeDecimal(s.AttrOr(attrDiscount3, "")),
	}
	if p.Code == "" || p.Name == "" {
		return p
	}

	if table := findFirst(s, priceTableSelectors); table != nil {
		e.readPriceTable(p, table.First())
	}

	if src, ok := s.Find("img").First().Attr("src"); ok {
		p.ImageURL = strings.TrimSpace(src)
	}

	return p
}

// readPriceTable classifies each two-column row by its label cell.
func (e *CatalogExtractor) readPriceTable(p *b2bsync.Product, table *goquery.Selection) {
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		cell := cells.Eq(1)

		switch {
		case strings.Contains(label, "Liste"):
			p.ListPrice = e.parsePrice(p.Code, preferChild(cell, "del"))
		case strings.Contains(label, "Özel"), strings.Contains(label, "Hariç"):
			p.BuyPriceExcludingVAT = e.parsePrice(p.Code, cell.Text())
		case strings.Contains(label, "Dahil"), label == "":
			p.BuyPriceIncludingVAT = e.parsePrice(p.Code, preferChild(cell, "strong"))
		}
	})
}

func (e *CatalogExtractor) parsePrice(code, text string) decimal.Decimal {
	d, err := b2bsync.ParsePrice(text)
	if err != nil {
		e.logger.Debug("unparseable price", "code", code, "text", strings.TrimSpace(text))
		return decimal.Zero
	}
	return d
}

// DiscoverTotalPages returns the largest page number in the first
// pagination container found. It reports false when there is no container
// or no number greater than one.
func (e *CatalogExtractor) DiscoverTotalPages(html string) (int, bool) {
	doc, err := parseDocument(html)
	if err != nil {
		return 0, false
	}

	container := findFirst(doc.Selection, paginationSelectors)
	if container == nil {
		return 0, false
	}

	maxPage := 1
	container.First().Find("a, span").Each(func(_ int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(s.Text()))
		if err == nil && n > maxPage {
			maxPage = n
		}
	})
	if maxPage <= 1 {
		return 0, false
	}
	return maxPage, true
}

// parseDocument parses a page with the HTML5 algorithm browsers use, so the
// tree matches what the session rendered.
func parseDocument(page string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// findFirst returns the matches of the first selector that matches
// anything under root, or nil.
func findFirst(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// preferChild returns the text of the first child matching selector, or the
// whole cell text when there is none.
func preferChild(cell *goquery.Selection, selector string) string {
	if child := cell.Find(selector).First(); child.Length() > 0 {
		return child.Text()
	}
	return cell.Text()
}
