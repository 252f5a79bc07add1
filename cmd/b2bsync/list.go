package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
)

// nameWidth is the column width for product names in listings.
const nameWidth = 40

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := b2bsync.ProductFilter{
		IncludeDeleted: c.Deleted,
		Limit:          c.Limit,
		Offset:         c.Offset,
	}
	if c.Search != "" {
		filter.Search = &c.Search
	}

	products, err := deps.Products.FindProducts(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}

	if len(products) == 0 {
		if c.Search != "" {
			fmt.Fprintf(deps.Stdout, "No products match %q.\n", c.Search)
			return nil
		}
		fmt.Fprintln(deps.Stdout, "No products found. Use 'b2bsync crawl' to fetch the catalog.")
		return nil
	}

	writeProducts(deps.Stdout, products)
	return nil
}

// Run executes the outdated command.
func (c *OutdatedCmd) Run(deps *Dependencies) error {
	if c.Months <= 0 {
		err := b2bsync.Errorf(b2bsync.EINVALID, "months must be positive")
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}

	threshold := deps.now().UTC().AddDate(0, -c.Months, 0)
	products, err := deps.Products.FindProducts(deps.Ctx, b2bsync.ProductFilter{UpdatedBefore: &threshold})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "%d products not updated since %s\n", len(products), threshold.Format("2006-01-02"))
	if len(products) == 0 {
		return nil
	}
	fmt.Fprintln(deps.Stdout)
	for _, p := range products {
		fmt.Fprintf(deps.Stdout, "%-16s %-*s  %s\n",
			p.Code, nameWidth, crawl.Truncate(p.Name, nameWidth), p.UpdatedAt.Format("2006-01-02"))
	}
	return nil
}

func writeProducts(w io.Writer, products []*b2bsync.Product) {
	fmt.Fprintf(w, "%-16s %-*s %14s %14s %7s\n", "CODE", nameWidth, "NAME", "BUY (EX VAT)", "SALE", "MARGIN")
	for _, p := range products {
		var flags []string
		if p.IsDeleted() {
			flags = append(flags, "deleted")
		}
		line := fmt.Sprintf("%-16s %-*s %14s %14s %6s%%",
			p.Code,
			nameWidth, crawl.Truncate(p.Name, nameWidth),
			crawl.FormatPrice(p.BuyPriceExcludingVAT),
			crawl.FormatPrice(p.SalePrice),
			p.MarginPercentage.String(),
		)
		if len(flags) > 0 {
			line += "  [" + strings.Join(flags, ",") + "]"
		}
		fmt.Fprintln(w, line)
	}
}
