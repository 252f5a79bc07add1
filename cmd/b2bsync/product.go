package main

import (
	"fmt"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	p, err := deps.Products.FindProductByCode(deps.Ctx, c.Code)
	if err != nil {
		if b2bsync.ErrorCode(err) == b2bsync.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: product %q not found. Use 'b2bsync list --search' to find it.\n", c.Code)
			return err
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}

	w := deps.Stdout
	fmt.Fprintf(w, "Code:              %s\n", p.Code)
	fmt.Fprintf(w, "Name:              %s\n", p.Name)
	fmt.Fprintf(w, "List price:        %s\n", crawl.FormatPrice(p.ListPrice))
	fmt.Fprintf(w, "Buy price ex VAT:  %s\n", crawl.FormatPrice(p.BuyPriceExcludingVAT))
	fmt.Fprintf(w, "Buy price inc VAT: %s\n", crawl.FormatPrice(p.BuyPriceIncludingVAT))
	fmt.Fprintf(w, "Discounts:         %s%% / %s%% / %s%%\n", p.Discount1, p.Discount2, p.Discount3)
	fmt.Fprintf(w, "VAT:               %s%%\n", p.VATRate)
	fmt.Fprintf(w, "Margin:            %s%%\n", p.MarginPercentage)
	fmt.Fprintf(w, "Sale price ex VAT: %s\n", crawl.FormatPrice(p.SalePriceExcludingVAT()))
	fmt.Fprintf(w, "Sale price:        %s\n", crawl.FormatPrice(p.SalePrice))
	if p.ImageURL != "" {
		fmt.Fprintf(w, "Image URL:         %s\n", p.ImageURL)
	}
	if p.LocalImagePath != "" {
		fmt.Fprintf(w, "Local image:       %s\n", p.LocalImagePath)
	}
	fmt.Fprintf(w, "Scraped:           %s\n", p.ScrapedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Updated:           %s\n", p.UpdatedAt.Format("2006-01-02 15:04"))
	if p.DeletedAt != nil {
		fmt.Fprintf(w, "Deleted:           %s\n", p.DeletedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// Run executes the margin command.
func (c *MarginCmd) Run(deps *Dependencies) error {
	margin, err := parseMargin(c.Percentage)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}

	p, err := deps.Products.UpdateMargin(deps.Ctx, c.Code, margin)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Set margin of %s to %s%% (sale price %s)\n",
		p.Code, p.MarginPercentage, crawl.FormatPrice(p.SalePrice))
	return nil
}

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if err := deps.Products.DeleteProduct(deps.Ctx, c.Code); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Deleted product %s. Use 'b2bsync restore %s' to undo.\n", c.Code, c.Code)
	return nil
}

// Run executes the restore command.
func (c *RestoreCmd) Run(deps *Dependencies) error {
	if err := deps.Products.RestoreProduct(deps.Ctx, c.Code); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", b2bsync.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Restored product %s\n", c.Code)
	return nil
}
