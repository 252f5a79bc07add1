package b2bsync

import "github.com/shopspring/decimal"

// CatalogExtractor reads products and pagination data from a rendered
// catalog page.
type CatalogExtractor interface {
	// ExtractProducts returns every complete product section on the page.
	// Sections missing a code or name are skipped.
	ExtractProducts(html string, margin decimal.Decimal) ([]*Product, error)

	// DiscoverTotalPages returns the highest page number shown by the
	// pagination control. The boolean is false when none was found.
	DiscoverTotalPages(html string) (int, bool)
}

// PageWindow is a contiguous range of catalog pages owned by one worker.
type PageWindow struct {
	Start int
	End   int
}

// Len returns the number of pages in the window.
func (w PageWindow) Len() int {
	return w.End - w.Start + 1
}

// PartitionPages splits [1, total] into contiguous windows, one per worker.
// The last window absorbs the remainder. Workers are clamped to [1, total] so
// that no window is empty.
func PartitionPages(total, workers int) []PageWindow {
	if total <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	size := total / workers
	windows := make([]PageWindow, 0, workers)
	for i := 0; i < workers; i++ {
		start := i*size + 1
		end := start + size - 1
		if i == workers-1 {
			end = total
		}
		windows = append(windows, PageWindow{Start: start, End: end})
	}
	return windows
}
