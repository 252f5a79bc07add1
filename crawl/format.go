package crawl

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatEvent renders a progress event as a single status line.
func FormatEvent(e ProgressEvent) string {
	prefix := fmt.Sprintf("[worker %d]", e.Worker)
	switch e.Type {
	case ProgressWorkerStarted:
		return fmt.Sprintf("%s pages %d-%d", prefix, e.Window.Start, e.Window.End)
	case ProgressLoginFailed:
		return fmt.Sprintf("%s login failed: %v", prefix, e.Error)
	case ProgressPageCompleted:
		return fmt.Sprintf("%s page %d: %d products", prefix, e.Page, e.Products)
	case ProgressPageSkipped:
		return fmt.Sprintf("%s page %d skipped: %v", prefix, e.Page, e.Error)
	case ProgressStoppedEarly:
		return fmt.Sprintf("%s no products since page %d, stopping", prefix, e.Page)
	case ProgressWorkerFinished:
		return fmt.Sprintf("%s done, %d products", prefix, e.Products)
	default:
		return prefix + " " + e.Type.String()
	}
}

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 4 {
		// Too short for "..." suffix.
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// FormatPrice renders d with two decimals in the catalog's locale: dots group
// thousands and a comma separates the fraction.
func FormatPrice(d decimal.Decimal) string {
	s := d.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
