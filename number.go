package b2bsync

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeDecimal converts a supplier-locale number such as "2.498,00" into
// the invariant form "2498.00". The last comma is the decimal separator and
// dots before it are grouping separators. Without a comma every dot is a
// grouping separator. Empty input yields "0".
func NormalizeDecimal(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "0"
	}
	if i := strings.LastIndex(s, ","); i >= 0 {
		return strings.ReplaceAll(s[:i], ".", "") + "." + s[i+1:]
	}
	return strings.ReplaceAll(s, ".", "")
}

// currencyReplacer removes currency markers and spacing found in price cells.
var currencyReplacer = strings.NewReplacer(
	"₺", "",
	"TL", "",
	"EUR", "",
	"USD", "",
	"\u00a0", "",
	" ", "",
)

// ParsePrice parses the text content of a price cell.
func ParsePrice(text string) (decimal.Decimal, error) {
	s := NormalizeDecimal(currencyReplacer.Replace(text))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Errorf(EINVALID, "invalid price %q", text)
	}
	return d, nil
}

// ParseAttributeDecimal parses a decimal stored in an HTML attribute. These
// are already invariant, apart from an occasional comma separator. Invalid
// or empty values yield zero.
func ParseAttributeDecimal(raw string) decimal.Decimal {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
