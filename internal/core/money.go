// Package core provides money parsing and handling utilities.
//
// Amounts are kept as decimal.Decimal so sheet values round-trip without float
// drift. Both dot (12.34) and comma (12,34) decimal separators are accepted.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user- or sheet-supplied decimal string into a
// non-negative amount rounded to two places.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("₹1,200") -> error (thousands separators are not guessed)
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// groupedInteger matches integers with western (1,234,567) or Indian
// (12,34,567) digit grouping. A lone two-digit tail ("12,34") is a decimal comma.
var groupedInteger = regexp.MustCompile(`^\d{1,3}(,\d{2,3})*,\d{3}$`)

// ParseCellAmount is the lenient variant used on sheet reads: it also accepts a
// leading currency symbol and grouping commas as rendered by spreadsheet
// formatting ("₹1,234.50", "₹1,234", "1,23,456").
func ParseCellAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ".") || groupedInteger.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount with exactly two decimals, the format written
// to the sheet.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
