package sheets

import (
	"context"
	"strings"
)

// Ports for outbound tabular stores. Row indexes are 1-based sheet rows: row 1 is
// the header, data starts at row 2. Cell values are returned as trimmed strings.
type (
	// Provisioner guarantees a sheet exists with header as its first row.
	Provisioner interface {
		EnsureSheet(ctx context.Context, sheet string, header []string) error
	}

	// RangeReader reads the full used range of a sheet, header row included.
	RangeReader interface {
		ReadAll(ctx context.Context, sheet string) ([][]string, error)
	}

	// RangeWriter mutates whole rows or single cells.
	RangeWriter interface {
		// AppendRow adds a row after the last non-empty row; ordering is store-determined.
		AppendRow(ctx context.Context, sheet string, row []any) error
		// UpdateRow overwrites the cells of row starting at column A.
		UpdateRow(ctx context.Context, sheet string, row int, values []any) error
		// UpdateCell overwrites a single cell; col is 0-based.
		UpdateCell(ctx context.Context, sheet string, row, col int, value any) error
		// DeleteRow structurally removes a row; later rows shift up by one.
		DeleteRow(ctx context.Context, sheet string, row int) error
		// ClearData empties every row below the header.
		ClearData(ctx context.Context, sheet string) error
		// WriteRows writes rows starting at startRow.
		WriteRows(ctx context.Context, sheet string, startRow int, rows [][]any) error
	}

	// TabularStore is the full range-based API the ledger needs.
	TabularStore interface {
		Provisioner
		RangeReader
		RangeWriter
	}
)

// Row helpers shared by adapters.

// ToStrings converts API cell values to trimmed strings.
func ToStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(stringify(v))
	}
	return out
}

// IsEmptyRow reports whether every cell is blank.
func IsEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// HeaderMatches reports whether the first cells of row equal header (case-insensitive).
func HeaderMatches(row, header []string) bool {
	if len(row) < len(header) {
		return false
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(row[i]), h) {
			return false
		}
	}
	return true
}

// ColumnLetter converts a 0-based column index to A1 notation ("A", "B", ... "AA").
func ColumnLetter(col int) string {
	var b []byte
	col++
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
