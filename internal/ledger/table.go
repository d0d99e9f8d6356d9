package ledger

import (
	"context"
	"fmt"

	"spendsheet/internal/log"
	"spendsheet/internal/sheets"
)

// record is one data row together with its 1-based sheet row number.
type record struct {
	row   int
	cells []string
}

// table is a header-resolved snapshot of one sheet.
type table struct {
	name    string
	schema  schema
	records []record
}

// load provisions sheet, reads it and resolves its header against header.
func (l *Ledger) load(ctx context.Context, sheet string, header []string) (*table, error) {
	if err := l.store.EnsureSheet(ctx, sheet, header); err != nil {
		return nil, err
	}
	rows, err := l.store.ReadAll(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}

	var first []string
	if len(rows) > 0 {
		first = rows[0]
	}
	sc := resolveSchema(first, header)
	if len(sc.issues) > 0 {
		if l.strict {
			return nil, &SchemaError{Sheet: sheet, Issues: sc.issues}
		}
		for _, is := range sc.issues {
			l.logger.WarnContext(ctx, "Sheet header mismatch", log.FieldSheet, sheet, "issue", is.String())
		}
	}

	t := &table{name: sheet, schema: sc}
	for i := 1; i < len(rows); i++ {
		if sheets.IsEmptyRow(rows[i]) {
			continue
		}
		t.records = append(t.records, record{row: i + 1, cells: rows[i]})
	}
	return t, nil
}

// get returns logical column col of r.
func (t *table) get(r record, col int) string {
	return t.schema.cell(r.cells, col)
}

// find returns the first record whose key column satisfies match.
func (t *table) find(match func(key string) bool) (record, bool) {
	for _, r := range t.records {
		if match(t.get(r, 0)) {
			return r, true
		}
	}
	return record{}, false
}

// column returns the physical index of logical column col for writes.
func (t *table) column(col int) int {
	return t.schema.index[col]
}

// row lays values out in the sheet's physical column order on top of base,
// so cells outside the known columns keep their content.
func (t *table) row(values []any, base []string) []any {
	width := max(len(values), len(base))
	for _, idx := range t.schema.index {
		if idx+1 > width {
			width = idx + 1
		}
	}
	out := make([]any, width)
	for i := range out {
		out[i] = ""
		if i < len(base) {
			out[i] = base[i]
		}
	}
	for col, v := range values {
		out[t.column(col)] = v
	}
	return out
}

func (l *Ledger) appendRow(ctx context.Context, t *table, values []any) error {
	if err := l.store.AppendRow(ctx, t.name, t.row(values, nil)); err != nil {
		return fmt.Errorf("append to %s: %w", t.name, err)
	}
	return nil
}

func (l *Ledger) updateRow(ctx context.Context, t *table, r record, values []any) error {
	if err := l.store.UpdateRow(ctx, t.name, r.row, t.row(values, r.cells)); err != nil {
		return fmt.Errorf("update %s row %d: %w", t.name, r.row, err)
	}
	return nil
}

func (l *Ledger) updateCell(ctx context.Context, t *table, r record, col int, value any) error {
	if err := l.store.UpdateCell(ctx, t.name, r.row, t.column(col), value); err != nil {
		return fmt.Errorf("update %s row %d: %w", t.name, r.row, err)
	}
	return nil
}

func (l *Ledger) deleteRow(ctx context.Context, t *table, r record) error {
	if err := l.store.DeleteRow(ctx, t.name, r.row); err != nil {
		return fmt.Errorf("delete %s row %d: %w", t.name, r.row, err)
	}
	return nil
}
