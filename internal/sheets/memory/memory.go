package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"spendsheet/internal/sheets"
)

// Store is an in-process tabular store. It mirrors the Google Sheets adapter's
// row semantics closely enough to back development and tests.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

var _ sheets.TabularStore = (*Store)(nil)

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

// NewFromFiles seeds the Categories sheet from base/seed_categories.txt when present.
func NewFromFiles(base, categoriesSheet string) *Store {
	s := New()
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		return s
	}
	rows := [][]string{{"Name"}}
	for _, c := range cats {
		rows = append(rows, []string{c})
	}
	s.sheets[categoriesSheet] = rows
	return s
}

func (s *Store) EnsureSheet(_ context.Context, sheet string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	if !ok || len(rows) == 0 {
		s.sheets[sheet] = [][]string{append([]string(nil), header...)}
		return nil
	}
	if sheets.IsEmptyRow(rows[0]) {
		rows[0] = append([]string(nil), header...)
	}
	return nil
}

func (s *Store) ReadAll(_ context.Context, sheet string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *Store) AppendRow(_ context.Context, sheet string, row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	// Like values.append, the row lands after the last non-empty row.
	last := len(rows)
	for last > 1 && sheets.IsEmptyRow(rows[last-1]) {
		last--
	}
	rows = append(rows[:last], toCells(row))
	s.sheets[sheet] = rows
	return nil
}

func (s *Store) UpdateRow(_ context.Context, sheet string, row int, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.rowsFor(sheet, row)
	if err != nil {
		return err
	}
	cells := rows[row-1]
	for i, v := range values {
		cells = setCell(cells, i, sheets.CellString(v))
	}
	rows[row-1] = cells
	return nil
}

func (s *Store) UpdateCell(_ context.Context, sheet string, row, col int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.rowsFor(sheet, row)
	if err != nil {
		return err
	}
	rows[row-1] = setCell(rows[row-1], col, sheets.CellString(value))
	return nil
}

func (s *Store) DeleteRow(_ context.Context, sheet string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	if row < 1 || row > len(rows) {
		return fmt.Errorf("row %d out of range in %q", row, sheet)
	}
	s.sheets[sheet] = append(rows[:row-1], rows[row:]...)
	return nil
}

func (s *Store) ClearData(_ context.Context, sheet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	if len(rows) > 1 {
		s.sheets[sheet] = rows[:1]
	}
	return nil
}

func (s *Store) WriteRows(_ context.Context, sheet string, startRow int, values [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	if startRow < 1 {
		return fmt.Errorf("invalid start row %d", startRow)
	}
	for i, v := range values {
		idx := startRow - 1 + i
		for len(rows) <= idx {
			rows = append(rows, nil)
		}
		rows[idx] = toCells(v)
	}
	s.sheets[sheet] = rows
	return nil
}

func (s *Store) rowsFor(sheet string, row int) ([][]string, error) {
	rows, ok := s.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	if row < 1 || row > len(rows) {
		return nil, fmt.Errorf("row %d out of range in %q", row, sheet)
	}
	return rows, nil
}

func toCells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = sheets.CellString(v)
	}
	return out
}

func setCell(cells []string, col int, v string) []string {
	for len(cells) <= col {
		cells = append(cells, "")
	}
	cells[col] = v
	return cells
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
