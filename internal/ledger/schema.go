package ledger

import (
	"fmt"
	"strings"
)

// SchemaIssue reports a logical column whose header was not found and the
// positional index used in its place.
type SchemaIssue struct {
	Column   string
	Fallback int
}

func (i SchemaIssue) String() string {
	return fmt.Sprintf("column %q not found in header, using position %d", i.Column, i.Fallback)
}

// SchemaError is returned in strict mode when a sheet header does not name
// every expected column.
type SchemaError struct {
	Sheet  string
	Issues []SchemaIssue
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Column
	}
	return fmt.Sprintf("sheet %s: missing header columns %s", e.Sheet, strings.Join(parts, ", "))
}

// schema maps logical columns (in header order) to cell indexes of a sheet.
type schema struct {
	index  []int
	issues []SchemaIssue
}

// resolveSchema looks each expected column up by name, case-insensitively.
// Columns that cannot be found fall back to their expected position; when a
// named column already claims that position they get a fresh column past the
// widest one in use, so writes never land on another column's cell.
func resolveSchema(header, expected []string) schema {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		k := strings.ToLower(strings.TrimSpace(h))
		if _, dup := byName[k]; k != "" && !dup {
			byName[k] = i
		}
	}

	s := schema{index: make([]int, len(expected))}
	claimed := make(map[int]bool, len(expected))
	next := len(header)
	var missing []int
	for i, name := range expected {
		if idx, ok := byName[strings.ToLower(name)]; ok {
			s.index[i] = idx
			claimed[idx] = true
			continue
		}
		missing = append(missing, i)
	}
	for _, i := range missing {
		if i+1 > next {
			next = i + 1
		}
	}
	for _, i := range missing {
		fallback := i
		if claimed[fallback] {
			fallback = next
			next++
		}
		claimed[fallback] = true
		s.index[i] = fallback
		s.issues = append(s.issues, SchemaIssue{Column: expected[i], Fallback: fallback})
	}
	return s
}

// cell returns the trimmed value of logical column col in row, or "".
func (s schema) cell(row []string, col int) string {
	idx := s.index[col]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
