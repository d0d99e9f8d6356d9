// Package storage keeps spreadsheet-shaped tables in a local SQLite file. It
// backs offline use and integration tests with the same row semantics as the
// Google Sheets adapter.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"spendsheet/internal/sheets"
)

type Store struct {
	db *sql.DB
}

var _ sheets.TabularStore = (*Store)(nil)

// Open creates (if needed) and migrates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps row shifting serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sheets (name) VALUES (?)`, sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT cells FROM sheet_rows WHERE sheet = ? AND position = 1`, sheet).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read header of %s: %w", sheet, err)
		default:
			cells, err := decodeCells(raw)
			if err != nil {
				return err
			}
			if !sheets.IsEmptyRow(cells) {
				return nil
			}
		}
		values := make([]any, len(header))
		for i, h := range header {
			values[i] = h
		}
		if err := upsertRow(ctx, tx, sheet, 1, values); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Wrote sheet header", "sheet", sheet, "columns", len(header))
		return nil
	})
}

func (s *Store) ReadAll(ctx context.Context, sheet string) ([][]string, error) {
	if err := s.requireSheet(ctx, s.db, sheet); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT position, cells FROM sheet_rows WHERE sheet = ? ORDER BY position`, sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var (
			pos int
			raw string
		)
		if err := rows.Scan(&pos, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", sheet, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, err
		}
		for len(out) < pos-1 {
			out = append(out, []string{})
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", sheet, err)
	}
	return trimTrailingEmpty(out), nil
}

func (s *Store) AppendRow(ctx context.Context, sheet string, row []any) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireSheet(ctx, tx, sheet); err != nil {
			return err
		}
		last, err := lastUsedRow(ctx, tx, sheet)
		if err != nil {
			return err
		}
		return upsertRow(ctx, tx, sheet, last+1, row)
	})
}

func (s *Store) UpdateRow(ctx context.Context, sheet string, row int, values []any) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cells, err := s.loadRow(ctx, tx, sheet, row)
		if err != nil {
			return err
		}
		for i, v := range values {
			cells = setCell(cells, i, sheets.CellString(v))
		}
		return upsertRow(ctx, tx, sheet, row, toAny(cells))
	})
}

func (s *Store) UpdateCell(ctx context.Context, sheet string, row, col int, value any) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cells, err := s.loadRow(ctx, tx, sheet, row)
		if err != nil {
			return err
		}
		cells = setCell(cells, col, sheets.CellString(value))
		return upsertRow(ctx, tx, sheet, row, toAny(cells))
	})
}

// DeleteRow removes a row and shifts later rows up, like a structural sheet delete.
func (s *Store) DeleteRow(ctx context.Context, sheet string, row int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireSheet(ctx, tx, sheet); err != nil {
			return err
		}
		last, err := lastPosition(ctx, tx, sheet)
		if err != nil {
			return err
		}
		if row < 1 || row > last {
			return fmt.Errorf("row %d out of range in %q", row, sheet)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = ? AND position = ?`, sheet, row); err != nil {
			return fmt.Errorf("delete row %d of %s: %w", row, sheet, err)
		}
		// Two passes through negative positions avoid transient primary key clashes.
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET position = -(position - 1) WHERE sheet = ? AND position > ?`, sheet, row); err != nil {
			return fmt.Errorf("shift rows of %s: %w", sheet, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET position = -position WHERE sheet = ? AND position < 0`, sheet); err != nil {
			return fmt.Errorf("shift rows of %s: %w", sheet, err)
		}
		return nil
	})
}

func (s *Store) ClearData(ctx context.Context, sheet string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireSheet(ctx, tx, sheet); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = ? AND position > 1`, sheet); err != nil {
			return fmt.Errorf("clear %s: %w", sheet, err)
		}
		return nil
	})
}

func (s *Store) WriteRows(ctx context.Context, sheet string, startRow int, rows [][]any) error {
	if startRow < 1 {
		return fmt.Errorf("invalid start row %d", startRow)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireSheet(ctx, tx, sheet); err != nil {
			return err
		}
		for i, r := range rows {
			if err := upsertRow(ctx, tx, sheet, startRow+i, r); err != nil {
				return err
			}
		}
		return nil
	})
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) requireSheet(ctx context.Context, q querier, sheet string) error {
	var name string
	err := q.QueryRowContext(ctx, `SELECT name FROM sheets WHERE name = ?`, sheet).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	if err != nil {
		return fmt.Errorf("look up sheet %s: %w", sheet, err)
	}
	return nil
}

func (s *Store) loadRow(ctx context.Context, tx *sql.Tx, sheet string, row int) ([]string, error) {
	if err := s.requireSheet(ctx, tx, sheet); err != nil {
		return nil, err
	}
	last, err := lastPosition(ctx, tx, sheet)
	if err != nil {
		return nil, err
	}
	if row < 1 || row > last {
		return nil, fmt.Errorf("row %d out of range in %q", row, sheet)
	}
	var raw string
	err = tx.QueryRowContext(ctx, `SELECT cells FROM sheet_rows WHERE sheet = ? AND position = ?`, sheet, row).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read row %d of %s: %w", row, sheet, err)
	}
	return decodeCells(raw)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertRow(ctx context.Context, tx *sql.Tx, sheet string, pos int, values []any) error {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = sheets.CellString(v)
	}
	raw, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sheet_rows (sheet, position, cells) VALUES (?, ?, ?)
		ON CONFLICT (sheet, position) DO UPDATE SET cells = excluded.cells`,
		sheet, pos, string(raw))
	if err != nil {
		return fmt.Errorf("write row %d of %s: %w", pos, sheet, err)
	}
	return nil
}

func lastPosition(ctx context.Context, tx *sql.Tx, sheet string) (int, error) {
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM sheet_rows WHERE sheet = ?`, sheet).Scan(&last); err != nil {
		return 0, fmt.Errorf("last row of %s: %w", sheet, err)
	}
	return int(last.Int64), nil
}

// lastUsedRow is the last row holding a non-blank cell, never below the header.
func lastUsedRow(ctx context.Context, tx *sql.Tx, sheet string) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT position, cells FROM sheet_rows WHERE sheet = ? ORDER BY position DESC`, sheet)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", sheet, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pos int
			raw string
		)
		if err := rows.Scan(&pos, &raw); err != nil {
			return 0, err
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return 0, err
		}
		if pos == 1 || !sheets.IsEmptyRow(cells) {
			return pos, rows.Err()
		}
	}
	return 1, rows.Err()
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("decode row cells: %w", err)
	}
	return cells, nil
}

func setCell(cells []string, col int, v string) []string {
	for len(cells) <= col {
		cells = append(cells, "")
	}
	cells[col] = v
	return cells
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

func trimTrailingEmpty(rows [][]string) [][]string {
	for len(rows) > 1 && sheets.IsEmptyRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}
