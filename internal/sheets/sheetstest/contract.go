// Package sheetstest holds a behavioural contract every sheets.TabularStore
// adapter is expected to satisfy.
package sheetstest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsheet/internal/sheets"
)

// RunContract exercises provisioning and row mutations against a fresh store.
func RunContract(t *testing.T, newStore func(t *testing.T) sheets.TabularStore) {
	t.Helper()
	ctx := context.Background()
	header := []string{"Key", "Value"}

	t.Run("ensure sheet is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureSheet(ctx, "Settings", header))
		require.NoError(t, s.EnsureSheet(ctx, "Settings", header))

		rows, err := s.ReadAll(ctx, "Settings")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.True(t, sheets.HeaderMatches(rows[0], header))
	})

	t.Run("append update and delete rows", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureSheet(ctx, "Settings", header))
		require.NoError(t, s.AppendRow(ctx, "Settings", []any{"a", "1"}))
		require.NoError(t, s.AppendRow(ctx, "Settings", []any{"b", "2"}))
		require.NoError(t, s.AppendRow(ctx, "Settings", []any{"c", "3"}))

		require.NoError(t, s.UpdateRow(ctx, "Settings", 3, []any{"b", "20"}))
		require.NoError(t, s.UpdateCell(ctx, "Settings", 4, 1, "30"))

		rows, err := s.ReadAll(ctx, "Settings")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"b", "20"}, rows[2][:2])
		assert.Equal(t, "30", rows[3][1])

		require.NoError(t, s.DeleteRow(ctx, "Settings", 2))
		rows, err = s.ReadAll(ctx, "Settings")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "b", rows[1][0])
		assert.Equal(t, "c", rows[2][0])
	})

	t.Run("clear then write rows keeps header", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureSheet(ctx, "Budgets", []string{"Category", "Limit"}))
		require.NoError(t, s.AppendRow(ctx, "Budgets", []any{"Food", "100.00"}))
		require.NoError(t, s.ClearData(ctx, "Budgets"))
		require.NoError(t, s.WriteRows(ctx, "Budgets", 2, [][]any{{"Rent", "900.00"}, {"Travel", "50.00"}}))

		rows, err := s.ReadAll(ctx, "Budgets")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Category", rows[0][0])
		assert.Equal(t, "Rent", rows[1][0])
		assert.Equal(t, "Travel", rows[2][0])
	})

	t.Run("unknown sheet fails", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReadAll(ctx, "Nope")
		assert.Error(t, err)
	})
}
