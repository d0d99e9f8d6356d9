package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsheet/internal/config"
	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

func TestOpenLedger(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(dir string) *config.Config
	}{
		{"memory", func(dir string) *config.Config {
			return &config.Config{DataBackend: config.BackendMemory, DataDirectory: dir, LedgerTimezone: "Asia/Kolkata"}
		}},
		{"sqlite", func(dir string) *config.Config {
			return &config.Config{DataBackend: config.BackendSQLite, SQLiteDBPath: filepath.Join(dir, "ledger.db"), LedgerTimezone: "Asia/Kolkata"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, closeFn, err := OpenLedger(ctx, tt.cfg(t.TempDir()), log.Discard())
			require.NoError(t, err)
			defer closeFn()

			assert.Equal(t, "Asia/Kolkata", l.Location().String())
			require.NoError(t, l.Provision(ctx))

			added, err := l.Add(ctx, core.Expense{
				Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, l.Location()),
				Description: "Groceries",
				Amount:      decimal.RequireFromString("12.50"),
				Category:    "Food",
			})
			require.NoError(t, err)

			got, err := l.Get(ctx, added.ID)
			require.NoError(t, err)
			assert.Equal(t, "Groceries", got.Description)
		})
	}
}

func TestOpenLedgerRejectsBadTimezone(t *testing.T) {
	cfg := &config.Config{DataBackend: config.BackendMemory, DataDirectory: t.TempDir(), LedgerTimezone: "Mars/Olympus"}

	_, _, err := OpenLedger(context.Background(), cfg, log.Discard())
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
}

func TestOpenLedgerRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{DataBackend: "postgres"}

	_, _, err := OpenLedger(context.Background(), cfg, log.Discard())
	assert.Error(t, err)
}
