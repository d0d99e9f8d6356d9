// Package ledger maps expense, category, budget and setting records onto the
// rows of a tabular store.
//
// Every operation provisions its sheet, reads the whole used range and works
// on the in-memory copy. Writes locate rows by a linear scan of the first
// column and then mutate by row offset. The ledger assumes a single writer:
// writes are serialized within this process, but a second process writing to
// the same spreadsheet can still race the id allocator or shift row offsets.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
	"spendsheet/internal/sheets"
)

// Sheet names and their header rows.
const (
	SheetTransactions = "Transactions"
	SheetCategories   = "Categories"
	SheetBudgets      = "Budgets"
	SheetSettings     = "Settings"
)

var (
	TransactionsHeader = []string{"ID", "Date", "Description", "Category", "Amount", "Paid"}
	CategoriesHeader   = []string{"Name"}
	BudgetsHeader      = []string{"Category", "Limit"}
	SettingsHeader     = []string{"Key", "Value"}
)

// EventPublisher receives committed ledger mutations. Failures are logged and
// never fail the mutation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

type Options struct {
	// Location is the zone naive sheet dates are interpreted in.
	Location *time.Location
	// Strict turns header resolution issues into errors instead of warnings.
	Strict bool
	Logger *log.Logger
	// Publishers are notified after every successful write.
	Publishers []EventPublisher
}

type Ledger struct {
	store      sheets.TabularStore
	loc        *time.Location
	strict     bool
	logger     *log.Logger
	publishers []EventPublisher
	now        func() time.Time

	// mu serializes writes: id allocation and scan-then-mutate.
	mu sync.Mutex
}

func New(store sheets.TabularStore, opts Options) *Ledger {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Ledger{
		store:      store,
		loc:        loc,
		strict:     opts.Strict,
		logger:     logger.WithComponent(log.ComponentLedger),
		publishers: opts.Publishers,
		now:        time.Now,
	}
}

// Location returns the storage time zone.
func (l *Ledger) Location() *time.Location { return l.loc }

// AddPublisher registers p for subsequent writes. Not safe to call concurrently with writes.
func (l *Ledger) AddPublisher(p EventPublisher) {
	l.publishers = append(l.publishers, p)
}

// Provision ensures all four sheets exist with their headers.
func (l *Ledger) Provision(ctx context.Context) error {
	for _, t := range []struct {
		name   string
		header []string
	}{
		{SheetTransactions, TransactionsHeader},
		{SheetCategories, CategoriesHeader},
		{SheetBudgets, BudgetsHeader},
		{SheetSettings, SettingsHeader},
	} {
		if err := l.store.EnsureSheet(ctx, t.name, t.header); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) publish(ctx context.Context, ev core.LedgerEvent) {
	if len(l.publishers) == 0 {
		return
	}
	ev.ID = uuid.NewString()
	ev.Timestamp = l.now().UTC()
	for _, p := range l.publishers {
		if err := p.PublishLedgerEvent(ctx, ev); err != nil {
			l.logger.WarnContext(ctx, "Failed to publish ledger event",
				log.FieldEventType, ev.Type, log.FieldError, err)
		}
	}
}
