package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
	"spendsheet/internal/sheets"
	"spendsheet/internal/sheets/memory"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

// countingStore counts mutating calls on top of a real store.
type countingStore struct {
	sheets.TabularStore
	mu     sync.Mutex
	writes int
}

func (c *countingStore) bump() {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
}

func (c *countingStore) AppendRow(ctx context.Context, s string, row []any) error {
	c.bump()
	return c.TabularStore.AppendRow(ctx, s, row)
}

func (c *countingStore) UpdateRow(ctx context.Context, s string, row int, v []any) error {
	c.bump()
	return c.TabularStore.UpdateRow(ctx, s, row, v)
}

func (c *countingStore) UpdateCell(ctx context.Context, s string, row, col int, v any) error {
	c.bump()
	return c.TabularStore.UpdateCell(ctx, s, row, col, v)
}

func (c *countingStore) DeleteRow(ctx context.Context, s string, row int) error {
	c.bump()
	return c.TabularStore.DeleteRow(ctx, s, row)
}

func (c *countingStore) ClearData(ctx context.Context, s string) error {
	c.bump()
	return c.TabularStore.ClearData(ctx, s)
}

func (c *countingStore) WriteRows(ctx context.Context, s string, start int, rows [][]any) error {
	c.bump()
	return c.TabularStore.WriteRows(ctx, s, start, rows)
}

func (c *countingStore) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// brokenStore fails every call.
type brokenStore struct{ calls int }

var errBroken = errors.New("store unavailable")

func (b *brokenStore) EnsureSheet(context.Context, string, []string) error { b.calls++; return errBroken }
func (b *brokenStore) ReadAll(context.Context, string) ([][]string, error) {
	b.calls++
	return nil, errBroken
}
func (b *brokenStore) AppendRow(context.Context, string, []any) error { b.calls++; return errBroken }
func (b *brokenStore) UpdateRow(context.Context, string, int, []any) error {
	b.calls++
	return errBroken
}
func (b *brokenStore) UpdateCell(context.Context, string, int, int, any) error {
	b.calls++
	return errBroken
}
func (b *brokenStore) DeleteRow(context.Context, string, int) error { b.calls++; return errBroken }
func (b *brokenStore) ClearData(context.Context, string) error      { b.calls++; return errBroken }
func (b *brokenStore) WriteRows(context.Context, string, int, [][]any) error {
	b.calls++
	return errBroken
}

type recordingPublisher struct {
	events []core.LedgerEvent
}

func (r *recordingPublisher) PublishLedgerEvent(_ context.Context, ev core.LedgerEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *countingStore) {
	t.Helper()
	store := &countingStore{TabularStore: memory.New()}
	return New(store, Options{Location: ist, Logger: log.Discard()}), store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, ist)
}

func mustAdd(t *testing.T, l *Ledger, desc, cat string, amount string, date time.Time) core.Expense {
	t.Helper()
	e, err := l.Add(context.Background(), core.Expense{
		Date:        date,
		Description: desc,
		Category:    cat,
		Amount:      decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return e
}

func seedTransactions(t *testing.T, store sheets.TabularStore, rows ...[]any) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureSheet(ctx, SheetTransactions, TransactionsHeader))
	for _, r := range rows {
		require.NoError(t, store.AppendRow(ctx, SheetTransactions, r))
	}
}

func TestListDropsRowsWithNonNumericAmount(t *testing.T) {
	l, store := newTestLedger(t)
	seedTransactions(t, store,
		[]any{"1", "2024-03-01", "Lunch", "Food", "120.50", ""},
		[]any{"2", "2024-03-02", "Broken", "Food", "abc", ""},
		[]any{"3", "2024-03-03", "Blank amount", "Food", "", ""},
		[]any{"", "", "", "", "", ""},
		[]any{"4", "2024-03-04", "Bus", "Transport", "₹1,200.00", ""},
	)

	got, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, "1", got[1].ID)
}

func TestAddThenListRoundTrip(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	paid := true

	in := core.Expense{
		Date:        time.Date(2024, 3, 5, 22, 15, 0, 0, ist),
		Description: "Card bill",
		Category:    core.CategoryCreditCard,
		Amount:      decimal.RequireFromString("4999.90"),
		Paid:        &paid,
	}
	added, err := l.Add(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "1", added.ID)

	got, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, added.ID, e.ID)
	assert.Equal(t, in.Description, e.Description)
	assert.Equal(t, in.Category, e.Category)
	assert.True(t, in.Amount.Equal(e.Amount), "amount %s", e.Amount)
	assert.True(t, e.Date.Equal(day(2024, 3, 5)), "date %s", e.Date)
	require.NotNil(t, e.Paid)
	assert.True(t, *e.Paid)

	second := mustAdd(t, l, "Tea", "Food", "20", day(2024, 3, 6))
	assert.Equal(t, "2", second.ID)
	assert.Nil(t, second.Paid)
}

func TestAddAllocatesAfterMaxID(t *testing.T) {
	l, store := newTestLedger(t)
	seedTransactions(t, store,
		[]any{"7", "2024-01-01", "a", "Food", "1", ""},
		[]any{"x", "2024-01-01", "b", "Food", "1", ""},
		[]any{"3", "2024-01-01", "c", "Food", "1", ""},
	)
	e := mustAdd(t, l, "d", "Food", "1", day(2024, 1, 2))
	assert.Equal(t, "8", e.ID)
}

func TestAddRejectsInvalidExpense(t *testing.T) {
	l, store := newTestLedger(t)
	_, err := l.Add(context.Background(), core.Expense{Date: day(2024, 1, 1), Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrEmptyDescription)
	assert.Zero(t, store.Writes())
}

func TestProvisionIsIdempotent(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Provision(ctx))
	require.NoError(t, l.Provision(ctx))

	for _, sheet := range []string{SheetTransactions, SheetCategories, SheetBudgets, SheetSettings} {
		rows, err := store.ReadAll(ctx, sheet)
		require.NoError(t, err)
		assert.Len(t, rows, 1, sheet)
	}
}

func TestDeleteBuiltinCategoryIsRejected(t *testing.T) {
	broken := &brokenStore{}
	l := New(broken, Options{Location: ist, Logger: log.Discard()})
	for _, c := range core.BuiltinCategories {
		err := l.DeleteCategory(context.Background(), c)
		assert.ErrorIs(t, err, core.ErrBuiltinCategory, c)
	}
	assert.Zero(t, broken.calls, "built-in check must not reach the store")

	// Even when the remote sheet lists it.
	l2, store := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureSheet(ctx, SheetCategories, CategoriesHeader))
	require.NoError(t, store.AppendRow(ctx, SheetCategories, []any{"Food"}))
	assert.ErrorIs(t, l2.DeleteCategory(ctx, "food"), core.ErrBuiltinCategory)
}

func TestUpdateAndDeleteMissingIDDoNotMutate(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	mustAdd(t, l, "Lunch", "Food", "10", day(2024, 3, 1))
	before := store.Writes()

	_, err := l.Update(ctx, "99", core.Expense{Date: day(2024, 3, 1), Description: "x", Category: "Food", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, l.Delete(ctx, "99"), core.ErrNotFound)
	assert.Equal(t, before, store.Writes())

	got, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lunch", got[0].Description)
}

func TestUpdateAndDelete(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	a := mustAdd(t, l, "Lunch", "Food", "10", day(2024, 3, 1))
	b := mustAdd(t, l, "Taxi", "Transport", "25", day(2024, 3, 2))
	c := mustAdd(t, l, "Movie", "Entertainment", "300", day(2024, 3, 3))

	updated, err := l.Update(ctx, b.ID, core.Expense{
		Date: day(2024, 3, 4), Description: "Cab", Category: "Transport", Amount: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ID)

	got, err := l.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cab", got.Description)
	assert.True(t, got.Date.Equal(day(2024, 3, 4)))

	require.NoError(t, l.Delete(ctx, a.ID))
	all, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Equal(t, c.ID, all[1].ID)

	_, err = l.Get(ctx, a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestYearsAndMonthListing(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	mustAdd(t, l, "m1", "Food", "1", day(2024, 3, 2))
	mustAdd(t, l, "m2", "Food", "2", day(2024, 3, 20))
	mustAdd(t, l, "m3", "Food", "3", day(2024, 3, 11))
	mustAdd(t, l, "a1", "Food", "4", day(2024, 4, 1))

	years, err := l.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, years)

	march, err := l.ListByMonth(ctx, 2024, 3)
	require.NoError(t, err)
	require.Len(t, march, 3)
	assert.Equal(t, "m2", march[0].Description)
	assert.Equal(t, "m3", march[1].Description)
	assert.Equal(t, "m1", march[2].Description)

	_, err = l.ListByMonth(ctx, 2024, 13)
	assert.Error(t, err)
}

func TestYearsMostRecentFirst(t *testing.T) {
	l, _ := newTestLedger(t)
	mustAdd(t, l, "a", "Food", "1", day(2022, 5, 1))
	mustAdd(t, l, "b", "Food", "1", day(2024, 5, 1))
	mustAdd(t, l, "c", "Food", "1", day(2023, 5, 1))
	mustAdd(t, l, "d", "Food", "1", day(2024, 6, 1))

	years, err := l.Years(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023, 2022}, years)

	y23, err := l.ListByYear(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, y23, 1)
	assert.Equal(t, "c", y23[0].Description)
}

func TestSearch(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	mustAdd(t, l, "Coffee with Bob", "Food", "150", day(2023, 7, 1))
	mustAdd(t, l, "Groceries", "Groceries", "900", day(2024, 1, 1))

	got, err := l.Search(ctx, "coffee")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee with Bob", got[0].Description)

	none, err := l.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	empty, err := l.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSetBudgetOverwrites(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	_, err := l.SetBudget(ctx, core.Budget{Category: "Food", Limit: decimal.NewFromInt(5000)})
	require.NoError(t, err)
	_, err = l.SetBudget(ctx, core.Budget{Category: "Rent", Limit: decimal.NewFromInt(20000)})
	require.NoError(t, err)
	bs, err := l.SetBudget(ctx, core.Budget{Category: "food", Limit: decimal.NewFromInt(6000)})
	require.NoError(t, err)
	assert.Len(t, bs, 2)

	stored, err := l.Budgets(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	food, ok := stored.Find("Food")
	require.True(t, ok)
	assert.True(t, food.Limit.Equal(decimal.NewFromInt(6000)))

	rows, err := store.ReadAll(ctx, SheetBudgets)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus one row per category")

	bs, err = l.DeleteBudget(ctx, "rent")
	require.NoError(t, err)
	assert.Len(t, bs, 1)
	_, err = l.DeleteBudget(ctx, "rent")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSaveBudgetsReplacesAll(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	_, err := l.SetBudget(ctx, core.Budget{Category: "Travel", Limit: decimal.NewFromInt(100)})
	require.NoError(t, err)

	saved, err := l.SaveBudgets(ctx, core.Budgets{
		{Category: "Food", Limit: decimal.NewFromInt(1)},
		{Category: "Food", Limit: decimal.NewFromInt(2)},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	stored, err := l.Budgets(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Food", stored[0].Category)
	assert.True(t, stored[0].Limit.Equal(decimal.NewFromInt(2)))

	_, err = l.SaveBudgets(ctx, core.Budgets{{Category: "X", Limit: decimal.NewFromInt(-1)}})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestCategories(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	name, err := l.AddCategory(ctx, "  Pets ")
	require.NoError(t, err)
	assert.Equal(t, "Pets", name)

	_, err = l.AddCategory(ctx, "pets")
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
	_, err = l.AddCategory(ctx, "FOOD")
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
	_, err = l.AddCategory(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyCategory)

	all, err := l.Categories(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, "Pets")
	assert.Len(t, all, len(core.BuiltinCategories)+1)

	require.NoError(t, l.DeleteCategory(ctx, "PETS"))
	assert.ErrorIs(t, l.DeleteCategory(ctx, "Pets"), core.ErrNotFound)

	custom, err := l.CustomCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, custom)
}

func TestSettingsAndMasterPassword(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	has, err := l.HasMasterPassword(ctx)
	require.NoError(t, err)
	assert.False(t, has)
	ok, err := l.VerifyMasterPassword(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, ok, "no password configured lets every edit through")

	require.NoError(t, l.SetMasterPassword(ctx, "", "s3cret"))
	ok, err = l.VerifyMasterPassword(ctx, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = l.VerifyMasterPassword(ctx, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, l.SetMasterPassword(ctx, "wrong", "x"), core.ErrUnauthorized)
	require.NoError(t, l.SetMasterPassword(ctx, "s3cret", "n3w"))

	rows, err := store.ReadAll(ctx, SheetSettings)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "password is updated in place")

	require.NoError(t, l.SetSetting(ctx, "theme", "dark"))
	v, found, err := l.Setting(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dark", v)

	require.NoError(t, l.DeleteSetting(ctx, "theme"))
	assert.ErrorIs(t, l.DeleteSetting(ctx, "theme"), core.ErrNotFound)

	require.NoError(t, l.SetMasterPassword(ctx, "n3w", ""))
	has, err = l.HasMasterPassword(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestReadFailuresAreReturned(t *testing.T) {
	l := New(&brokenStore{}, Options{Location: ist, Logger: log.Discard()})
	ctx := context.Background()

	_, err := l.List(ctx)
	assert.ErrorIs(t, err, errBroken)
	_, err = l.Years(ctx)
	assert.ErrorIs(t, err, errBroken)
	_, err = l.Categories(ctx)
	assert.ErrorIs(t, err, errBroken)
	_, err = l.Budgets(ctx)
	assert.ErrorIs(t, err, errBroken)
}

func TestHeaderResolvedByName(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureSheet(ctx, SheetTransactions, []string{"amount", "description", "ID", "date", "category", "paid"}))
	require.NoError(t, store.AppendRow(ctx, SheetTransactions, []any{"42.00", "Reordered", "5", "2024-02-01", "Bills", ""}))

	got, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "5", got[0].ID)
	assert.Equal(t, "Reordered", got[0].Description)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(42)))

	e := mustAdd(t, l, "Next", "Bills", "1", day(2024, 2, 2))
	assert.Equal(t, "6", e.ID)
	rows, err := store.ReadAll(ctx, SheetTransactions)
	require.NoError(t, err)
	assert.Equal(t, "6", rows[2][2], "id lands in the ID column")
}

func TestMissingHeaderFallsBackOrFailsInStrictMode(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.EnsureSheet(ctx, SheetTransactions, []string{"ID", "Date", "Note", "Category", "Amount", "Paid"}))
	require.NoError(t, store.AppendRow(ctx, SheetTransactions, []any{"1", "2024-02-01", "Fallback", "Bills", "5", ""}))

	lenient := New(store, Options{Location: ist, Logger: log.Discard()})
	got, err := lenient.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Fallback", got[0].Description)

	strict := New(store, Options{Location: ist, Logger: log.Discard(), Strict: true})
	_, err = strict.List(ctx)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Issues, 1)
	assert.Equal(t, "Description", schemaErr.Issues[0].Column)
	assert.Equal(t, 2, schemaErr.Issues[0].Fallback)
}

func TestMissingCategoryDefaultsToOtherAndPaidOnlyForCreditCard(t *testing.T) {
	l, store := newTestLedger(t)
	seedTransactions(t, store,
		[]any{"1", "2024-02-01", "Mystery", "", "5", "TRUE"},
		[]any{"2", "2024-02-02", "Card", "Credit Card", "5", "FALSE"},
	)
	got, err := l.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.CategoryOther, got[1].Category)
	assert.Nil(t, got[1].Paid)
	require.NotNil(t, got[0].Paid)
	assert.False(t, *got[0].Paid)
}

func TestWritesPublishEvents(t *testing.T) {
	pub := &recordingPublisher{}
	l := New(memory.New(), Options{Location: ist, Logger: log.Discard(), Publishers: []EventPublisher{pub}})
	ctx := context.Background()

	e := mustAdd(t, l, "Lunch", "Food", "10", day(2024, 3, 1))
	require.NoError(t, l.Delete(ctx, e.ID))
	_, err := l.AddCategory(ctx, "Pets")
	require.NoError(t, err)
	_, err = l.SetBudget(ctx, core.Budget{Category: "Food", Limit: decimal.NewFromInt(1)})
	require.NoError(t, err)

	var types []string
	for _, ev := range pub.events {
		types = append(types, ev.Type)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	}
	assert.Equal(t, []string{
		core.EventExpenseCreated, core.EventExpenseDeleted, core.EventCategoryAdded, core.EventBudgetsSaved,
	}, types)
	assert.Equal(t, e.ID, pub.events[0].ExpenseID)
	assert.Equal(t, 2024, pub.events[0].Year)
}

func TestMissingIDHeaderGetsItsOwnColumn(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.EnsureSheet(ctx, SheetTransactions, []string{"Date", "Description", "Category", "Amount", "Paid"}))

	l := New(store, Options{Location: ist, Logger: log.Discard()})
	added := mustAdd(t, l, "Stamps", "Bills", "5", day(2024, 3, 1))
	assert.Equal(t, "1", added.ID)

	rows, err := store.ReadAll(ctx, SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-01", rows[1][0], "date keeps its named column")
	assert.Equal(t, "1", rows[1][5], "id goes past the header")

	got, err := l.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stamps", got.Description)

	updated := got
	updated.Description = "Postage"
	_, err = l.Update(ctx, added.ID, updated)
	require.NoError(t, err)
	require.NoError(t, l.Delete(ctx, added.ID))
	_, err = l.Get(ctx, added.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestResolveSchema(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []int
	}{
		{"exact", []string{"ID", "Date", "Description", "Category", "Amount", "Paid"}, []int{0, 1, 2, 3, 4, 5}},
		{"reordered", []string{"date", "id", "amount", "description", "category", "paid"}, []int{1, 0, 3, 4, 2, 5}},
		{"missing id with taken position", []string{"Date", "Description", "Category", "Amount", "Paid"}, []int{5, 0, 1, 2, 3, 4}},
		{"two missing with taken positions", []string{"Date", "Description", "Category", "Amount"}, []int{6, 0, 1, 2, 3, 5}},
		{"missing at free position", []string{"ID", "Date", "Note", "Category", "Amount", "Paid"}, []int{0, 1, 2, 3, 4, 5}},
		{"empty header", nil, []int{0, 1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := resolveSchema(tt.header, TransactionsHeader)
			assert.Equal(t, tt.want, s.index)

			seen := map[int]bool{}
			for _, idx := range s.index {
				assert.False(t, seen[idx], "column %d used twice", idx)
				seen[idx] = true
			}
		})
	}
}

func TestMasterPasswordIgnoresSurroundingWhitespace(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.SetSetting(ctx, core.SettingMasterPassword, "pw "))
	ok, err := l.VerifyMasterPassword(ctx, "pw ")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.VerifyMasterPassword(ctx, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.SetMasterPassword(ctx, "pw", "  next  "))
	ok, err = l.VerifyMasterPassword(ctx, "next")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, l.SetMasterPassword(ctx, "next", "   "), core.ErrBlankPassword)
	has, err := l.HasMasterPassword(ctx)
	require.NoError(t, err)
	assert.True(t, has, "a blank password does not remove the gate")
}

func TestSetMasterPasswordChecksCurrentAtomically(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.SetMasterPassword(ctx, "", "old"))

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.SetMasterPassword(ctx, "old", fmt.Sprintf("new-%d", i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	}
	assert.Equal(t, 1, succeeded, "only one writer may replace the old password")
}
