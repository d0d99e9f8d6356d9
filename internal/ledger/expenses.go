package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// Logical columns of the Transactions sheet.
const (
	colID = iota
	colDate
	colDescription
	colCategory
	colAmount
	colPaid
)

// List returns every parseable expense, newest first.
func (l *Ledger) List(ctx context.Context) ([]core.Expense, error) {
	t, err := l.load(ctx, SheetTransactions, TransactionsHeader)
	if err != nil {
		return nil, err
	}
	return l.expenses(ctx, t), nil
}

// ListByYear returns the expenses dated in year (storage zone), newest first.
func (l *Ledger) ListByYear(ctx context.Context, year int) ([]core.Expense, error) {
	return l.filter(ctx, func(d time.Time) bool { return d.Year() == year })
}

// ListByMonth returns the expenses dated in the given month, newest first.
func (l *Ledger) ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	return l.filter(ctx, func(d time.Time) bool {
		return d.Year() == year && int(d.Month()) == month
	})
}

func (l *Ledger) filter(ctx context.Context, keep func(time.Time) bool) ([]core.Expense, error) {
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if keep(e.Date.In(l.loc)) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Years returns the distinct calendar years with expenses, most recent first.
func (l *Ledger) Years(ctx context.Context) ([]int, error) {
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{})
	var years []int
	for _, e := range all {
		y := e.Date.In(l.loc).Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// Get returns the expense with id.
func (l *Ledger) Get(ctx context.Context, id string) (core.Expense, error) {
	t, err := l.load(ctx, SheetTransactions, TransactionsHeader)
	if err != nil {
		return core.Expense{}, err
	}
	r, ok := t.find(matchID(id))
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	e, err := l.parseExpense(t, r)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, err)
	}
	return e, nil
}

// Search returns the expenses whose description contains query, ignoring case.
// An empty query matches nothing.
func (l *Ledger) Search(ctx context.Context, query string) ([]core.Expense, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []core.Expense{}, nil
	}
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []core.Expense{}
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Description), q) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Add appends e with a freshly allocated id and returns the stored record.
func (l *Ledger) Add(ctx context.Context, e core.Expense) (core.Expense, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.Date = core.DateOnly(e.Date, l.loc)

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.load(ctx, SheetTransactions, TransactionsHeader)
	if err != nil {
		return core.Expense{}, err
	}
	var maxID int64
	for _, r := range t.records {
		if n, ok := parseID(t.get(r, colID)); ok && n > maxID {
			maxID = n
		}
	}
	id := maxID + 1
	e.ID = strconv.FormatInt(id, 10)

	if err := l.appendRow(ctx, t, l.expenseRow(id, e)); err != nil {
		return core.Expense{}, err
	}
	l.logger.InfoContext(ctx, "Expense added",
		log.NewFields().WithExpense(e.ID, e.Category, core.FormatAmount(e.Amount)).WithOperation(log.OpCreate).ToSlice()...)
	l.publish(ctx, core.LedgerEvent{Type: core.EventExpenseCreated, ExpenseID: e.ID, Category: e.Category, Year: e.Date.Year()})
	return e, nil
}

// Update overwrites the expense with id. A missing id fails with core.ErrNotFound
// before anything is written.
func (l *Ledger) Update(ctx context.Context, id string, e core.Expense) (core.Expense, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.Date = core.DateOnly(e.Date, l.loc)

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.load(ctx, SheetTransactions, TransactionsHeader)
	if err != nil {
		return core.Expense{}, err
	}
	r, ok := t.find(matchID(id))
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	e.ID = t.get(r, colID)
	var idCell any = e.ID
	if n, ok := parseID(e.ID); ok {
		idCell = n
	}
	if err := l.updateRow(ctx, t, r, l.expenseRow(idCell, e)); err != nil {
		return core.Expense{}, err
	}
	l.logger.InfoContext(ctx, "Expense updated",
		log.NewFields().WithExpense(e.ID, e.Category, core.FormatAmount(e.Amount)).WithOperation(log.OpUpdate).ToSlice()...)
	l.publish(ctx, core.LedgerEvent{Type: core.EventExpenseUpdated, ExpenseID: e.ID, Category: e.Category, Year: e.Date.Year()})
	return e, nil
}

// Delete removes the row of the expense with id.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.load(ctx, SheetTransactions, TransactionsHeader)
	if err != nil {
		return err
	}
	r, ok := t.find(matchID(id))
	if !ok {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err := l.deleteRow(ctx, t, r); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id, log.FieldRow, r.row)
	l.publish(ctx, core.LedgerEvent{Type: core.EventExpenseDeleted, ExpenseID: t.get(r, colID), Category: t.get(r, colCategory)})
	return nil
}

func (l *Ledger) expenses(ctx context.Context, t *table) []core.Expense {
	out := make([]core.Expense, 0, len(t.records))
	skipped := 0
	for _, r := range t.records {
		e, err := l.parseExpense(t, r)
		if err != nil {
			skipped++
			l.logger.DebugContext(ctx, "Skipping unparseable row", log.FieldRow, r.row, log.FieldError, err)
			continue
		}
		out = append(out, e)
	}
	if skipped > 0 {
		l.logger.WarnContext(ctx, "Skipped unparseable expense rows", log.FieldSheet, t.name, log.FieldCount, skipped)
	}
	sortNewestFirst(out)
	return out
}

var errBadAmount = errors.New("amount is not a number")

func (l *Ledger) parseExpense(t *table, r record) (core.Expense, error) {
	amount, ok := core.ParseCellAmount(t.get(r, colAmount))
	if !ok {
		return core.Expense{}, errBadAmount
	}
	date, err := core.ParseStoredDate(t.get(r, colDate), l.loc)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:          t.get(r, colID),
		Date:        date,
		Description: t.get(r, colDescription),
		Amount:      amount,
		Category:    t.get(r, colCategory),
	}
	if e.Category == "" {
		e.Category = core.CategoryOther
	}
	if core.TracksPaid(e.Category) {
		paid := parseBool(t.get(r, colPaid))
		e.Paid = &paid
	}
	return e, nil
}

// expenseRow encodes e in Transactions column order. The id and amount are
// written as numbers so the sheet can sum and sort them.
func (l *Ledger) expenseRow(id any, e core.Expense) []any {
	var paid any = ""
	if e.Paid != nil {
		paid = *e.Paid
	}
	return []any{
		id,
		core.FormatStoredDate(e.Date, l.loc),
		e.Description,
		e.Category,
		e.Amount.InexactFloat64(),
		paid,
	}
}

func sortNewestFirst(es []core.Expense) {
	sort.SliceStable(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date) {
			return es[i].Date.After(es[j].Date)
		}
		a, aok := parseID(es[i].ID)
		b, bok := parseID(es[j].ID)
		if aok && bok {
			return a > b
		}
		return es[i].ID > es[j].ID
	})
}

func matchID(id string) func(string) bool {
	id = strings.TrimSpace(id)
	n, numeric := parseID(id)
	return func(key string) bool {
		if key == id {
			return true
		}
		if !numeric {
			return false
		}
		m, ok := parseID(key)
		return ok && m == n
	}
}

// parseID accepts integer ids, including the "7.0" form some sheets render.
func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "paid":
		return true
	}
	return false
}
