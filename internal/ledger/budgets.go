package ledger

import (
	"context"
	"fmt"
	"strings"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// Budgets returns the stored budgets. Rows with an unparseable limit are skipped.
func (l *Ledger) Budgets(ctx context.Context) (core.Budgets, error) {
	t, err := l.load(ctx, SheetBudgets, BudgetsHeader)
	if err != nil {
		return nil, err
	}
	var out core.Budgets
	for _, r := range t.records {
		cat := t.get(r, 0)
		limit, ok := core.ParseCellAmount(t.get(r, 1))
		if cat == "" || !ok {
			l.logger.WarnContext(ctx, "Skipping invalid budget row", log.FieldSheet, t.name, log.FieldRow, r.row)
			continue
		}
		out = out.Set(core.Budget{Category: cat, Limit: limit})
	}
	return out, nil
}

// SaveBudgets replaces every stored budget with bs: the data range is cleared
// and rewritten. Duplicate categories collapse to the last entry.
func (l *Ledger) SaveBudgets(ctx context.Context, bs core.Budgets) (core.Budgets, error) {
	var clean core.Budgets
	for _, b := range bs {
		b.Category = strings.TrimSpace(b.Category)
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("budget %q: %w", b.Category, err)
		}
		clean = clean.Set(b)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.saveBudgets(ctx, clean); err != nil {
		return nil, err
	}
	return clean, nil
}

// SetBudget inserts or overwrites the budget of one category.
func (l *Ledger) SetBudget(ctx context.Context, b core.Budget) (core.Budgets, error) {
	b.Category = strings.TrimSpace(b.Category)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bs, err := l.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	bs = bs.Set(b)
	if err := l.saveBudgets(ctx, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

// DeleteBudget removes the budget of category.
func (l *Ledger) DeleteBudget(ctx context.Context, category string) (core.Budgets, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bs, err := l.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	bs, ok := bs.Remove(strings.TrimSpace(category))
	if !ok {
		return nil, fmt.Errorf("budget %q: %w", category, core.ErrNotFound)
	}
	if err := l.saveBudgets(ctx, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

// saveBudgets must be called with l.mu held.
func (l *Ledger) saveBudgets(ctx context.Context, bs core.Budgets) error {
	if err := l.store.EnsureSheet(ctx, SheetBudgets, BudgetsHeader); err != nil {
		return err
	}
	if err := l.store.ClearData(ctx, SheetBudgets); err != nil {
		return fmt.Errorf("clear %s: %w", SheetBudgets, err)
	}
	rows := make([][]any, len(bs))
	for i, b := range bs {
		rows[i] = []any{b.Category, b.Limit.InexactFloat64()}
	}
	if err := l.store.WriteRows(ctx, SheetBudgets, 2, rows); err != nil {
		return fmt.Errorf("write %s: %w", SheetBudgets, err)
	}
	l.logger.InfoContext(ctx, "Budgets saved", log.FieldCount, len(bs))
	l.publish(ctx, core.LedgerEvent{Type: core.EventBudgetsSaved})
	return nil
}
