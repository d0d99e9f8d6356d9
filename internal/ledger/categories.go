package ledger

import (
	"context"
	"fmt"
	"strings"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// Categories returns the effective category set: built-ins plus custom ones,
// sorted, duplicates removed.
func (l *Ledger) Categories(ctx context.Context) ([]string, error) {
	custom, err := l.CustomCategories(ctx)
	if err != nil {
		return nil, err
	}
	return core.MergeCategories(custom), nil
}

// CustomCategories returns the names stored in the Categories sheet, in sheet order.
func (l *Ledger) CustomCategories(ctx context.Context) ([]string, error) {
	t, err := l.load(ctx, SheetCategories, CategoriesHeader)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(t.records))
	for _, r := range t.records {
		if name := t.get(r, 0); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// AddCategory stores a new custom category. Names already in the effective set
// fail with core.ErrAlreadyExists.
func (l *Ledger) AddCategory(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.ErrEmptyCategory
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.load(ctx, SheetCategories, CategoriesHeader)
	if err != nil {
		return "", err
	}
	if core.IsBuiltinCategory(name) {
		return "", fmt.Errorf("category %q: %w", name, core.ErrAlreadyExists)
	}
	if _, ok := t.find(equalFold(name)); ok {
		return "", fmt.Errorf("category %q: %w", name, core.ErrAlreadyExists)
	}
	if err := l.appendRow(ctx, t, []any{name}); err != nil {
		return "", err
	}
	l.logger.InfoContext(ctx, "Category added", log.FieldCategory, name)
	l.publish(ctx, core.LedgerEvent{Type: core.EventCategoryAdded, Category: name})
	return name, nil
}

// DeleteCategory removes a custom category. Built-in names are rejected
// without touching the store.
func (l *Ledger) DeleteCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if core.IsBuiltinCategory(name) {
		return fmt.Errorf("category %q: %w", name, core.ErrBuiltinCategory)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.load(ctx, SheetCategories, CategoriesHeader)
	if err != nil {
		return err
	}
	r, ok := t.find(equalFold(name))
	if !ok {
		return fmt.Errorf("category %q: %w", name, core.ErrNotFound)
	}
	if err := l.deleteRow(ctx, t, r); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Category deleted", log.FieldCategory, name)
	l.publish(ctx, core.LedgerEvent{Type: core.EventCategoryDeleted, Category: t.get(r, 0)})
	return nil
}

func equalFold(want string) func(string) bool {
	return func(key string) bool { return strings.EqualFold(key, want) }
}
