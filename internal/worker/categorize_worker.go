package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spendsheet/internal/ai"
	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// Ledger is the part of the ledger the worker reads and writes.
type Ledger interface {
	Get(ctx context.Context, id string) (core.Expense, error)
	Update(ctx context.Context, id string, e core.Expense) (core.Expense, error)
	Categories(ctx context.Context) ([]string, error)
	ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error)
}

type Categorizer interface {
	Categorize(ctx context.Context, description string) (string, error)
}

// CategorizeWorker files expenses stored under "Other" into a known category
// suggested by the model.
type CategorizeWorker struct {
	ledger Ledger
	ai     Categorizer
	logger *log.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewCategorizeWorker(l Ledger, c Categorizer, loc *time.Location, logger *log.Logger) *CategorizeWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CategorizeWorker{
		ledger: l,
		ai:     c,
		logger: logger.WithComponent(log.ComponentWorker),
		loc:    loc,
		now:    time.Now,
	}
}

// HandleEvent processes one ledger event from the queue. Only expense.created
// is acted on. Model failures are logged and acknowledged since nothing here
// retries; store failures are returned so the delivery is requeued.
func (w *CategorizeWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	if ev.Type != core.EventExpenseCreated {
		return nil
	}
	if ev.Category != "" && !isOther(ev.Category) {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing new expense",
		log.FieldExpenseID, ev.ExpenseID,
		log.FieldEventType, ev.Type)

	e, err := w.ledger.Get(ctx, ev.ExpenseID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Expense no longer exists, skipping", log.FieldExpenseID, ev.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %s: %w", ev.ExpenseID, err)
	}

	_, err = w.recategorize(ctx, e)
	return err
}

// recategorize reports whether e was moved to a new category.
func (w *CategorizeWorker) recategorize(ctx context.Context, e core.Expense) (bool, error) {
	if !isOther(e.Category) {
		return false, nil
	}

	label, err := w.ai.Categorize(ctx, e.Description)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		w.logger.DebugContext(ctx, "AI not configured, leaving expense in Other", log.FieldExpenseID, e.ID)
		return false, nil
	case errors.Is(err, core.ErrEmptyDescription):
		return false, nil
	case err != nil:
		w.logger.WarnContext(ctx, "Categorization failed",
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
		return false, nil
	}

	cats, err := w.ledger.Categories(ctx)
	if err != nil {
		return false, fmt.Errorf("load categories: %w", err)
	}
	canonical, ok := core.CanonicalCategory(cats, label)
	if !ok || isOther(canonical) {
		w.logger.InfoContext(ctx, "Model suggested no known category",
			log.FieldExpenseID, e.ID,
			"suggestion", label)
		return false, nil
	}

	e.Category = canonical
	if _, err := w.ledger.Update(ctx, e.ID, e); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("update expense %s: %w", e.ID, err)
	}

	w.logger.InfoContext(ctx, "Expense recategorized",
		log.FieldExpenseID, e.ID,
		log.FieldCategory, canonical,
		log.FieldOperation, log.OpCategorize)
	return true, nil
}

// SweepMonth recategorizes every "Other" expense of the given month. It backs
// up the queue when events were missed while the worker was down. Per-expense
// failures are logged and skipped.
func (w *CategorizeWorker) SweepMonth(ctx context.Context, year, month int) (int, error) {
	es, err := w.ledger.ListByMonth(ctx, year, month)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	updated, failed := 0, 0
	for _, e := range es {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		ok, err := w.recategorize(ctx, e)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to recategorize expense",
				log.FieldExpenseID, e.ID,
				log.FieldError, err)
			failed++
			continue
		}
		if ok {
			updated++
		}
	}

	if updated > 0 || failed > 0 {
		w.logger.InfoContext(ctx, "Sweep completed",
			log.FieldYear, year,
			log.FieldMonth, month,
			"updated", updated,
			"errors", failed)
	}
	return updated, nil
}

// SweepCurrentMonth runs SweepMonth for the current month in the ledger zone.
func (w *CategorizeWorker) SweepCurrentMonth(ctx context.Context) (int, error) {
	now := w.now().In(w.loc)
	return w.SweepMonth(ctx, now.Year(), int(now.Month()))
}

func isOther(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), core.CategoryOther)
}
