package core

import "time"

// Ledger change event types.
const (
	EventExpenseCreated  = "expense.created"
	EventExpenseUpdated  = "expense.updated"
	EventExpenseDeleted  = "expense.deleted"
	EventCategoryAdded   = "category.added"
	EventCategoryDeleted = "category.deleted"
	EventBudgetsSaved    = "budgets.saved"
)

// LedgerEvent describes one committed mutation of the ledger.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ExpenseID string    `json:"expense_id,omitempty"`
	Category  string    `json:"category,omitempty"`
	Year      int       `json:"year,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
