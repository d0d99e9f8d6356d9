package core

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CategoryCreditCard is the only category whose expenses carry a paid flag.
	CategoryCreditCard = "Credit Card"
	// CategoryOther is assigned to rows stored without a category.
	CategoryOther = "Other"

	// SettingMasterPassword is the settings key of the edit-confirmation password.
	SettingMasterPassword = "masterPassword"

	maxDescriptionLength = 200
)

// BuiltinCategories cannot be deleted and are always part of the category set.
var BuiltinCategories = []string{
	"Food",
	"Groceries",
	"Transport",
	"Shopping",
	"Bills",
	"Rent",
	"Entertainment",
	"Health",
	"Education",
	"Travel",
	CategoryCreditCard,
	CategoryOther,
}

type (
	Expense struct {
		ID          string
		Date        time.Time
		Description string
		Amount      decimal.Decimal
		Category    string
		// Paid is only set for CategoryCreditCard expenses.
		Paid *bool
	}

	Budget struct {
		Category string
		Limit    decimal.Decimal
	}

	Setting struct {
		Key   string
		Value string
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrEmptyCategory    = errors.New("empty category")
)

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLength {
		return ErrDescriptionLong
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Normalize trims text fields and drops the paid flag for categories that do not track it.
func (e Expense) Normalize() Expense {
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = CategoryOther
	}
	if !TracksPaid(e.Category) {
		e.Paid = nil
	}
	return e
}

// TracksPaid reports whether expenses of the category carry a paid flag.
func TracksPaid(category string) bool {
	return category == CategoryCreditCard
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Limit.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// IsBuiltinCategory reports whether name belongs to the fixed built-in set.
func IsBuiltinCategory(name string) bool {
	name = strings.TrimSpace(name)
	for _, c := range BuiltinCategories {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// MergeCategories returns the sorted union of the built-in and custom sets.
// Duplicates are compared case-insensitively; the first spelling wins, built-ins first.
func MergeCategories(custom []string) []string {
	seen := make(map[string]struct{}, len(BuiltinCategories)+len(custom))
	out := make([]string, 0, len(BuiltinCategories)+len(custom))
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	for _, c := range BuiltinCategories {
		add(c)
	}
	for _, c := range custom {
		add(c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// CanonicalCategory returns the spelling of name used in set, if present.
func CanonicalCategory(set []string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range set {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Budgets is the client-held budget collection: at most one entry per category.
type Budgets []Budget

// Set inserts or overwrites the budget for b.Category.
func (bs Budgets) Set(b Budget) Budgets {
	for i := range bs {
		if strings.EqualFold(bs[i].Category, b.Category) {
			bs[i].Limit = b.Limit
			return bs
		}
	}
	return append(bs, b)
}

// Remove drops the budget for category and reports whether it was present.
func (bs Budgets) Remove(category string) (Budgets, bool) {
	for i := range bs {
		if strings.EqualFold(bs[i].Category, category) {
			return append(bs[:i:i], bs[i+1:]...), true
		}
	}
	return bs, false
}

// Find returns the budget for category.
func (bs Budgets) Find(category string) (Budget, bool) {
	for _, b := range bs {
		if strings.EqualFold(b.Category, category) {
			return b, true
		}
	}
	return Budget{}, false
}
