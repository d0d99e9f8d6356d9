package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
	Count  int
}

// MonthTotal is the spend of one calendar month.
type MonthTotal struct {
	Month  int // 1-12
	Amount decimal.Decimal
	Count  int
}

// YearSummary aggregates a calendar year of expenses.
type YearSummary struct {
	Year       int
	Total      decimal.Decimal
	Count      int
	Months     [12]MonthTotal
	ByCategory []CategoryAmount
}

// BudgetStatus compares a budget limit against the spend of a month.
type BudgetStatus struct {
	Category  string
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Over      bool
}
