package http

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendsheet/internal/core"
)

type expenseJSON struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Paid        *bool  `json:"paid,omitempty"`
}

type expenseInput struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      amountField `json:"amount"`
	Category    string      `json:"category"`
	Paid        *bool       `json:"paid"`
}

// toExpense converts the request body into a domain expense. An empty date
// means today in the ledger zone.
func (in expenseInput) toExpense(loc *time.Location, now time.Time) (core.Expense, error) {
	var date time.Time
	if d := strings.TrimSpace(in.Date); d == "" {
		date = core.DateOnly(now, loc)
	} else {
		parsed, err := core.ParseStoredDate(d, loc)
		if err != nil {
			return core.Expense{}, err
		}
		date = parsed
	}
	amount, err := core.ParseAmount(string(in.Amount))
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Date:        date,
		Description: sanitizeInput(in.Description),
		Amount:      amount,
		Category:    sanitizeInput(in.Category),
		Paid:        in.Paid,
	}, nil
}

func newExpenseJSON(e core.Expense, loc *time.Location) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Date:        core.FormatStoredDate(e.Date, loc),
		Description: e.Description,
		Amount:      core.FormatAmount(e.Amount),
		Category:    e.Category,
		Paid:        e.Paid,
	}
}

func newExpenseList(es []core.Expense, loc *time.Location) []expenseJSON {
	out := make([]expenseJSON, len(es))
	for i, e := range es {
		out[i] = newExpenseJSON(e, loc)
	}
	return out
}

type budgetJSON struct {
	Category string      `json:"category"`
	Limit    amountField `json:"limit"`
}

func (b budgetJSON) toBudget() (core.Budget, error) {
	limit, err := core.ParseAmount(string(b.Limit))
	if err != nil {
		return core.Budget{}, err
	}
	bud := core.Budget{Category: sanitizeInput(b.Category), Limit: limit}
	return bud, bud.Validate()
}

func newBudgetList(bs core.Budgets) []budgetJSON {
	out := make([]budgetJSON, len(bs))
	for i, b := range bs {
		out[i] = budgetJSON{Category: b.Category, Limit: amountField(core.FormatAmount(b.Limit))}
	}
	return out
}

type monthJSON struct {
	Month  int    `json:"month"`
	Amount string `json:"amount"`
	Count  int    `json:"count"`
}

type categoryAmountJSON struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Count  int    `json:"count"`
}

type summaryJSON struct {
	Year         int                  `json:"year"`
	Total        string               `json:"total"`
	TotalDisplay string               `json:"total_display"`
	Count        int                  `json:"count"`
	Months       []monthJSON          `json:"months"`
	ByCategory   []categoryAmountJSON `json:"by_category"`
}

func newSummaryJSON(s core.YearSummary, display string) summaryJSON {
	out := summaryJSON{
		Year:         s.Year,
		Total:        core.FormatAmount(s.Total),
		TotalDisplay: display,
		Count:        s.Count,
		Months:     make([]monthJSON, len(s.Months)),
		ByCategory: make([]categoryAmountJSON, len(s.ByCategory)),
	}
	for i, m := range s.Months {
		out.Months[i] = monthJSON{Month: m.Month, Amount: core.FormatAmount(m.Amount), Count: m.Count}
	}
	for i, c := range s.ByCategory {
		out.ByCategory[i] = categoryAmountJSON{Name: c.Name, Amount: core.FormatAmount(c.Amount), Count: c.Count}
	}
	return out
}

// monthSummaryJSON is the category breakdown of a single month.
type monthSummaryJSON struct {
	Year         int                  `json:"year"`
	Month        int                  `json:"month"`
	Total        string               `json:"total"`
	TotalDisplay string               `json:"total_display"`
	Count        int                  `json:"count"`
	ByCategory   []categoryAmountJSON `json:"by_category"`
}

func newMonthSummaryJSON(year, month int, cats []core.CategoryAmount, format func(decimal.Decimal) string) monthSummaryJSON {
	out := monthSummaryJSON{
		Year:       year,
		Month:      month,
		ByCategory: make([]categoryAmountJSON, len(cats)),
	}
	total := decimal.Zero
	for i, c := range cats {
		total = total.Add(c.Amount)
		out.Count += c.Count
		out.ByCategory[i] = categoryAmountJSON{Name: c.Name, Amount: core.FormatAmount(c.Amount), Count: c.Count}
	}
	out.Total = core.FormatAmount(total)
	out.TotalDisplay = format(total)
	return out
}

type budgetStatusJSON struct {
	Category  string `json:"category"`
	Limit     string `json:"limit"`
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
	Over      bool   `json:"over"`
}

func newBudgetStatusList(st []core.BudgetStatus) []budgetStatusJSON {
	out := make([]budgetStatusJSON, len(st))
	for i, s := range st {
		out[i] = budgetStatusJSON{
			Category:  s.Category,
			Limit:     core.FormatAmount(s.Limit),
			Spent:     core.FormatAmount(s.Spent),
			Remaining: core.FormatAmount(s.Remaining),
			Over:      s.Over,
		}
	}
	return out
}
