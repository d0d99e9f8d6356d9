// Package report derives read-side aggregates from the ledger: yearly and
// monthly totals, category breakdowns and budget status. It also renders them
// as a PNG chart or an XLSX workbook.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"spendsheet/internal/cache"
	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// Source is the slice of the ledger reports read from.
type Source interface {
	ListByYear(ctx context.Context, year int) ([]core.Expense, error)
	ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error)
	Budgets(ctx context.Context) (core.Budgets, error)
}

type Options struct {
	Location *time.Location
	Logger   *log.Logger
	// CacheSize and CacheTTL bound the yearly summary cache. Zero size disables it.
	CacheSize int
	CacheTTL  time.Duration
}

type Service struct {
	src     Source
	loc     *time.Location
	logger  *log.Logger
	cache   *cache.LRUCache[core.YearSummary]
	printer *message.Printer
}

func New(src Source, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Service{
		src:     src,
		loc:     loc,
		logger:  logger.WithComponent(log.ComponentReport),
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}
	if opts.CacheSize > 0 {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		s.cache = cache.NewLRUCache[core.YearSummary](opts.CacheSize, ttl)
	}
	return s
}

// Cache exposes the summary cache for lifecycle management; nil when disabled.
func (s *Service) Cache() *cache.LRUCache[core.YearSummary] { return s.cache }

// CacheStats reports summary cache usage; false when the cache is disabled.
func (s *Service) CacheStats() (cache.Stats, bool) {
	if s.cache == nil {
		return cache.Stats{}, false
	}
	return s.cache.Stats(), true
}

// Summary returns monthly and per-category totals of year.
func (s *Service) Summary(ctx context.Context, year int) (core.YearSummary, error) {
	key := fmt.Sprintf("summary:%d", year)
	if s.cache != nil {
		if sum, ok := s.cache.Get(key); ok {
			return sum, nil
		}
	}
	es, err := s.src.ListByYear(ctx, year)
	if err != nil {
		return core.YearSummary{}, err
	}
	sum := Summarize(year, es, s.loc)
	if s.cache != nil {
		s.cache.Set(key, sum)
	}
	return sum, nil
}

// MonthCategories returns per-category totals of one month, largest first.
func (s *Service) MonthCategories(ctx context.Context, year, month int) ([]core.CategoryAmount, error) {
	es, err := s.src.ListByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return CategoryTotals(es), nil
}

// BudgetStatus compares every budget with the spend of its category in the month.
func (s *Service) BudgetStatus(ctx context.Context, year, month int) ([]core.BudgetStatus, error) {
	bs, err := s.src.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	es, err := s.src.ListByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return CompareBudgets(bs, es), nil
}

// FormatMoney renders an amount with the currency code and Indian digit grouping.
func (s *Service) FormatMoney(d decimal.Decimal) string {
	return s.printer.Sprintf("%s %.2f", currency.INR, d.InexactFloat64())
}

// PublishLedgerEvent drops cached summaries after expense changes.
func (s *Service) PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error {
	if s.cache == nil || !strings.HasPrefix(ev.Type, "expense.") {
		return nil
	}
	n := s.cache.DeletePrefix("summary:")
	s.logger.DebugContext(ctx, "Invalidated report cache", log.FieldEventType, ev.Type, log.FieldCount, n)
	return nil
}

// Summarize aggregates the expenses of year. Expenses outside year are ignored.
func Summarize(year int, es []core.Expense, loc *time.Location) core.YearSummary {
	sum := core.YearSummary{Year: year, Total: decimal.Zero}
	for i := range sum.Months {
		sum.Months[i] = core.MonthTotal{Month: i + 1, Amount: decimal.Zero}
	}
	var inYear []core.Expense
	for _, e := range es {
		d := e.Date.In(loc)
		if d.Year() != year {
			continue
		}
		m := &sum.Months[d.Month()-1]
		m.Amount = m.Amount.Add(e.Amount)
		m.Count++
		sum.Total = sum.Total.Add(e.Amount)
		sum.Count++
		inYear = append(inYear, e)
	}
	sum.ByCategory = CategoryTotals(inYear)
	return sum
}

// CategoryTotals groups expenses by category (case-insensitively), largest total first.
func CategoryTotals(es []core.Expense) []core.CategoryAmount {
	idx := make(map[string]int)
	var out []core.CategoryAmount
	for _, e := range es {
		k := strings.ToLower(e.Category)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, core.CategoryAmount{Name: e.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CompareBudgets computes spent, remaining and over for every budget, in budget order.
func CompareBudgets(bs core.Budgets, es []core.Expense) []core.BudgetStatus {
	spent := make(map[string]decimal.Decimal)
	for _, e := range es {
		k := strings.ToLower(e.Category)
		spent[k] = spent[k].Add(e.Amount)
	}
	out := make([]core.BudgetStatus, 0, len(bs))
	for _, b := range bs {
		sp := spent[strings.ToLower(b.Category)]
		out = append(out, core.BudgetStatus{
			Category:  b.Category,
			Limit:     b.Limit,
			Spent:     sp,
			Remaining: b.Limit.Sub(sp),
			Over:      sp.GreaterThan(b.Limit),
		})
	}
	return out
}
