package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

type fakeSource struct {
	expenses []core.Expense
	budgets  core.Budgets
	calls    int
}

func (f *fakeSource) ListByYear(_ context.Context, year int) ([]core.Expense, error) {
	f.calls++
	var out []core.Expense
	for _, e := range f.expenses {
		if e.Date.In(ist).Year() == year {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) ListByMonth(_ context.Context, year, month int) ([]core.Expense, error) {
	f.calls++
	var out []core.Expense
	for _, e := range f.expenses {
		d := e.Date.In(ist)
		if d.Year() == year && int(d.Month()) == month {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) Budgets(context.Context) (core.Budgets, error) { return f.budgets, nil }

func exp(id string, m time.Month, d int, cat, amount string) core.Expense {
	return core.Expense{
		ID:          id,
		Date:        time.Date(2024, m, d, 0, 0, 0, 0, ist),
		Description: "item " + id,
		Category:    cat,
		Amount:      decimal.RequireFromString(amount),
	}
}

func sample() *fakeSource {
	return &fakeSource{
		expenses: []core.Expense{
			exp("1", time.March, 2, "Food", "100.50"),
			exp("2", time.March, 5, "food", "49.50"),
			exp("3", time.March, 9, "Rent", "1000"),
			exp("4", time.April, 1, "Travel", "300"),
			{ID: "5", Date: time.Date(2023, 12, 31, 0, 0, 0, 0, ist), Category: "Food", Amount: decimal.NewFromInt(7)},
		},
		budgets: core.Budgets{
			{Category: "Food", Limit: decimal.NewFromInt(120)},
			{Category: "Rent", Limit: decimal.NewFromInt(1500)},
			{Category: "Health", Limit: decimal.NewFromInt(50)},
		},
	}
}

func newService(src Source) *Service {
	return New(src, Options{Location: ist, Logger: log.Discard(), CacheSize: 8, CacheTTL: time.Minute})
}

func TestSummary(t *testing.T) {
	s := newService(sample())
	sum, err := s.Summary(context.Background(), 2024)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Count)
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(1450)), sum.Total.String())
	assert.True(t, sum.Months[2].Amount.Equal(decimal.NewFromInt(1150)))
	assert.Equal(t, 3, sum.Months[2].Count)
	assert.Equal(t, 4, sum.Months[3].Month)
	assert.True(t, sum.Months[0].Amount.IsZero())

	require.Len(t, sum.ByCategory, 3)
	assert.Equal(t, "Rent", sum.ByCategory[0].Name)
	assert.Equal(t, "Travel", sum.ByCategory[1].Name)
	assert.Equal(t, "Food", sum.ByCategory[2].Name)
	assert.Equal(t, 2, sum.ByCategory[2].Count)
	assert.True(t, sum.ByCategory[2].Amount.Equal(decimal.NewFromInt(150)))
}

func TestSummaryIsCachedUntilExpenseEvent(t *testing.T) {
	src := sample()
	s := newService(src)
	ctx := context.Background()

	_, err := s.Summary(ctx, 2024)
	require.NoError(t, err)
	_, err = s.Summary(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	require.NoError(t, s.PublishLedgerEvent(ctx, core.LedgerEvent{Type: core.EventCategoryAdded}))
	_, err = s.Summary(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "category events keep the cache")

	require.NoError(t, s.PublishLedgerEvent(ctx, core.LedgerEvent{Type: core.EventExpenseCreated}))
	_, err = s.Summary(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestBudgetStatus(t *testing.T) {
	s := newService(sample())
	got, err := s.BudgetStatus(context.Background(), 2024, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	food := got[0]
	assert.Equal(t, "Food", food.Category)
	assert.True(t, food.Spent.Equal(decimal.NewFromInt(150)))
	assert.True(t, food.Remaining.Equal(decimal.NewFromInt(-30)))
	assert.True(t, food.Over)

	rent := got[1]
	assert.False(t, rent.Over)
	assert.True(t, rent.Remaining.Equal(decimal.NewFromInt(500)))

	health := got[2]
	assert.True(t, health.Spent.IsZero())
	assert.False(t, health.Over)
}

func TestMonthCategories(t *testing.T) {
	s := newService(sample())
	got, err := s.MonthCategories(context.Background(), 2024, 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Travel", got[0].Name)
}

func TestFormatMoney(t *testing.T) {
	s := newService(sample())
	got := s.FormatMoney(decimal.RequireFromString("1234.5"))
	assert.True(t, strings.HasPrefix(got, "INR "), got)
	assert.Contains(t, got, "1,234.50")
}

func TestChartPNG(t *testing.T) {
	s := newService(sample())
	var buf bytes.Buffer
	require.NoError(t, s.ChartPNG(context.Background(), 2024, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	buf.Reset()
	require.NoError(t, s.ChartPNG(context.Background(), 1999, &buf), "empty years still render")
	assert.NotZero(t, buf.Len())
}

func TestExportXLSX(t *testing.T) {
	s := newService(sample())
	var buf bytes.Buffer
	require.NoError(t, s.ExportXLSX(context.Background(), 2024, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(expensesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"ID", "Date", "Description", "Category", "Amount", "Paid"}, rows[0])
	assert.Equal(t, "2024-03-02", rows[1][1])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, "Mar", summary[3][0])
	assert.Equal(t, "Total", summary[13][0])
	assert.Equal(t, "Rent", summary[16][0])

	sum, err := s.Summary(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, "Display", summary[0][3])
	assert.Equal(t, s.FormatMoney(sum.Total), summary[13][3])
	assert.True(t, strings.HasPrefix(summary[16][3], "INR "), summary[16][3])
}

func TestCacheStats(t *testing.T) {
	s := newService(sample())
	_, err := s.Summary(context.Background(), 2024)
	require.NoError(t, err)
	_, err = s.Summary(context.Background(), 2024)
	require.NoError(t, err)

	st, ok := s.CacheStats()
	require.True(t, ok)
	assert.Equal(t, 1, st.Size)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)

	_, ok = New(&fakeSource{}, Options{}).CacheStats()
	assert.False(t, ok, "cache disabled without a size")
}
