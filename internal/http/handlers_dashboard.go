package http

import (
	"bytes"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

type overviewJSON struct {
	CurrentYear  int          `json:"current_year"`
	CurrentMonth int          `json:"current_month"`
	Years        []int        `json:"years"`
	Categories   []string     `json:"categories"`
	Budgets      []budgetJSON `json:"budgets"`
	// Degraded names the parts that failed to load and were left empty.
	Degraded []string `json:"degraded,omitempty"`
}

// handleOverview loads years, categories and budgets concurrently. Each part
// degrades to empty on failure so the page can still render.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)

	var (
		years                   []int
		cats                    []string
		budgets                 core.Budgets
		yearsErr, catsErr, bErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		years, yearsErr = s.ledger.Years(ctx)
		return nil
	})
	g.Go(func() error {
		cats, catsErr = s.ledger.Categories(ctx)
		return nil
	})
	g.Go(func() error {
		budgets, bErr = s.ledger.Budgets(ctx)
		return nil
	})
	_ = g.Wait()

	now := s.now().In(s.ledger.Location())
	out := overviewJSON{
		CurrentYear:  now.Year(),
		CurrentMonth: int(now.Month()),
		Years:        years,
		Categories:   cats,
		Budgets:      newBudgetList(budgets),
	}
	for _, part := range []struct {
		name string
		err  error
	}{{"years", yearsErr}, {"categories", catsErr}, {"budgets", bErr}} {
		if part.err != nil {
			logger.WarnContext(ctx, "Overview part unavailable", log.FieldOperation, part.name, log.FieldError, part.err)
			out.Degraded = append(out.Degraded, part.name)
		}
	}
	if out.Years == nil {
		out.Years = []int{}
	}
	if out.Categories == nil {
		out.Categories = core.MergeCategories(nil)
	}

	b := NewJSONResponse().Data(out)
	if len(out.Degraded) > 0 {
		b.Notify(NotificationWarning, "Some data could not be loaded", 5000)
	}
	b.Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now().In(s.ledger.Location()), false)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	if p.Month != 0 {
		cats, err := s.reports.MonthCategories(r.Context(), p.Year, p.Month)
		if err != nil {
			s.writeError(w, r, log.OpRead, err)
			return
		}
		NewJSONResponse().Data(newMonthSummaryJSON(p.Year, p.Month, cats, s.reports.FormatMoney)).Write(w)
		return
	}
	sum, err := s.reports.Summary(r.Context(), p.Year)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newSummaryJSON(sum, s.reports.FormatMoney(sum.Total))).Write(w)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now().In(s.ledger.Location()), true)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	st, err := s.reports.BudgetStatus(r.Context(), p.Year, p.Month)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newBudgetStatusList(st)).Write(w)
}

// handleChart and handleExport render into a buffer first so a failure can
// still be reported as JSON.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now().In(s.ledger.Location()), false)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	var buf bytes.Buffer
	if err := s.reports.ChartPNG(r.Context(), p.Year, &buf); err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now().In(s.ledger.Location()), false)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	var buf bytes.Buffer
	if err := s.reports.ExportXLSX(r.Context(), p.Year, &buf); err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="spendsheet-%d.xlsx"`, p.Year))
	_, _ = w.Write(buf.Bytes())
}
