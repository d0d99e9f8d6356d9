package http

import (
	"net/http"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// masterPasswordHeader carries the edit-confirmation password on PUT/DELETE.
const masterPasswordHeader = "X-Master-Password"

// handleListExpenses lists by year, by month, or everything when neither is given.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		es  []core.Expense
		err error
	)
	if q.Get("year") == "" && q.Get("month") == "" {
		es, err = s.ledger.List(r.Context())
	} else {
		var p MonthParams
		p, err = ParseMonthParams(q, s.now().In(s.ledger.Location()), false)
		if err == nil {
			if p.Month == 0 {
				es, err = s.ledger.ListByYear(r.Context(), p.Year)
			} else {
				es, err = s.ledger.ListByMonth(r.Context(), p.Year, p.Month)
			}
		}
	}
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(newExpenseList(es, s.ledger.Location())).Write(w)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.ledger.Years(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	NewJSONResponse().Data(years).Write(w)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := sanitizeInput(r.URL.Query().Get("q"))
	es, err := s.ledger.Search(r.Context(), query)
	if err != nil {
		s.writeError(w, r, log.OpSearch, err)
		return
	}
	NewJSONResponse().Data(newExpenseList(es, s.ledger.Location())).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.ledger.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newExpenseJSON(e, s.ledger.Location())).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.readExpense(w, r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.ledger.Add(r.Context(), e)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+saved.ID).
		Data(newExpenseJSON(saved, s.ledger.Location())).
		NotifySuccess("Expense saved").
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMasterPassword(r); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	e, err := s.readExpense(w, r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	saved, err := s.ledger.Update(r.Context(), r.PathValue("id"), e)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().
		Data(newExpenseJSON(saved, s.ledger.Location())).
		NotifySuccess("Expense updated").
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMasterPassword(r); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusNoContent).
		NotifySuccess("Expense deleted").
		Write(w)
}

func (s *Server) readExpense(w http.ResponseWriter, r *http.Request) (core.Expense, error) {
	var in expenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		return core.Expense{}, err
	}
	return in.toExpense(s.ledger.Location(), s.now())
}

// requireMasterPassword checks the confirmation header. With no password
// configured every request passes.
func (s *Server) requireMasterPassword(r *http.Request) error {
	ok, err := s.ledger.VerifyMasterPassword(r.Context(), r.Header.Get(masterPasswordHeader))
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}
	return nil
}
