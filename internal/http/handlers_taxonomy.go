package http

import (
	"net/http"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(cats).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	name, err := s.ledger.AddCategory(r.Context(), sanitizeInput(in.Name))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(map[string]string{"name": name}).
		NotifySuccess("Category added").
		Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCategory(r.Context(), r.PathValue("name")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).NotifySuccess("Category deleted").Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	bs, err := s.ledger.Budgets(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(newBudgetList(bs)).Write(w)
}

// handleSaveBudgets replaces the whole budget table. Repeated categories
// collapse to the last entry.
func (s *Server) handleSaveBudgets(w http.ResponseWriter, r *http.Request) {
	var in []budgetJSON
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var bs core.Budgets
	for _, raw := range in {
		b, err := raw.toBudget()
		if err != nil {
			s.writeError(w, r, log.OpUpdate, err)
			return
		}
		bs = bs.Set(b)
	}
	saved, err := s.ledger.SaveBudgets(r.Context(), bs)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(newBudgetList(saved)).NotifySuccess("Budgets saved").Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var in budgetJSON
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	b, err := in.toBudget()
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	saved, err := s.ledger.SetBudget(r.Context(), b)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(newBudgetList(saved)).NotifySuccess("Budget saved").Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	saved, err := s.ledger.DeleteBudget(r.Context(), r.PathValue("category"))
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Data(newBudgetList(saved)).NotifySuccess("Budget removed").Write(w)
}

func (s *Server) handleMasterPasswordStatus(w http.ResponseWriter, r *http.Request) {
	configured, err := s.ledger.HasMasterPassword(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(map[string]bool{"configured": configured}).Write(w)
}

// handleSetMasterPassword sets, changes or (with an empty password) removes
// the master password. current must match when one is configured.
func (s *Server) handleSetMasterPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Current  string `json:"current"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.ledger.SetMasterPassword(r.Context(), in.Current, in.Password); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	msg := "Master password updated"
	if in.Password == "" {
		msg = "Master password removed"
	}
	NewJSONResponse().Data(map[string]bool{"configured": in.Password != ""}).NotifySuccess(msg).Write(w)
}

func (s *Server) handleVerifyMasterPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	valid, err := s.ledger.VerifyMasterPassword(r.Context(), in.Password)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(map[string]bool{"valid": valid}).Write(w)
}
