package http

import (
	"net/http"

	"spendsheet/internal/ai"
	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpCategorize, err)
		return
	}
	if s.assistant == nil {
		s.writeError(w, r, log.OpCategorize, ai.ErrNotConfigured)
		return
	}
	cat, err := s.assistant.Categorize(r.Context(), sanitizeInput(in.Description))
	if err != nil {
		s.writeError(w, r, log.OpCategorize, err)
		return
	}
	NewJSONResponse().Data(map[string]string{"category": cat}).Write(w)
}

// handleTips asks for advice on one month, or on a whole year when month is 0.
func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, "tips", err)
		return
	}
	if s.assistant == nil {
		s.writeError(w, r, "tips", ai.ErrNotConfigured)
		return
	}
	if in.Year == 0 {
		in.Year = s.now().In(s.ledger.Location()).Year()
	}
	if in.Month < 0 || in.Month > 12 {
		s.writeError(w, r, "tips", unprocessable("invalid month: must be 1-12, or 0 for the whole year"))
		return
	}

	var (
		es  []core.Expense
		err error
	)
	if in.Month == 0 {
		es, err = s.ledger.ListByYear(r.Context(), in.Year)
	} else {
		es, err = s.ledger.ListByMonth(r.Context(), in.Year, in.Month)
	}
	if err != nil {
		s.writeError(w, r, "tips", err)
		return
	}
	if len(es) == 0 {
		s.writeError(w, r, "tips", unprocessable("no expenses in the selected period"))
		return
	}

	tips, err := s.assistant.Tips(r.Context(), es)
	if err != nil {
		s.writeError(w, r, "tips", err)
		return
	}
	NewJSONResponse().Data(map[string]string{"tips": tips}).Write(w)
}

func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	available := s.chat != nil && s.chat.Available()
	NewJSONResponse().Data(map[string]bool{"available": available}).Write(w)
}

// handleChat proxies a streaming completion. Once the first byte has been
// sent, failures can only be logged.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ai.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "chat", err)
		return
	}
	if s.chat == nil || !s.chat.Available() {
		s.writeError(w, r, "chat", ai.ErrNotConfigured)
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, r, "chat", unprocessable("messages are required"))
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	setContentType := func(ct string) {
		started = true
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := s.chat.Stream(r.Context(), req, w, setContentType, flush); err != nil {
		if !started {
			s.writeError(w, r, "chat", err)
			return
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentAI).WarnContext(r.Context(), "Chat stream interrupted", log.FieldError, err)
	}
}
