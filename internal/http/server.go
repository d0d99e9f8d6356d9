// Package http exposes the ledger, reports and assistant as a JSON API.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"spendsheet/internal/ai"
	"spendsheet/internal/cache"
	"spendsheet/internal/core"
	"spendsheet/internal/log"
	"spendsheet/internal/middleware/ratelimit"
	"spendsheet/internal/middleware/security"
)

// ExpenseStore is the expense half of the ledger.
type ExpenseStore interface {
	List(ctx context.Context) ([]core.Expense, error)
	ListByYear(ctx context.Context, year int) ([]core.Expense, error)
	ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error)
	Years(ctx context.Context) ([]int, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	Search(ctx context.Context, query string) ([]core.Expense, error)
	Add(ctx context.Context, e core.Expense) (core.Expense, error)
	Update(ctx context.Context, id string, e core.Expense) (core.Expense, error)
	Delete(ctx context.Context, id string) error
}

// TaxonomyStore manages categories and budgets.
type TaxonomyStore interface {
	Categories(ctx context.Context) ([]string, error)
	AddCategory(ctx context.Context, name string) (string, error)
	DeleteCategory(ctx context.Context, name string) error
	Budgets(ctx context.Context) (core.Budgets, error)
	SaveBudgets(ctx context.Context, bs core.Budgets) (core.Budgets, error)
	SetBudget(ctx context.Context, b core.Budget) (core.Budgets, error)
	DeleteBudget(ctx context.Context, category string) (core.Budgets, error)
}

// Gatekeeper guards destructive edits with the master password.
type Gatekeeper interface {
	HasMasterPassword(ctx context.Context) (bool, error)
	VerifyMasterPassword(ctx context.Context, password string) (bool, error)
	SetMasterPassword(ctx context.Context, current, next string) error
}

// Ledger is everything the API needs from the ledger service.
type Ledger interface {
	ExpenseStore
	TaxonomyStore
	Gatekeeper
	Provision(ctx context.Context) error
	Location() *time.Location
}

// Reports renders aggregates and exports.
type Reports interface {
	Summary(ctx context.Context, year int) (core.YearSummary, error)
	MonthCategories(ctx context.Context, year, month int) ([]core.CategoryAmount, error)
	BudgetStatus(ctx context.Context, year, month int) ([]core.BudgetStatus, error)
	ChartPNG(ctx context.Context, year int, w io.Writer) error
	ExportXLSX(ctx context.Context, year int, w io.Writer) error
	FormatMoney(d decimal.Decimal) string
	CacheStats() (cache.Stats, bool)
}

// Assistant runs the single-shot model flows.
type Assistant interface {
	Categorize(ctx context.Context, description string) (string, error)
	Tips(ctx context.Context, expenses []core.Expense) (string, error)
}

// ChatStreamer proxies streaming chat completions.
type ChatStreamer interface {
	Available() bool
	Stream(ctx context.Context, req ai.ChatRequest, w io.Writer, setContentType func(string), flush func()) error
}

type Options struct {
	Addr               string
	Ledger             Ledger
	Reports            Reports
	Assistant          Assistant
	Chat               ChatStreamer
	Logger             *log.Logger
	CORSAllowedOrigins []string
	// RateLimitPerMinute bounds mutating requests per client; 0 disables it.
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	// TrustedProxies are CIDRs allowed to set the client address headers.
	TrustedProxies []string
}

type Server struct {
	http.Server
	ledger    Ledger
	reports   Reports
	assistant Assistant
	chat      ChatStreamer
	logger    *log.Logger
	timeout   time.Duration

	limiter  *ratelimit.Limiter
	detector *security.Detector
	now      func() time.Time
	started  time.Time
}

// NewServer wires the routes and middleware chain.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	s := &Server{
		ledger:    opts.Ledger,
		reports:   opts.Reports,
		assistant: opts.Assistant,
		chat:      opts.Chat,
		logger:    logger.WithComponent(log.ComponentHTTP),
		timeout:   timeout,
		detector:  security.NewDetector(),
		now:       time.Now,
	}
	s.started = s.now()
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/overview", s.handleOverview)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/years", s.handleYears)
	mux.HandleFunc("GET /api/expenses/search", s.handleSearch)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("DELETE /api/categories/{name}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleSaveBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleSetBudget)
	mux.HandleFunc("DELETE /api/budgets/{category}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/settings/master-password", s.handleMasterPasswordStatus)
	mux.HandleFunc("POST /api/settings/master-password", s.handleSetMasterPassword)
	mux.HandleFunc("POST /api/settings/master-password/verify", s.handleVerifyMasterPassword)

	mux.HandleFunc("GET /api/reports/summary", s.handleSummary)
	mux.HandleFunc("GET /api/reports/budgets", s.handleBudgetStatus)
	mux.HandleFunc("GET /api/reports/chart.png", s.handleChart)
	mux.HandleFunc("GET /api/reports/export.xlsx", s.handleExport)

	mux.HandleFunc("POST /api/ai/categorize", s.handleCategorize)
	mux.HandleFunc("POST /api/ai/tips", s.handleTips)
	mux.HandleFunc("GET /api/chat/status", s.handleChatStatus)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	var handler http.Handler = mux
	handler = s.withTimeout(handler)
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
		})
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	}
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.Middleware(logger)(handler)
	handler = newCORS(opts.CORSAllowedOrigins).Handler(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: /api/chat streams for as long as the model talks.
		IdleTimeout: 120 * time.Second,
	}
	return s
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", masterPasswordHeader, log.RequestIDHeader},
		ExposedHeaders: []string{notificationHeader, log.RequestIDHeader},
		MaxAge:         600,
	})
}

// withTimeout bounds every request except the chat stream, which lives as
// long as the client keeps it open.
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path,
	)
	ErrorResponse(http.StatusTooManyRequests, "too many requests, slow down").Write(w)
}

// Shutdown stops background workers and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

// handleReady provisions all sheets, so a misconfigured store fails readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Provision(r.Context()); err != nil {
		s.writeError(w, r, "provision", err)
		return
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
