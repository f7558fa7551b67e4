package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/middleware/auth"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/services"
)

// StatsProvider serves dashboard snapshots. *stats.Aggregator implements it.
type StatsProvider interface {
	Stats(ctx context.Context, userID string) (core.DashboardStats, bool)
}

// Pinger reports whether the row store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the handlers call into.
type Services struct {
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Goals        *services.GoalService
	Budgets      *services.BudgetService
	Reports      *services.ReportService
	Stats        StatsProvider
	Store        Pinger
}

// Config holds the server settings that do not come from the services.
type Config struct {
	Addr string

	// RequestsPerMinute per client IP; 0 disables rate limiting.
	RequestsPerMinute int
	Auth              auth.Config

	// AllowedOrigins enables CORS for these browser origins; empty disables it.
	AllowedOrigins []string

	// Registry backs /metrics and receives the HTTP collectors. Nil uses a
	// fresh registry.
	Registry *prometheus.Registry
	Logger   *applog.Logger
}

type Server struct {
	http.Server
	svc      Services
	router   *mux.Router
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *applog.Logger
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		svc:      svc,
		router:   mux.NewRouter(),
		detector: security.NewDetector(),
		logger:   logger.WithComponent(applog.ComponentHTTP),
		now:      time.Now,
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute})
	}

	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	// Public routes
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	if s.limiter != nil {
		api.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited))
	}
	api.Use(auth.New(cfg.Auth).Middleware)

	api.HandleFunc("/dashboard/stats", s.handleDashboardStats).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/categories", s.handleCategoryBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/balance", s.handleBalanceHistory).Methods(http.MethodGet)

	api.HandleFunc("/incomes", s.handleListIncomes).Methods(http.MethodGet)
	api.HandleFunc("/incomes", s.handleCreateIncome).Methods(http.MethodPost)
	api.HandleFunc("/incomes/{id}", s.handleUpdateIncome).Methods(http.MethodPut)
	api.HandleFunc("/incomes/{id}", s.handleDeleteIncome).Methods(http.MethodDelete)

	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/goals", s.handleListGoals).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.handleCreateGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}", s.handleUpdateGoal).Methods(http.MethodPut)
	api.HandleFunc("/goals/{id}", s.handleDeleteGoal).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/usage", s.handleBudgetUsage).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}", s.handleDeleteBudget).Methods(http.MethodDelete)

	// Outer chain: the trace middleware wraps the router so unmatched
	// requests are logged and counted too.
	var h http.Handler = r
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	if len(cfg.AllowedOrigins) > 0 {
		h = newCORS(cfg.AllowedOrigins).Handler(h)
	}
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP, s.routeTemplate, trace.NewMetrics(reg)).Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// newCORS answers preflight requests before routing so they never reach auth.
func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			trace.RequestIDHeader,
		},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         600,
	})
}

// routeTemplate labels metrics with the matched path template.
func (s *Server) routeTemplate(r *http.Request) string {
	var m mux.RouteMatch
	if !s.router.Match(r, &m) || m.Route == nil {
		return ""
	}
	tpl, err := m.Route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request, retryAfter int) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded",
			applog.NewFields().WithClientIP(s.detector.ExtractClientIP(r)).ToSlice()...)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").
		Header("Retry-After", strconv.Itoa(retryAfter)).
		Write(w)
}

// Shutdown stops background goroutines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Store.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentStorage).
				WarnContext(r.Context(), "Readiness check failed", applog.NewFields().WithError(err).ToSlice()...)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
