package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/middleware/auth"
	"dompet/internal/services"
	"dompet/internal/stats"
	"dompet/internal/store/memory"
)

type testServer struct {
	*Server
	store *memory.Store
	reg   *prometheus.Registry
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	st := memory.New()
	agg := stats.New(st, stats.WithLogger(applog.Discard()))
	reg := prometheus.NewRegistry()

	cfg := Config{
		Addr:     ":0",
		Auth:     auth.Config{DevUserID: "user-1"},
		Registry: reg,
		Logger:   applog.Discard(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv := NewServer(cfg, Services{
		Transactions: services.NewTransactionService(st,
			services.WithStats(agg),
			services.WithTransactionLogger(applog.Discard())),
		Categories: services.NewCategoryService(st),
		Goals:      services.NewGoalService(st),
		Budgets:    services.NewBudgetService(st),
		Reports:    services.NewReportService(st),
		Stats:      agg,
		Store:      st,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: st, reg: reg}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, nil)

	expectStatus(t, ts.do(t, http.MethodGet, "/healthz", nil), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodGet, "/readyz", nil), http.StatusOK)

	ts.store.FailWith(errors.New("connection refused"))
	expectStatus(t, ts.do(t, http.MethodGet, "/readyz", nil), http.StatusServiceUnavailable)
}

func TestResponsesCarrySecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, nil)
	rr := ts.do(t, http.MethodGet, "/healthz", nil)

	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Fatalf("X-Request-ID = %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ts := newTestServer(t, nil)
	rr := ts.do(t, http.MethodGet, "/nope", nil)
	expectStatus(t, rr, http.StatusNotFound)
	if got := decode[ErrorBody](t, rr); got.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.Auth = auth.Config{Secret: "s3cret"}
	})
	rr := ts.do(t, http.MethodGet, "/api/goals", nil)
	expectStatus(t, rr, http.StatusUnauthorized)

	// Public routes stay reachable
	expectStatus(t, ts.do(t, http.MethodGet, "/healthz", nil), http.StatusOK)
}

func TestExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"})
	expectStatus(t, rr, http.StatusCreated)
	cat := decode[categoryResponse](t, rr)
	if cat.Color != core.DefaultCategoryColor {
		t.Fatalf("color = %q", cat.Color)
	}

	rr = ts.do(t, http.MethodPost, "/api/expenses", map[string]string{
		"category_id": cat.ID,
		"amount":      "12,50",
		"description": "Groceries",
		"date":        "2025-03-05",
	})
	expectStatus(t, rr, http.StatusCreated)
	created := decode[expenseResponse](t, rr)
	if created.Amount != "12.50" || created.Date != "2025-03-05" {
		t.Fatalf("unexpected expense %+v", created)
	}

	stats := decode[statsResponse](t, ts.do(t, http.MethodGet, "/api/dashboard/stats", nil))
	if stats.TotalExpenses != "12.50" || stats.Balance != "-12.50" || stats.Stale {
		t.Fatalf("unexpected stats %+v", stats)
	}

	rr = ts.do(t, http.MethodPut, "/api/expenses/"+created.ID, map[string]string{
		"amount": "20", "description": "Groceries", "date": "2025-03-06",
	})
	expectStatus(t, rr, http.StatusOK)
	if got := decode[expenseResponse](t, rr); got.Amount != "20.00" || got.CategoryID != "" {
		t.Fatalf("unexpected update %+v", got)
	}

	// The write invalidated the cached snapshot
	stats = decode[statsResponse](t, ts.do(t, http.MethodGet, "/api/dashboard/stats", nil))
	if stats.TotalExpenses != "20.00" {
		t.Fatalf("stats not refreshed: %+v", stats)
	}

	list := decode[[]expenseResponse](t, ts.do(t, http.MethodGet, "/api/expenses?from=2025-03-06&to=2025-03-06", nil))
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
	list = decode[[]expenseResponse](t, ts.do(t, http.MethodGet, "/api/expenses?to=2025-03-05", nil))
	if len(list) != 0 {
		t.Fatalf("filtered list = %+v", list)
	}

	expectStatus(t, ts.do(t, http.MethodDelete, "/api/expenses/"+created.ID, nil), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/expenses/"+created.ID, nil), http.StatusNotFound)
}

func TestCreateIncomeRejectsBadInput(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"amount":`, http.StatusBadRequest},
		{"unknown field", `{"amount":"10","source":"Job","date":"2025-01-01","extra":1}`, http.StatusBadRequest},
		{"bad amount", `{"amount":"ten","source":"Job","date":"2025-01-01"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"amount":"-5","source":"Job","date":"2025-01-01"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"amount":"10","source":"Job","date":"01/01/2025"}`, http.StatusUnprocessableEntity},
		{"missing source", `{"amount":"10","date":"2025-01-01"}`, http.StatusUnprocessableEntity},
		{"unknown category", `{"amount":"10","source":"Job","date":"2025-01-01","category_id":"nope"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, ts.do(t, http.MethodPost, "/api/incomes", tt.body), tt.want)
		})
	}

	rr := ts.do(t, http.MethodPost, "/api/incomes", `{"amount":"1500","source":"Salary","date":"2025-01-31"}`)
	expectStatus(t, rr, http.StatusCreated)
	if got := decode[incomeResponse](t, rr); got.Amount != "1500.00" || got.Source != "Salary" {
		t.Fatalf("unexpected income %+v", got)
	}
}

func TestDashboardStatsReportsStaleOnFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.store.FailWith(errors.New("backend down"))

	rr := ts.do(t, http.MethodGet, "/api/dashboard/stats", nil)
	expectStatus(t, rr, http.StatusOK)
	got := decode[statsResponse](t, rr)
	if !got.Stale || got.Balance != "0.00" {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestListFailureIsInternalError(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.store.FailWith(errors.New("backend down"))

	rr := ts.do(t, http.MethodGet, "/api/incomes", nil)
	expectStatus(t, rr, http.StatusInternalServerError)
	if got := decode[ErrorBody](t, rr); strings.Contains(got.Error, "backend down") {
		t.Fatalf("internal cause leaked: %q", got.Error)
	}
}

func TestGoals(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodPost, "/api/goals", map[string]string{
		"name": "Bike", "target": "1000", "current": "250", "deadline": "2025-12-31",
	})
	expectStatus(t, rr, http.StatusCreated)
	g := decode[goalResponse](t, rr)
	if g.Progress != 25 || g.Completed || g.Deadline == nil || *g.Deadline != "2025-12-31" {
		t.Fatalf("unexpected goal %+v", g)
	}

	rr = ts.do(t, http.MethodPut, "/api/goals/"+g.ID, map[string]string{
		"name": "Bike", "target": "1000", "current": "1500",
	})
	expectStatus(t, rr, http.StatusOK)
	g = decode[goalResponse](t, rr)
	if g.Progress != 100 || !g.Completed || g.Deadline != nil {
		t.Fatalf("unexpected update %+v", g)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/goals", map[string]string{"name": "x", "target": "0"}), http.StatusUnprocessableEntity)
	expectStatus(t, ts.do(t, http.MethodPut, "/api/goals/missing", map[string]string{"name": "x", "target": "1"}), http.StatusNotFound)

	list := decode[[]goalResponse](t, ts.do(t, http.MethodGet, "/api/goals", nil))
	if len(list) != 1 {
		t.Fatalf("goals = %+v", list)
	}
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/goals/"+g.ID, nil), http.StatusNoContent)
}

func TestBudgetUsage(t *testing.T) {
	ts := newTestServer(t, nil)

	cat := decode[categoryResponse](t, ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "expense"}))
	rr := ts.do(t, http.MethodPost, "/api/budgets", map[string]any{
		"category_id": cat.ID, "limit": "100.00", "year": 2025, "month": 3,
	})
	expectStatus(t, rr, http.StatusCreated)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/expenses", map[string]string{
		"category_id": cat.ID, "amount": "75", "date": "2025-03-05",
	}), http.StatusCreated)

	usage := decode[[]budgetUsageResponse](t, ts.do(t, http.MethodGet, "/api/budgets/usage?year=2025&month=3", nil))
	if len(usage) != 1 {
		t.Fatalf("usage = %+v", usage)
	}
	if u := usage[0]; u.Spent != "75.00" || u.Remaining != "25.00" || u.Percent != 75 {
		t.Fatalf("unexpected usage %+v", u)
	}

	budgets := decode[[]budgetResponse](t, ts.do(t, http.MethodGet, "/api/budgets?year=2025&month=3", nil))
	if len(budgets) != 1 || budgets[0].Limit != "100.00" {
		t.Fatalf("budgets = %+v", budgets)
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/budgets/usage?year=2025&month=abc", nil), http.StatusUnprocessableEntity)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/budgets/usage?year=2025&month=13", nil), http.StatusUnprocessableEntity)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/budgets/"+budgets[0].ID, nil), http.StatusNoContent)
}

func TestBalanceHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodGet, "/api/dashboard/balance?months=3", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[[]monthlyBalanceResponse](t, rr); len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/dashboard/balance?months=0", nil), http.StatusUnprocessableEntity)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/dashboard/balance?months=61", nil), http.StatusUnprocessableEntity)

	rr = ts.do(t, http.MethodGet, "/api/dashboard/categories", nil)
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty breakdown should encode as [], got %s", rr.Body.String())
	}
}

func TestRateLimitedAPI(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.RequestsPerMinute = 1 })

	expectStatus(t, ts.do(t, http.MethodGet, "/api/goals", nil), http.StatusOK)
	rr := ts.do(t, http.MethodGet, "/api/goals", nil)
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}

	// Health checks are not limited
	expectStatus(t, ts.do(t, http.MethodGet, "/healthz", nil), http.StatusOK)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/api/goals", nil)

	rr := ts.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	if !strings.Contains(body, `dompet_http_requests_total{code="200",method="GET",route="/api/goals"} 1`) {
		t.Fatalf("metrics missing request counter:\n%s", body)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.RequestsPerMinute = 10 })
	ctx := context.Background()
	if err := ts.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := ts.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestCORSPreflightSkipsAuth(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.Auth = auth.Config{Secret: "s3cret"}
		c.AllowedOrigins = []string{"https://app.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)

	if rr.Code >= 300 {
		t.Fatalf("preflight status = %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not be allowed")
	}
}
