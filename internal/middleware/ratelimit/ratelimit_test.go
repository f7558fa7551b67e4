package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, rpm int) (*Limiter, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: rpm, Now: c.Now})
	t.Cleanup(rl.Stop)
	return rl, c
}

func TestAllowWithinLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own budget")
	}
	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Fatalf("unexpected metrics %+v", got)
	}
}

func TestWindowResets(t *testing.T) {
	rl, c := newTestLimiter(t, 1)

	rl.Allow("ip")
	if rl.Allow("ip") {
		t.Fatal("second request should be limited")
	}
	// Steady traffic must not keep the window open forever
	c.Advance(30 * time.Second)
	rl.Allow("ip")
	c.Advance(30 * time.Second)
	if !rl.Allow("ip") {
		t.Fatal("new window should allow the request")
	}
}

func TestRetryAfter(t *testing.T) {
	rl, c := newTestLimiter(t, 1)

	if got := rl.RetryAfter("unknown"); got != 1 {
		t.Fatalf("RetryAfter(unknown) = %d, want 1", got)
	}
	rl.Allow("ip")
	c.Advance(45 * time.Second)
	if got := rl.RetryAfter("ip"); got != 15 {
		t.Fatalf("RetryAfter = %d, want 15", got)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, c := newTestLimiter(t, 10)

	rl.Allow("old")
	c.Advance(11 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(ok)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q, want 60", rr.Header().Get("Retry-After"))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
