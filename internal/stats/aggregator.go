// Package stats computes the dashboard totals for a user and memoizes them per
// calendar month.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dompet/internal/cache"
	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/store"
)

// DefaultFreshness is how long a snapshot is trusted before it is recomputed.
const DefaultFreshness = 5 * time.Minute

// DefaultCacheSize bounds the number of (user, month) snapshots kept in memory.
const DefaultCacheSize = 10000

// DefaultFallbackSize bounds the number of users whose last good snapshot is kept
// for failure fallback.
const DefaultFallbackSize = 10000

// Aggregator computes DashboardStats from the row store. Each instance owns its
// cache; instances never share snapshots.
type Aggregator struct {
	reader  store.AmountReader
	cache   cache.Cache[core.DashboardStats]
	window  time.Duration
	now     func() time.Time
	logger  *applog.Logger
	metrics *Metrics

	group singleflight.Group

	// last holds the latest good snapshot per user for failure fallback.
	last         *cache.LRU[core.DashboardStats]
	fallbackSize int

	// mu orders cache writes from a finished fetch against Invalidate.
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is one running recomputation for a cache key.
type flight struct {
	invalidated bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache replaces the default in-memory LRU.
func WithCache(c cache.Cache[core.DashboardStats]) Option {
	return func(a *Aggregator) { a.cache = c }
}

// WithFreshness sets the freshness window. Non-positive values keep the default.
func WithFreshness(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.window = d
		}
	}
}

// WithClock sets the clock used for month derivation and entry ageing.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *applog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithFallbackSize bounds how many users keep a fallback snapshot. Non-positive
// values keep the default.
func WithFallbackSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.fallbackSize = n
		}
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New creates an aggregator reading from reader.
func New(reader store.AmountReader, opts ...Option) *Aggregator {
	a := &Aggregator{
		reader:       reader,
		window:       DefaultFreshness,
		now:          time.Now,
		fallbackSize: DefaultFallbackSize,
		flights:      make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.last = cache.NewLRU[core.DashboardStats](a.fallbackSize)
	if a.cache == nil {
		a.cache = cache.NewLRU[core.DashboardStats](DefaultCacheSize)
	}
	if a.logger == nil {
		a.logger = applog.New(applog.DefaultConfig())
	}
	a.logger = a.logger.WithComponent(applog.ComponentStats)
	return a
}

// CacheKey builds the memo key for a user and calendar month.
func CacheKey(userID string, year, month int) string {
	return userID + "-" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

// Stats returns the dashboard snapshot for userID.
//
// An empty userID yields zero stats without touching the store. A failure is
// logged, never returned: the caller gets the last snapshot this aggregator
// produced for the user (zero if none) and ok=false.
func (a *Aggregator) Stats(ctx context.Context, userID string) (stats core.DashboardStats, ok bool) {
	if userID == "" {
		return core.DashboardStats{}, true
	}

	now := a.now()
	year, month := now.Year(), int(now.Month())
	key := CacheKey(userID, year, month)

	if s, fresh := a.lookup(key, now); fresh {
		a.metrics.hit()
		return s, true
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		// A concurrent flight may have filled the entry between our miss and now.
		if s, fresh := a.lookup(key, a.now()); fresh {
			a.metrics.hit()
			return s, nil
		}
		a.metrics.miss()
		return a.refresh(ctx, userID, year, month, key)
	})
	if err != nil {
		reason, errType := "backend", applog.ErrorTypeBackendQuery
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			reason, errType = "canceled", applog.ErrorTypeCanceled
		}
		a.metrics.fetchError(reason)
		a.logger.ErrorContext(ctx, "Error fetching dashboard stats",
			applog.NewFields().
				WithUser(userID).
				WithPeriod(year, month).
				WithOperation(applog.OpAggreg).
				WithErrorType(errType).
				WithError(err).
				ToSlice()...)
		return a.previous(userID), false
	}
	return v.(core.DashboardStats), true
}

// Invalidate drops the current-month snapshot for userID so the next call recomputes.
// A fetch already running for that key keeps serving its callers but does not
// store its result, and later callers start a new fetch.
func (a *Aggregator) Invalidate(userID string) {
	if userID == "" {
		return
	}
	now := a.now()
	key := CacheKey(userID, now.Year(), int(now.Month()))

	a.mu.Lock()
	if f, ok := a.flights[key]; ok {
		f.invalidated = true
	}
	a.cache.Delete(key)
	a.mu.Unlock()
	a.group.Forget(key)
}

func (a *Aggregator) lookup(key string, now time.Time) (core.DashboardStats, bool) {
	entry, found := a.cache.Get(key)
	if !found || entry.Age(now) >= a.window {
		return core.DashboardStats{}, false
	}
	return entry.Value, true
}

func (a *Aggregator) previous(userID string) core.DashboardStats {
	entry, _ := a.last.Get(userID)
	return entry.Value
}

func (a *Aggregator) refresh(ctx context.Context, userID string, year, month int, key string) (core.DashboardStats, error) {
	f := &flight{}
	a.mu.Lock()
	a.flights[key] = f
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		if a.flights[key] == f {
			delete(a.flights, key)
		}
		a.mu.Unlock()
	}()

	started := time.Now()
	s, err := a.compute(ctx, userID, year, month)
	a.metrics.observe(time.Since(started).Seconds())
	if err != nil {
		return core.DashboardStats{}, err
	}
	// Nobody is waiting for a cancelled fetch; do not store it.
	if err := ctx.Err(); err != nil {
		return core.DashboardStats{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// The store changed while we were reading it.
	if f.invalidated {
		return s, nil
	}
	created := a.now()
	a.cache.Put(key, cache.Entry[core.DashboardStats]{Value: s, CreatedAt: created})
	a.last.Put(userID, cache.Entry[core.DashboardStats]{Value: s, CreatedAt: created})
	return s, nil
}

// compute runs the four sum queries concurrently.
func (a *Aggregator) compute(ctx context.Context, userID string, year, month int) (core.DashboardStats, error) {
	monthStart, nextMonth := core.MonthBounds(year, month)

	queries := [4]store.AmountQuery{
		{Table: store.TableIncome, UserID: userID},
		{Table: store.TableExpenses, UserID: userID},
		{Table: store.TableIncome, UserID: userID, From: &monthStart, To: &nextMonth},
		{Table: store.TableExpenses, UserID: userID, From: &monthStart, To: &nextMonth},
	}
	var sums [4]core.Money

	g, gctx := errgroup.WithContext(ctx)
	for i := range queries {
		g.Go(func() error {
			total, err := SumAmounts(gctx, a.reader, queries[i])
			if err != nil {
				return err
			}
			sums[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.DashboardStats{}, err
	}

	return core.NewDashboardStats(sums[0], sums[1], sums[2], sums[3]), nil
}

// SumAmounts runs q and adds up the returned amounts. An empty result is zero.
func SumAmounts(ctx context.Context, reader store.AmountReader, q store.AmountQuery) (core.Money, error) {
	rows, err := reader.Amounts(ctx, q)
	if err != nil {
		return core.Money{}, fmt.Errorf("query %s: %w", q.Table, err)
	}
	var total core.Money
	for _, row := range rows {
		m, err := core.ParseAmount(row.Amount)
		if err != nil {
			return core.Money{}, fmt.Errorf("coerce %s amount %q: %w", q.Table, row.Amount, err)
		}
		total = total.Add(m)
	}
	return total, nil
}
