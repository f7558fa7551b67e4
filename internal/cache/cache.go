package cache

import (
	"sync"
	"time"
)

// Entry is a cached value together with the time it was written.
type Entry[T any] struct {
	Value     T
	CreatedAt time.Time
}

// Age returns how long ago the entry was written, relative to now.
func (e Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Cache defines a generic cache interface. Freshness is the caller's decision:
// Get returns whatever entry is stored, however old.
type Cache[T any] interface {
	// Get retrieves an entry from the cache
	Get(key string) (Entry[T], bool)

	// Put stores an entry, replacing any previous one under key
	Put(key string, entry Entry[T])

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopOnce    sync.Once
	onSweep     func(removed int)
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanOlderThan(maxAge time.Duration) int
}

// NewManager creates a new cache manager. onSweep, if not nil, is called after
// every sweep with the number of removed entries.
func NewManager(onSweep func(removed int)) *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
		onSweep:     onSweep,
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// Sweep removes entries older than maxAge from every registered cache.
func (m *Manager) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanOlderThan(maxAge)
	}
	if m.onSweep != nil {
		m.onSweep(total)
	}
	return total
}

// StartCleanup begins periodic cleanup of all registered caches. A non-positive
// interval leaves entries in place until they are overwritten.
func (m *Manager) StartCleanup(interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()
	go m.cleanup(interval, maxAge)
}

func (m *Manager) cleanup(interval, maxAge time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(maxAge)
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
