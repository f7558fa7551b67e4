package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded cache. Old entries are never dropped on read; they leave
// only through capacity eviction, Delete, or CleanOlderThan.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	now     func() time.Time
	items   map[string]*list.Element
	lru     *list.List
}

var _ Cache[int] = (*LRU[int])(nil)

type cacheItem[T any] struct {
	key   string
	entry Entry[T]
}

// NewLRU creates a new LRU cache holding at most maxSize entries. A non-positive
// maxSize means unbounded.
func NewLRU[T any](maxSize int) *LRU[T] {
	return &LRU[T]{
		maxSize: maxSize,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// WithClock replaces the clock used by CleanOlderThan.
func (c *LRU[T]) WithClock(now func() time.Time) *LRU[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get retrieves an entry from the cache
func (c *LRU[T]) Get(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return Entry[T]{}, false
	}

	// Move to front (most recently used)
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem[T]).entry, true
}

// Put stores an entry in the cache
func (c *LRU[T]) Put(key string, entry Entry[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{key: key, entry: entry}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.maxSize > 0 && c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes a key from the cache
func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *LRU[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanOlderThan removes entries whose age is at least maxAge and returns how many went.
func (c *LRU[T]) CleanOlderThan(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(*cacheItem[T]).entry.Age(now) >= maxAge {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *LRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
