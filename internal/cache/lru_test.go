package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRUGetReturnsOldEntries(t *testing.T) {
	c := NewLRU[string](10)
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Put("k", Entry[string]{Value: "v", CreatedAt: old})

	e, ok := c.Get("k")
	if !ok || e.Value != "v" || !e.CreatedAt.Equal(old) {
		t.Fatalf("expected stored entry back, got %+v ok=%v", e, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("reads must not evict, size=%d", c.Size())
	}
}

func TestLRUPutOverwrites(t *testing.T) {
	c := NewLRU[int](10)
	c.Put("k", Entry[int]{Value: 1})
	c.Put("k", Entry[int]{Value: 2})
	if e, _ := c.Get("k"); e.Value != 2 || c.Size() != 1 {
		t.Fatalf("expected overwrite, got %+v size=%d", e, c.Size())
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2)
	c.Put("a", Entry[int]{Value: 1})
	c.Put("b", Entry[int]{Value: 2})
	c.Get("a")
	c.Put("c", Entry[int]{Value: 3})

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
}

func TestLRUUnbounded(t *testing.T) {
	c := NewLRU[int](0)
	for i := 0; i < 100; i++ {
		c.Put(string(rune('a'+i%26))+string(rune('a'+i/26)), Entry[int]{Value: i})
	}
	if c.Size() != 100 {
		t.Fatalf("expected 100 entries, got %d", c.Size())
	}
}

func TestCleanOlderThan(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRU[int](10).WithClock(func() time.Time { return now })
	c.Put("old", Entry[int]{Value: 1, CreatedAt: now.Add(-10 * time.Minute)})
	c.Put("new", Entry[int]{Value: 2, CreatedAt: now.Add(-time.Minute)})

	if removed := c.CleanOlderThan(5 * time.Minute); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get("old"); ok {
		t.Fatalf("old entry should be gone")
	}
}

func TestManagerSweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewLRU[int](10).WithClock(func() time.Time { return now })
	b := NewLRU[int](10).WithClock(func() time.Time { return now })
	a.Put("x", Entry[int]{CreatedAt: now.Add(-time.Hour)})
	b.Put("y", Entry[int]{CreatedAt: now.Add(-time.Hour)})
	b.Put("z", Entry[int]{CreatedAt: now})

	var swept int
	m := NewManager(func(n int) { swept = n })
	m.Register(a)
	m.Register(b)

	if got := m.Sweep(time.Minute); got != 2 || swept != 2 {
		t.Fatalf("expected 2 removed, got %d (callback %d)", got, swept)
	}
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRU[int](1))
	m.StartCleanup(time.Millisecond, time.Minute)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent
}

func TestManagerDisabledInterval(t *testing.T) {
	m := NewManager(nil)
	m.StartCleanup(0, time.Minute)
	m.Stop()
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU[int](50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Put(key, Entry[int]{Value: j})
				c.Get(key)
				if j%10 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
	if c.Size() > 26 {
		t.Fatalf("unexpected size %d", c.Size())
	}
}
