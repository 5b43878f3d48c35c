package cache

import (
	"context"
	"testing"
	"time"
)

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](size, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	// a was used last, so b is evicted.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d/%d, want 1/2", hits, misses)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, now := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	*now = now.Add(30 * time.Second)
	c.Set("b", "2b")

	*now = now.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("CleanExpired() = %d, want 0 (a was already dropped by Get)", removed)
	}

	*now = now.Add(time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d", c.Size())
	}
	c.Set("c", "3")
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Error("cache should be usable after Clear")
	}
}

func TestDayKey(t *testing.T) {
	if got := DayKey(time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC)); got != "2024-03-05" {
		t.Errorf("DayKey = %q", got)
	}
	if DayKey(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)) == DayKey(time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)) {
		t.Error("consecutive days share a key")
	}
}

func TestManager(t *testing.T) {
	c, now := newTestCache(10, time.Second)
	c.Set("a", "1")

	m := NewManager()
	m.Register(c)

	if n := m.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d before expiry", n)
	}
	*now = now.Add(2 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
