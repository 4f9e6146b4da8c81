package cache

import (
	"testing"
	"time"

	"glow/internal/log"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time           { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.Now)

	c.Set("k", "v")
	clock.Advance(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired too early")
	}
	clock.Advance(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestLRUCache_SetIfAbsent(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.Now)

	if v, existed := c.SetIfAbsent("k", "first"); existed || v != "first" {
		t.Fatalf("first SetIfAbsent = %q, %v", v, existed)
	}
	if v, existed := c.SetIfAbsent("k", "second"); !existed || v != "first" {
		t.Fatalf("second SetIfAbsent = %q, %v", v, existed)
	}
	clock.Advance(2 * time.Minute)
	if v, existed := c.SetIfAbsent("k", "third"); existed || v != "third" {
		t.Fatalf("SetIfAbsent after expiry = %q, %v", v, existed)
	}
}

func TestManager_CleanNow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(time.Hour)
	c.Set("c", 3)

	m := NewManager(log.Discard())
	m.Register(c)
	if n := m.CleanNow(); n != 2 {
		t.Fatalf("CleanNow() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := NewManager(log.Discard())
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	unstarted := NewManager(log.Discard())
	unstarted.Stop()
}
