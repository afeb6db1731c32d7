package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/cache"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("report:acme", "value1")
	val, ok := c.Get("report:acme")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_FreshUntilTTLElapses(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	c := cache.New[int](5*time.Minute, cache.WithClock(clock.Now), cache.WithSweepInterval(0))

	c.Set("k", 42)

	clock.Advance(5 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected entry to be fresh at exactly the TTL")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to be stale after the TTL")
	}
}

func TestCache_SetRestampsEntry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	c := cache.New[string](time.Minute, cache.WithClock(clock.Now), cache.WithSweepInterval(0))

	c.Set("k", "first")
	clock.Advance(50 * time.Second)
	c.Set("k", "second")
	clock.Advance(50 * time.Second)

	val, ok := c.Get("k")
	if !ok || val != "second" {
		t.Fatalf("expected last write to win and be fresh, got %q ok=%v", val, ok)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_SweepRemovesStaleEntries(t *testing.T) {
	c := cache.New[string](10*time.Millisecond, cache.WithSweepInterval(10*time.Millisecond))
	defer c.Close()

	c.Set("k", "v")
	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Fatalf("expected sweep to purge stale entry, %d left", c.Len())
	}
}
