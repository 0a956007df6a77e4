package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	t   time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestGetWithinTTL(t *testing.T) {
	clk := newFakeClock()
	c := New[string](15 * time.Minute)
	c.now = clk.now

	c.Set("k", "v")
	clk.advance(14 * time.Minute)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected hit with v, got %q ok=%v", got, ok)
	}
}

func TestGetAfterTTLIsMiss(t *testing.T) {
	clk := newFakeClock()
	c := New[string](15 * time.Minute)
	c.now = clk.now

	c.Set("k", "v")
	clk.advance(15*time.Minute + time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after TTL")
	}
	if n := c.Len(); n != 0 {
		t.Errorf("expired entry should not count, Len=%d", n)
	}
}

func TestSetRestartsLifetime(t *testing.T) {
	clk := newFakeClock()
	c := New[int](time.Hour)
	c.now = clk.now

	c.Set("k", 1)
	clk.advance(50 * time.Minute)
	c.Set("k", 2)
	clk.advance(50 * time.Minute)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Fatalf("expected overwrite to restart TTL, got %d ok=%v", got, ok)
	}
}

func TestDelete(t *testing.T) {
	c := New[string](time.Hour)
	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestMissOnUnknownKey(t *testing.T) {
	c := New[string](time.Hour)
	if _, ok := c.Get("nope"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 10 {
		t.Errorf("expected 10 live keys, got %d", c.Len())
	}
}
