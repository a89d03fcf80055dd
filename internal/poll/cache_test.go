package poll

import (
	"testing"
	"time"
)

func TestCache_ExpiresOnRead(t *testing.T) {
	clock := newFakeClock()
	c := NewCache[string]().WithClock(clock.Now)

	c.Set("ada", "0.45", time.Minute)
	c.Set("forever", "x", 0)

	if v, ok := c.Get("ada"); !ok || v != "0.45" {
		t.Fatalf("Get = (%q, %v), want (0.45, true)", v, ok)
	}

	clock.Advance(time.Minute)
	if _, ok := c.Get("ada"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 1 {
		t.Errorf("expired entry should be removed on read, Len = %d", c.Len())
	}
	if _, ok := c.Get("forever"); !ok {
		t.Error("ttl 0 entry should never expire")
	}
}

func TestCache_PurgeAndTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := NewCache[int]().WithClock(clock.Now)
	stored := clock.Now()

	c.Set("a", 1, time.Second)
	c.Set("b", 2, time.Hour)

	_, ts, ok := c.GetWithTime("b")
	if !ok || !ts.Equal(stored) {
		t.Fatalf("GetWithTime = (%v, %v), want stored time", ts, ok)
	}

	clock.Advance(2 * time.Second)
	if n := c.Purge(); n != 1 {
		t.Errorf("Purge removed %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len after purge = %d, want 1", c.Len())
	}

	c.Delete("b")
	if c.Len() != 0 {
		t.Errorf("Len after delete = %d, want 0", c.Len())
	}
}
