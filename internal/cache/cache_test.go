package cache

import (
	"testing"
	"time"
)

func TestTTLGetSet(t *testing.T) {
	c := NewTTL[int](time.Minute, 10)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewTTL[string](time.Minute, 10)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry survived past its TTL")
	}
}

func TestTTLEvictsOldestWhenFull(t *testing.T) {
	c := NewTTL[int](time.Minute, 2)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("first", 1)
	now = now.Add(time.Second)
	c.Set("second", 2)
	now = now.Add(time.Second)
	c.Set("third", 3)

	if _, ok := c.Get("first"); ok {
		t.Error("oldest entry not evicted")
	}
	if _, ok := c.Get("second"); !ok {
		t.Error("second entry evicted unexpectedly")
	}
	if _, ok := c.Get("third"); !ok {
		t.Error("newest entry missing")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestTTLSetExistingKeyDoesNotEvict(t *testing.T) {
	c := NewTTL[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if v, _ := c.Get("a"); v != 3 {
		t.Errorf("Get(a) = %d, want 3", v)
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewTTL[int](time.Minute, 10)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Minute)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
