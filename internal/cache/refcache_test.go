package cache

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewRef(t *testing.T) {
	c := NewRef[string, int]()
	if c == nil {
		t.Fatal("NewRef returned nil")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestRefCacheAcquireRelease(t *testing.T) {
	c := NewRef[string, int]()
	createCalled := 0
	create := func() int {
		createCalled++
		return 42
	}

	v, created := c.Acquire("a", create)
	if !created || v != 42 {
		t.Errorf("Acquire() = (%d, %v), want (42, true)", v, created)
	}
	v, created = c.Acquire("a", create)
	if created || v != 42 {
		t.Errorf("second Acquire() = (%d, %v), want (42, false)", v, created)
	}
	if createCalled != 1 {
		t.Errorf("create called %d times, want 1", createCalled)
	}
	if got := c.Refs("a"); got != 2 {
		t.Errorf("Refs() = %d, want 2", got)
	}

	if _, freed := c.Release("a"); freed {
		t.Error("Release() freed key with one reference left")
	}
	if got := c.Refs("a"); got != 1 {
		t.Errorf("Refs() after Release() = %d, want 1", got)
	}

	v, freed := c.Release("a")
	if !freed || v != 42 {
		t.Errorf("last Release() = (%d, %v), want (42, true)", v, freed)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("key still resident after last Release()")
	}

	// Releasing an absent key is a no-op.
	if _, freed := c.Release("a"); freed {
		t.Error("Release() of absent key reported freed")
	}
}

func TestRefCacheReacquireAfterFree(t *testing.T) {
	c := NewRef[string, int]()
	n := 0
	create := func() int { n++; return n }

	c.Acquire("k", create)
	c.Release("k")
	v, created := c.Acquire("k", create)
	if !created || v != 2 {
		t.Errorf("Acquire() after free = (%d, %v), want (2, true)", v, created)
	}
}

func TestRefCacheDrain(t *testing.T) {
	c := NewRef[string, int]()
	for i := range 5 {
		c.Acquire(strconv.Itoa(i), func() int { return i })
		c.Acquire(strconv.Itoa(i), func() int { return -1 })
	}

	values := c.Drain()
	if len(values) != 5 {
		t.Errorf("Drain() returned %d values, want 5", len(values))
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Drain() = %d, want 0", c.Len())
	}
}

func TestRefCacheStats(t *testing.T) {
	c := NewRef[string, int]()
	c.Acquire("a", func() int { return 1 })
	c.Acquire("a", func() int { return 1 })
	c.Acquire("b", func() int { return 2 })

	s := c.Stats()
	want := Stats{Len: 2, Refs: 3, Creates: 2, Acquires: 3}
	if s != want {
		t.Errorf("Stats() = %+v, want %+v", s, want)
	}
}

func TestRefCacheConcurrentAcquire(t *testing.T) {
	c := NewRef[string, int]()
	var creates atomic.Int32

	const goroutines = 32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			c.Acquire("shared", func() int {
				creates.Add(1)
				return 7
			})
		}()
	}
	wg.Wait()

	if got := creates.Load(); got != 1 {
		t.Errorf("create called %d times, want 1", got)
	}
	if got := c.Refs("shared"); got != goroutines {
		t.Errorf("Refs() = %d, want %d", got, goroutines)
	}
}
