package texture

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"
)

func TestCacheAcquireSharesDecode(t *testing.T) {
	red := solidPNG(t, 4, 4, color.NRGBA{R: 255, A: 255})
	blue := solidPNG(t, 2, 2, color.NRGBA{B: 255, A: 255})
	res := newCountingResolver(map[string][]byte{"red.png": red, "blue.png": blue})
	c := NewCache(Config{Resolver: res})

	// Five nodes instancing two symbols.
	futures := []*Future{
		c.Acquire("red", "red.png"),
		c.Acquire("red", "red.png"),
		c.Acquire("blue", "blue.png"),
		c.Acquire("red", "red.png"),
		c.Acquire("blue", "blue.png"),
	}
	for _, f := range futures {
		waitTexture(t, f)
	}

	if got := res.total(); got != 2 {
		t.Errorf("resolver calls = %d, want 2", got)
	}
	if got := c.Stats().Decodes; got != 2 {
		t.Errorf("Stats().Decodes = %d, want 2", got)
	}
	if futures[0] != futures[1] || futures[0] != futures[3] {
		t.Error("Acquire() returned different futures for the same symbol")
	}
	if got := c.Refs("red"); got != 3 {
		t.Errorf("Refs(red) = %d, want 3", got)
	}
}

func TestCacheConcurrentAcquire(t *testing.T) {
	res := newCountingResolver(map[string][]byte{"a.png": solidPNG(t, 2, 2, color.NRGBA{G: 255, A: 255})})
	res.gate = make(chan struct{})
	c := NewCache(Config{Resolver: res})

	const callers = 16
	got := make([]*Future, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := range callers {
		go func() {
			defer wg.Done()
			got[i] = c.Acquire("a", "a.png")
		}()
	}
	wg.Wait()

	// Every caller received the in-flight future before the decode ran.
	if _, err := got[0].Result(); !errors.Is(err, ErrPending) {
		t.Errorf("Result() error = %v, want ErrPending", err)
	}
	close(res.gate)
	mustIdle(t, c)

	for i, f := range got {
		if f != got[0] {
			t.Fatalf("caller %d received a different future", i)
		}
	}
	if n := res.total(); n != 1 {
		t.Errorf("resolver calls = %d, want 1", n)
	}
}

func TestCacheReleaseFreesKey(t *testing.T) {
	res := newCountingResolver(map[string][]byte{"a.png": solidPNG(t, 2, 2, color.NRGBA{A: 255})})
	c := NewCache(Config{Resolver: res})

	f := c.Acquire("a", "a.png")
	c.Acquire("a", "a.png")
	tex := waitTexture(t, f)

	c.Release("a")
	if !c.Contains("a") {
		t.Fatal("key freed while one reference remains")
	}
	if tex.Destroyed() {
		t.Fatal("texture destroyed while one reference remains")
	}

	c.Release("a")
	if c.Contains("a") {
		t.Error("key still resident after last Release()")
	}
	if !tex.Destroyed() {
		t.Error("texture not destroyed after last Release()")
	}
	if got := c.Stats().Resident; got != 0 {
		t.Errorf("Stats().Resident = %d, want 0", got)
	}
}

func TestCacheReleaseWhileDecoding(t *testing.T) {
	res := newCountingResolver(map[string][]byte{"a.png": solidPNG(t, 2, 2, color.NRGBA{A: 255})})
	res.gate = make(chan struct{})
	c := NewCache(Config{Resolver: res})

	f := c.Acquire("a", "a.png")
	c.Release("a")
	if c.Contains("a") {
		t.Error("key resident after releasing an in-flight decode")
	}

	close(res.gate)
	mustIdle(t, c)

	if _, err := f.Result(); !errors.Is(err, ErrDiscarded) {
		t.Errorf("Result() error = %v, want ErrDiscarded", err)
	}
	f.mu.Lock()
	tex := f.tex
	f.mu.Unlock()
	if tex == nil || !tex.Destroyed() {
		t.Error("texture decoded after release was not destroyed")
	}
}

func TestCacheDecodeFailure(t *testing.T) {
	tests := []struct {
		name    string
		sources map[string][]byte
		wantErr error
	}{
		{"missing source", map[string][]byte{}, nil},
		{"empty data", map[string][]byte{"x": {}}, ErrEmptyData},
		{"not an image", map[string][]byte{"x": []byte("plain text, not pixels")}, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failures int
			var mu sync.Mutex
			c := NewCache(Config{
				Resolver: newCountingResolver(tt.sources),
				OnDecode: func(err error) {
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failures++
					}
				},
			})
			f := c.Acquire("x", "x")
			_, err := f.Wait(context.Background())
			if !errors.Is(err, ErrDecodeFailure) {
				t.Fatalf("Wait() error = %v, want ErrDecodeFailure", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Wait() error = %v, want %v", err, tt.wantErr)
			}
			mustIdle(t, c)
			if got := c.Stats().Failures; got != 1 {
				t.Errorf("Stats().Failures = %d, want 1", got)
			}
			mu.Lock()
			defer mu.Unlock()
			if failures != 1 {
				t.Errorf("OnDecode failures = %d, want 1", failures)
			}
		})
	}
}

func TestCacheLoadIsPrivate(t *testing.T) {
	res := newCountingResolver(map[string][]byte{"a.png": solidPNG(t, 3, 1, color.NRGBA{R: 255, A: 255})})
	c := NewCache(Config{Resolver: res})

	f1 := c.Load("a.png")
	f2 := c.Load("a.png")
	if f1 == f2 {
		t.Fatal("Load() returned a shared future")
	}
	t1 := waitTexture(t, f1)
	waitTexture(t, f2)
	if got := res.total(); got != 2 {
		t.Errorf("resolver calls = %d, want 2", got)
	}
	if c.Stats().Resident != 0 {
		t.Error("private loads must not become resident")
	}

	f1.Discard()
	if !t1.Destroyed() {
		t.Error("Discard() did not destroy the private texture")
	}
}

func TestCachePurge(t *testing.T) {
	res := newCountingResolver(map[string][]byte{"a.png": solidPNG(t, 1, 1, color.NRGBA{A: 255})})
	c := NewCache(Config{Resolver: res})
	tex := waitTexture(t, c.Acquire("a", "a.png"))
	c.Acquire("a", "a.png")

	c.Purge()
	if c.Contains("a") || !tex.Destroyed() {
		t.Error("Purge() left a resident texture")
	}
}

func TestFutureWaitContext(t *testing.T) {
	f := newFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestCacheIdleHonorsContext(t *testing.T) {
	res := newCountingResolver(map[string][]byte{"a.png": solidPNG(t, 2, 2, color.NRGBA{A: 255})})
	res.gate = make(chan struct{})
	c := NewCache(Config{Resolver: res})

	if err := c.Idle(context.Background()); err != nil {
		t.Fatalf("Idle() on an empty cache error = %v", err)
	}

	f := c.Acquire("a", "a.png")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Idle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Idle() with a stalled decode error = %v, want DeadlineExceeded", err)
	}

	close(res.gate)
	mustIdle(t, c)
	if _, err := f.Result(); err != nil {
		t.Errorf("Result() after Idle() error = %v", err)
	}

	// A later decode makes the cache busy again.
	res.gate = make(chan struct{})
	c.Load("a.png")
	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if err := c.Idle(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Idle() with a second stalled decode error = %v, want Canceled", err)
	}
	close(res.gate)
	mustIdle(t, c)
}
