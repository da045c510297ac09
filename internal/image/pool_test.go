package image

import (
	"errors"
	"sync"
	"testing"
)

func TestNewPool(t *testing.T) {
	tests := []struct {
		name         string
		maxPerBucket int
		wantMaxSize  int
	}{
		{"zero means unlimited", 0, 0},
		{"positive limit", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(tt.maxPerBucket)
			if pool == nil {
				t.Fatal("NewPool returned nil")
			}
			if pool.maxSize != tt.wantMaxSize {
				t.Errorf("maxSize = %d, want %d", pool.maxSize, tt.wantMaxSize)
			}
		})
	}
}

func TestPool_GetPut_Basic(t *testing.T) {
	pool := NewPool(4)

	buf1, err := pool.Get(100, 50)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf1.Width() != 100 || buf1.Height() != 50 {
		t.Errorf("got dimensions %dx%d, want 100x50", buf1.Width(), buf1.Height())
	}

	buf1.Set(0, 0, Color{R: 1, G: 0.5, B: 0.25, A: 1})
	pool.Put(buf1)

	buf2, err := pool.Get(100, 50)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf2 != buf1 {
		t.Error("Get() after Put() did not reuse the pooled buffer")
	}
	if got := buf2.At(0, 0); got != Transparent {
		t.Errorf("reused buffer not cleared: got %v", got)
	}
}

func TestPool_MaxSize(t *testing.T) {
	pool := NewPool(3)

	buffers := make([]*Buf, 5)
	for i := range buffers {
		buffers[i] = MustBuf(10, 10)
	}
	for _, b := range buffers {
		pool.Put(b)
	}

	if got := pool.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestPool_SeparateBuckets(t *testing.T) {
	pool := NewPool(2)
	pool.Put(MustBuf(10, 10))
	pool.Put(MustBuf(20, 10))

	b, _ := pool.Get(20, 10)
	if b.Width() != 20 {
		t.Errorf("Get(20, 10) width = %d, want 20", b.Width())
	}
	if got := pool.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	pool.Drain()
	if got := pool.Len(); got != 0 {
		t.Errorf("Len() after Drain() = %d, want 0", got)
	}
}

func TestPool_GetInvalidDimensions(t *testing.T) {
	pool := NewPool(4)

	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 100},
		{"zero height", 100, 0},
		{"negative width", -10, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pool.Get(tt.width, tt.height)
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("Get() error = %v, want ErrInvalidDimensions", err)
			}
		})
	}
}

func TestPool_PutNil(t *testing.T) {
	pool := NewPool(4)
	pool.Put(nil)
	if got := pool.Len(); got != 0 {
		t.Errorf("Len() after Put(nil) = %d, want 0", got)
	}
}

func TestPool_Concurrent(t *testing.T) {
	pool := NewPool(10)
	const goroutines = 16

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range goroutines {
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				size := 8 + (id%3)*8
				buf, err := pool.Get(size, size)
				if err != nil {
					t.Errorf("goroutine %d: Get() error = %v", id, err)
					return
				}
				buf.Set(0, 0, Color{R: float32(j) / 100, A: 1})
				pool.Put(buf)
			}
		}(i)
	}
	wg.Wait()

	pool.mu.Lock()
	defer pool.mu.Unlock()
	for key, bucket := range pool.buckets {
		if len(bucket) > pool.maxSize {
			t.Errorf("bucket %+v has %d buffers, exceeds maxSize %d", key, len(bucket), pool.maxSize)
		}
		for i, buf := range bucket {
			if got := buf.At(0, 0); got != Transparent {
				t.Errorf("bucket %+v buffer %d not cleared: %v", key, i, got)
			}
		}
	}
}

func BenchmarkPool_GetPut(b *testing.B) {
	pool := NewPool(8)
	for b.Loop() {
		buf, _ := pool.Get(256, 256)
		pool.Put(buf)
	}
}
