package texture

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"image/color"
	"image/png"
	"sync"
	"testing"
)

// solidPNG encodes a w x h PNG filled with c.
func solidPNG(t testing.TB, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// countingResolver serves sources from a map and counts calls per ref.
type countingResolver struct {
	mu      sync.Mutex
	sources map[string][]byte
	calls   map[string]int
	gate    chan struct{} // when non-nil, Resolve blocks until closed
}

func newCountingResolver(sources map[string][]byte) *countingResolver {
	return &countingResolver{sources: sources, calls: make(map[string]int)}
}

func (r *countingResolver) Resolve(_ context.Context, ref string) ([]byte, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[ref]++
	data, ok := r.sources[ref]
	if !ok {
		return nil, fmt.Errorf("no such source %q", ref)
	}
	return data, nil
}

func (r *countingResolver) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func waitTexture(t *testing.T, f *Future) *Texture {
	t.Helper()
	tex, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return tex
}

// mustIdle waits for every in-flight decode of c.
func mustIdle(t *testing.T, c *Cache) {
	t.Helper()
	if err := c.Idle(context.Background()); err != nil {
		t.Fatalf("Idle() error = %v", err)
	}
}
