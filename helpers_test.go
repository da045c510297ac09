package compose

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"
)

// fixedClock keeps the grading time uniform at zero.
var fixedClock = func() time.Time { return time.Unix(1700000000, 0) }

// solidPNG encodes a w x h PNG filled with c.
func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
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

// sources is an in-memory resolver that counts resolves per reference.
type sources struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls map[string]int
}

func newSources() *sources {
	return &sources{data: make(map[string][]byte), calls: make(map[string]int)}
}

func (s *sources) add(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ref] = data
}

func (s *sources) Resolve(_ context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[ref]++
	data, ok := s.data[ref]
	if !ok {
		return nil, fmt.Errorf("no source %q", ref)
	}
	return data, nil
}

func (s *sources) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// newTestCompositor creates an 8x8 compositor with a fixed clock.
func newTestCompositor(t *testing.T, src *sources, opts ...Option) *Compositor {
	t.Helper()
	base := []Option{WithResolver(src), WithClock(fixedClock), WithWorkers(1)}
	c, err := New(Viewport{Scale: 1, Width: 8, Height: 8}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// settle waits for every started decode and renders one frame.
func settle(t *testing.T, c *Compositor) {
	t.Helper()
	if err := c.cache.Idle(context.Background()); err != nil {
		t.Fatalf("Idle() error = %v", err)
	}
	if err := c.RenderFrame(context.Background()); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
}

// snapshot returns the surface as NRGBA.
func snapshot(t *testing.T, c *Compositor) *stdimage.NRGBA {
	t.Helper()
	img, err := c.Snapshot(c.Viewport().Width, c.Viewport().Height, nil)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	return img.(*stdimage.NRGBA)
}

func imageNode(id NodeID, z int64, bounds Rect, source string) SceneNode {
	return SceneNode{
		ID:        id,
		ZOrder:    z,
		Bounds:    bounds,
		Kind:      KindImage,
		Source:    source,
		BlendMode: BlendNormal,
		Opacity:   1,
	}
}

func adjustmentNode(id NodeID, z int64, bounds Rect, g GradingParams) SceneNode {
	return SceneNode{
		ID:        id,
		ZOrder:    z,
		Bounds:    bounds,
		Kind:      KindAdjustment,
		BlendMode: BlendNormal,
		Opacity:   1,
		Grading:   &g,
	}
}

var full = NewRect(0, 0, 8, 8)
