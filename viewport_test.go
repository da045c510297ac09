package compose

import (
	"errors"
	stdimage "image"
	"math"
	"testing"
)

func TestViewportValidate(t *testing.T) {
	tests := []struct {
		name string
		vp   Viewport
		ok   bool
	}{
		{"valid", Viewport{Scale: 1, Width: 4, Height: 4}, true},
		{"zero width", Viewport{Scale: 1, Height: 4}, false},
		{"negative height", Viewport{Scale: 1, Width: 4, Height: -1}, false},
		{"zero scale", Viewport{Width: 4, Height: 4}, false},
		{"infinite scale", Viewport{Scale: math.Inf(1), Width: 4, Height: 4}, false},
		{"NaN origin", Viewport{X: math.NaN(), Scale: 1, Width: 4, Height: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vp.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidViewport) {
				t.Errorf("Validate() = %v, want ErrInvalidViewport", err)
			}
		})
	}
}

func TestViewportVisibleRect(t *testing.T) {
	vp := Viewport{X: 10, Y: 20, Scale: 2, Width: 100, Height: 50}
	want := Rect{MinX: 10, MinY: 20, MaxX: 60, MaxY: 45}
	if got := vp.VisibleRect(); got != want {
		t.Errorf("VisibleRect() = %+v, want %+v", got, want)
	}
}

func TestViewportPixelRect(t *testing.T) {
	vp := Viewport{X: 10, Y: 0, Scale: 2, Width: 100, Height: 50}
	tests := []struct {
		name string
		r    Rect
		want stdimage.Rectangle
	}{
		{"aligned", NewRect(10, 0, 5, 5), stdimage.Rect(0, 0, 10, 10)},
		{"rounded", NewRect(10.3, 0.2, 2, 2), stdimage.Rect(1, 0, 5, 4)},
		{"offscreen", NewRect(0, 0, 2, 2), stdimage.Rect(-20, 0, -16, 4)},
		{"sub-pixel is one pixel", NewRect(10, 0, 0.1, 0.1), stdimage.Rect(0, 0, 1, 1)},
		{"huge is clamped", NewRect(-1e19, -1e19, 2e19, 2e19),
			stdimage.Rect(-maxPixelEdge, -maxPixelEdge, maxPixelEdge, maxPixelEdge)},
		{"far offscreen", NewRect(1e19, 0, 1, 1), stdimage.Rect(maxPixelEdge, 0, maxPixelEdge+1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vp.PixelRect(tt.r); got != tt.want {
				t.Errorf("PixelRect(%+v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestViewportTransformClipsToSurface(t *testing.T) {
	vp := Viewport{Scale: 1, Width: 8, Height: 8}
	tr := vp.transformFor(NewRect(-4, 6, 8, 8))
	if want := stdimage.Rect(-4, 6, 4, 14); tr.Rect != want {
		t.Errorf("Rect = %v, want %v", tr.Rect, want)
	}
	if want := stdimage.Rect(0, 6, 4, 8); tr.Visible != want {
		t.Errorf("Visible = %v, want %v", tr.Visible, want)
	}
}
