package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/chewxy/math32"

	"github.com/gogpu/compose/internal/image"
)

func TestBlendChannelBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		mode        BlendMode
		base, blend float32
		want        float32
	}{
		{"overlay(0,0)", BlendOverlay, 0, 0, 0},
		{"overlay(1,1)", BlendOverlay, 1, 1, 1},
		{"overlay dark base multiplies", BlendOverlay, 0.25, 0.5, 0.25},
		{"overlay light base screens", BlendOverlay, 0.75, 0.5, 0.75},
		{"hard-light(0,0)", BlendHardLight, 0, 0, 0},
		{"hard-light(1,1)", BlendHardLight, 1, 1, 1},
		{"hard-light dark blend multiplies", BlendHardLight, 0.5, 0.25, 0.25},
		{"soft-light neutral", BlendSoftLight, 0.3, 0.5, 0.3},
		{"soft-light darkens", BlendSoftLight, 0.5, 0, 0.25},
		{"soft-light brightens", BlendSoftLight, 0.5, 1, math32.Sqrt(0.5)},
		{"soft-light low base", BlendSoftLight, 0.25, 1, 0.5},
		{"vivid-light blend 0", BlendVividLight, 0.7, 0, 0},
		{"vivid-light blend 1", BlendVividLight, 0.2, 1, 1},
		{"vivid-light white survives burn", BlendVividLight, 1, 0, 1},
		{"vivid-light white near burn end", BlendVividLight, 1, 1e-6, 1},
		{"vivid-light black survives dodge", BlendVividLight, 0, 1, 0},
		{"vivid-light black near dodge end", BlendVividLight, 0, 1 - 1e-6, 0},
		{"vivid-light blend 0.5", BlendVividLight, 0.4, 0.5, 0.4},
		{"vivid-light burn", BlendVividLight, 0.5, 0.25, 0},
		{"vivid-light dodge", BlendVividLight, 0.25, 0.75, 0.5},
		{"difference", BlendDifference, 0.2, 0.7, 0.5},
		{"normal passes blend", BlendNormal, 0.2, 0.7, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlendChannel(tt.mode, tt.base, tt.blend)
			if absf32(got-tt.want) > 1e-6 {
				t.Errorf("BlendChannel(%v, %v, %v) = %v, want %v", tt.mode, tt.base, tt.blend, got, tt.want)
			}
		})
	}
}

func TestBlendDifferenceOfEqualIsZero(t *testing.T) {
	for i := 0; i <= 255; i++ {
		a := float32(i) / 255
		if got := BlendChannel(BlendDifference, a, a); got != 0 {
			t.Fatalf("difference(%v, %v) = %v, want 0", a, a, got)
		}
	}
}

func TestBlendVividLightContinuousAtHalf(t *testing.T) {
	const eps = 1e-4
	for i := 0; i <= 20; i++ {
		base := float32(i) / 20
		below := BlendChannel(BlendVividLight, base, 0.5-eps)
		at := BlendChannel(BlendVividLight, base, 0.5)
		if d := absf32(below - at); d > 1e-3 {
			t.Errorf("vivid-light(%v) jumps by %v at blend=0.5", base, d)
		}
	}
}

func TestBlendApply(t *testing.T) {
	backdrop := filledBuf(4, 4, image.Color{R: 0.8, G: 0.4, B: 0.2, A: 0.6})
	top := filledBuf(4, 4, image.Color{R: 0.3, G: 0.4, B: 0.9, A: 1})

	tests := []struct {
		name    string
		top     *image.Buf
		opacity float32
		want    image.Color
	}{
		{
			name:    "full opacity",
			top:     top,
			opacity: 1,
			want:    image.Color{R: 0.5, G: 0, B: 0.7, A: 0.6},
		},
		{
			name:    "half opacity",
			top:     top,
			opacity: 0.5,
			want:    image.Color{R: 0.65, G: 0.2, B: 0.45, A: 0.6},
		},
		{
			name:    "zero opacity",
			top:     top,
			opacity: 0,
			want:    image.Color{R: 0.8, G: 0.4, B: 0.2, A: 0.6},
		},
		{
			name:    "transparent top",
			top:     filledBuf(4, 4, image.Color{R: 1, G: 1, B: 1, A: 0}),
			opacity: 1,
			want:    image.Color{R: 0.8, G: 0.4, B: 0.2, A: 0.6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := image.MustBuf(4, 4)
			capture := Capture{Buf: backdrop, Frame: 7}
			err := (Blend{}).Apply(context.Background(), dst, tt.top, capture, 7,
				BlendUniforms{Mode: BlendDifference, Opacity: tt.opacity})
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got := dst.At(2, 1); !colorApproxEqual(got, tt.want, 1e-5) {
				t.Errorf("Apply() pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlendApplyInPlace(t *testing.T) {
	backdrop := filledBuf(2, 2, image.Color{R: 0.5, G: 0.5, B: 0.5, A: 1})
	top := backdrop.Clone()

	err := (Blend{}).Apply(context.Background(), backdrop, top, Capture{Buf: backdrop, Frame: 1}, 1,
		BlendUniforms{Mode: BlendDifference, Opacity: 1})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := backdrop.At(0, 0); got != (image.Color{A: 1}) {
		t.Errorf("Apply() in place = %v, want opaque black", got)
	}
}

func TestBlendApplyRejectsStaleBackdrop(t *testing.T) {
	buf := filledBuf(2, 2, image.Color{A: 1})
	err := (Blend{}).Apply(context.Background(), image.MustBuf(2, 2), buf, Capture{Buf: buf, Frame: 3}, 4,
		BlendUniforms{Mode: BlendOverlay, Opacity: 1})
	if !errors.Is(err, ErrStaleBackdrop) {
		t.Errorf("Apply() error = %v, want ErrStaleBackdrop", err)
	}

	err = (Blend{}).Apply(context.Background(), image.MustBuf(2, 2), buf, Capture{Frame: 4}, 4,
		BlendUniforms{Mode: BlendOverlay, Opacity: 1})
	if !errors.Is(err, ErrStaleBackdrop) {
		t.Errorf("Apply(nil capture) error = %v, want ErrStaleBackdrop", err)
	}
}

func TestBlendApplySizeMismatch(t *testing.T) {
	err := (Blend{}).Apply(context.Background(), image.MustBuf(2, 2), image.MustBuf(3, 2),
		Capture{Buf: image.MustBuf(2, 2), Frame: 1}, 1, BlendUniforms{Mode: BlendOverlay})
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Apply() error = %v, want ErrSizeMismatch", err)
	}
}

func TestBlendModeString(t *testing.T) {
	tests := []struct {
		mode BlendMode
		want string
	}{
		{BlendNormal, "normal"},
		{BlendSoftLight, "soft-light"},
		{BlendVividLight, "vivid-light"},
		{BlendMode(42), "BlendMode(42)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("BlendMode(%d).String() = %q, want %q", uint32(tt.mode), got, tt.want)
		}
	}
}
