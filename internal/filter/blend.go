package filter

import (
	"context"
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/compose/internal/image"
)

// ErrStaleBackdrop is returned when a backdrop capture was not taken in the
// frame being rendered.
var ErrStaleBackdrop = errors.New("filter: stale backdrop capture")

// BlendMode selects the per-channel formula of the blend stage.
// Values match the WGSL mode constants.
type BlendMode uint32

// Blend modes. Normal never reaches the blend stage.
const (
	BlendNormal BlendMode = iota
	BlendOverlay
	BlendSoftLight
	BlendHardLight
	BlendVividLight
	BlendDifference
)

// String returns the mode name.
func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "normal"
	case BlendOverlay:
		return "overlay"
	case BlendSoftLight:
		return "soft-light"
	case BlendHardLight:
		return "hard-light"
	case BlendVividLight:
		return "vivid-light"
	case BlendDifference:
		return "difference"
	default:
		return fmt.Sprintf("BlendMode(%d)", uint32(m))
	}
}

// Capture is a backdrop capture stamped with the frame it was taken in.
type Capture struct {
	Buf   *image.Buf
	Frame uint64
}

// BlendUniforms is the uniform block of the blend stage.
type BlendUniforms struct {
	Mode    BlendMode
	Opacity float32
}

// Blend is the two-input blend stage.
type Blend struct {
	// Workers bounds the number of concurrently shaded bands.
	Workers int
}

// Apply blends top over the backdrop capture into dst. All three buffers
// must have the same size; dst may be the capture buffer itself.
// frame is the frame being rendered; a capture from any other frame is
// rejected with ErrStaleBackdrop.
func (b Blend) Apply(ctx context.Context, dst, top *image.Buf, backdrop Capture, frame uint64, u BlendUniforms) error {
	if backdrop.Buf == nil || backdrop.Frame != frame {
		return fmt.Errorf("%w: captured in frame %d, rendering frame %d", ErrStaleBackdrop, backdrop.Frame, frame)
	}
	bd := backdrop.Buf
	if dst.Bounds() != top.Bounds() || dst.Bounds() != bd.Bounds() {
		return ErrSizeMismatch
	}
	opacity := clamp01(u.Opacity)
	return forEachBand(ctx, dst.Height(), b.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			out, tr, br := dst.Row(y), top.Row(y), bd.Row(y)
			for i := 0; i < len(out); i += 4 {
				t := tr[i+3] * opacity
				for c := range 3 {
					base := br[i+c]
					res := clamp01(BlendChannel(u.Mode, base, tr[i+c]))
					out[i+c] = base + (res-base)*t
				}
				out[i+3] = br[i+3]
			}
		}
	})
}

// BlendChannel evaluates one channel of mode with base = backdrop and
// blend = top. The result is not clamped.
func BlendChannel(mode BlendMode, base, blend float32) float32 {
	switch mode {
	case BlendOverlay:
		return hardLight(blend, base)
	case BlendHardLight:
		return hardLight(base, blend)
	case BlendSoftLight:
		return softLight(base, blend)
	case BlendVividLight:
		return vividLight(base, blend)
	case BlendDifference:
		return math32.Abs(base - blend)
	default:
		return blend
	}
}

// hardLight multiplies or screens depending on blend.
// Overlay is hardLight with the roles swapped.
func hardLight(base, blend float32) float32 {
	if blend < 0.5 {
		return 2 * base * blend
	}
	return 1 - 2*(1-base)*(1-blend)
}

// softLight is the W3C soft-light formula.
func softLight(base, blend float32) float32 {
	if blend <= 0.5 {
		return base - (1-2*blend)*base*(1-base)
	}
	var d float32
	if base <= 0.25 {
		d = ((16*base-12)*base + 4) * base
	} else {
		d = math32.Sqrt(base)
	}
	return base + (2*blend-1)*(d-base)
}

// vividLight burns below 0.5 and dodges above. At the ends of the range
// white survives the burn and black survives the dodge.
func vividLight(base, blend float32) float32 {
	if blend < 0.5 {
		if blend <= 0 {
			if base >= 1 {
				return 1
			}
			return 0
		}
		return 1 - (1-base)/(2*blend)
	}
	if blend >= 1 {
		if base <= 0 {
			return 0
		}
		return 1
	}
	return base / (2 * (1 - blend))
}
