package filter

import (
	"context"
	"errors"

	"github.com/chewxy/math32"

	"github.com/gogpu/compose/internal/image"
)

// Rec. 709 luma weights.
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// Fixed grading constants.
const (
	// TemperatureShift is the red/blue offset per unit of temperature.
	TemperatureShift = 0.1
	// BloomThreshold is the highlight level above which bloom adds energy.
	BloomThreshold = 0.8
)

// ErrSizeMismatch is returned when buffers passed to a stage disagree in size.
var ErrSizeMismatch = errors.New("filter: buffer size mismatch")

// Region places a destination buffer inside its node.
//
// Destination pixel (x, y) has its center at node pixel
// (X + x + 0.5, Y + y + 0.5); the node is W x H pixels, so normalized node
// coordinates are that point divided by (W, H). A buffer clipped by the
// viewport therefore shades exactly like the same pixels of the unclipped
// node.
type Region struct {
	X, Y float32
	W, H float32
}

// InputMap maps normalized node coordinates to normalized input texture
// coordinates: in = uv * Scale + Offset.
type InputMap struct {
	ScaleU, ScaleV   float32
	OffsetU, OffsetV float32
}

// IdentityInput samples an input that covers the whole node.
var IdentityInput = InputMap{ScaleU: 1, ScaleV: 1}

// CaptureInput returns the mapping for an input that holds exactly the
// destination pixels described by r, with size w x h.
func CaptureInput(r Region, w, h int) InputMap {
	return InputMap{
		ScaleU:  r.W / float32(w),
		ScaleV:  r.H / float32(h),
		OffsetU: -r.X / float32(w),
		OffsetV: -r.Y / float32(h),
	}
}

// GradingUniforms is the flat uniform block of the grading stage.
// Field order matches the WGSL GradingUniforms struct.
type GradingUniforms struct {
	Exposure            float32
	Contrast            float32
	Saturation          float32
	Temperature         float32
	ChromaticAberration float32
	Grain               float32
	GrainSize           float32
	Vignette            float32
	Bloom               float32
	Sharpness           float32
	CenterX             float32
	CenterY             float32
	VignetteInner       float32
	VignetteOuter       float32
	Time                float32

	Region Region
	Input  InputMap
}

// NeutralGrading returns uniforms that leave colors unchanged.
func NeutralGrading() GradingUniforms {
	return GradingUniforms{
		Contrast:      1,
		Saturation:    1,
		GrainSize:     1,
		CenterX:       0.5,
		CenterY:       0.5,
		VignetteInner: 0.35,
		VignetteOuter: 0.85,
		Input:         IdentityInput,
	}
}

// Grading is the color-grading stage.
type Grading struct {
	// Workers bounds the number of concurrently shaded bands.
	// Zero means GOMAXPROCS.
	Workers int
}

// Apply shades every pixel of dst from src. src and dst must be different
// buffers; src is sampled with bilinear filtering and clamp-to-edge.
func (g Grading) Apply(ctx context.Context, dst, src *image.Buf, u GradingUniforms) error {
	if dst == src {
		return ErrSizeMismatch
	}
	if u.Region.W <= 0 || u.Region.H <= 0 {
		return ErrSizeMismatch
	}
	sh := newGradingShader(src, u)
	return forEachBand(ctx, dst.Height(), g.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := dst.Row(y)
			for x := range dst.Width() {
				c := sh.shade(float32(x)+0.5, float32(y)+0.5)
				i := x * 4
				row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
			}
		}
	})
}

// Resample copies src into dst through the same coordinate mapping as
// Apply, without any color stage. Used for nodes without grading.
func (g Grading) Resample(ctx context.Context, dst, src *image.Buf, r Region, in InputMap) error {
	if r.W <= 0 || r.H <= 0 {
		return ErrSizeMismatch
	}
	return forEachBand(ctx, dst.Height(), g.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := dst.Row(y)
			v := (r.Y + float32(y) + 0.5) / r.H
			for x := range dst.Width() {
				u := (r.X + float32(x) + 0.5) / r.W
				c := src.Sample(u*in.ScaleU+in.OffsetU, v*in.ScaleV+in.OffsetV)
				i := x * 4
				row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
			}
		}
	})
}

// gradingShader holds per-pass constants derived from the uniforms.
type gradingShader struct {
	src      *image.Buf
	u        GradingUniforms
	exposure float32
	texelU   float32
	texelV   float32
	grainSz  float32
}

func newGradingShader(src *image.Buf, u GradingUniforms) *gradingShader {
	gs := u.GrainSize
	if gs <= 0 {
		gs = 1
	}
	return &gradingShader{
		src:      src,
		u:        u,
		exposure: math32.Exp2(u.Exposure),
		texelU:   1 / float32(src.Width()),
		texelV:   1 / float32(src.Height()),
		grainSz:  gs,
	}
}

// sample reads the input at normalized node coordinates.
func (s *gradingShader) sample(u, v float32) image.Color {
	in := s.u.Input
	return s.src.Sample(u*in.ScaleU+in.OffsetU, v*in.ScaleV+in.OffsetV)
}

// shade evaluates the grading pipeline at destination fragment (fx, fy).
func (s *gradingShader) shade(fx, fy float32) image.Color {
	u := &s.u
	px := u.Region.X + fx
	py := u.Region.Y + fy
	uvX := px / u.Region.W
	uvY := py / u.Region.H

	// Chromatic aberration.
	offX := (uvX - u.CenterX) * u.ChromaticAberration
	offY := (uvY - u.CenterY) * u.ChromaticAberration
	base := s.sample(uvX, uvY)
	r := s.sample(uvX+offX, uvY+offY).R
	g := base.G
	b := s.sample(uvX-offX, uvY-offY).B
	a := base.A

	// Sharpness against the diagonal neighbor.
	in := u.Input
	n := s.src.Sample(uvX*in.ScaleU+in.OffsetU+s.texelU, uvY*in.ScaleV+in.OffsetV+s.texelV)
	r += (r - n.R) * u.Sharpness
	g += (g - n.G) * u.Sharpness
	b += (b - n.B) * u.Sharpness

	// Exposure.
	r *= s.exposure
	g *= s.exposure
	b *= s.exposure

	// Contrast around mid grey.
	r = (r-0.5)*u.Contrast + 0.5
	g = (g-0.5)*u.Contrast + 0.5
	b = (b-0.5)*u.Contrast + 0.5

	// Saturation.
	luma := r*lumR + g*lumG + b*lumB
	r = luma + (r-luma)*u.Saturation
	g = luma + (g-luma)*u.Saturation
	b = luma + (b-luma)*u.Saturation

	// White balance.
	r += u.Temperature * TemperatureShift
	b -= u.Temperature * TemperatureShift

	// Bloom.
	r += max(r-BloomThreshold, 0) * u.Bloom
	g += max(g-BloomThreshold, 0) * u.Bloom
	b += max(b-BloomThreshold, 0) * u.Bloom

	// Vignette.
	dist := math32.Hypot(uvX-u.CenterX, uvY-u.CenterY)
	falloff := 1 - smoothstep(u.VignetteInner, u.VignetteOuter, dist)
	vig := 1 + (falloff-1)*u.Vignette
	r *= vig
	g *= vig
	b *= vig

	// Grain.
	gx := math32.Floor(px / s.grainSz)
	gy := math32.Floor(py / s.grainSz)
	noise := (grainHash(gx, gy, u.Time) - 0.5) * u.Grain
	r += noise
	g += noise
	b += noise

	return image.Color{R: clamp01(r), G: clamp01(g), B: clamp01(b), A: a}
}

// grainHash is the classic fract(sin(dot)) hash, offset by time.
func grainHash(x, y, t float32) float32 {
	v := math32.Sin(x*12.9898+y*78.233+t) * 43758.5453
	return v - math32.Floor(v)
}

// smoothstep is the Hermite step between edge0 < edge1.
// Equal edges degrade to a hard step.
func smoothstep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// clamp01 clamps v to [0, 1]; NaN maps to 0.
func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
