// Package image provides the float raster buffers used by the compositor.
//
// A Buf stores straight (non-premultiplied) RGBA with one float32 per channel,
// which is what the grading and blend stages read and write. Buffers are
// plain memory: render targets, adjustment buffers and backdrop captures are
// all Bufs, and the sampler mirrors a GPU sampler with linear filtering and
// clamp-to-edge addressing.
package image

import (
	"errors"
	stdimage "image"
)

// Common errors for buffer operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")
)

// Color is a straight-alpha color with float32 channels, nominally in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Transparent is the zero color.
var Transparent = Color{}

// Buf is a float32 RGBA buffer, 4 channels per pixel, rows packed.
//
// Buf is not safe for concurrent writes to the same pixels; disjoint rows
// may be written from different goroutines.
type Buf struct {
	pix    []float32
	width  int
	height int
}

// NewBuf creates a transparent buffer with the given dimensions.
func NewBuf(width, height int) (*Buf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Buf{
		pix:    make([]float32, width*height*4),
		width:  width,
		height: height,
	}, nil
}

// MustBuf is like NewBuf but panics on invalid dimensions.
// Intended for tests and constant sizes.
func MustBuf(width, height int) *Buf {
	b, err := NewBuf(width, height)
	if err != nil {
		panic(err)
	}
	return b
}

// Width returns the buffer width in pixels.
func (b *Buf) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buf) Height() int { return b.height }

// Bounds returns the buffer rectangle with origin (0, 0).
func (b *Buf) Bounds() stdimage.Rectangle {
	return stdimage.Rect(0, 0, b.width, b.height)
}

// Pix returns the raw channel data, 4 float32 per pixel.
func (b *Buf) Pix() []float32 { return b.pix }

// Row returns the channel data of row y.
func (b *Buf) Row(y int) []float32 {
	off := y * b.width * 4
	return b.pix[off : off+b.width*4]
}

// At returns the pixel at (x, y), or Transparent outside the buffer.
func (b *Buf) At(x, y int) Color {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return Transparent
	}
	i := (y*b.width + x) * 4
	return Color{R: b.pix[i], G: b.pix[i+1], B: b.pix[i+2], A: b.pix[i+3]}
}

// Set writes the pixel at (x, y). Out-of-bounds writes are ignored.
func (b *Buf) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	i := (y*b.width + x) * 4
	b.pix[i] = c.R
	b.pix[i+1] = c.G
	b.pix[i+2] = c.B
	b.pix[i+3] = c.A
}

// Clear sets every pixel to Transparent.
func (b *Buf) Clear() {
	clear(b.pix)
}

// Fill sets every pixel to c.
func (b *Buf) Fill(c Color) {
	for i := 0; i < len(b.pix); i += 4 {
		b.pix[i] = c.R
		b.pix[i+1] = c.G
		b.pix[i+2] = c.B
		b.pix[i+3] = c.A
	}
}

// Clone returns a deep copy of the buffer.
func (b *Buf) Clone() *Buf {
	c := &Buf{
		pix:    make([]float32, len(b.pix)),
		width:  b.width,
		height: b.height,
	}
	copy(c.pix, b.pix)
	return c
}

// Equal reports whether both buffers have the same size and identical channels.
func (b *Buf) Equal(o *Buf) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// CopyRect copies the sr rectangle of src into b with its top-left corner at dp.
// Both rectangles are clipped to their buffers.
func (b *Buf) CopyRect(dp stdimage.Point, src *Buf, sr stdimage.Rectangle) {
	clipped := sr.Intersect(src.Bounds())
	if clipped.Empty() {
		return
	}
	dp = dp.Add(clipped.Min.Sub(sr.Min))
	sr = clipped
	dr := stdimage.Rectangle{Min: dp, Max: dp.Add(sr.Size())}.Intersect(b.Bounds())
	sr.Min = sr.Min.Add(dr.Min.Sub(dp))
	if dr.Empty() {
		return
	}
	n := dr.Dx() * 4
	for y := 0; y < dr.Dy(); y++ {
		di := ((dr.Min.Y+y)*b.width + dr.Min.X) * 4
		si := ((sr.Min.Y+y)*src.width + sr.Min.X) * 4
		copy(b.pix[di:di+n], src.pix[si:si+n])
	}
}

// Quantize rounds every channel to the nearest 8-bit value, clamping to [0, 1].
// This reproduces what an RGBA8Unorm render attachment stores.
func (b *Buf) Quantize() {
	for i, v := range b.pix {
		b.pix[i] = float32(to8(v)) / 255
	}
}

// to8 converts a unit float to an 8-bit channel value.
func to8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// clampInt clamps val to [minVal, maxVal].
func clampInt(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
