// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
)

// TextureView represents a view into a host texture.
type TextureView interface {
	// Destroy releases resources associated with this view.
	Destroy()
}

// RenderTarget defines where presented frames go.
//
// Targets may support CPU access (Pixels), GPU access (TextureView), or both.
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// TextureView returns the GPU texture view for this target.
	// Returns nil for CPU-only targets.
	TextureView() TextureView

	// Pixels returns direct access to pixel data, premultiplied, 4 bytes
	// per pixel in Format's channel order.
	// Returns nil for GPU-only targets.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// PixmapTarget is a CPU-backed render target.
//
// Pixels are premultiplied 8-bit RGBA, or BGRA when created with
// NewPixmapTargetFormat and TextureFormatBGRA8Unorm.
//
// Example:
//
//	target := render.NewPixmapTarget(800, 600)
//	_ = compositor.Present(target)
//	img := target.Image()
type PixmapTarget struct {
	img    *image.RGBA
	format gputypes.TextureFormat
}

// NewPixmapTarget creates a new RGBA8 render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		format: gputypes.TextureFormatRGBA8Unorm,
	}
}

// NewPixmapTargetFormat creates a target with an explicit 8-bit format.
// Any format other than BGRA8Unorm is treated as RGBA8Unorm.
func NewPixmapTargetFormat(width, height int, format gputypes.TextureFormat) *PixmapTarget {
	t := NewPixmapTarget(width, height)
	if format == gputypes.TextureFormatBGRA8Unorm {
		t.format = format
	}
	return t
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a render target.
// The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img, format: gputypes.TextureFormatRGBA8Unorm}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Format returns the pixel format.
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return t.format
}

// TextureView returns nil as this is a CPU-only target.
func (t *PixmapTarget) TextureView() TextureView {
	return nil
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte {
	return t.img.Pix
}

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int {
	return t.img.Stride
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target. For BGRA targets the
// red and blue channels are swapped relative to what image.RGBA expects.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Clear fills the entire target with the given color.
func (t *PixmapTarget) Clear(c color.Color) {
	r, g, b, a := c.RGBA()
	//nolint:gosec // G115: shift leaves 8 bits
	px := [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	if t.format == gputypes.TextureFormatBGRA8Unorm {
		px[0], px[2] = px[2], px[0]
	}

	pix := t.img.Pix
	for y := range t.Height() {
		row := pix[y*t.img.Stride : y*t.img.Stride+t.Width()*4]
		for i := 0; i < len(row); i += 4 {
			copy(row[i:i+4], px[:])
		}
	}
}

// GetPixel returns the color at the given coordinates in RGBA order.
func (t *PixmapTarget) GetPixel(x, y int) color.RGBA {
	c := t.img.RGBAAt(x, y)
	if t.format == gputypes.TextureFormatBGRA8Unorm {
		c.R, c.B = c.B, c.R
	}
	return c
}

// Resize creates a new backing image with the given dimensions.
// The contents are not preserved.
func (t *PixmapTarget) Resize(width, height int) {
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Ensure PixmapTarget implements RenderTarget.
var _ RenderTarget = (*PixmapTarget)(nil)

// SurfaceTarget wraps a window surface view from the host application.
// It has no CPU pixels; hosts present through integration/display instead.
type SurfaceTarget struct {
	width  int
	height int
	format gputypes.TextureFormat
	view   TextureView
}

// NewSurfaceTarget creates a render target from a window surface.
func NewSurfaceTarget(width, height int, format gputypes.TextureFormat, view TextureView) *SurfaceTarget {
	return &SurfaceTarget{
		width:  width,
		height: height,
		format: format,
		view:   view,
	}
}

// Width returns the surface width in pixels.
func (t *SurfaceTarget) Width() int {
	return t.width
}

// Height returns the surface height in pixels.
func (t *SurfaceTarget) Height() int {
	return t.height
}

// Format returns the surface pixel format.
func (t *SurfaceTarget) Format() gputypes.TextureFormat {
	return t.format
}

// TextureView returns the current frame's texture view.
func (t *SurfaceTarget) TextureView() TextureView {
	return t.view
}

// Pixels returns nil as surfaces do not support CPU access.
func (t *SurfaceTarget) Pixels() []byte {
	return nil
}

// Stride returns 0 as surfaces do not support CPU access.
func (t *SurfaceTarget) Stride() int {
	return 0
}

// Ensure SurfaceTarget implements RenderTarget.
var _ RenderTarget = (*SurfaceTarget)(nil)
