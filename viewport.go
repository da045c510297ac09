package compose

import (
	stdimage "image"
	"math"
)

// Viewport maps scene space onto the surface.
//
// (X, Y) is the scene coordinate under the top-left surface pixel and
// Scale is the number of pixels per scene unit. Width and Height are the
// surface size in pixels.
type Viewport struct {
	X, Y          float64
	Scale         float64
	Width, Height int
}

// Validate reports whether the viewport can back a surface.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return ErrInvalidViewport
	}
	if !(v.Scale > 0) || math.IsInf(v.Scale, 0) || !isFinite(v.X) || !isFinite(v.Y) {
		return ErrInvalidViewport
	}
	return nil
}

// VisibleRect returns the scene-space rectangle covered by the surface.
func (v Viewport) VisibleRect() Rect {
	return Rect{
		MinX: v.X,
		MinY: v.Y,
		MaxX: v.X + float64(v.Width)/v.Scale,
		MaxY: v.Y + float64(v.Height)/v.Scale,
	}
}

// SurfaceBounds returns the surface rectangle in pixels.
func (v Viewport) SurfaceBounds() stdimage.Rectangle {
	return stdimage.Rect(0, 0, v.Width, v.Height)
}

// PixelRect returns the surface pixel rectangle of a scene rectangle.
// Edges are rounded to the nearest pixel so that abutting nodes stay
// seamless; a non-empty rectangle is at least one pixel in each direction.
// The result may extend past the surface; edges are clamped to
// ±maxPixelEdge.
func (v Viewport) PixelRect(r Rect) stdimage.Rectangle {
	x0 := pixelEdge((r.MinX - v.X) * v.Scale)
	y0 := pixelEdge((r.MinY - v.Y) * v.Scale)
	x1 := pixelEdge((r.MaxX - v.X) * v.Scale)
	y1 := pixelEdge((r.MaxY - v.Y) * v.Scale)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return stdimage.Rect(x0, y0, x1, y1)
}

// maxPixelEdge bounds pixel coordinates so that rect arithmetic cannot
// overflow int.
const maxPixelEdge = 1 << 30

// pixelEdge rounds a scaled edge to a pixel coordinate.
func pixelEdge(f float64) int {
	return int(math.Round(math.Max(-maxPixelEdge, math.Min(maxPixelEdge, f))))
}

// Transform places an object on the surface for one frame.
type Transform struct {
	// Rect is the node's full pixel rectangle in surface coordinates.
	Rect stdimage.Rectangle
	// Visible is Rect clipped to the surface.
	Visible stdimage.Rectangle
}

// transformFor computes the transform of bounds under v.
func (v Viewport) transformFor(bounds Rect) Transform {
	r := v.PixelRect(bounds)
	return Transform{Rect: r, Visible: r.Intersect(v.SurfaceBounds())}
}
