package filter

import "github.com/gogpu/compose/internal/image"

// Test helper functions shared across filter tests.

// filledBuf creates a buffer filled with c.
func filledBuf(w, h int, c image.Color) *image.Buf {
	b := image.MustBuf(w, h)
	b.Fill(c)
	return b
}

// gradientBuf creates a buffer with a horizontal red ramp and a vertical
// green ramp.
func gradientBuf(w, h int) *image.Buf {
	b := image.MustBuf(w, h)
	for y := range h {
		for x := range w {
			b.Set(x, y, image.Color{
				R: float32(x) / float32(w-1),
				G: float32(y) / float32(h-1),
				B: 0.5,
				A: 1,
			})
		}
	}
	return b
}

// fullRegion covers a w x h node with a buffer of the same size.
func fullRegion(w, h int) Region {
	return Region{W: float32(w), H: float32(h)}
}

// absf32 returns the absolute value of a float32.
func absf32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// colorApproxEqual compares two colors with tolerance.
func colorApproxEqual(a, b image.Color, tolerance float32) bool {
	return absf32(a.R-b.R) < tolerance &&
		absf32(a.G-b.G) < tolerance &&
		absf32(a.B-b.B) < tolerance &&
		absf32(a.A-b.A) < tolerance
}
