package image

import "github.com/chewxy/math32"

// Sample performs bilinear filtering at normalized coordinates (u, v).
// (0,0) is the top-left corner of the first pixel and (1,1) the bottom-right
// corner of the last one, so texel centers sit at (i+0.5)/w. Coordinates
// outside [0,1] clamp to the edge.
func (b *Buf) Sample(u, v float32) Color {
	fx := u*float32(b.width) - 0.5
	fy := v*float32(b.height) - 0.5
	return b.sampleTexel(fx, fy)
}

// SampleTexel performs bilinear filtering at continuous texel coordinates,
// where integer values address texel centers.
func (b *Buf) SampleTexel(fx, fy float32) Color {
	return b.sampleTexel(fx, fy)
}

func (b *Buf) sampleTexel(fx, fy float32) Color {
	x0f := math32.Floor(fx)
	y0f := math32.Floor(fy)
	tx := fx - x0f
	ty := fy - y0f

	x0 := int(x0f)
	y0 := int(y0f)
	x1 := clampInt(x0+1, 0, b.width-1)
	y1 := clampInt(y0+1, 0, b.height-1)
	x0 = clampInt(x0, 0, b.width-1)
	y0 = clampInt(y0, 0, b.height-1)

	if tx == 0 && ty == 0 {
		return b.At(x0, y0)
	}

	c00 := b.At(x0, y0)
	c10 := b.At(x1, y0)
	c01 := b.At(x0, y1)
	c11 := b.At(x1, y1)

	return Color{
		R: lerp2D(c00.R, c10.R, c01.R, c11.R, tx, ty),
		G: lerp2D(c00.G, c10.G, c01.G, c11.G, tx, ty),
		B: lerp2D(c00.B, c10.B, c01.B, c11.B, tx, ty),
		A: lerp2D(c00.A, c10.A, c01.A, c11.A, tx, ty),
	}
}

// lerp performs linear interpolation between a and b.
func lerp(a, b, t float32) float32 {
	return a*(1-t) + b*t
}

// lerp2D performs bilinear interpolation on a 2x2 grid.
func lerp2D(v00, v10, v01, v11, tx, ty float32) float32 {
	v0 := lerp(v00, v10, tx)
	v1 := lerp(v01, v11, tx)
	return lerp(v0, v1, ty)
}
