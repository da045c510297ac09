package image

import (
	stdimage "image"
	"image/color"
)

// FromImage converts a standard library image into a float buffer.
// The result holds straight alpha regardless of the source color model.
func FromImage(img stdimage.Image) (*Buf, error) {
	bounds := img.Bounds()
	buf, err := NewBuf(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	// Fast path for NRGBA images, which already store straight alpha.
	if nrgba, ok := img.(*stdimage.NRGBA); ok {
		for y := range buf.height {
			src := nrgba.Pix[(y+bounds.Min.Y-nrgba.Rect.Min.Y)*nrgba.Stride+(bounds.Min.X-nrgba.Rect.Min.X)*4:]
			dst := buf.Row(y)
			for i := range dst {
				dst[i] = float32(src[i]) / 255
			}
		}
		return buf, nil
	}

	for y := range buf.height {
		for x := range buf.width {
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			buf.Set(x, y, Color{
				R: float32(c.R) / 0xffff,
				G: float32(c.G) / 0xffff,
				B: float32(c.B) / 0xffff,
				A: float32(c.A) / 0xffff,
			})
		}
	}
	return buf, nil
}

// ToNRGBA converts the buffer to an 8-bit straight-alpha image.
func (b *Buf) ToNRGBA() *stdimage.NRGBA {
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, b.width, b.height))
	for i, v := range b.pix {
		img.Pix[i] = to8(v)
	}
	return img
}

// ToRGBA converts the buffer to an 8-bit premultiplied image.
func (b *Buf) ToRGBA() *stdimage.RGBA {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, b.width, b.height))
	WriteRGBA8(img.Pix, img.Stride, b)
	return img
}

// WriteRGBA8 writes b as premultiplied RGBA8 into dst, row by row with the
// given stride. Rows or columns that do not fit in dst are skipped.
func WriteRGBA8(dst []byte, stride int, b *Buf) {
	w := min(b.width, stride/4)
	for y := range b.height {
		off := y * stride
		if off+w*4 > len(dst) {
			return
		}
		row := b.Row(y)
		out := dst[off : off+w*4]
		for x := range w {
			i := x * 4
			a := clamp01(row[i+3])
			out[i] = to8(clamp01(row[i]) * a)
			out[i+1] = to8(clamp01(row[i+1]) * a)
			out[i+2] = to8(clamp01(row[i+2]) * a)
			out[i+3] = to8(a)
		}
	}
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
