package texture

import (
	"bytes"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp" // register BMP
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/gogpu/compose/internal/image"
)

// DefaultMaxTextureSize is the largest texture edge kept at full resolution.
// It matches the common maxTextureDimension2D limit of WebGPU adapters.
const DefaultMaxTextureSize = 8192

// Decoder errors.
var (
	// ErrEmptyData is returned when a source resolves to zero bytes.
	ErrEmptyData = errors.New("texture: empty data")

	// ErrUnsupportedFormat is returned when the data is not a known image type.
	ErrUnsupportedFormat = errors.New("texture: unsupported format")
)

// Decoder turns raw source bytes into pixels.
type Decoder interface {
	Decode(data []byte) (*image.Buf, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(data []byte) (*image.Buf, error)

// Decode calls f(data).
func (f DecoderFunc) Decode(data []byte) (*image.Buf, error) { return f(data) }

// ImageDecoder decodes PNG, JPEG, GIF, BMP, TIFF and WebP data.
// Images with an edge larger than MaxSize are downscaled with Catmull-Rom
// filtering, preserving aspect ratio.
type ImageDecoder struct {
	// MaxSize is the maximum edge length. Zero means DefaultMaxTextureSize.
	MaxSize int
}

// Decode implements Decoder.
func (d ImageDecoder) Decode(data []byte) (*image.Buf, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind.MIME.Value)
	}

	img, format, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}

	maxSize := d.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxTextureSize
	}
	if b := img.Bounds(); b.Dx() > maxSize || b.Dy() > maxSize {
		w, h := fitSize(b.Dx(), b.Dy(), maxSize)
		slogger().Debug("texture: downscaling",
			"format", format, "width", b.Dx(), "height", b.Dy(), "to_width", w, "to_height", h)
		dst := stdimage.NewNRGBA(stdimage.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}

	return image.FromImage(img)
}

// fitSize scales w x h down so the longer edge equals limit.
func fitSize(w, h, limit int) (int, int) {
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
