// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/compose/render"
)

// Common errors returned by Display operations.
var (
	// ErrClosed is returned when operations are attempted on a closed display.
	ErrClosed = errors.New("display: closed")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("display: invalid dimensions")

	// ErrNoTextureCreator is returned when the drawer has no texture creator.
	ErrNoTextureCreator = errors.New("display: drawer has no texture creator")
)

// Presenter writes a finished frame into a render target.
// *compose.Compositor implements Presenter.
type Presenter interface {
	Present(target render.RenderTarget) error
}

// textureDestroyer is implemented by host textures that hold GPU memory.
type textureDestroyer interface {
	Destroy()
}

// Options controls where the frame is drawn.
type Options struct {
	// X, Y is the top-left position in window pixels.
	X, Y float32
}

// Display uploads compositor frames to a host texture.
type Display struct {
	staging     *render.PixmapTarget
	texture     gpucontext.Texture
	oldTexture  gpucontext.Texture
	sizeChanged bool
	closed      bool
}

// New creates a display for frames of the given size.
func New(width, height int) (*Display, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	return &Display{staging: render.NewPixmapTarget(width, height)}, nil
}

// Width returns the frame width in pixels.
func (d *Display) Width() int { return d.staging.Width() }

// Height returns the frame height in pixels.
func (d *Display) Height() int { return d.staging.Height() }

// Target returns the staging target frames are presented into.
func (d *Display) Target() *render.PixmapTarget { return d.staging }

// Texture returns the current host texture, or nil before the first upload.
func (d *Display) Texture() gpucontext.Texture { return d.texture }

// Resize changes the frame size. The host texture is recreated on the next
// upload; the old one is destroyed once its replacement exists.
func (d *Display) Resize(width, height int) error {
	if d.closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if width == d.Width() && height == d.Height() {
		return nil
	}
	d.staging.Resize(width, height)
	d.sizeChanged = true
	return nil
}

// RenderTo presents src into the staging target, uploads it and draws it
// at (0, 0).
func (d *Display) RenderTo(dc gpucontext.TextureDrawer, src Presenter) error {
	return d.RenderToEx(dc, src, Options{})
}

// RenderToEx is RenderTo with an explicit position.
func (d *Display) RenderToEx(dc gpucontext.TextureDrawer, src Presenter, opts Options) error {
	if d.closed {
		return ErrClosed
	}
	if err := src.Present(d.staging); err != nil {
		return fmt.Errorf("display: present: %w", err)
	}
	tex, err := d.upload(dc)
	if err != nil {
		return err
	}
	return dc.DrawTexture(tex, opts.X, opts.Y)
}

// upload creates or updates the host texture from the staging pixels.
func (d *Display) upload(dc gpucontext.TextureDrawer) (gpucontext.Texture, error) {
	if d.sizeChanged && d.texture != nil {
		destroy(d.oldTexture)
		d.oldTexture = d.texture
		d.texture = nil
	}
	d.sizeChanged = false

	data := d.staging.Pixels()
	if d.texture != nil {
		if updater, ok := d.texture.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(data); err != nil {
				return nil, fmt.Errorf("display: texture update failed: %w", err)
			}
			return d.texture, nil
		}
		// Textures that cannot be updated are recreated every frame.
		destroy(d.texture)
		d.texture = nil
	}

	creator := dc.TextureCreator()
	if creator == nil {
		return nil, ErrNoTextureCreator
	}
	tex, err := creator.NewTextureFromRGBA(d.Width(), d.Height(), data)
	if err != nil {
		return nil, fmt.Errorf("display: NewTextureFromRGBA failed: %w", err)
	}
	if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
		pt.SetPremultiplied(true)
	}
	d.texture = tex

	// The replacement exists, so the previous texture is no longer drawn.
	destroy(d.oldTexture)
	d.oldTexture = nil
	return tex, nil
}

// Close releases the host textures. Close is idempotent.
func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	destroy(d.oldTexture)
	destroy(d.texture)
	d.oldTexture, d.texture = nil, nil
	return nil
}

func destroy(tex gpucontext.Texture) {
	if td, ok := tex.(textureDestroyer); ok {
		td.Destroy()
	}
}
