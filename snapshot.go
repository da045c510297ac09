package compose

import (
	"context"
	"fmt"
	stdimage "image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compose/internal/gpu"
	"github.com/gogpu/compose/internal/image"
	"github.com/gogpu/compose/render"
)

// Resampler scales a snapshot to a size other than the surface size.
type Resampler interface {
	Resample(src stdimage.Image, width, height int) stdimage.Image
}

// ResamplerFunc adapts a function to the Resampler interface.
type ResamplerFunc func(src stdimage.Image, width, height int) stdimage.Image

// Resample calls f(src, width, height).
func (f ResamplerFunc) Resample(src stdimage.Image, width, height int) stdimage.Image {
	return f(src, width, height)
}

// Store is the scene store as seen after a context loss: it returns the
// complete current node set.
type Store interface {
	Nodes(ctx context.Context) ([]SceneNode, error)
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context) ([]SceneNode, error)

// Nodes calls f(ctx).
func (f StoreFunc) Nodes(ctx context.Context) ([]SceneNode, error) { return f(ctx) }

// Present writes the surface into a CPU render target as premultiplied
// 8-bit color. The target must match the surface size.
func (c *Compositor) Present(target render.RenderTarget) error {
	if c.closed {
		return ErrClosed
	}
	pix := target.Pixels()
	if pix == nil {
		return ErrUnsupportedTarget
	}
	if target.Width() != c.viewport.Width || target.Height() != c.viewport.Height {
		return fmt.Errorf("%w: surface is %dx%d, target is %dx%d", ErrResolutionMismatch,
			c.viewport.Width, c.viewport.Height, target.Width(), target.Height())
	}

	switch target.Format() {
	case gputypes.TextureFormatRGBA8Unorm:
		image.WriteRGBA8(pix, target.Stride(), c.surface)
	case gputypes.TextureFormatBGRA8Unorm:
		image.WriteRGBA8(pix, target.Stride(), c.surface)
		swapRedBlue(pix, target.Stride(), c.viewport.Width, c.viewport.Height)
	default:
		return fmt.Errorf("%w: format %v", ErrUnsupportedTarget, target.Format())
	}
	return nil
}

// swapRedBlue converts RGBA8 rows to BGRA8 in place.
func swapRedBlue(pix []byte, stride, width, height int) {
	for y := range height {
		row := pix[y*stride : y*stride+width*4]
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+2] = row[i+2], row[i]
		}
	}
}

// Snapshot copies the surface for export. A size other than the surface
// size requires a resampler; without one ErrResolutionMismatch is returned.
func (c *Compositor) Snapshot(width, height int, rs Resampler) (stdimage.Image, error) {
	if c.closed {
		return nil, ErrClosed
	}
	img := c.surface.ToNRGBA()
	if width == c.viewport.Width && height == c.viewport.Height {
		return img, nil
	}
	if rs == nil {
		return nil, fmt.Errorf("%w: surface is %dx%d, requested %dx%d", ErrResolutionMismatch,
			c.viewport.Width, c.viewport.Height, width, height)
	}
	return rs.Resample(img, width, height), nil
}

// AdjustmentOutput returns a copy of the graded output of adjustment node
// id from the last frame it was drawn in.
func (c *Compositor) AdjustmentOutput(id NodeID) (*stdimage.NRGBA, bool) {
	obj, ok := c.reg.Object(id)
	if !ok || obj.adjustment == nil || obj.adjustment.output == nil {
		return nil, false
	}
	return obj.adjustment.output.ToNRGBA(), true
}

// UniformBlock returns the grading uniform block of node id as last
// uploaded, in the byte layout of the WGSL GradingUniforms struct.
func (c *Compositor) UniformBlock(id NodeID) ([]byte, bool) {
	obj, ok := c.reg.Object(id)
	if !ok || !obj.graded {
		return nil, false
	}
	return gpu.GradingUniformBytes(obj.uniforms), true
}

// LoseContext simulates or reports loss of the GPU context. Every object,
// texture and buffer is torn down and GPU programs are destroyed.
// RenderFrame returns ErrGPUContextLost until Recover succeeds.
func (c *Compositor) LoseContext() {
	if c.closed || c.lost {
		return
	}
	c.lost = true
	objects := c.reg.Len()
	c.reg.Teardown()
	c.cache.Purge()
	c.destroyGPU()
	c.pool.Drain()
	c.surface.Clear()
	c.logger().Warn("compose: GPU context lost", "objects", objects)
}

// Recover rebuilds the compositor after LoseContext: a fresh texture cache
// and registry, recompiled GPU programs when a HAL device was supplied, and
// a full resync from store. A nil store recovers with an empty scene.
//
// Validation errors of the resynced nodes are returned like Sync does, but
// the compositor is recovered regardless. If programs or the store fail the
// context stays lost.
func (c *Compositor) Recover(ctx context.Context, store Store) error {
	if c.closed {
		return ErrClosed
	}

	var nodes []SceneNode
	if store != nil {
		var err error
		nodes, err = store.Nodes(ctx)
		if err != nil {
			return fmt.Errorf("compose: recover: fetch nodes: %w", err)
		}
	}

	if err := c.buildGPU(); err != nil {
		return fmt.Errorf("compose: recover: %w", err)
	}

	c.reg.Teardown()
	c.cache.Close()
	c.cache = c.newCache()
	c.reg = newRegistry(c.cache, c.pool, c.logger, c.metrics)
	c.lost = false

	err := c.reg.Sync(Batch{Added: nodes})
	c.logger().Info("compose: context recovered", "nodes", len(nodes))
	return err
}

// WaitTextures blocks until no texture decode is in flight, or ctx ends.
// It is meant for export and tools; an interactive render loop never
// waits.
func (c *Compositor) WaitTextures(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	return c.cache.Idle(ctx)
}
