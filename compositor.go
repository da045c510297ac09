package compose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/compose/internal/filter"
	"github.com/gogpu/compose/internal/gpu"
	"github.com/gogpu/compose/internal/image"
	"github.com/gogpu/compose/internal/texture"
)

// maxPooledPerSize bounds how many transient buffers of one size are kept.
const maxPooledPerSize = 4

// Compositor turns scene batches into a composited surface, one frame at a
// time.
//
// A Compositor is not safe for concurrent use. Sync, SetViewport,
// RenderFrame, Present, Snapshot, LoseContext and Recover must all be
// called from the render goroutine.
type Compositor struct {
	opts    options
	metrics *metrics

	cache    *texture.Cache
	reg      *Registry
	pool     *image.Pool
	programs *gpu.Programs
	session  *gpu.Session
	passes   int

	grading filter.Grading
	blend   filter.Blend

	viewport Viewport
	surface  *image.Buf
	frame    uint64
	start    time.Time

	lost   bool
	closed bool
}

// New creates a compositor rendering vp.
func New(vp Viewport, opts ...Option) (*Compositor, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !supportedFormat(o.format) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, o.format)
	}

	surface, err := image.NewBuf(vp.Width, vp.Height)
	if err != nil {
		return nil, err
	}

	c := &Compositor{
		opts:     o,
		metrics:  newMetrics(),
		pool:     image.NewPool(maxPooledPerSize),
		grading:  filter.Grading{Workers: o.workers},
		blend:    filter.Blend{Workers: o.workers},
		viewport: vp,
		surface:  surface,
		start:    o.clock(),
	}
	if err := c.metrics.register(o.registerer); err != nil {
		return nil, err
	}
	c.cache = c.newCache()
	c.reg = newRegistry(c.cache, c.pool, c.logger, c.metrics)

	if err := c.buildGPU(); err != nil {
		c.cache.Close()
		c.metrics.unregister(o.registerer)
		return nil, err
	}
	return c, nil
}

// buildGPU compiles the programs and opens a pass session when a HAL
// device was supplied and nothing is built yet.
func (c *Compositor) buildGPU() error {
	if c.opts.device == nil || c.programs != nil {
		return nil
	}
	p, err := gpu.NewPrograms(c.opts.device, c.opts.format)
	if err != nil {
		return fmt.Errorf("compose: build GPU programs: %w", err)
	}
	if c.opts.queue != nil {
		s, err := gpu.NewSession(c.opts.device, c.opts.queue, p)
		if err != nil {
			p.Destroy()
			return fmt.Errorf("compose: open GPU session: %w", err)
		}
		c.session = s
	}
	c.programs = p
	return nil
}

// destroyGPU releases the session and the programs.
func (c *Compositor) destroyGPU() {
	c.session.Destroy()
	c.session = nil
	c.programs.Destroy()
	c.programs = nil
}

func (c *Compositor) newCache() *texture.Cache {
	return texture.NewCache(texture.Config{
		Resolver: c.opts.resolver,
		Decoder:  c.opts.textureDecoder(),
		OnDecode: c.metrics.observeDecode,
	})
}

// logger returns the compositor's logger.
func (c *Compositor) logger() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return Logger()
}

// Registry returns the object registry.
func (c *Compositor) Registry() *Registry { return c.reg }

// Viewport returns the current viewport.
func (c *Compositor) Viewport() Viewport { return c.viewport }

// Frame returns the number of the last rendered frame.
func (c *Compositor) Frame() uint64 { return c.frame }

// GPUReady reports whether the WGSL programs are built on a HAL device.
func (c *Compositor) GPUReady() bool { return c.programs.Ready() }

// GPUPasses returns how many device passes the last frame submitted.
func (c *Compositor) GPUPasses() int { return c.passes }

// Sync applies a change batch from the scene store. See Registry.Sync.
func (c *Compositor) Sync(b Batch) error {
	if c.closed {
		return ErrClosed
	}
	return c.reg.Sync(b)
}

// SetViewport changes the viewport. A new surface size reallocates the
// surface; its contents are redrawn by the next frame.
func (c *Compositor) SetViewport(vp Viewport) error {
	if err := vp.Validate(); err != nil {
		return err
	}
	if vp.Width != c.viewport.Width || vp.Height != c.viewport.Height {
		surface, err := image.NewBuf(vp.Width, vp.Height)
		if err != nil {
			return err
		}
		c.surface = surface
	}
	c.viewport = vp
	return nil
}

// RenderFrame composites one frame onto the surface.
//
// Failures of individual nodes are logged and the node is skipped. Only a
// lost context, a closed compositor or ctx ending abort the frame.
func (c *Compositor) RenderFrame(ctx context.Context) error {
	switch {
	case c.closed:
		return ErrClosed
	case c.lost:
		return ErrGPUContextLost
	}
	began := time.Now()

	c.frame++
	t := float32(c.opts.clock().Sub(c.start).Seconds())
	c.reg.Poll()

	ordered := c.reg.Ordered()
	drawn, culled := c.cull(ordered)

	c.surface.Clear()
	c.beginPasses()
	quantize := quantizes(c.opts.format)
	for _, obj := range ordered {
		if obj.state != StateRenderable {
			continue
		}
		if err := ctx.Err(); err != nil {
			c.session.Discard()
			return err
		}
		if err := c.drawObject(ctx, obj, t); err != nil {
			c.metrics.nodeFailures.Inc()
			c.logger().Warn("compose: node skipped", "id", obj.node.ID, "frame", c.frame, "err", err)
			continue
		}
		if quantize {
			c.surface.Quantize()
		}
	}

	c.submitPasses()

	c.metrics.frames.Inc()
	c.metrics.frameDuration.Observe(time.Since(began).Seconds())
	c.metrics.nodesDrawn.Set(float64(drawn))
	c.metrics.nodesCulled.Set(float64(culled))
	c.metrics.texturesResident.Set(float64(c.cache.Stats().Resident))
	c.logger().Debug("compose: frame", "frame", c.frame, "drawn", drawn, "culled", culled)
	return nil
}

// cull places every object for this frame and decides what is drawn.
// Culling never destroys anything.
func (c *Compositor) cull(ordered []*RenderObject) (drawn, culled int) {
	visible := c.viewport.VisibleRect()
	for _, obj := range ordered {
		if obj.invalid != nil {
			obj.transform = Transform{}
			obj.state = StatePending
			continue
		}
		obj.transform = c.viewport.transformFor(obj.node.Bounds)
		switch {
		case !obj.textureReady():
			obj.state = StatePending
		case obj.node.Bounds.Intersects(visible) && !obj.transform.Visible.Empty():
			obj.state = StateRenderable
			drawn++
		default:
			obj.state = StateCulled
			culled++
		}
	}
	return drawn, culled
}

// Close releases every resource. The compositor cannot be used afterwards.
func (c *Compositor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.reg.Teardown()
	c.cache.Close()
	c.destroyGPU()
	c.pool.Drain()
	c.metrics.unregister(c.opts.registerer)
}
