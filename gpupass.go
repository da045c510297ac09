package compose

import (
	"errors"
	"fmt"
	stdimage "image"

	"github.com/gogpu/compose/internal/filter"
	"github.com/gogpu/compose/internal/gpu"
	"github.com/gogpu/compose/internal/image"
)

// beginPasses opens the device frame. Without a pass session it only
// resets the pass count.
func (c *Compositor) beginPasses() {
	c.passes = 0
	if c.session == nil {
		return
	}
	if err := c.session.Begin(fmt.Sprintf("compose_frame_%d", c.frame)); err != nil {
		c.logger().Warn("compose: GPU frame not recorded", "frame", c.frame, "err", err)
	}
}

// submitPasses submits the passes recorded during the frame.
func (c *Compositor) submitPasses() {
	if c.session == nil {
		return
	}
	n, err := c.session.Submit()
	if err != nil {
		if !errors.Is(err, gpu.ErrNoFrame) {
			c.logger().Warn("compose: GPU frame not submitted", "frame", c.frame, "err", err)
		}
		return
	}
	c.passes = n
}

// recordGrade records the grading pass of obj. A failed pass is logged;
// the CPU result still reaches the surface.
func (c *Compositor) recordGrade(obj *RenderObject, src *image.Buf, vis stdimage.Rectangle, u filter.GradingUniforms) {
	if c.session == nil {
		return
	}
	if err := c.session.Grade(src, vis.Dx(), vis.Dy(), u); err != nil && !errors.Is(err, gpu.ErrNoFrame) {
		c.logger().Warn("compose: grading pass not recorded", "id", obj.node.ID, "err", err)
	}
}

// recordBlend records the blend pass of obj against backdrop.
func (c *Compositor) recordBlend(obj *RenderObject, top, backdrop *image.Buf, u filter.BlendUniforms) {
	if c.session == nil {
		return
	}
	if err := c.session.Blend(top, backdrop, u); err != nil && !errors.Is(err, gpu.ErrNoFrame) {
		c.logger().Warn("compose: blend pass not recorded", "id", obj.node.ID, "err", err)
	}
}
