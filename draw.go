package compose

import (
	"context"
	"errors"
	stdimage "image"

	"github.com/gogpu/compose/internal/filter"
	"github.com/gogpu/compose/internal/image"
)

var errTextureDestroyed = errors.New("compose: texture destroyed")

// drawObject draws one renderable object onto the surface.
func (c *Compositor) drawObject(ctx context.Context, obj *RenderObject, t float32) error {
	vis := obj.transform.Visible
	rect := obj.transform.Rect
	region := filter.Region{
		X: float32(vis.Min.X - rect.Min.X),
		Y: float32(vis.Min.Y - rect.Min.Y),
		W: float32(rect.Dx()),
		H: float32(rect.Dy()),
	}
	mask := c.reg.maskFor(obj)
	opacity := float32(obj.node.Opacity)

	var (
		content *image.Buf
		pooled  bool
		err     error
	)
	switch {
	case obj.node.Kind == KindAdjustment:
		content, err = c.gradeAdjustment(ctx, obj, region, t)
	case obj.tex != nil:
		content, err = c.shadeTexture(ctx, obj, region, t)
		pooled = true
	default:
		// A sourceless group only masks its children.
		return nil
	}
	if err != nil {
		return err
	}
	if pooled {
		defer c.pool.Put(content)
	}

	if obj.node.BlendMode.IsNormal() {
		if obj.node.Kind == KindAdjustment {
			c.mixOnto(content, vis, opacity, mask)
		} else {
			c.drawOver(content, vis, opacity, mask)
		}
		return nil
	}
	return c.blendOnto(ctx, obj, content, pooled, vis, opacity, mask)
}

// shadeTexture renders the visible part of obj's texture, graded when the
// node has a grading stage, into a pooled buffer.
func (c *Compositor) shadeTexture(ctx context.Context, obj *RenderObject, region filter.Region, t float32) (*image.Buf, error) {
	src := obj.tex.Buf()
	if src == nil {
		return nil, errTextureDestroyed
	}
	vis := obj.transform.Visible
	dst, err := c.pool.Get(vis.Dx(), vis.Dy())
	if err != nil {
		return nil, err
	}

	g, ok := obj.node.grading()
	if !ok {
		err = c.grading.Resample(ctx, dst, src, region, filter.IdentityInput)
	} else {
		u := g.uniforms()
		u.Region = region
		u.Input = filter.IdentityInput
		u.Time = t
		obj.uniforms, obj.graded = u, true
		c.recordGrade(obj, src, vis, u)
		err = c.grading.Apply(ctx, dst, src, u)
	}
	if err != nil {
		c.pool.Put(dst)
		return nil, err
	}
	return dst, nil
}

// gradeAdjustment captures the surface under an adjustment node into its
// private buffer and grades the capture. The capture holds strictly lower
// nodes only, since it is taken before the node draws.
func (c *Compositor) gradeAdjustment(ctx context.Context, obj *RenderObject, region filter.Region, t float32) (*image.Buf, error) {
	vis := obj.transform.Visible
	if obj.adjustment == nil {
		obj.adjustment = &AdjustmentBuffer{}
	}
	adj := obj.adjustment
	if err := adj.ensure(c.pool, vis.Dx(), vis.Dy()); err != nil {
		return nil, err
	}
	adj.capture.CopyRect(stdimage.Point{}, c.surface, vis)

	g, _ := obj.node.grading()
	u := g.uniforms()
	u.Region = region
	u.Input = filter.CaptureInput(region, vis.Dx(), vis.Dy())
	u.Time = t
	obj.uniforms, obj.graded = u, true
	c.recordGrade(obj, adj.capture, vis, u)
	if err := c.grading.Apply(ctx, adj.output, adj.capture, u); err != nil {
		return nil, err
	}
	adj.frame = c.frame
	return adj.output, nil
}

// drawOver composites src source-over onto the surface at vis, scaling
// its alpha by opacity and the mask.
func (c *Compositor) drawOver(src *image.Buf, vis stdimage.Rectangle, opacity float32, mask *maskSource) {
	for y := range vis.Dy() {
		sy := vis.Min.Y + y
		srow := src.Row(y)
		drow := c.surface.Row(sy)
		for x := range vis.Dx() {
			sx := vis.Min.X + x
			si, di := x*4, sx*4
			a := srow[si+3] * opacity * mask.alpha(sx, sy)
			if a <= 0 {
				continue
			}
			da := drow[di+3] * (1 - a)
			outA := a + da
			for ch := range 3 {
				drow[di+ch] = (srow[si+ch]*a + drow[di+ch]*da) / outA
			}
			drow[di+3] = outA
		}
	}
}

// mixOnto replaces the surface color at vis with graded, weighted by
// opacity and the mask. Surface alpha is kept.
func (c *Compositor) mixOnto(graded *image.Buf, vis stdimage.Rectangle, opacity float32, mask *maskSource) {
	for y := range vis.Dy() {
		sy := vis.Min.Y + y
		grow := graded.Row(y)
		drow := c.surface.Row(sy)
		for x := range vis.Dx() {
			sx := vis.Min.X + x
			gi, di := x*4, sx*4
			k := opacity * mask.alpha(sx, sy)
			switch {
			case k <= 0:
				continue
			case k >= 1:
				copy(drow[di:di+3], grow[gi:gi+3])
				continue
			}
			for ch := range 3 {
				drow[di+ch] += (grow[gi+ch] - drow[di+ch]) * k
			}
		}
	}
}

// blendOnto runs the blend stage of obj against a backdrop captured from
// the surface in this frame and writes the result back.
func (c *Compositor) blendOnto(ctx context.Context, obj *RenderObject, top *image.Buf, owned bool,
	vis stdimage.Rectangle, opacity float32, mask *maskSource,
) error {
	mode, _ := obj.node.BlendMode.filterMode()

	backdrop, err := c.pool.Get(vis.Dx(), vis.Dy())
	if err != nil {
		return err
	}
	defer c.pool.Put(backdrop)
	backdrop.CopyRect(stdimage.Point{}, c.surface, vis)

	if mask != nil {
		if !owned {
			scratch, err := c.pool.Get(vis.Dx(), vis.Dy())
			if err != nil {
				return err
			}
			defer c.pool.Put(scratch)
			scratch.CopyRect(stdimage.Point{}, top, top.Bounds())
			top = scratch
		}
		mask.foldInto(top, vis.Min)
	}

	u := filter.BlendUniforms{Mode: mode, Opacity: opacity}
	c.recordBlend(obj, top, backdrop, u)
	capture := filter.Capture{Buf: backdrop, Frame: c.frame}
	if err := c.blend.Apply(ctx, backdrop, top, capture, c.frame, u); err != nil {
		return err
	}
	c.surface.CopyRect(vis.Min, backdrop, backdrop.Bounds())
	return nil
}

// alpha returns the mask coverage at surface pixel (sx, sy). A nil mask
// covers everything.
func (m *maskSource) alpha(sx, sy int) float32 {
	if m == nil {
		return 1
	}
	if !stdimage.Pt(sx, sy).In(m.rect) {
		return 0
	}
	if m.buf == nil {
		return 1
	}
	u := (float32(sx-m.rect.Min.X) + 0.5) / float32(m.rect.Dx())
	v := (float32(sy-m.rect.Min.Y) + 0.5) / float32(m.rect.Dy())
	return m.buf.Sample(u, v).A
}

// foldInto multiplies the alpha of buf, placed at origin on the surface,
// by the mask.
func (m *maskSource) foldInto(buf *image.Buf, origin stdimage.Point) {
	for y := range buf.Height() {
		row := buf.Row(y)
		for x := range buf.Width() {
			row[x*4+3] *= m.alpha(origin.X+x, origin.Y+y)
		}
	}
}
