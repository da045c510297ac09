package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compose/internal/filter"
	"github.com/gogpu/compose/internal/image"
)

// ErrNoFrame is returned when a pass is recorded outside Begin/Submit.
var ErrNoFrame = errors.New("gpu: no frame in progress")

// rowAlignment is the required BytesPerRow alignment of texture uploads.
const rowAlignment = 256

// Session records the grading and blend passes of one frame into a single
// command encoder and submits them together. Each pass draws a fullscreen
// triangle into its own render target.
//
// Session is not safe for concurrent use; it belongs to the render thread.
type Session struct {
	device   hal.Device
	queue    hal.Queue
	programs *Programs

	encoder hal.CommandEncoder
	pending []func()
	passes  int
	last    uint64
}

// NewSession creates a pass recorder for programs on device and queue.
func NewSession(device hal.Device, queue hal.Queue, programs *Programs) (*Session, error) {
	switch {
	case device == nil:
		return nil, ErrNoDevice
	case queue == nil:
		return nil, errors.New("gpu: nil queue")
	case !programs.Ready():
		return nil, errors.New("gpu: programs not ready")
	}
	return &Session{device: device, queue: queue, programs: programs}, nil
}

// Begin starts recording a frame. A frame still open is discarded.
func (s *Session) Begin(label string) error {
	s.Discard()
	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}
	s.encoder = encoder
	s.passes = 0
	return nil
}

// Grade records a grading pass of src into a w×h target.
func (s *Session) Grade(src *image.Buf, w, h int, u filter.GradingUniforms) error {
	if s.encoder == nil {
		return ErrNoFrame
	}
	srcView, err := s.upload("grading_src", src)
	if err != nil {
		return err
	}
	uniforms, err := s.uniformBuffer("grading_uniforms", GradingUniformBytes(u))
	if err != nil {
		return err
	}
	bg, err := s.bindGroup("grading_bind_group", s.programs.grading.bindLayout, []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniforms.NativeHandle(), Size: GradingUniformSize}},
		{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: srcView.NativeHandle()}},
		{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: s.programs.sampler.NativeHandle()}},
	})
	if err != nil {
		return err
	}
	return s.draw("grading_pass", s.programs.GradingPipeline(), bg, w, h)
}

// Blend records a blend pass of top over backdrop. Both must be the same
// size.
func (s *Session) Blend(top, backdrop *image.Buf, u filter.BlendUniforms) error {
	if s.encoder == nil {
		return ErrNoFrame
	}
	topView, err := s.upload("blend_top", top)
	if err != nil {
		return err
	}
	backView, err := s.upload("blend_backdrop", backdrop)
	if err != nil {
		return err
	}
	uniforms, err := s.uniformBuffer("blend_uniforms", BlendUniformBytes(u))
	if err != nil {
		return err
	}
	bg, err := s.bindGroup("blend_bind_group", s.programs.blend.bindLayout, []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniforms.NativeHandle(), Size: BlendUniformSize}},
		{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: topView.NativeHandle()}},
		{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: backView.NativeHandle()}},
	})
	if err != nil {
		return err
	}
	return s.draw("blend_pass", s.programs.BlendPipeline(), bg, backdrop.Width(), backdrop.Height())
}

// Submit ends the frame, submits it and waits for the device to finish.
// Per-frame resources are destroyed afterwards. A frame without passes
// is discarded and nothing is submitted.
func (s *Session) Submit() (passes int, err error) {
	if s.encoder == nil {
		return 0, ErrNoFrame
	}
	encoder := s.encoder
	s.encoder = nil
	defer s.release()

	if s.passes == 0 {
		encoder.DiscardEncoding()
		return 0, nil
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return 0, fmt.Errorf("end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	index, err := s.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return 0, fmt.Errorf("submit: %w", err)
	}
	if err := s.device.WaitIdle(); err != nil {
		return 0, fmt.Errorf("wait idle: %w", err)
	}
	s.last = index
	slogger().Debug("gpu: frame submitted", "passes", s.passes, "submission", index)
	return s.passes, nil
}

// LastSubmission returns the queue index of the last submitted frame.
func (s *Session) LastSubmission() uint64 { return s.last }

// Discard drops an open frame and its resources without submitting.
// The session stays usable.
func (s *Session) Discard() {
	if s == nil {
		return
	}
	if s.encoder != nil {
		s.encoder.DiscardEncoding()
		s.encoder = nil
	}
	s.release()
}

// Destroy releases everything the session holds.
func (s *Session) Destroy() {
	s.Discard()
}

// release destroys per-frame resources in reverse creation order.
func (s *Session) release() {
	for i := len(s.pending) - 1; i >= 0; i-- {
		s.pending[i]()
	}
	s.pending = s.pending[:0]
}

// upload creates a sampled RGBA8 texture holding b and returns its view.
func (s *Session) upload(label string, b *image.Buf) (hal.TextureView, error) {
	w, h := b.Width(), b.Height()
	tex, view, err := s.texture(label, w, h, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst)
	if err != nil {
		return nil, err
	}
	stride := alignUp(w*4, rowAlignment)
	data := make([]byte, stride*h)
	image.WriteRGBA8(data, stride, b)
	err = s.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: uint32(stride), RowsPerImage: uint32(h)},
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	return view, nil
}

// texture creates a 2D texture and a view of it.
func (s *Session) texture(label string, w, h int, format gputypes.TextureFormat,
	usage gputypes.TextureUsage,
) (hal.Texture, hal.TextureView, error) {
	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	s.pending = append(s.pending, func() { s.device.DestroyTexture(tex) })

	view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           label + "_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	s.pending = append(s.pending, func() { s.device.DestroyTextureView(view) })
	return tex, view, nil
}

// uniformBuffer creates a uniform buffer and uploads data into it.
func (s *Session) uniformBuffer(label string, data []byte) (hal.Buffer, error) {
	buf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	s.pending = append(s.pending, func() { s.device.DestroyBuffer(buf) })
	if err := s.queue.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	return buf, nil
}

func (s *Session) bindGroup(label string, layout hal.BindGroupLayout, entries []gputypes.BindGroupEntry) (hal.BindGroup, error) {
	bg, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	s.pending = append(s.pending, func() { s.device.DestroyBindGroup(bg) })
	return bg, nil
}

// draw records one render pass drawing a fullscreen triangle into a fresh
// w×h target.
func (s *Session) draw(label string, pipeline hal.RenderPipeline, bg hal.BindGroup, w, h int) error {
	_, target, err := s.texture(label+"_target", w, h, s.programs.format,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	rp := s.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{},
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
	s.passes++
	return nil
}

func alignUp(n, a int) int { return (n + a - 1) / a * a }
