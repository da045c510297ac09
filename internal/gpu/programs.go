package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoDevice is returned when NewPrograms is called without a device.
var ErrNoDevice = errors.New("gpu: nil device")

// program is one compiled render pipeline and the objects it owns.
type program struct {
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
}

// Programs holds the grading and blend pipelines for one device and
// render target format.
//
// Programs is not safe for concurrent use; it belongs to the render thread.
type Programs struct {
	device  hal.Device
	format  gputypes.TextureFormat
	sampler hal.Sampler

	grading program
	blend   program
}

// NewPrograms compiles both WGSL programs and creates their pipelines on
// device, targeting format. On error every object created so far is
// destroyed.
func NewPrograms(device hal.Device, format gputypes.TextureFormat) (*Programs, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	p := &Programs{device: device, format: format}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "grading_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create grading sampler: %w", err)
	}
	p.sampler = sampler

	if err := p.grading.create(device, "grading", gradingShaderSource, format, gradingBindings()); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.blend.create(device, "blend", blendShaderSource, format, blendBindings()); err != nil {
		p.Destroy()
		return nil, err
	}

	slogger().Info("gpu: programs ready", "format", format)
	return p, nil
}

// Format returns the render target format the pipelines were built for.
func (p *Programs) Format() gputypes.TextureFormat { return p.format }

// GradingPipeline returns the grading render pipeline.
func (p *Programs) GradingPipeline() hal.RenderPipeline { return p.grading.pipeline }

// BlendPipeline returns the blend render pipeline.
func (p *Programs) BlendPipeline() hal.RenderPipeline { return p.blend.pipeline }

// Ready reports whether both pipelines exist.
func (p *Programs) Ready() bool {
	return p != nil && p.grading.pipeline != nil && p.blend.pipeline != nil
}

// Destroy releases all pipeline resources. It is safe to call more than once.
func (p *Programs) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	p.blend.destroy(p.device)
	p.grading.destroy(p.device)
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
}

// gradingBindings describes uniforms, input texture and sampler.
func gradingBindings() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		{
			Binding:    2,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
}

// blendBindings describes uniforms, top texture and backdrop texture.
func blendBindings() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		{
			Binding:    2,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
	}
}

// create compiles src and builds the module, layouts and pipeline.
func (pr *program) create(device hal.Device, label, src string, format gputypes.TextureFormat,
	entries []gputypes.BindGroupLayoutEntry,
) error {
	spirvCode, err := CompileSPIRV(label, src)
	if err != nil {
		return err
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label + "_shader",
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
	if err != nil {
		return fmt.Errorf("create %s shader module: %w", label, err)
	}
	pr.module = module

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create %s bind group layout: %w", label, err)
	}
	pr.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline layout: %w", label, err)
	}
	pr.pipeLayout = pipeLayout

	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline: %w", label, err)
	}
	pr.pipeline = pipeline

	slogger().Debug("gpu: pipeline created", "program", label, "bindings", len(entries))
	return nil
}

// destroy releases resources in reverse creation order.
func (pr *program) destroy(device hal.Device) {
	if pr.pipeline != nil {
		device.DestroyRenderPipeline(pr.pipeline)
		pr.pipeline = nil
	}
	if pr.pipeLayout != nil {
		device.DestroyPipelineLayout(pr.pipeLayout)
		pr.pipeLayout = nil
	}
	if pr.bindLayout != nil {
		device.DestroyBindGroupLayout(pr.bindLayout)
		pr.bindLayout = nil
	}
	if pr.module != nil {
		device.DestroyShaderModule(pr.module)
		pr.module = nil
	}
}
