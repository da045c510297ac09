// Package gpu holds the WebGPU programs of the compositor.
//
// The grading and blend stages are written in WGSL and embedded in the
// binary. CompileSPIRV turns them into SPIR-V with the pure Go naga
// compiler, and NewPrograms builds shader modules, bind group layouts and
// render pipelines for them on a host-provided HAL device.
//
// Each program draws one fullscreen triangle into a target the size of the
// node's visible pixel rectangle:
//
//	grading: @binding(0) uniforms, @binding(1) input texture, @binding(2) sampler
//	blend:   @binding(0) uniforms, @binding(1) top texture,   @binding(2) backdrop texture
//
// A Session records those passes for one frame: it uploads the input
// textures and uniform block, creates a bind group, draws into a fresh
// target, and submits the whole frame on EndEncoding.
//
// Uniform blocks are encoded by GradingUniformBytes and BlendUniformBytes,
// whose layouts match the WGSL structs byte for byte. The software device in
// internal/filter evaluates the same math on the CPU.
package gpu
