package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/compose/internal/filter"
)

// Uniform block sizes in bytes, matching the WGSL structs.
const (
	GradingUniformSize = 96
	BlendUniformSize   = 16
)

// GradingUniformBytes encodes u with the layout of the WGSL GradingUniforms
// struct: fifteen scalars (center packed as a vec2 at offset 40), one pad
// word, then region and input_map as vec4s at offsets 64 and 80.
func GradingUniformBytes(u filter.GradingUniforms) []byte {
	words := [GradingUniformSize / 4]float32{
		u.Exposure,
		u.Contrast,
		u.Saturation,
		u.Temperature,
		u.ChromaticAberration,
		u.Grain,
		u.GrainSize,
		u.Vignette,
		u.Bloom,
		u.Sharpness,
		u.CenterX,
		u.CenterY,
		u.VignetteInner,
		u.VignetteOuter,
		u.Time,
		0, // _pad0
		u.Region.X,
		u.Region.Y,
		u.Region.W,
		u.Region.H,
		u.Input.ScaleU,
		u.Input.ScaleV,
		u.Input.OffsetU,
		u.Input.OffsetV,
	}
	buf := make([]byte, GradingUniformSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(w))
	}
	return buf
}

// BlendUniformBytes encodes u with the layout of the WGSL BlendUniforms
// struct: mode as u32, opacity as f32, two pad words.
func BlendUniformBytes(u filter.BlendUniforms) []byte {
	buf := make([]byte, BlendUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(u.Mode))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(u.Opacity))
	return buf
}
