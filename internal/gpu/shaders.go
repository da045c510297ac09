package gpu

import (
	_ "embed"
)

// Embedded WGSL shader sources.

//go:embed shaders/grading.wgsl
var gradingShaderSource string

//go:embed shaders/blend.wgsl
var blendShaderSource string

// GradingShaderSource returns the WGSL source of the grading program.
func GradingShaderSource() string {
	return gradingShaderSource
}

// BlendShaderSource returns the WGSL source of the blend program.
func BlendShaderSource() string {
	return blendShaderSource
}
