package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ErrEmptyShader is returned when a shader source is empty.
var ErrEmptyShader = errors.New("gpu: empty shader source")

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(label, wgslSource string) ([]uint32, error) {
	if wgslSource == "" {
		return nil, fmt.Errorf("%s: %w", label, ErrEmptyShader)
	}

	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("%s: compile shader: %w", label, err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%s: invalid SPIR-V length %d", label, len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if spirvCode[0] != spirvMagic {
		return nil, fmt.Errorf("%s: invalid SPIR-V magic 0x%08X", label, spirvCode[0])
	}

	slogger().Debug("gpu: shader compiled", "label", label, "words", len(spirvCode))
	return spirvCode, nil
}
