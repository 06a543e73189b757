package material

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUMaterialSize is the size in bytes of the marshaled material uniform.
const GPUMaterialSize = 128

// GPUMaterialSource is the canonical WGSL definition of the Material struct.
// Matches Params.Marshal exactly (128 bytes, WGSL uniform aligned).
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// Params holds the shader-visible properties of a material. The builtin shaders read
// Albedo, Specular and Shininess; Args are free for custom shaders.
type Params struct {
	Albedo    common.Color  // offset  0: vec4 albedo multiplier
	Specular  float32       // offset 16: specular strength
	Shininess float32       // offset 20: specular exponent
	Args      [6]mgl32.Vec4 // offset 32: custom shader arguments (96 bytes)
}

// DefaultParams returns a white, slightly glossy material.
func DefaultParams() Params {
	return Params{
		Albedo:    common.White,
		Specular:  0.5,
		Shininess: 32,
	}
}

// Marshal serializes the Params struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload
func (p Params) Marshal() []byte {
	w := common.NewByteWriter(GPUMaterialSize)
	w.Vec4(0, p.Albedo.Vec4())
	w.Float32(16, p.Specular)
	w.Float32(20, p.Shininess)
	for i, arg := range p.Args {
		w.Vec4(32+i*16, arg)
	}
	return w.Bytes()
}
