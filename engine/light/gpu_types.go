package light

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPULightSize is the size in bytes of one marshaled light.
const GPULightSize = 64

// gpuLightTypeNone marks an empty or disabled light slot.
const gpuLightTypeNone = 3

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (64 bytes, WGSL uniform aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single light source.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
type GPULight struct {
	Position     mgl32.Vec3 // offset  0: world-space position (point/spot)
	LightType    uint32     // offset 12: 0 = directional, 1 = point, 2 = spot, 3 = none
	Color        mgl32.Vec3 // offset 16: linear RGB color
	Intensity    float32    // offset 28: scalar multiplier
	Direction    mgl32.Vec3 // offset 32: normalized direction (directional/spot)
	LightRange   float32    // offset 44: attenuation cutoff distance
	InnerCone    float32    // offset 48: cos(inner half-angle) for spot
	OuterCone    float32    // offset 52: cos(outer half-angle) for spot
	CastsShadows uint32     // offset 56: 1 = main shadow light
	// offset 60: padding to 64 bytes
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	w := common.NewByteWriter(GPULightSize)
	g.put(w, 0)
	return w.Bytes()
}

func (g *GPULight) put(w *common.ByteWriter, offset int) {
	w.Vec3(offset, g.Position)
	w.Uint32(offset+12, g.LightType)
	w.Vec3(offset+16, g.Color)
	w.Float32(offset+28, g.Intensity)
	w.Vec3(offset+32, g.Direction)
	w.Float32(offset+44, g.LightRange)
	w.Float32(offset+48, g.InnerCone)
	w.Float32(offset+52, g.OuterCone)
	w.Uint32(offset+56, g.CastsShadows)
}

// ToGPULight converts a Light to its GPU-aligned representation. A nil or disabled light
// becomes an empty slot that shaders skip.
//
// Parameters:
//   - l: the Light to convert, may be nil
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light) GPULight {
	if l == nil || !l.Enabled() {
		return GPULight{LightType: gpuLightTypeNone}
	}
	shadowVal := uint32(0)
	if l.CastsShadows() {
		shadowVal = 1
	}
	return GPULight{
		Position:     l.Position(),
		LightType:    uint32(l.Type()),
		Color:        l.Color().Vec3(),
		Intensity:    l.Intensity(),
		Direction:    l.Direction(),
		LightRange:   l.Range(),
		InnerCone:    l.InnerCone(),
		OuterCone:    l.OuterCone(),
		CastsShadows: shadowVal,
	}
}

// MarshalLights writes every light slot into w starting at offset, GPULightSize bytes apart.
// Only the main light (see Main) keeps its shadow flag, since it alone has cascades.
//
// Parameters:
//   - w: the destination writer
//   - offset: the byte offset of the first slot
//   - lights: the light slots, nil entries allowed
func MarshalLights(w *common.ByteWriter, offset int, lights [MaxLights]Light) {
	main, _ := Main(lights)
	for i, l := range lights {
		g := ToGPULight(l)
		if l != main {
			g.CastsShadows = 0
		}
		g.put(w, offset+i*GPULightSize)
	}
}
