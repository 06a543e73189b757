package renderer

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/go-gl/mathgl/mgl32"
)

// WorldSize is the size in bytes of the world uniform block.
const WorldSize = 736

// SkyboxMode selects what the skybox shader draws.
type SkyboxMode uint32

const (
	// SkyboxNone draws no skybox.
	SkyboxNone SkyboxMode = iota
	// SkyboxGradient draws the procedural horizon gradient.
	SkyboxGradient
	// SkyboxTexture samples the bound albedo as an equirectangular panorama.
	SkyboxTexture
)

// World is the per-frame uniform block bound at group 0 of every forward shader.
// Matches the WGSL World struct in the shader package's world.wgsl include.
type World struct {
	WorldToView    mgl32.Mat4                   // offset   0
	ViewToClip     mgl32.Mat4                   // offset  64
	Cascades       shadow.Cascades              // offset 128 (matrices), 672 / 688 / 704 (vectors)
	Lights         [light.MaxLights]light.Light // offset 384
	CameraPosition mgl32.Vec3                   // offset 640
	Time           float32                      // offset 652
	AmbientColor   mgl32.Vec3                   // offset 656
	ShadowPCF      float32                      // offset 668
	ShadowBias     float32                      // offset 720
	Skybox         SkyboxMode                   // offset 724
}

// Marshal serializes the block for upload.
//
// Returns:
//   - []byte: WorldSize bytes, little-endian
func (w *World) Marshal() []byte {
	bw := common.NewByteWriter(WorldSize)
	bw.Mat4(0, w.WorldToView)
	bw.Mat4(64, w.ViewToClip)
	for i := range device.CascadeCount {
		bw.Mat4(128+i*64, w.Cascades.WorldToShadow[i])
	}
	light.MarshalLights(bw, 384, w.Lights)
	bw.Vec3(640, w.CameraPosition)
	bw.Float32(652, w.Time)
	bw.Vec3(656, w.AmbientColor)
	bw.Float32(668, w.ShadowPCF)
	bw.Vec4(672, w.Cascades.Splits)
	bw.Vec4(688, w.Cascades.Texels)
	bw.Vec4(704, w.Cascades.Diameters)
	bw.Float32(720, w.ShadowBias)
	bw.Uint32(724, uint32(w.Skybox))
	return bw.Bytes()
}
