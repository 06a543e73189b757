package shader

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowViewSize is the size in bytes of the ShadowView uniform bound per cascade.
const ShadowViewSize = 64

// Draw is the per-draw constant block. Matches the WGSL Draw struct in assets/draw.wgsl.
type Draw struct {
	LocalToWorld mgl32.Mat4 // offset  0
	Tint         mgl32.Vec4 // offset 64
	SamplerIndex uint32     // offset 80
	// offset 84: padding to device.PushConstantSize
}

// Marshal serializes the block for Commands.PushConstants.
//
// Returns:
//   - []byte: device.PushConstantSize bytes
func (d Draw) Marshal() []byte {
	w := common.NewByteWriter(device.PushConstantSize)
	w.Mat4(0, d.LocalToWorld)
	w.Vec4(64, d.Tint)
	w.Uint32(80, d.SamplerIndex)
	return w.Bytes()
}

// MarshalShadowView serializes the light view-projection of one shadow cascade.
// Matches the WGSL ShadowView struct in assets/shadow_view.wgsl.
func MarshalShadowView(worldToClip mgl32.Mat4) []byte {
	w := common.NewByteWriter(ShadowViewSize)
	w.Mat4(0, worldToClip)
	return w.Bytes()
}
