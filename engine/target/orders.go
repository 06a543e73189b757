package target

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/font"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/Carmen-Shannon/oxy-forward/engine/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshOrder is one recorded mesh instance awaiting rendering.
type MeshOrder struct {
	Mesh         resource.Handle[mesh.Mesh]
	LocalToWorld mgl32.Mat4
	Tint         mgl32.Vec4
	CastShadows  bool
	SamplerIndex uint32
}

// MaterialGroup holds the orders drawn with one material, in submission order.
type MaterialGroup struct {
	Material resource.Handle[material.Material]
	Orders   []MeshOrder
}

// ShaderGroup holds the material groups drawn with one shader, in first-use order.
type ShaderGroup struct {
	Shader    resource.Handle[shader.Shader]
	Materials []MaterialGroup
}

// TextOrder is one string laid out from LocalToWorld, which already includes the font size.
type TextOrder struct {
	Font         font.Font
	Text         string
	LocalToWorld mgl32.Mat4
	Color        mgl32.Vec4
}

// LineOrder is one debug line segment in world space.
type LineOrder struct {
	From, To mgl32.Vec3
	Color    mgl32.Vec4
}

// ShapeOrder is one filled convex polygon in world space, triangulated as a fan.
type ShapeOrder struct {
	Points []mgl32.Vec3
	Color  mgl32.Vec4
}
