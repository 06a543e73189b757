// Package target records draw orders for one render call. Mesh orders are grouped by shader
// and then by material as they are submitted, so the renderer binds each distinct shader and
// material at most once regardless of submission order.
package target

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/font"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/Carmen-Shannon/oxy-forward/engine/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Builtins are the default resources orders fall back to.
type Builtins struct {
	Phong resource.Handle[shader.Shader]
	Line  resource.Handle[shader.Shader]
	White resource.Handle[material.Material]

	Cube    resource.Handle[mesh.Mesh]
	Sphere  resource.Handle[mesh.Mesh]
	Surface resource.Handle[mesh.Mesh]
	Grid    resource.Handle[mesh.Mesh]

	Font font.Font
}

type targetImpl struct {
	builtins Builtins
	options  []TargetBuilderOption

	clearColor common.Color
	skybox     bool
	skyTexture resource.Handle[material.Texture]
	shadowBias float32
	lights     [light.MaxLights]light.Light

	style Style
	stack []Style

	shaderGroups     []ShaderGroup
	textOrders       []TextOrder
	lineOrders       []LineOrder
	shapeOrders      []ShapeOrder
	hasShadowCasters bool
}

// Target accumulates the draw orders of one frame. It is not safe for concurrent use.
type Target interface {
	// Style returns the current style. Changes through the pointer apply to every later order
	// until the next Pop.
	//
	// Returns:
	//   - *Style: the top of the style stack
	Style() *Style

	// Push saves a copy of the current style.
	Push()

	// Pop restores the style saved by the matching Push. Popping an empty stack panics.
	Pop()

	// Translate moves the current transform.
	Translate(offset mgl32.Vec3)

	// Scale scales the current transform component-wise.
	Scale(factor mgl32.Vec3)

	// Rotate rotates the current transform by q.
	Rotate(q mgl32.Quat)

	// SetShader sets the shader of later mesh orders. A zero handle restores the default.
	SetShader(s resource.Handle[shader.Shader])

	// SetMaterial sets the material of later mesh orders. A zero handle restores the default.
	SetMaterial(m resource.Handle[material.Material])

	// SetClearColor sets the color the frame is cleared to.
	SetClearColor(c common.Color)

	// SetSkybox enables or disables the skybox.
	SetSkybox(enabled bool)

	// SetSkyboxTexture enables the skybox and draws tex as an equirectangular panorama
	// around the camera. tex is cloned and held until Reset. A zero handle restores the
	// procedural gradient.
	SetSkyboxTexture(tex resource.Handle[material.Texture])

	// SetShadowBias sets the depth bias applied when sampling shadow cascades.
	SetShadowBias(bias float32)

	// SetLight replaces light slot i. A nil light empties the slot.
	//
	// Parameters:
	//   - i: the slot in [0, light.MaxLights)
	//   - l: the light
	SetLight(i int, l light.Light)

	// DrawMesh records an order for m with the current style.
	DrawMesh(m resource.Handle[mesh.Mesh])

	// DrawCube records an order for the builtin unit cube.
	DrawCube()

	// DrawSphere records an order for the builtin unit sphere.
	DrawSphere()

	// DrawSurface records the builtin [-1, 1] surface at the origin. It never casts shadows.
	DrawSurface()

	// DrawGrid records the builtin grid at the origin with the line shader. It never casts shadows.
	DrawGrid()

	// DrawText records text at position, relative to the current transform.
	//
	// Parameters:
	//   - text: the string; '\n' starts a new line
	//   - position: the offset of the first glyph in the transform's XY plane
	DrawText(text string, position mgl32.Vec2)

	// DrawLineDebug records a line segment between two points of the current transform space.
	DrawLineDebug(from, to mgl32.Vec3)

	// DrawShape records a filled convex polygon in the current transform's XY plane.
	// Polygons with fewer than 3 points are ignored.
	DrawShape(points []mgl32.Vec2)

	// DrawRectangle records a filled rectangle with its lower-left corner at position.
	DrawRectangle(position, size mgl32.Vec2)

	// HasShadowCasters reports whether any recorded mesh order casts shadows.
	HasShadowCasters() bool

	ClearColor() common.Color
	Skybox() bool
	SkyboxTexture() resource.Handle[material.Texture]
	ShadowBias() float32
	Lights() [light.MaxLights]light.Light
	ShaderGroups() []ShaderGroup
	TextOrders() []TextOrder
	LineOrders() []LineOrder
	ShapeOrders() []ShapeOrder

	// Reset releases every handle held by recorded orders and restores the initial state,
	// including the options the Target was created with.
	Reset()
}

var _ Target = &targetImpl{}

// New creates a Target with the default style, a white clear color and the default lights.
//
// Parameters:
//   - builtins: the default resources
//   - options: functional options
//
// Returns:
//   - Target: the new target
func New(builtins Builtins, options ...TargetBuilderOption) Target {
	t := &targetImpl{builtins: builtins, options: options}
	t.defaults()
	return t
}

func (t *targetImpl) defaults() {
	t.clearColor = common.White
	t.skybox = false
	t.shadowBias = 0.002
	t.lights = light.Defaults()
	t.style = DefaultStyle()
	t.style.Font = t.builtins.Font
	t.stack = t.stack[:0]
	for _, option := range t.options {
		option(t)
	}
}

func (t *targetImpl) Style() *Style {
	return &t.style
}

func (t *targetImpl) Push() {
	t.stack = append(t.stack, t.style)
}

func (t *targetImpl) Pop() {
	n := len(t.stack)
	if n == 0 {
		panic("target: pop without matching push")
	}
	t.style = t.stack[n-1]
	t.stack = t.stack[:n-1]
}

func (t *targetImpl) Translate(offset mgl32.Vec3) {
	t.style.Transform.Move(offset)
}

func (t *targetImpl) Scale(factor mgl32.Vec3) {
	t.style.Transform.ScaleBy(factor)
}

func (t *targetImpl) Rotate(q mgl32.Quat) {
	t.style.Transform.Rotate(q)
}

func (t *targetImpl) SetShader(s resource.Handle[shader.Shader]) {
	t.style.Shader = s
}

func (t *targetImpl) SetMaterial(m resource.Handle[material.Material]) {
	t.style.Material = m
}

func (t *targetImpl) SetClearColor(c common.Color) {
	t.clearColor = c
}

func (t *targetImpl) SetSkybox(enabled bool) {
	t.skybox = enabled
}

func (t *targetImpl) SetSkyboxTexture(tex resource.Handle[material.Texture]) {
	if !tex.IsZero() {
		tex = tex.Clone()
	}
	t.releaseSkyTexture()
	t.skyTexture = tex
	t.skybox = true
}

func (t *targetImpl) releaseSkyTexture() {
	if !t.skyTexture.IsZero() {
		t.skyTexture.Release()
	}
	t.skyTexture = resource.Handle[material.Texture]{}
}

func (t *targetImpl) SetShadowBias(bias float32) {
	t.shadowBias = bias
}

func (t *targetImpl) SetLight(i int, l light.Light) {
	t.lights[i] = l
}

func (t *targetImpl) shader() resource.Handle[shader.Shader] {
	if t.style.Shader.IsZero() {
		return t.builtins.Phong
	}
	return t.style.Shader
}

func (t *targetImpl) material() resource.Handle[material.Material] {
	if t.style.Material.IsZero() {
		return t.builtins.White
	}
	return t.style.Material
}

func (t *targetImpl) order(m resource.Handle[mesh.Mesh], localToWorld mgl32.Mat4, castShadows bool) MeshOrder {
	return MeshOrder{
		Mesh:         m,
		LocalToWorld: localToWorld,
		Tint:         t.style.Tint.Vec4(),
		CastShadows:  castShadows,
		SamplerIndex: t.style.SamplerIndex(),
	}
}

func (t *targetImpl) DrawMesh(m resource.Handle[mesh.Mesh]) {
	t.addMeshOrder(t.shader(), t.material(), t.order(m, t.style.Transform.Matrix(), t.style.CastShadows))
}

func (t *targetImpl) DrawCube() {
	t.DrawMesh(t.builtins.Cube)
}

func (t *targetImpl) DrawSphere() {
	t.DrawMesh(t.builtins.Sphere)
}

func (t *targetImpl) DrawSurface() {
	t.addMeshOrder(t.shader(), t.material(), t.order(t.builtins.Surface, mgl32.Ident4(), false))
}

func (t *targetImpl) DrawGrid() {
	t.addMeshOrder(t.builtins.Line, t.material(), t.order(t.builtins.Grid, mgl32.Ident4(), false))
}

// addMeshOrder files order under its shader and material group, creating either group on
// first use. Handles are cloned so resources outlive the caller's handles until Reset.
func (t *targetImpl) addMeshOrder(s resource.Handle[shader.Shader], m resource.Handle[material.Material], order MeshOrder) {
	if order.CastShadows {
		t.hasShadowCasters = true
	}
	order.Mesh = order.Mesh.Clone()

	si := -1
	for i := range t.shaderGroups {
		if t.shaderGroups[i].Shader == s {
			si = i
			break
		}
	}
	if si < 0 {
		t.shaderGroups = append(t.shaderGroups, ShaderGroup{Shader: s.Clone()})
		si = len(t.shaderGroups) - 1
	}
	group := &t.shaderGroups[si]

	for i := range group.Materials {
		if group.Materials[i].Material == m {
			group.Materials[i].Orders = append(group.Materials[i].Orders, order)
			return
		}
	}
	group.Materials = append(group.Materials, MaterialGroup{Material: m.Clone(), Orders: []MeshOrder{order}})
}

func (t *targetImpl) DrawText(text string, position mgl32.Vec2) {
	tr := t.style.Transform
	tr.Position = tr.Position.Add(position.Vec3(0))
	tr.ScaleBy(mgl32.Vec3{t.style.FontSize, t.style.FontSize, 1})
	t.textOrders = append(t.textOrders, TextOrder{
		Font:         common.Coalesce(t.style.Font, t.builtins.Font),
		Text:         text,
		LocalToWorld: tr.Matrix(),
		Color:        t.style.TextColor.Vec4(),
	})
}

func (t *targetImpl) DrawLineDebug(from, to mgl32.Vec3) {
	m := t.style.Transform.Matrix()
	t.lineOrders = append(t.lineOrders, LineOrder{
		From:  common.TransformPoint(m, from),
		To:    common.TransformPoint(m, to),
		Color: t.style.LineColor.Vec4(),
	})
}

func (t *targetImpl) DrawShape(points []mgl32.Vec2) {
	if len(points) < 3 {
		return
	}
	m := t.style.Transform.Matrix()
	world := make([]mgl32.Vec3, len(points))
	for i, p := range points {
		world[i] = common.TransformPoint(m, p.Vec3(0))
	}
	t.shapeOrders = append(t.shapeOrders, ShapeOrder{Points: world, Color: t.style.ShapeColor.Vec4()})
}

func (t *targetImpl) DrawRectangle(position, size mgl32.Vec2) {
	t.DrawShape([]mgl32.Vec2{
		position,
		{position.X() + size.X(), position.Y()},
		position.Add(size),
		{position.X(), position.Y() + size.Y()},
	})
}

func (t *targetImpl) HasShadowCasters() bool {
	return t.hasShadowCasters
}

func (t *targetImpl) ClearColor() common.Color {
	return t.clearColor
}

func (t *targetImpl) Skybox() bool {
	return t.skybox
}

func (t *targetImpl) SkyboxTexture() resource.Handle[material.Texture] {
	return t.skyTexture
}

func (t *targetImpl) ShadowBias() float32 {
	return t.shadowBias
}

func (t *targetImpl) Lights() [light.MaxLights]light.Light {
	return t.lights
}

func (t *targetImpl) ShaderGroups() []ShaderGroup {
	return t.shaderGroups
}

func (t *targetImpl) TextOrders() []TextOrder {
	return t.textOrders
}

func (t *targetImpl) LineOrders() []LineOrder {
	return t.lineOrders
}

func (t *targetImpl) ShapeOrders() []ShapeOrder {
	return t.shapeOrders
}

func (t *targetImpl) Reset() {
	for _, sg := range t.shaderGroups {
		for _, mg := range sg.Materials {
			for _, o := range mg.Orders {
				o.Mesh.Release()
			}
			mg.Material.Release()
		}
		sg.Shader.Release()
	}
	clear(t.shaderGroups)
	t.shaderGroups = t.shaderGroups[:0]
	t.textOrders = t.textOrders[:0]
	t.lineOrders = t.lineOrders[:0]
	clear(t.shapeOrders)
	t.shapeOrders = t.shapeOrders[:0]
	t.hasShadowCasters = false
	t.releaseSkyTexture()
	t.defaults()
}
