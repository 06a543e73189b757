package target_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/font"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/Carmen-Shannon/oxy-forward/engine/shader"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend   *devicetest.Backend
	shaders   *resource.Store[shader.Shader]
	materials *resource.Store[material.Material]
	textures  *resource.Store[material.Texture]
	meshes    *resource.Store[mesh.Mesh]
	builtins  target.Builtins
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend:   devicetest.New(),
		shaders:   resource.NewStore[shader.Shader]("shader"),
		materials: resource.NewStore[material.Material]("material"),
		textures:  resource.NewStore[material.Texture]("texture"),
		meshes:    resource.NewStore[mesh.Mesh]("mesh"),
	}
	f.builtins = target.Builtins{
		Phong:   f.shader(t, shader.BuiltinPhong),
		Line:    f.shader(t, shader.BuiltinLine),
		White:   f.material(t, common.White),
		Cube:    f.mesh(t, mesh.Cube()),
		Sphere:  f.mesh(t, mesh.Sphere(8, 6)),
		Surface: f.mesh(t, mesh.Surface()),
		Grid:    f.mesh(t, mesh.Grid(4)),
		Font:    font.Builtin(),
	}
	return f
}

func (f *fixture) shader(t *testing.T, k shader.Builtin) resource.Handle[shader.Shader] {
	s, err := shader.NewBuiltin(f.backend, k)
	require.NoError(t, err)
	return f.shaders.Insert(s)
}

func (f *fixture) material(t *testing.T, c common.Color) resource.Handle[material.Material] {
	tex, err := material.NewTexture(f.backend, "albedo", material.Solid(c))
	require.NoError(t, err)
	albedo := f.textures.Insert(tex)
	m, err := material.NewMaterial(f.backend, albedo)
	require.NoError(t, err)
	albedo.Release()
	return f.materials.Insert(m)
}

func (f *fixture) mesh(t *testing.T, g mesh.Geometry) resource.Handle[mesh.Mesh] {
	m, err := mesh.New(f.backend, g)
	require.NoError(t, err)
	return f.meshes.Insert(m)
}

func TestDefaults(t *testing.T) {
	f := setup(t)
	tg := target.New(f.builtins)

	assert.Equal(t, common.White, tg.ClearColor())
	assert.False(t, tg.Skybox())
	assert.Equal(t, float32(0.002), tg.ShadowBias())
	assert.False(t, tg.HasShadowCasters())
	_, ok := light.Main(tg.Lights())
	assert.True(t, ok)

	s := tg.Style()
	assert.Equal(t, float32(24), s.FontSize)
	assert.Equal(t, common.Black, s.TextColor)
	assert.Equal(t, uint32(0), s.SamplerIndex())
	assert.Same(t, font.Builtin(), s.Font)
}

func TestGroupingByShaderThenMaterial(t *testing.T) {
	f := setup(t)
	a, b := f.builtins.Phong, f.shader(t, shader.BuiltinShape)
	x, y := f.material(t, common.Red), f.material(t, common.Blue)
	tg := target.New(f.builtins)

	for i, pair := range []struct {
		s resource.Handle[shader.Shader]
		m resource.Handle[material.Material]
	}{{a, x}, {b, y}, {a, x}} {
		tg.SetShader(pair.s)
		tg.SetMaterial(pair.m)
		tg.Style().Transform.Position = mgl32.Vec3{float32(i), 0, 0}
		tg.DrawCube()
	}

	groups := tg.ShaderGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, a, groups[0].Shader)
	assert.Equal(t, b, groups[1].Shader)
	require.Len(t, groups[0].Materials, 1)
	assert.Equal(t, x, groups[0].Materials[0].Material)
	orders := groups[0].Materials[0].Orders
	require.Len(t, orders, 2)
	assert.Equal(t, float32(0), orders[0].LocalToWorld.Col(3).X())
	assert.Equal(t, float32(2), orders[1].LocalToWorld.Col(3).X())
	require.Len(t, groups[1].Materials, 1)
	assert.Equal(t, y, groups[1].Materials[0].Material)
	assert.True(t, tg.HasShadowCasters())
}

func TestOrdersHoldHandlesUntilReset(t *testing.T) {
	f := setup(t)
	m := f.mesh(t, mesh.Quad())
	tg := target.New(f.builtins)
	tg.DrawMesh(m)
	tg.DrawMesh(m)
	assert.Equal(t, 3, m.Refs())
	assert.Equal(t, 2, f.builtins.Phong.Refs())
	assert.Equal(t, 2, f.builtins.White.Refs())

	tg.Reset()
	assert.Equal(t, 1, m.Refs())
	assert.Equal(t, 1, f.builtins.Phong.Refs())
	assert.Equal(t, 1, f.builtins.White.Refs())
	assert.Empty(t, tg.ShaderGroups())
	assert.False(t, tg.HasShadowCasters())
}

func TestSurfaceAndGridNeverCastShadows(t *testing.T) {
	f := setup(t)
	tg := target.New(f.builtins)
	tg.Translate(mgl32.Vec3{5, 5, 5})
	tg.DrawSurface()
	tg.DrawGrid()
	assert.False(t, tg.HasShadowCasters())

	groups := tg.ShaderGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, f.builtins.Phong, groups[0].Shader)
	assert.Equal(t, f.builtins.Line, groups[1].Shader)
	assert.Equal(t, mgl32.Ident4(), groups[0].Materials[0].Orders[0].LocalToWorld)
}

func TestNonCastingStyle(t *testing.T) {
	f := setup(t)
	tg := target.New(f.builtins)
	tg.Style().CastShadows = false
	tg.DrawSphere()
	assert.False(t, tg.HasShadowCasters())
}

func TestPushPopRestoresStyle(t *testing.T) {
	f := setup(t)
	tg := target.New(f.builtins)
	tg.Push()
	tg.Translate(mgl32.Vec3{1, 2, 3})
	tg.Style().LineColor = common.Red
	tg.Style().TextureFilter = common.FilterNearest
	tg.DrawLineDebug(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0})
	tg.Pop()
	tg.DrawLineDebug(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0})

	lines := tg.LineOrders()
	require.Len(t, lines, 2)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, lines[0].From)
	assert.Equal(t, common.Red.Vec4(), lines[0].Color)
	assert.Equal(t, mgl32.Vec3{}, lines[1].From)
	assert.Equal(t, common.Black.Vec4(), lines[1].Color)
	assert.Equal(t, common.FilterLinear, tg.Style().TextureFilter)

	assert.Panics(t, tg.Pop)
}

func TestSamplerIndexFollowsStyle(t *testing.T) {
	f := setup(t)
	tg := target.New(f.builtins)
	tg.Style().TextureFilter = common.FilterNearest
	tg.Style().TextureWrap = common.WrapClampEdge
	tg.Style().TextureMipmaps = false
	tg.DrawCube()
	assert.Equal(t, uint32(11), tg.ShaderGroups()[0].Materials[0].Orders[0].SamplerIndex)
}

func TestShapesAndText(t *testing.T) {
	f := setup(t)
	tg := target.New(f.builtins)
	tg.DrawShape([]mgl32.Vec2{{0, 0}, {1, 0}})
	assert.Empty(t, tg.ShapeOrders())

	tg.Translate(mgl32.Vec3{0, 0, -1})
	tg.DrawRectangle(mgl32.Vec2{1, 1}, mgl32.Vec2{2, 3})
	shapes := tg.ShapeOrders()
	require.Len(t, shapes, 1)
	assert.Equal(t, []mgl32.Vec3{{1, 1, -1}, {3, 1, -1}, {3, 4, -1}, {1, 4, -1}}, shapes[0].Points)

	tg.Style().FontSize = 10
	tg.DrawText("hi", mgl32.Vec2{2, 0})
	text := tg.TextOrders()
	require.Len(t, text, 1)
	assert.Equal(t, float32(10), text[0].LocalToWorld.At(0, 0))
	assert.Equal(t, float32(2), text[0].LocalToWorld.At(0, 3))
	assert.Same(t, font.Builtin(), text[0].Font)
}

func TestOptionsSurviveReset(t *testing.T) {
	f := setup(t)
	tg := target.New(f.builtins, target.WithClearColor(common.Sky), target.WithSkybox())
	tg.SetClearColor(common.Red)
	tg.Reset()
	assert.Equal(t, common.Sky, tg.ClearColor())
	assert.True(t, tg.Skybox())
}

func TestSkyboxTextureHeldUntilReset(t *testing.T) {
	f := setup(t)
	tex, err := material.NewTexture(f.backend, "sky", material.Solid(common.Sky))
	require.NoError(t, err)
	sky := f.textures.Insert(tex)

	tg := target.New(f.builtins)
	tg.SetSkyboxTexture(sky)
	assert.True(t, tg.Skybox())
	assert.Equal(t, sky, tg.SkyboxTexture())
	assert.Equal(t, 2, sky.Refs())

	tg.SetSkyboxTexture(resource.Handle[material.Texture]{})
	assert.Equal(t, 1, sky.Refs())
	assert.True(t, tg.SkyboxTexture().IsZero())
	assert.True(t, tg.Skybox(), "a zero texture falls back to the gradient")

	tg.SetSkyboxTexture(sky)
	tg.Reset()
	assert.Equal(t, 1, sky.Refs())
	assert.True(t, tg.SkyboxTexture().IsZero())
	assert.False(t, tg.Skybox())
	sky.Release()
}
