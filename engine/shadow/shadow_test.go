package shadow_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewOf(c camera.Camera, depth float32) shadow.View {
	return shadow.View{
		WorldToView: c.View(),
		ViewToClip:  c.ProjectionTo(depth),
		Near:        c.Near(),
		Depth:       depth,
	}
}

func TestSplitsStrictlyIncreasing(t *testing.T) {
	tests := map[string]struct {
		near, far, coef float32
	}{
		"uniform":          {0.1, 100, 0},
		"logarithmic":      {0.1, 100, 1},
		"blended":          {0.5, 50, 0.5},
		"clamped above":    {1, 10, 3},
		"clamped below":    {1, 10, -2},
		"zero near":        {0, 20, 1},
		"tight range":      {9.9, 10, 0.7},
		"large far":        {0.01, 5000, 0.9},
		"orthographic-ish": {0, 1, 0.5},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			splits := shadow.Splits(tc.near, tc.far, tc.coef)
			prev := tc.near
			for i, s := range splits {
				assert.Greater(t, s, prev, "split %d", i)
				prev = s
			}
			assert.Equal(t, tc.far, splits[device.CascadeCount-1])
		})
	}
}

func TestSplitsUniformSpacing(t *testing.T) {
	splits := shadow.Splits(0, 100, 0)
	assert.Equal(t, [device.CascadeCount]float32{25, 50, 75, 100}, splits)
}

func TestBoundsContainSlice(t *testing.T) {
	c := camera.NewCamera(camera.WithNear(0.5))
	v := viewOf(c, 60)
	inverse := v.WorldToView.Inv()

	from := v.Near
	for _, to := range shadow.Splits(v.Near, v.Depth, 0.5) {
		s := shadow.Bounds(v, from, to)
		for _, d := range []float32{from, (from + to) / 2, to} {
			p := common.TransformPoint(inverse, mgl32.Vec3{0, 0, -d})
			assert.LessOrEqual(t, p.Sub(s.Center).Len(), s.Radius+1e-3)
		}
		assert.Equal(t, s.Radius, math32.Ceil(s.Radius*16)/16)
		from = to
	}
}

func TestFitIsDeterministic(t *testing.T) {
	c := camera.NewCamera()
	v := viewOf(c, 50)
	dir := mgl32.Vec3{-1, -1, 1}
	assert.Equal(t, shadow.Fit(v, dir, 0.5, 2048), shadow.Fit(v, dir, 0.5, 2048))
}

func TestLightMatricesSnapToTexels(t *testing.T) {
	const size = 1024
	for _, center := range []mgl32.Vec3{{0, 0, 0}, {3.3, 1.7, -8.1}, {100.05, -2, 41.9}} {
		view, proj := shadow.LightMatrices(mgl32.Vec3{-1, -2, 0.5}, shadow.Sphere{Center: center, Radius: 12.5}, size)
		origin := proj.Mul4(view).Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Mul(size / 2)
		assert.InDelta(t, math32.Round(origin.X()), origin.X(), 1e-2)
		assert.InDelta(t, math32.Round(origin.Y()), origin.Y(), 1e-2)
	}
}

func TestLightMatricesStraightDown(t *testing.T) {
	view, proj := shadow.LightMatrices(mgl32.Vec3{0, -1, 0}, shadow.Sphere{Radius: 4}, 512)
	assert.True(t, common.IsFinite(view))
	assert.True(t, common.IsFinite(proj))

	center := common.TransformPoint(proj.Mul4(view), mgl32.Vec3{})
	assert.InDelta(t, 0.5, center.Z(), 1e-4)
}

func TestEmptyCascades(t *testing.T) {
	c := shadow.Empty()
	for i := range device.CascadeCount {
		assert.Equal(t, mgl32.Ident4(), c.WorldToShadow[i])
		assert.Zero(t, c.Splits[i])
	}
}

func TestNewPanicsOnBadMapSize(t *testing.T) {
	b := devicetest.New()
	assert.Panics(t, func() {
		_, _ = shadow.New(b, 2, shadow.WithMapSize(1000))
	})
}

func TestMapsPerSlot(t *testing.T) {
	b := devicetest.New()
	r, err := shadow.New(b, 2, shadow.WithMapSize(256))
	require.NoError(t, err)

	a, c := r.Maps(0), r.Maps(1)
	for i := range device.CascadeCount {
		assert.NotSame(t, a[i], c[i])
		assert.Equal(t, device.FormatShadowDepth, a[i].Format())
		assert.Equal(t, uint32(256), a[i].Width())
	}
}

func TestRenderDrawsOnlyCasters(t *testing.T) {
	b := devicetest.New()
	m, err := device.NewManager(b)
	require.NoError(t, err)
	r, err := shadow.New(b, m.FramesInFlight(), shadow.WithMapSize(512))
	require.NoError(t, err)

	meshes := resource.NewStore[mesh.Mesh]("mesh")
	cube, err := mesh.New(b, mesh.Cube())
	require.NoError(t, err)
	h := meshes.Insert(cube)
	groups := []target.ShaderGroup{{
		Materials: []target.MaterialGroup{{
			Orders: []target.MeshOrder{
				{Mesh: h, LocalToWorld: mgl32.Translate3D(0, 1, 0), CastShadows: true},
				{Mesh: h, LocalToWorld: mgl32.Ident4(), CastShadows: false},
			},
		}},
	}}

	f, err := m.BeginFrame()
	require.NoError(t, err)
	cam := camera.NewCamera()
	cascades, err := r.Render(f, viewOf(cam, 100), mgl32.Vec3{-1, -1, 1}, groups)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	assert.Equal(t, 1, r.Passes())
	assert.Equal(t, device.CascadeCount, f.Commands.RenderPasses())
	draws := b.Draws()
	require.Len(t, draws, device.CascadeCount)
	maps := r.Maps(f.Index)
	for i, d := range draws {
		assert.Equal(t, "shadow", d.Pipeline.Spec.Label)
		assert.Equal(t, mgl32.Translate3D(0, 1, 0), common.ReadMat4(d.Push, 0))
		assert.Same(t, maps[i], b.Passes()[d.Pass].Target.Depth)
	}

	for i := range device.CascadeCount {
		assert.True(t, common.IsFinite(cascades.WorldToShadow[i]))
		assert.NotEqual(t, mgl32.Ident4(), cascades.WorldToShadow[i])
		assert.Greater(t, cascades.Diameters[i], float32(0))
		assert.InDelta(t, cascades.Diameters[i]/512, cascades.Texels[i], 1e-6)
	}
	assert.Equal(t, float32(100), cascades.Splits[device.CascadeCount-1])
}

func TestSetSplitCoefClamps(t *testing.T) {
	r, err := shadow.New(devicetest.New(), 1, shadow.WithMapSize(64), shadow.WithSplitCoef(0.2))
	require.NoError(t, err)
	assert.Equal(t, float32(0.2), r.SplitCoef())
	r.SetSplitCoef(7)
	assert.Equal(t, float32(1), r.SplitCoef())
}

func TestRenderSkipsEmptyRange(t *testing.T) {
	b := devicetest.New()
	m, err := device.NewManager(b)
	require.NoError(t, err)
	r, err := shadow.New(b, m.FramesInFlight(), shadow.WithMapSize(256))
	require.NoError(t, err)

	f, err := m.BeginFrame()
	require.NoError(t, err)
	cam := camera.NewCamera(camera.WithNear(60), camera.WithDepth(100))
	cascades, err := r.Render(f, viewOf(cam, 50), mgl32.Vec3{-1, -1, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, shadow.Empty(), cascades)
	assert.Zero(t, r.Passes())
	assert.Zero(t, f.Commands.RenderPasses())
}
