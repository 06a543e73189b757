package mesh_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexMarshalLayout(t *testing.T) {
	v := mesh.Vertex{
		Position: mgl32.Vec3{1, 2, 3},
		Normal:   mgl32.Vec3{0, 1, 0},
		UV:       mgl32.Vec2{0.25, 0.75},
		Color:    mgl32.Vec4{0.1, 0.2, 0.3, 0.4},
	}
	buf := v.Marshal()
	require.Len(t, buf, device.VertexSize)

	assert.Equal(t, float32(3), common.ReadFloat32(buf, 8))
	assert.Equal(t, float32(1), common.ReadFloat32(buf, 16))
	assert.Equal(t, float32(0.75), common.ReadFloat32(buf, 28))
	assert.Equal(t, float32(0.4), common.ReadFloat32(buf, 44))
}

func TestMarshalVerticesIsConcatenation(t *testing.T) {
	a := mesh.At(mgl32.Vec3{1, 0, 0})
	b := mesh.At(mgl32.Vec3{0, 1, 0})
	buf := mesh.MarshalVertices([]mesh.Vertex{a, b})
	assert.Equal(t, append(a.Marshal(), b.Marshal()...), buf)
	assert.Len(t, mesh.MarshalIndices([]uint32{0, 1, 2}), 12)
}

func TestGeometryAppendOffsetsIndices(t *testing.T) {
	g := mesh.Quad()
	g.Append(mesh.Quad())
	assert.Len(t, g.Vertices, 8)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7}, g.Indices)
}

func TestBuiltinGeometry(t *testing.T) {
	tests := []struct {
		name     string
		geometry mesh.Geometry
		vertices int
		indices  int
	}{
		{"surface", mesh.Surface(), 4, 6},
		{"quad", mesh.Quad(), 4, 6},
		{"cube", mesh.Cube(), 24, 36},
		{"sphere", mesh.Sphere(30, 30), 2 + 30*29, 30*3*2 + 28*30*6},
		{"grid", mesh.Grid(10), 44, 44},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.geometry.Vertices, tt.vertices)
			assert.Len(t, tt.geometry.Indices, tt.indices)
			for _, index := range tt.geometry.Indices {
				assert.Less(t, int(index), len(tt.geometry.Vertices))
			}
		})
	}
}

func TestCubeNormalsPointOutward(t *testing.T) {
	for _, v := range mesh.Cube().Vertices {
		assert.InDelta(t, 1, v.Normal.Len(), 1e-5)
		assert.Greater(t, v.Normal.Dot(v.Position), float32(0))
	}
}

func TestSphereStaysOnRadius(t *testing.T) {
	for _, v := range mesh.Sphere(12, 8).Vertices {
		assert.InDelta(t, 0.5, v.Position.Len(), 1e-5)
	}
}

func TestNewUploads(t *testing.T) {
	backend := devicetest.New()
	m, err := mesh.New(backend, mesh.Cube(), mesh.WithLabel("cube"))
	require.NoError(t, err)

	assert.Equal(t, uint32(36), m.IndexCount())
	vb := m.VertexBuffer().(*devicetest.Buffer)
	assert.Equal(t, uint64(24*device.VertexSize), vb.Size())
	assert.Equal(t, mesh.MarshalVertices(mesh.Cube().Vertices), vb.Data)
	assert.Equal(t, "cube vertices", vb.Label())
}

func TestStaticUpdateRetiresOldBuffers(t *testing.T) {
	backend := devicetest.New()
	mgr, err := device.NewManager(backend)
	require.NoError(t, err)
	f, err := mgr.BeginFrame()
	require.NoError(t, err)

	m, err := mesh.New(backend, mesh.Quad())
	require.NoError(t, err)
	old := m.VertexBuffer()

	m.SetGeometry(mesh.Cube())
	require.NoError(t, m.Update(backend, mgr))

	assert.NotSame(t, old, m.VertexBuffer())
	assert.Equal(t, 2, mgr.Pending(f.Index))
	assert.False(t, old.(*devicetest.Buffer).Destroyed)
	assert.Equal(t, uint32(36), m.IndexCount())
}

func TestStreamingUpdateWritesInPlace(t *testing.T) {
	backend := devicetest.New()
	mgr, err := device.NewManager(backend)
	require.NoError(t, err)
	f, err := mgr.BeginFrame()
	require.NoError(t, err)

	m, err := mesh.New(backend, mesh.Geometry{}, mesh.WithStreaming())
	require.NoError(t, err)
	vb := m.VertexBuffer()
	assert.Equal(t, uint32(0), m.IndexCount())

	m.SetGeometry(mesh.Cube())
	require.NoError(t, m.Update(backend, mgr))
	assert.Same(t, vb, m.VertexBuffer())
	assert.Equal(t, 0, mgr.Pending(f.Index))

	big := mesh.Sphere(30, 30)
	m.SetGeometry(big)
	require.NoError(t, m.Update(backend, mgr))
	assert.NotSame(t, vb, m.VertexBuffer())
	assert.GreaterOrEqual(t, m.VertexBuffer().Size(), uint64(len(big.Vertices)*device.VertexSize))
	assert.Equal(t, 2, mgr.Pending(f.Index))
}

func TestNewReportsBufferFailure(t *testing.T) {
	backend := devicetest.New()
	backend.FailNext(devicetest.KindCreateBuffer, assert.AnError)
	_, err := mesh.New(backend, mesh.Quad())
	assert.ErrorIs(t, err, assert.AnError)
}
