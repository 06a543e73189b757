package common

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerIndexMatchesTable(t *testing.T) {
	table := SamplerTable()
	for i, s := range table {
		assert.Equal(t, uint32(i), SamplerIndex(s.Filter, s.Wrap, s.Mipmaps), "entry %d", i)
	}
	assert.Equal(t, uint32(0), SamplerIndex(FilterLinear, WrapRepeat, true))
	assert.Equal(t, uint32(5), SamplerIndex(FilterLinear, WrapClampEdge, false))
	assert.Equal(t, uint32(6), SamplerIndex(FilterNearest, WrapRepeat, true))
	assert.Equal(t, uint32(11), SamplerIndex(FilterNearest, WrapClampEdge, false))
}

func TestByteWriterOffsets(t *testing.T) {
	w := NewByteWriter(96)
	m := mgl32.Translate3D(1, 2, 3)
	w.Mat4(0, m)
	w.Vec4(64, mgl32.Vec4{0.25, 0.5, 0.75, 1})
	w.Uint32(80, 7)
	w.Vec3(84, mgl32.Vec3{9, 8, 7})

	buf := w.Bytes()
	require.Len(t, buf, 96)
	assert.Equal(t, m, ReadMat4(buf, 0))
	assert.Equal(t, float32(0.75), ReadFloat32(buf, 72))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[80:]))
	assert.Equal(t, float32(8), ReadFloat32(buf, 88))
}

func TestPerspectiveZOMapsDepthToUnitRange(t *testing.T) {
	p := PerspectiveZO(mgl32.DegToRad(60), 16.0/9.0, 0.5, 100)
	assert.InDelta(t, 0, TransformPoint(p, mgl32.Vec3{0, 0, -0.5})[2], 1e-5)
	assert.InDelta(t, 1, TransformPoint(p, mgl32.Vec3{0, 0, -100})[2], 1e-5)
}

func TestOrthographicZOMapsDepthToUnitRange(t *testing.T) {
	o := OrthographicZO(10, 10, 1, 11)
	assert.InDelta(t, 0, TransformPoint(o, mgl32.Vec3{5, 0, -1})[2], 1e-6)
	assert.InDelta(t, 1, TransformPoint(o, mgl32.Vec3{0, -5, -11})[2], 1e-6)
	assert.InDelta(t, 1, TransformPoint(o, mgl32.Vec3{5, 0, -1})[0], 1e-6)
}

func TestLookRotationHandlesVerticalDirection(t *testing.T) {
	v := LookRotation(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -1, 0}, Up)
	require.True(t, IsFinite(v))
	assert.InDelta(t, 0, TransformPoint(v, mgl32.Vec3{0, 10, 0}).Len(), 1e-5)
	assert.InDelta(t, -10, TransformPoint(v, mgl32.Vec3{0, 0, 0})[2], 1e-5)
}

func TestTransformMatrixOrder(t *testing.T) {
	tr := IdentityTransform()
	tr.ScaleBy(mgl32.Vec3{2, 2, 2})
	tr.Rotate(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	tr.Move(mgl32.Vec3{10, 0, 0})

	p := TransformPoint(tr.Matrix(), mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 10, p[0], 1e-5)
	assert.InDelta(t, -2, p[2], 1e-5)
}

func TestIsPowerOfTwo(t *testing.T) {
	for n, want := range map[uint32]bool{0: false, 1: true, 2: true, 3: false, 1024: true, 1000: false, 4096: true} {
		assert.Equal(t, want, IsPowerOfTwo(n), "%d", n)
	}
}

func TestColorAndCoalesce(t *testing.T) {
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, Red.Vec4())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, White.Vec3())
	assert.Equal(t, Blue, Coalesce(None, Blue, Red))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestSamplerAnisotropy(t *testing.T) {
	table := SamplerTable()
	assert.Equal(t, uint16(16), table[SamplerIndex(FilterLinear, WrapRepeat, true)].Anisotropy(16))
	assert.Equal(t, uint16(1), table[SamplerIndex(FilterLinear, WrapRepeat, false)].Anisotropy(16))
	assert.Equal(t, uint16(1), table[SamplerIndex(FilterNearest, WrapClampEdge, true)].Anisotropy(16))
	assert.Equal(t, uint16(1), table[SamplerIndex(FilterLinear, WrapClampBorder, true)].Anisotropy(0))
}
