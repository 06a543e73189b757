package material_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend   *devicetest.Backend
	manager   device.Manager
	textures  *resource.Store[material.Texture]
	materials *resource.Store[material.Material]
}

func setup(t *testing.T) fixture {
	t.Helper()
	backend := devicetest.New()
	m, err := device.NewManager(backend)
	require.NoError(t, err)
	_, err = m.BeginFrame()
	require.NoError(t, err)
	return fixture{
		backend:   backend,
		manager:   m,
		textures:  resource.NewStore[material.Texture]("texture"),
		materials: resource.NewStore[material.Material]("material"),
	}
}

func (f fixture) texture(t *testing.T, c common.Color) resource.Handle[material.Texture] {
	t.Helper()
	tex, err := material.NewTexture(f.backend, "solid", material.Solid(c))
	require.NoError(t, err)
	return f.textures.Insert(tex)
}

func TestParamsLayout(t *testing.T) {
	p := material.DefaultParams()
	p.Albedo = common.RGB(255, 0, 0)
	p.Args[5][3] = 7
	buf := p.Marshal()
	require.Len(t, buf, material.GPUMaterialSize)
	assert.Equal(t, float32(1), common.ReadFloat32(buf, 0))
	assert.Equal(t, float32(0), common.ReadFloat32(buf, 4))
	assert.Equal(t, float32(0.5), common.ReadFloat32(buf, 16))
	assert.Equal(t, float32(32), common.ReadFloat32(buf, 20))
	assert.Equal(t, float32(7), common.ReadFloat32(buf, 124))
}

func TestNewMaterialBindsAlbedo(t *testing.T) {
	f := setup(t)
	tex := f.texture(t, common.Blue)
	m, err := material.NewMaterial(f.backend, tex, material.WithLabel("blue"), material.WithAlbedoColor(common.Gray))
	require.NoError(t, err)

	desc := m.Descriptor().(*devicetest.Descriptor)
	assert.Equal(t, device.LayoutMaterial, desc.Layout())
	assert.Same(t, tex.Get().Image(), desc.Spec.Images[0])
	assert.Equal(t, 2, tex.Refs())
	assert.Equal(t, m.Params().Marshal(), desc.Spec.Buffer.(*devicetest.Buffer).Data)
}

func TestMaterialKeepsAlbedoAlive(t *testing.T) {
	f := setup(t)
	tex := f.texture(t, common.White)
	m, err := material.NewMaterial(f.backend, tex)
	require.NoError(t, err)
	h := f.materials.Insert(m)

	tex.Release()
	assert.Equal(t, 0, f.textures.Sweep(f.manager))
	assert.True(t, tex.Valid())

	h.Release()
	assert.Equal(t, 1, f.materials.Sweep(f.manager))
	assert.Equal(t, 1, f.textures.Sweep(f.manager))
	assert.False(t, tex.Valid())
	assert.NoError(t, f.backend.Err())
}

func TestSetParamsReuploadsOnSync(t *testing.T) {
	f := setup(t)
	m, err := material.NewMaterial(f.backend, f.texture(t, common.White))
	require.NoError(t, err)
	h := f.materials.Insert(m)
	before := m.Descriptor()

	p := h.Mut().Params()
	p.Shininess = 64
	h.Mut().SetParams(p)
	require.NoError(t, f.materials.Sync(f.backend, f.manager))

	after := h.Get().Descriptor().(*devicetest.Descriptor)
	assert.NotSame(t, before, after)
	assert.Equal(t, float32(64), common.ReadFloat32(after.Spec.Buffer.(*devicetest.Buffer).Data, 20))
	assert.False(t, before.(*devicetest.Descriptor).Destroyed)
	assert.Equal(t, 2, f.manager.Pending(0))
}

func TestRefreshFollowsTextureUpload(t *testing.T) {
	f := setup(t)
	tex := f.texture(t, common.White)
	m, err := material.NewMaterial(f.backend, tex)
	require.NoError(t, err)
	first := m.Descriptor()

	require.NoError(t, m.Refresh(f.backend, f.manager))
	assert.Same(t, first, m.Descriptor())

	tex.Mut().SetPixels(material.Solid(common.Red))
	require.NoError(t, f.textures.Sync(f.backend, f.manager))
	require.NoError(t, m.Refresh(f.backend, f.manager))
	assert.NotSame(t, first, m.Descriptor())
	assert.Same(t, tex.Get().Image(), m.Descriptor().(*devicetest.Descriptor).Spec.Images[0])
}

func TestTextureRejectsMalformedPixels(t *testing.T) {
	backend := devicetest.New()
	_, err := material.NewTexture(backend, "bad", common.TextureStagingData{Pixels: []byte{1, 2, 3}, Width: 1, Height: 1})
	assert.Error(t, err)
	_, err = material.NewTexture(backend, "empty", common.TextureStagingData{})
	assert.Error(t, err)
}

func TestFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	staging := material.FromImage(img)
	assert.Equal(t, uint32(2), staging.Width)
	assert.Equal(t, uint32(1), staging.Height)
	assert.Equal(t, []byte{10, 20, 30, 255}, staging.Pixels[4:8])
}
