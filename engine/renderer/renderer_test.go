package renderer_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T, b *devicetest.Backend, options ...renderer.RendererBuilderOption) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(b, append([]renderer.RendererBuilderOption{renderer.WithShadowMapSize(256)}, options...)...)
	require.NoError(t, err)
	return r
}

func pipelines(draws []devicetest.Draw) []string {
	labels := make([]string, len(draws))
	for i, d := range draws {
		labels[i] = d.Pipeline.Spec.Label
	}
	return labels
}

func TestWorldMarshalOffsets(t *testing.T) {
	cascades := shadow.Empty()
	cascades.WorldToShadow[3] = mgl32.Translate3D(1, 2, 3)
	cascades.Splits = [device.CascadeCount]float32{1, 2, 3, 4}
	cascades.Texels[2] = 0.5
	cascades.Diameters[1] = 8

	w := renderer.World{
		WorldToView:    mgl32.Translate3D(0, 0, -5),
		ViewToClip:     mgl32.Scale3D(2, 2, 2),
		Cascades:       cascades,
		Lights:         light.Defaults(),
		CameraPosition: mgl32.Vec3{0, 0, 5},
		Time:           1.5,
		AmbientColor:   mgl32.Vec3{0.1, 0.2, 0.3},
		ShadowPCF:      config.PCFX4.Value(),
		ShadowBias:     0.002,
		Skybox:         renderer.SkyboxTexture,
	}
	buf := w.Marshal()
	require.Len(t, buf, renderer.WorldSize)

	assert.Equal(t, w.WorldToView, common.ReadMat4(buf, 0))
	assert.Equal(t, w.ViewToClip, common.ReadMat4(buf, 64))
	assert.Equal(t, mgl32.Ident4(), common.ReadMat4(buf, 128))
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), common.ReadMat4(buf, 128+3*64))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[384+12:]), "directional light type")
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[384+56:]), "main light casts shadows")
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[384+64+12:]), "empty light slot")
	assert.Equal(t, float32(5), common.ReadFloat32(buf, 648))
	assert.Equal(t, float32(1.5), common.ReadFloat32(buf, 652))
	assert.Equal(t, float32(0.3), common.ReadFloat32(buf, 664))
	assert.Equal(t, float32(0), common.ReadFloat32(buf, 668))
	assert.Equal(t, float32(4), common.ReadFloat32(buf, 684))
	assert.Equal(t, float32(0.5), common.ReadFloat32(buf, 696))
	assert.Equal(t, float32(8), common.ReadFloat32(buf, 708))
	assert.Equal(t, float32(0.002), common.ReadFloat32(buf, 720))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[724:]))
	assert.Equal(t, make([]byte, 8), buf[728:])
}

func TestRenderCascadesForShadowCaster(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	tg := r.NewTarget()
	tg.DrawCube()
	cam := camera.NewCamera(camera.WithDepth(100))

	stats, err := r.Render(cam, tg)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	assert.Equal(t, 1, r.Forward().Shadows().Passes())
	cascades := r.Forward().Cascades(0)
	for i := range device.CascadeCount {
		assert.True(t, common.IsFinite(cascades.WorldToShadow[i]), "cascade %d", i)
		assert.NotEqual(t, mgl32.Ident4(), cascades.WorldToShadow[i], "cascade %d", i)
	}
	assert.Equal(t, r.Config().ShadowDepth, cascades.Splits[device.CascadeCount-1])

	assert.GreaterOrEqual(t, stats.DrawCalls, 1)
	assert.Equal(t, device.CascadeCount+1, stats.DrawCalls)
	assert.Equal(t, 2, stats.ShadersUsed)
	assert.Equal(t, []string{"shadow", "shadow", "shadow", "shadow", "phong"}, pipelines(b.Draws()))

	passes := b.Passes()
	require.Len(t, passes, device.CascadeCount+1)
	main := passes[device.CascadeCount]
	assert.Same(t, b.Surface(), main.Target.Color)
	assert.Equal(t, 1, main.Draws)
	assert.Len(t, b.EventsOf(devicetest.KindPresent), 1)
}

func TestRenderWithoutCastersSkipsShadowPass(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	tg := r.NewTarget()
	tg.Style().CastShadows = false
	tg.DrawCube()
	tg.DrawSurface()
	require.False(t, tg.HasShadowCasters())

	stats, err := r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	assert.Zero(t, r.Forward().Shadows().Passes())
	assert.Equal(t, shadow.Empty(), r.Forward().Cascades(0))
	require.Len(t, b.Passes(), 1)
	assert.Equal(t, 2, stats.DrawCalls)
	assert.Len(t, b.EventsOf(devicetest.KindSubmit), 1)
}

func TestRenderWithoutMainLightSkipsShadowPass(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	tg := r.NewTarget()
	tg.SetLight(0, light.Point(mgl32.Vec3{0, 2, 0}, common.White, 10))
	tg.DrawCube()
	require.True(t, tg.HasShadowCasters())

	_, err := r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	assert.Zero(t, r.Forward().Shadows().Passes())
}

func TestRenderSkipsShadowsWhenNearPassesShadowDepth(t *testing.T) {
	for name, near := range map[string]float32{"beyond": 60, "equal": 50} {
		t.Run(name, func(t *testing.T) {
			b := devicetest.New()
			r := newRenderer(t, b)
			require.Equal(t, float32(50), r.Config().ShadowDepth)
			tg := r.NewTarget()
			tg.DrawCube()
			require.True(t, tg.HasShadowCasters())

			_, err := r.Render(camera.NewCamera(camera.WithNear(near), camera.WithDepth(100)), tg)
			require.NoError(t, err)
			require.NoError(t, b.Err())
			assert.Zero(t, r.Forward().Shadows().Passes())
			assert.NotContains(t, pipelines(b.Draws()), "shadow")
			assert.Equal(t, shadow.Empty(), r.Forward().Cascades(0))
		})
	}
}

func TestSkyboxSamplesTexture(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	sky, err := r.Resources().NewTexture(b, "sky", material.Solid(common.Sky))
	require.NoError(t, err)

	tg := r.NewTarget()
	tg.SetSkyboxTexture(sky)
	_, err = r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	draws := b.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, "skybox", draws[0].Pipeline.Spec.Label)
	assert.Same(t, sky.Get().Image(), draws[0].Descriptors[1].Spec.Images[0])
	assert.Equal(t,
		common.SamplerIndex(common.FilterLinear, common.WrapRepeat, false),
		binary.LittleEndian.Uint32(draws[0].Push[80:]))

	// Once only the renderer holds the panorama, the gradient samples the white builtin.
	sky.Release()
	b.Reset()
	tg.SetSkybox(true)
	_, err = r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	draws = b.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, "white", draws[0].Descriptors[1].Spec.Label)
	assert.False(t, sky.Valid(), "the panorama retires once nothing else holds it")

	require.NoError(t, r.Shutdown())
	require.NoError(t, b.Err())
	assert.Zero(t, b.Live())
}

func TestRenderBindsEachShaderAndMaterialOnce(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	res := r.Resources()
	builtins := res.Builtins()

	red, err := res.NewTexture(b, "red", material.Solid(common.Red))
	require.NoError(t, err)
	redMaterial, err := res.NewMaterial(b, red, material.WithLabel("red"))
	require.NoError(t, err)
	red.Release()

	tg := r.NewTarget()
	tg.Style().CastShadows = false
	for _, step := range []struct {
		shader   bool
		material bool
	}{{false, false}, {true, true}, {false, false}} {
		if step.shader {
			tg.SetShader(builtins.Line)
			tg.SetMaterial(redMaterial)
		} else {
			tg.SetShader(builtins.Phong)
			tg.SetMaterial(builtins.White)
		}
		tg.DrawCube()
	}

	stats, err := r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	assert.Equal(t, 2, stats.ShadersUsed)
	assert.Equal(t, 2, stats.ShaderRebinds)
	assert.Equal(t, 2, stats.MaterialsUsed)
	assert.Equal(t, 2, stats.MaterialRebinds)
	assert.Equal(t, 3, stats.DrawCalls)
	assert.Equal(t, []string{"phong", "phong", "line"}, pipelines(b.Draws()))
	assert.Equal(t, "red", b.Draws()[2].Descriptors[1].Spec.Label)

	redMaterial.Release()
}

func TestRenderBatchesTextShapesAndLines(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	tg := r.NewTarget()
	tg.DrawRectangle(mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1})
	tg.DrawText("hi", mgl32.Vec2{})
	tg.DrawLineDebug(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0})
	tg.DrawLineDebug(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	stats, err := r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	assert.Equal(t, 3, stats.DrawCalls)
	draws := b.Draws()
	assert.Equal(t, []string{"shape", "text", "line"}, pipelines(draws))
	assert.Equal(t, uint32(6), draws[0].Count)
	assert.Equal(t, uint32(12), draws[1].Count)
	assert.Equal(t, "font basic", draws[1].Descriptors[1].Spec.Label)
	assert.Equal(t, uint32(4), draws[2].Count)
	assert.Equal(t, "white", draws[2].Descriptors[1].Spec.Label)
}

func TestSkyboxDrawsFirst(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	tg := r.NewTarget()
	tg.SetSkybox(true)
	tg.Style().CastShadows = false
	tg.DrawSphere()

	cam := camera.NewCamera(camera.WithDepth(40))
	_, err := r.Render(cam, tg)
	require.NoError(t, err)

	draws := b.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, "skybox", draws[0].Pipeline.Spec.Label)
	size := cam.Depth()*2 - 0.1
	want := mgl32.Translate3D(cam.Position().Elem()).Mul4(mgl32.Scale3D(size, size, size))
	assert.Equal(t, want, common.ReadMat4(draws[0].Push, 0))
}

func TestMultisampledRenderResolvesToSurface(t *testing.T) {
	b := devicetest.New(devicetest.WithSamples(4))
	r := newRenderer(t, b)
	tg := r.NewTarget()
	tg.DrawCube()

	_, err := r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	main := b.Passes()[len(b.Passes())-1]
	assert.Same(t, b.Surface(), main.Target.Resolve)
	assert.Equal(t, uint32(4), main.Target.Color.(*devicetest.Image).Samples)
}

func TestResizeRecreatesAttachments(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	assert.Panics(t, func() { _ = r.Resize(0, 10) })

	require.NoError(t, r.Resize(1024, 768))
	tg := r.NewTarget()
	tg.DrawCube()
	_, err := r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)

	main := b.Passes()[len(b.Passes())-1]
	assert.Equal(t, uint32(1024), main.Target.Depth.Width())
	assert.Equal(t, uint32(768), main.Target.Depth.Height())
}

func TestRenderCanvasBlitsIntoTexture(t *testing.T) {
	b := devicetest.New(devicetest.WithSamples(4))
	r := newRenderer(t, b)
	c, err := r.NewCanvas("minimap", 128, 64)
	require.NoError(t, err)

	tg := r.NewTarget()
	tg.DrawCube()
	_, err = r.RenderCanvas(camera.NewCamera(), tg, c)
	require.NoError(t, err)
	require.NoError(t, b.Err())

	blits := b.EventsOf(devicetest.KindBlit)
	require.Len(t, blits, 1)
	assert.Equal(t, "minimap", blits[0].Label)
	assert.Empty(t, b.EventsOf(devicetest.KindAcquire))
	assert.Empty(t, b.EventsOf(devicetest.KindPresent))

	main := b.Passes()[len(b.Passes())-1]
	assert.NotNil(t, main.Target.Resolve)
	w, h := c.Size()
	img := c.Texture().Get().Image()
	assert.Equal(t, w, img.Width())
	assert.Equal(t, h, img.Height())

	assert.Panics(t, func() { _, _ = r.NewCanvas("empty", 0, 4) })
	c.Release()
}

func TestCanvasTextureFeedsMaterial(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	c, err := r.NewCanvas("mirror", 32, 32)
	require.NoError(t, err)
	m, err := r.Resources().NewMaterial(b, c.Texture(), material.WithLabel("mirror"))
	require.NoError(t, err)
	c.Release()

	tg := r.NewTarget()
	tg.Style().CastShadows = false
	tg.SetMaterial(m)
	tg.DrawCube()
	_, err = r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)
	require.NoError(t, b.Err())
	assert.Same(t, c.Texture().Get().Image(), b.Draws()[0].Descriptors[1].Spec.Images[0])
	m.Release()
}

func TestFailedFrameIsNotSubmitted(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	boom := errors.New("surface lost")
	b.FailNext(devicetest.KindAcquire, boom)

	tg := r.NewTarget()
	tg.DrawCube()
	_, err := r.Render(camera.NewCamera(), tg)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, b.EventsOf(devicetest.KindSubmit))
	assert.Equal(t, device.SlotRecording, r.Manager().SlotState(0))
	assert.False(t, tg.HasShadowCasters(), "target is reset after a failed frame")
}

func TestApplyUpdatesRuntimeSettings(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	cfg := r.Config()
	cfg.ShadowSplitCoef = 0.9
	cfg.ShadowDepth = 20
	cfg.ShadowPCF = config.PCFDisabled
	cfg.FramesInFlight = 5
	r.Apply(cfg)

	assert.Equal(t, float32(0.9), r.Forward().Shadows().SplitCoef())
	assert.Equal(t, 2, r.Config().FramesInFlight)

	tg := r.NewTarget()
	tg.DrawCube()
	_, err := r.Render(camera.NewCamera(camera.WithDepth(100)), tg)
	require.NoError(t, err)
	assert.Equal(t, float32(20), r.Forward().Cascades(0).Splits[device.CascadeCount-1])

	world := b.Draws()[len(b.Draws())-1].Descriptors[0].Spec.Buffer.(*devicetest.Buffer)
	assert.Equal(t, float32(2), common.ReadFloat32(world.Data, 668))
}

func TestShutdownDestroysEverything(t *testing.T) {
	b := devicetest.New()
	r := newRenderer(t, b)
	tg := r.NewTarget()
	tg.DrawCube()
	tg.DrawText("bye", mgl32.Vec2{})
	_, err := r.Render(camera.NewCamera(), tg)
	require.NoError(t, err)

	require.NoError(t, r.Shutdown())
	require.NoError(t, b.Err())
	assert.Zero(t, b.Live())
}

func TestInvalidConfigIsRejected(t *testing.T) {
	_, err := renderer.NewRenderer(devicetest.New(), renderer.WithShadowMapSize(1000))
	require.ErrorIs(t, err, config.ErrInvalid)
}
