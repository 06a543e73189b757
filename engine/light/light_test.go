package light_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	lights := light.Defaults()
	main, ok := light.Main(lights)
	assert.True(t, ok)
	assert.Equal(t, light.LightTypeDirectional, main.Type())
	assert.InDelta(t, 1, main.Direction().Len(), 1e-6)
	for _, l := range lights[1:] {
		assert.Nil(t, l)
	}
}

func TestMainSkipsIneligibleLights(t *testing.T) {
	var lights [light.MaxLights]light.Light
	lights[0] = light.Point(mgl32.Vec3{}, common.White, 5)
	lights[1] = light.Directional(mgl32.Vec3{0, -1, 0}, common.White, false)
	lights[2] = light.Directional(mgl32.Vec3{0, -1, 0}, common.White, true)
	lights[2].SetEnabled(false)
	_, ok := light.Main(lights)
	assert.False(t, ok)

	lights[3] = light.Directional(mgl32.Vec3{1, -1, 0}, common.Red, true)
	main, ok := light.Main(lights)
	assert.True(t, ok)
	assert.Same(t, lights[3], main)
}

func TestGPULightLayout(t *testing.T) {
	l := light.NewLight(light.LightTypeSpot,
		light.WithPosition(mgl32.Vec3{1, 2, 3}),
		light.WithDirection(mgl32.Vec3{0, 0, -2}),
		light.WithIntensity(4),
		light.WithRange(8),
		light.WithCastsShadows(true),
	)
	g := light.ToGPULight(l)
	buf := g.Marshal()
	assert.Len(t, buf, light.GPULightSize)
	assert.Equal(t, float32(3), common.ReadFloat32(buf, 8))
	assert.Equal(t, uint32(2), uint32(buf[12]))
	assert.Equal(t, float32(4), common.ReadFloat32(buf, 28))
	assert.Equal(t, float32(-1), common.ReadFloat32(buf, 40))
	assert.Equal(t, float32(8), common.ReadFloat32(buf, 44))
	assert.Equal(t, uint32(1), uint32(buf[56]))
}

func TestEmptySlotsMarshalAsNone(t *testing.T) {
	w := common.NewByteWriter(light.MaxLights * light.GPULightSize)
	light.MarshalLights(w, 0, light.Defaults())
	buf := w.Bytes()
	assert.Equal(t, uint32(0), uint32(buf[12]))
	assert.Equal(t, uint32(1), uint32(buf[56]))
	for i := 1; i < light.MaxLights; i++ {
		assert.Equal(t, uint32(3), uint32(buf[i*light.GPULightSize+12]))
	}
}

func TestOnlyMainLightCastsShadows(t *testing.T) {
	lights := light.Defaults()
	lights[1] = light.Directional(mgl32.Vec3{1, -1, 0}, common.Red, true)
	w := common.NewByteWriter(light.MaxLights * light.GPULightSize)
	light.MarshalLights(w, 0, lights)
	buf := w.Bytes()
	assert.Equal(t, uint32(1), uint32(buf[56]))
	assert.Equal(t, uint32(0), uint32(buf[light.GPULightSize+56]))
}
