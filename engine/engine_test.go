package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadless(t *testing.T, b *devicetest.Backend, options ...EngineBuilderOption) *engine {
	t.Helper()
	r, err := renderer.NewRenderer(b, renderer.WithShadowMapSize(256))
	require.NoError(t, err)
	e, err := NewEngine(append([]EngineBuilderOption{WithRenderer(r)}, options...)...)
	require.NoError(t, err)
	return e.(*engine)
}

func TestRunHeadlessRendersUntilQuit(t *testing.T) {
	b := devicetest.New()
	e := newHeadless(t, b)
	require.Nil(t, e.Window())

	draws := 0
	e.SetDrawCallback(func(tg target.Target, _ float32) {
		tg.DrawCube()
		draws++
		if draws == 3 {
			e.Quit()
		}
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.Frames())
	assert.Len(t, b.EventsOf(devicetest.KindPresent), 3)
	require.NoError(t, b.Err())
	assert.Zero(t, b.Live(), "Run shuts the renderer down")
}

func TestRunReturnsFatalFrameError(t *testing.T) {
	b := devicetest.New()
	e := newHeadless(t, b)
	boom := errors.New("surface lost")
	b.FailNext(devicetest.KindAcquire, boom)

	err := e.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Zero(t, e.Frames())
	assert.Empty(t, b.EventsOf(devicetest.KindSubmit))
}

func TestRunStopsWhenContextIsCanceled(t *testing.T) {
	b := devicetest.New()
	e := newHeadless(t, b)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.SetDrawCallback(func(target.Target, float32) {
		if e.Frames() == 1 {
			cancel()
		}
	})
	require.NoError(t, e.Run(ctx))
	assert.Equal(t, uint64(2), e.Frames())
}

func TestQuitBeforeRunRendersNothing(t *testing.T) {
	b := devicetest.New()
	e := newHeadless(t, b)
	e.Quit()
	require.NoError(t, e.Run(context.Background()))
	assert.Zero(t, e.Frames())
}

func TestReloadAppliesOnNextFrame(t *testing.T) {
	b := devicetest.New()
	e := newHeadless(t, b)

	cfg := config.Default()
	cfg.ShadowSplitCoef = 0.9
	cfg.ShadowPCF = config.PCFX4
	cfg.FramesInFlight = 3
	e.reload(cfg)

	e.SetDrawCallback(func(target.Target, float32) { e.Quit() })
	require.NoError(t, e.Run(context.Background()))

	got := e.Renderer().Config()
	assert.Equal(t, float32(0.9), got.ShadowSplitCoef)
	assert.Equal(t, config.PCFX4, got.ShadowPCF)
	assert.Equal(t, 2, got.FramesInFlight, "frames in flight only apply to a new renderer")
}

func TestTickCallbackRunsAlongsideRendering(t *testing.T) {
	b := devicetest.New()
	e := newHeadless(t, b, WithTickRate(1000))

	var ticks atomic.Int32
	e.SetTickCallback(func(dt float32) {
		assert.Greater(t, dt, float32(0))
		ticks.Add(1)
	})
	e.SetDrawCallback(func(target.Target, float32) {
		if ticks.Load() >= 2 {
			e.Quit()
		}
	})
	require.NoError(t, e.Run(context.Background()))
	assert.GreaterOrEqual(t, ticks.Load(), int32(2))
}

func TestProfilerSeesRenderedFrames(t *testing.T) {
	b := devicetest.New()
	e := newHeadless(t, b, WithProfiling(true))
	e.SetDrawCallback(func(tg target.Target, _ float32) {
		tg.DrawCube()
		e.Quit()
	})
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(1), e.Frames())
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := config.Default()
	cfg.ShadowMapSize = 1000
	_, err := NewEngine(WithConfig(cfg))
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestRate(t *testing.T) {
	for _, tc := range []struct {
		hz, fallback float64
		want         time.Duration
	}{
		{60, 60, time.Second / 60},
		{0, 60, time.Second / 60},
		{-5, 30, time.Second / 30},
		{0, 0, 0},
		{250, 0, 4 * time.Millisecond},
	} {
		assert.Equal(t, tc.want, rate(tc.hz, tc.fallback), "rate(%v, %v)", tc.hz, tc.fallback)
	}
}
