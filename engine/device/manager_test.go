package device_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, backend *devicetest.Backend, options ...device.ManagerBuilderOption) device.Manager {
	t.Helper()
	m, err := device.NewManager(backend, options...)
	require.NoError(t, err)
	return m
}

func newBuffer(t *testing.T, backend *devicetest.Backend, label string) device.Buffer {
	t.Helper()
	buf, err := backend.CreateBuffer(device.BufferSpec{Label: label, Size: 64, Usage: device.BufferUniform})
	require.NoError(t, err)
	return buf
}

func runFrame(t *testing.T, m device.Manager) *device.Frame {
	t.Helper()
	f, err := m.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, m.SubmitFrame(f))
	return f
}

func indexOf(events []devicetest.Event, match func(devicetest.Event) bool) int {
	for i, e := range events {
		if match(e) {
			return i
		}
	}
	return -1
}

func TestBeginFrameAdvancesSlots(t *testing.T) {
	m := newManager(t, devicetest.New())

	var slots []int
	for range 5 {
		slots = append(slots, runFrame(t, m).Index)
	}
	assert.Equal(t, []int{0, 1, 0, 1, 0}, slots)
}

func TestSlotStateMachine(t *testing.T) {
	m := newManager(t, devicetest.New())

	assert.Equal(t, device.SlotIdle, m.SlotState(0))
	f, err := m.BeginFrame()
	require.NoError(t, err)
	assert.Equal(t, device.SlotRecording, m.SlotState(f.Index))
	require.NoError(t, m.SubmitFrame(f))
	assert.Equal(t, device.SlotSubmitted, m.SlotState(f.Index))

	runFrame(t, m)
	_, err = m.BeginFrame()
	require.NoError(t, err)
	assert.Equal(t, device.SlotRecording, m.SlotState(0))
}

func TestSubmitTwicePanics(t *testing.T) {
	m := newManager(t, devicetest.New())
	f := runFrame(t, m)
	assert.Panics(t, func() { _ = m.SubmitFrame(f) })
}

func TestBeginOnRecordingSlotPanics(t *testing.T) {
	backend := devicetest.New()
	m := newManager(t, backend, device.WithFramesInFlight(1))

	f, err := m.BeginFrame()
	require.NoError(t, err)
	backend.FailNext(devicetest.KindSubmit, errors.New("queue full"))
	require.Error(t, m.SubmitFrame(f))
	assert.Equal(t, device.SlotRecording, m.SlotState(0))

	assert.Panics(t, func() { _, _ = m.BeginFrame() })
}

func TestGraveyardWaitsForSlotFence(t *testing.T) {
	backend := devicetest.New()
	m := newManager(t, backend)

	var retired []device.Buffer
	for frame := range 6 {
		f, err := m.BeginFrame()
		require.NoError(t, err)
		buf := newBuffer(t, backend, "frame buffer")
		m.DestroyBuffer(buf)
		retired = append(retired, buf)
		assert.Equal(t, 1, m.Pending(f.Index), "frame %d", frame)
		require.NoError(t, m.SubmitFrame(f))
	}
	require.NoError(t, m.Shutdown())
	require.NoError(t, backend.Err())

	events := backend.Events()
	for _, b := range retired {
		id := b.(*devicetest.Buffer).ID
		created := indexOf(events, func(e devicetest.Event) bool { return e.Kind == devicetest.KindCreateBuffer && e.ID == id })
		destroyed := indexOf(events, func(e devicetest.Event) bool { return e.Kind == devicetest.KindDestroyBuffer && e.ID == id })
		require.GreaterOrEqual(t, destroyed, 0, "buffer %d never destroyed", id)

		// the slot's fence must signal for a submission made after the buffer was retired
		submit := indexOf(events[created:], func(e devicetest.Event) bool { return e.Kind == devicetest.KindSubmit })
		require.GreaterOrEqual(t, submit, 0)
		signal := indexOf(events[created+submit:], func(e devicetest.Event) bool { return e.Kind == devicetest.KindSignal })
		require.GreaterOrEqual(t, signal, 0)
		assert.Less(t, created+submit+signal, destroyed, "buffer %d destroyed before its fence signaled", id)
	}
}

func TestGraveyardFlushedOnlyOnSameSlot(t *testing.T) {
	backend := devicetest.New()
	m := newManager(t, backend)

	f, err := m.BeginFrame()
	require.NoError(t, err)
	buf := newBuffer(t, backend, "slot 0 buffer")
	m.DestroyBuffer(buf)
	require.NoError(t, m.SubmitFrame(f))

	// slot 1 must not touch slot 0's graveyard
	runFrame(t, m)
	assert.False(t, buf.(*devicetest.Buffer).Destroyed)
	assert.Equal(t, 1, m.Pending(0))

	f, err = m.BeginFrame()
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	assert.True(t, buf.(*devicetest.Buffer).Destroyed)
	assert.Equal(t, 0, m.Pending(0))
}

func TestFenceTimeoutIsFatal(t *testing.T) {
	backend := devicetest.New(devicetest.WithManualFences())
	m := newManager(t, backend, device.WithFramesInFlight(1))

	runFrame(t, m)
	_, err := m.BeginFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, device.ErrFenceTimeout))

	backend.Complete()
	f, err := m.BeginFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.Number)
}

func TestCommandBufferRecycled(t *testing.T) {
	backend := devicetest.New()
	m := newManager(t, backend)

	for range 4 {
		runFrame(t, m)
	}
	assert.Len(t, backend.EventsOf(devicetest.KindAllocCommands), 4)
	// the first use of each slot has nothing to free
	assert.Len(t, backend.EventsOf(devicetest.KindFreeCommands), 2)
}

func TestStatsResetEachFrame(t *testing.T) {
	backend := devicetest.New()
	m := newManager(t, backend)

	p, err := backend.CreatePipeline(device.PipelineSpec{Label: "p", Source: "src", VertexEntry: "vs"})
	require.NoError(t, err)
	vb := newBuffer(t, backend, "vb")
	ib := newBuffer(t, backend, "ib")

	f, err := m.BeginFrame()
	require.NoError(t, err)
	f.Commands.BeginRenderPass(device.RenderTarget{Color: backend.Surface()})
	f.Commands.BindShader(p)
	f.Commands.DrawMesh(vb, ib, 36)
	f.Commands.BindShader(p)
	f.Commands.DrawMesh(vb, ib, 6)
	f.Commands.EndRenderPass()

	stats := m.Stats()
	assert.Equal(t, 2, stats.DrawCalls)
	assert.Equal(t, 42, stats.DrawnIndices)
	assert.Equal(t, 1, stats.ShadersUsed)
	assert.Equal(t, 2, stats.ShaderRebinds)
	require.NoError(t, m.SubmitFrame(f))

	_, err = m.BeginFrame()
	require.NoError(t, err)
	assert.Equal(t, device.Stats{}, m.Stats())
}

func TestPresentWaitsOnAcquiredImage(t *testing.T) {
	backend := devicetest.New()
	m := newManager(t, backend)

	f, err := m.BeginFrame()
	require.NoError(t, err)
	img, err := m.AcquireImage(f)
	require.NoError(t, err)
	assert.Equal(t, uint32(800), img.Width())
	require.NoError(t, m.SubmitFrame(f))
	require.NoError(t, m.Present(f))

	events := backend.Events()
	acquire := indexOf(events, func(e devicetest.Event) bool { return e.Kind == devicetest.KindAcquire })
	submit := indexOf(events, func(e devicetest.Event) bool { return e.Kind == devicetest.KindSubmit })
	present := indexOf(events, func(e devicetest.Event) bool { return e.Kind == devicetest.KindPresent })
	assert.True(t, acquire < submit && submit < present)
}

func TestShutdown(t *testing.T) {
	backend := devicetest.New()
	m := newManager(t, backend)

	f, err := m.BeginFrame()
	require.NoError(t, err)
	m.DestroyBuffer(newBuffer(t, backend, "a"))
	require.NoError(t, m.SubmitFrame(f))
	f, err = m.BeginFrame()
	require.NoError(t, err)
	m.DestroyBuffer(newBuffer(t, backend, "b"))

	require.NoError(t, m.Shutdown())
	assert.Equal(t, 0, backend.Live())
	assert.NoError(t, backend.Err())

	_, err = m.BeginFrame()
	assert.ErrorIs(t, err, device.ErrShutdown)
	assert.ErrorIs(t, m.SubmitFrame(f), device.ErrShutdown)
	assert.NoError(t, m.Shutdown())
}

func TestNewManagerRejectsZeroSlots(t *testing.T) {
	_, err := device.NewManager(devicetest.New(), device.WithFramesInFlight(0))
	assert.Error(t, err)
}
