package resource_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blob struct {
	buf     device.Buffer
	data    []byte
	updates int
}

func (b *blob) Update(backend device.Backend, d device.Destroyer) error {
	d.DestroyBuffer(b.buf)
	buf, err := backend.CreateBuffer(device.BufferSpec{Label: "blob", Size: uint64(len(b.data)), Usage: device.BufferUniform})
	if err != nil {
		return err
	}
	b.buf = buf
	b.updates++
	return backend.WriteBuffer(buf, 0, b.data)
}

func (b *blob) Destroy(d device.Destroyer) {
	d.DestroyBuffer(b.buf)
}

func setup(t *testing.T) (*devicetest.Backend, device.Manager, *resource.Store[*blob]) {
	t.Helper()
	backend := devicetest.New()
	m, err := device.NewManager(backend)
	require.NoError(t, err)
	return backend, m, resource.NewStore[*blob]("blob")
}

func newBlob(t *testing.T, backend *devicetest.Backend) *blob {
	t.Helper()
	buf, err := backend.CreateBuffer(device.BufferSpec{Label: "blob", Size: 16, Usage: device.BufferUniform})
	require.NoError(t, err)
	return &blob{buf: buf, data: make([]byte, 16)}
}

func TestCloneKeepsResourceAlive(t *testing.T) {
	backend, m, store := setup(t)
	f, err := m.BeginFrame()
	require.NoError(t, err)

	h := store.Insert(newBlob(t, backend))
	const n = 5
	clones := make([]resource.Handle[*blob], 0, n)
	for range n {
		clones = append(clones, h.Clone())
	}
	assert.Equal(t, n+1, h.Refs())

	// drop all but one handle
	h.Release()
	for _, c := range clones[:n-1] {
		c.Release()
	}
	assert.Equal(t, 0, store.Sweep(m))
	assert.True(t, clones[n-1].Valid())
	assert.Equal(t, 0, m.Pending(f.Index))

	clones[n-1].Release()
	assert.Equal(t, 1, store.Sweep(m))
	assert.Equal(t, 1, m.Pending(f.Index))

	// a second sweep must not retire it again
	assert.Equal(t, 0, store.Sweep(m))
	assert.Equal(t, 1, m.Pending(f.Index))
	assert.False(t, h.Valid())
}

func TestReleasedResourceDestroyedAfterFence(t *testing.T) {
	backend, m, store := setup(t)

	f, err := m.BeginFrame()
	require.NoError(t, err)
	b := newBlob(t, backend)
	h := store.Insert(b)
	h.Release()
	store.Sweep(m)
	require.NoError(t, m.SubmitFrame(f))

	assert.False(t, b.buf.(*devicetest.Buffer).Destroyed)
	for range 2 {
		f, err = m.BeginFrame()
		require.NoError(t, err)
		require.NoError(t, m.SubmitFrame(f))
	}
	assert.True(t, b.buf.(*devicetest.Buffer).Destroyed)
	assert.Len(t, backend.EventsOf(devicetest.KindDestroyBuffer), 1)
	assert.NoError(t, backend.Err())
}

func TestStaleHandlePanics(t *testing.T) {
	backend, m, store := setup(t)
	_, err := m.BeginFrame()
	require.NoError(t, err)

	h := store.Insert(newBlob(t, backend))
	h.Release()
	store.Sweep(m)

	assert.Panics(t, func() { h.Get() })
	assert.Panics(t, func() { h.Clone() })

	// the slot is reused with a new generation
	h2 := store.Insert(newBlob(t, backend))
	assert.NotEqual(t, h, h2)
	assert.Panics(t, func() { h.Get() })
	assert.NotPanics(t, func() { h2.Get() })
}

func TestDoubleReleasePanics(t *testing.T) {
	backend, _, store := setup(t)
	h := store.Insert(newBlob(t, backend))
	h.Release()
	assert.Panics(t, func() { h.Release() })
}

func TestHandlesCompareByResource(t *testing.T) {
	backend, _, store := setup(t)
	a := store.Insert(newBlob(t, backend))
	b := store.Insert(newBlob(t, backend))

	assert.Equal(t, a, a.Clone())
	assert.NotEqual(t, a, b)
	assert.True(t, resource.Handle[*blob]{}.IsZero())
	assert.False(t, a.IsZero())
}

func TestSyncUpdatesMutatedOnce(t *testing.T) {
	backend, m, store := setup(t)
	f, err := m.BeginFrame()
	require.NoError(t, err)

	b := newBlob(t, backend)
	old := b.buf
	h := store.Insert(b)

	require.NoError(t, store.Sync(backend, m))
	assert.Equal(t, 0, b.updates)

	h.Mut().data[0] = 7
	require.NoError(t, store.Sync(backend, m))
	require.NoError(t, store.Sync(backend, m))
	assert.Equal(t, 1, b.updates)

	// the previous buffer is retired, not overwritten
	assert.NotEqual(t, old, b.buf)
	assert.Equal(t, 1, m.Pending(f.Index))
	assert.Equal(t, byte(7), b.buf.(*devicetest.Buffer).Data[0])
}
