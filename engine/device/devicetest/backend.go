// Package devicetest provides a recording fake of device.Backend. Fences signal when waited
// on (or on Complete) and every call is appended to an ordered event log, so tests can check
// the order of submissions, fence signals and destruction.
package devicetest

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
)

// Event kinds recorded in the log.
const (
	KindCreateFence      = "create-fence"
	KindCreateSemaphore  = "create-semaphore"
	KindAllocCommands    = "alloc-commands"
	KindFreeCommands     = "free-commands"
	KindSubmit           = "submit"
	KindSignal           = "signal"
	KindCreateBuffer     = "create-buffer"
	KindWriteBuffer      = "write-buffer"
	KindCreateImage      = "create-image"
	KindWriteImage       = "write-image"
	KindCreatePipeline   = "create-pipeline"
	KindCreateDescriptor = "create-descriptor"
	KindDestroyBuffer    = "destroy-buffer"
	KindDestroyImage     = "destroy-image"
	KindDestroyPipeline  = "destroy-pipeline"
	KindDestroyDesc      = "destroy-descriptor"
	KindBeginPass        = "begin-pass"
	KindEndPass          = "end-pass"
	KindBindPipeline     = "bind-pipeline"
	KindBindDescriptor   = "bind-descriptor"
	KindDraw             = "draw"
	KindBlit             = "blit"
	KindAcquire          = "acquire"
	KindPresent          = "present"
)

// Event is one recorded backend call. ID identifies the object the call concerned.
type Event struct {
	Kind  string
	ID    int
	Label string
}

func (e Event) String() string {
	return fmt.Sprintf("%s#%d(%s)", e.Kind, e.ID, e.Label)
}

// Buffer is the fake device.Buffer.
type Buffer struct {
	ID        int
	Name      string
	Bytes     uint64
	Usage     device.BufferUsage
	Data      []byte
	Destroyed bool
}

func (b *Buffer) Label() string { return b.Name }
func (b *Buffer) Size() uint64  { return b.Bytes }

// Image is the fake device.Image.
type Image struct {
	ID        int
	Name      string
	W, H      uint32
	Fmt       device.ImageFormat
	Usage     device.ImageUsage
	Samples   uint32
	Pixels    []byte
	Destroyed bool
}

func (i *Image) Label() string              { return i.Name }
func (i *Image) Width() uint32              { return i.W }
func (i *Image) Height() uint32             { return i.H }
func (i *Image) Format() device.ImageFormat { return i.Fmt }

// Pipeline is the fake device.Pipeline.
type Pipeline struct {
	ID        int
	Spec      device.PipelineSpec
	Destroyed bool
}

func (p *Pipeline) Label() string { return p.Spec.Label }

// Descriptor is the fake device.Descriptor.
type Descriptor struct {
	ID        int
	Spec      device.DescriptorSpec
	Destroyed bool
}

func (d *Descriptor) Label() string                   { return d.Spec.Label }
func (d *Descriptor) Layout() device.DescriptorLayout { return d.Spec.Layout }

// Semaphore is the fake device.Semaphore.
type Semaphore struct {
	ID   int
	Name string
}

func (s *Semaphore) Label() string { return s.Name }

// Fence is the fake device.Fence. A submitted fence stays pending until it is waited on or
// the backend completes it; in manual mode only Complete signals it.
type Fence struct {
	ID       int
	backend  *Backend
	signaled bool
	pending  bool
}

func (f *Fence) Wait(timeout time.Duration) error {
	b := f.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if f.signaled {
		return nil
	}
	if !f.pending || b.manual {
		return fmt.Errorf("fence %d after %v: %w", f.ID, timeout, device.ErrFenceTimeout)
	}
	b.signalLocked(f)
	return nil
}

func (f *Fence) Signaled() bool {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	return f.signaled
}

func (f *Fence) Reset() {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	f.signaled = false
}

// Draw is one recorded indexed draw with the state bound at the time.
type Draw struct {
	Pass        int
	Pipeline    *Pipeline
	Descriptors map[uint32]*Descriptor
	Push        []byte
	Vertices    *Buffer
	Indices     *Buffer
	Count       uint32
}

// Pass is one recorded render pass.
type Pass struct {
	Target device.RenderTarget
	Draws  int
}

// Backend is the recording fake. The zero value is not usable; call New.
type Backend struct {
	mu      *sync.Mutex
	nextID  int
	events  []Event
	draws   []Draw
	passes  []Pass
	errs    []error
	manual  bool
	samples uint32

	surface  *Image
	pending  []*Fence
	fences   []*Fence
	live     map[int]string
	failNext map[string]error
}

var _ device.Backend = &Backend{}

// Option configures a fake Backend.
type Option func(*Backend)

// WithManualFences keeps submitted fences pending until Complete is called; Wait on a pending
// fence then fails with device.ErrFenceTimeout.
func WithManualFences() Option {
	return func(b *Backend) { b.manual = true }
}

// WithSurfaceSize sets the size of the fake presentation surface.
func WithSurfaceSize(width, height uint32) Option {
	return func(b *Backend) { b.surface.W, b.surface.H = width, height }
}

// WithSamples sets the multisample count reported by Samples.
func WithSamples(n uint32) Option {
	return func(b *Backend) { b.samples = n }
}

// New creates a fake backend with an 800x600 surface.
func New(options ...Option) *Backend {
	b := &Backend{
		mu:       &sync.Mutex{},
		samples:  1,
		live:     make(map[int]string),
		failNext: make(map[string]error),
	}
	b.surface = &Image{ID: b.id(), Name: "surface", W: 800, H: 600, Fmt: device.FormatColor, Usage: device.ImageRenderTarget, Samples: 1}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Backend) id() int {
	b.nextID++
	return b.nextID
}

func (b *Backend) record(kind string, id int, label string) {
	b.events = append(b.events, Event{Kind: kind, ID: id, Label: label})
}

func (b *Backend) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

func (b *Backend) injected(kind string) error {
	err, ok := b.failNext[kind]
	if ok {
		delete(b.failNext, kind)
	}
	return err
}

func (b *Backend) signalLocked(f *Fence) {
	f.signaled = true
	f.pending = false
	b.pending = slices.DeleteFunc(b.pending, func(p *Fence) bool { return p == f })
	b.record(KindSignal, f.ID, "fence")
}

// FailNext makes the next call of the given event kind return err.
// Supported kinds: KindSubmit, KindCreateBuffer, KindCreateImage, KindCreatePipeline,
// KindCreateDescriptor, KindAllocCommands and KindAcquire.
func (b *Backend) FailNext(kind string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[kind] = err
}

// Complete signals every pending fence in submission order.
func (b *Backend) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.pending) > 0 {
		b.signalLocked(b.pending[0])
	}
}

// Events returns a copy of the event log.
func (b *Backend) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.events)
}

// EventsOf returns the logged events of one kind.
func (b *Backend) EventsOf(kind string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Draws returns every recorded draw.
func (b *Backend) Draws() []Draw {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.draws)
}

// Passes returns every recorded render pass.
func (b *Backend) Passes() []Pass {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.passes)
}

// Reset clears the event, draw and pass logs. Objects stay alive.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.draws = nil
	b.passes = nil
}

// Err returns every misuse detected so far (use of a destroyed object, double destroy,
// draw without a pipeline, oversized push constants), joined.
func (b *Backend) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs...)
}

// Live returns the number of created GPU objects not yet destroyed.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// Surface returns the fake presentation image.
func (b *Backend) Surface() *Image {
	return b.surface
}

func (b *Backend) CreateFence(signaled bool) (device.Fence, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := &Fence{ID: b.id(), backend: b, signaled: signaled}
	b.fences = append(b.fences, f)
	b.record(KindCreateFence, f.ID, "fence")
	return f, nil
}

func (b *Backend) CreateSemaphore(label string) (device.Semaphore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Semaphore{ID: b.id(), Name: label}
	b.record(KindCreateSemaphore, s.ID, label)
	return s, nil
}

func (b *Backend) AllocateCommandBuffer() (device.CommandBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(KindAllocCommands); err != nil {
		return nil, err
	}
	c := &CommandBuffer{ID: b.id(), backend: b}
	b.record(KindAllocCommands, c.ID, "")
	return c, nil
}

func (b *Backend) FreeCommandBuffer(cmd device.CommandBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := cmd.(*CommandBuffer)
	c.freed = true
	b.record(KindFreeCommands, c.ID, "")
}

func (b *Backend) Submit(cmd device.CommandBuffer, wait, signal device.Semaphore, fence device.Fence) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(KindSubmit); err != nil {
		return err
	}
	c := cmd.(*CommandBuffer)
	if c.recording {
		return errors.New("devicetest: submit of a command buffer still recording")
	}
	for _, obj := range c.refs {
		if destroyed(obj) {
			b.fail("devicetest: submit of command buffer %d referencing destroyed %T", c.ID, obj)
		}
	}
	b.record(KindSubmit, c.ID, "")
	if fence != nil {
		f := fence.(*Fence)
		f.signaled = false
		f.pending = true
		b.pending = append(b.pending, f)
	}
	return nil
}

func (b *Backend) CreateBuffer(spec device.BufferSpec) (device.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(KindCreateBuffer); err != nil {
		return nil, err
	}
	if spec.Size == 0 {
		return nil, fmt.Errorf("devicetest: buffer %q has zero size", spec.Label)
	}
	buf := &Buffer{ID: b.id(), Name: spec.Label, Bytes: spec.Size, Usage: spec.Usage, Data: make([]byte, spec.Size)}
	b.live[buf.ID] = spec.Label
	b.record(KindCreateBuffer, buf.ID, spec.Label)
	return buf, nil
}

func (b *Backend) WriteBuffer(buf device.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	fb := buf.(*Buffer)
	if fb.Destroyed {
		b.fail("devicetest: write to destroyed buffer %d", fb.ID)
	}
	if offset+uint64(len(data)) > fb.Bytes {
		return fmt.Errorf("devicetest: write of %d bytes at %d overflows buffer %q of %d bytes", len(data), offset, fb.Name, fb.Bytes)
	}
	copy(fb.Data[offset:], data)
	b.record(KindWriteBuffer, fb.ID, fb.Name)
	return nil
}

func (b *Backend) CreateImage(spec device.ImageSpec) (device.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(KindCreateImage); err != nil {
		return nil, err
	}
	if spec.Width == 0 || spec.Height == 0 {
		return nil, fmt.Errorf("devicetest: image %q has zero size", spec.Label)
	}
	img := &Image{ID: b.id(), Name: spec.Label, W: spec.Width, H: spec.Height, Fmt: spec.Format, Usage: spec.Usage, Samples: max(spec.Samples, 1)}
	b.live[img.ID] = spec.Label
	b.record(KindCreateImage, img.ID, spec.Label)
	return img, nil
}

func (b *Backend) WriteImage(img device.Image, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	fi := img.(*Image)
	if want := int(fi.W * fi.H * 4); len(pixels) != want {
		return fmt.Errorf("devicetest: image %q expects %d bytes, got %d", fi.Name, want, len(pixels))
	}
	fi.Pixels = slices.Clone(pixels)
	b.record(KindWriteImage, fi.ID, fi.Name)
	return nil
}

func (b *Backend) CreatePipeline(spec device.PipelineSpec) (device.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(KindCreatePipeline); err != nil {
		return nil, err
	}
	if spec.Source == "" || spec.VertexEntry == "" {
		return nil, fmt.Errorf("devicetest: pipeline %q has no vertex stage", spec.Label)
	}
	p := &Pipeline{ID: b.id(), Spec: spec}
	b.live[p.ID] = spec.Label
	b.record(KindCreatePipeline, p.ID, spec.Label)
	return p, nil
}

func (b *Backend) CreateDescriptor(spec device.DescriptorSpec) (device.Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(KindCreateDescriptor); err != nil {
		return nil, err
	}
	want := map[device.DescriptorLayout]int{device.LayoutWorld: device.CascadeCount, device.LayoutShadow: 0, device.LayoutMaterial: 1}[spec.Layout]
	if spec.Buffer == nil || len(spec.Images) != want {
		return nil, fmt.Errorf("devicetest: descriptor %q with layout %s needs a buffer and %d images", spec.Label, spec.Layout, want)
	}
	d := &Descriptor{ID: b.id(), Spec: spec}
	b.live[d.ID] = spec.Label
	b.record(KindCreateDescriptor, d.ID, spec.Label)
	return d, nil
}

func (b *Backend) DestroyBuffer(buf device.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fb := buf.(*Buffer)
	b.destroyLocked(&fb.Destroyed, fb.ID, KindDestroyBuffer, fb.Name)
}

func (b *Backend) DestroyImage(img device.Image) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fi := img.(*Image)
	b.destroyLocked(&fi.Destroyed, fi.ID, KindDestroyImage, fi.Name)
}

func (b *Backend) DestroyPipeline(p device.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fp := p.(*Pipeline)
	b.destroyLocked(&fp.Destroyed, fp.ID, KindDestroyPipeline, fp.Spec.Label)
}

func (b *Backend) DestroyDescriptor(d device.Descriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fd := d.(*Descriptor)
	b.destroyLocked(&fd.Destroyed, fd.ID, KindDestroyDesc, fd.Spec.Label)
}

func (b *Backend) destroyLocked(flag *bool, id int, kind, label string) {
	if *flag {
		b.fail("devicetest: %s of object %d (%s) twice", kind, id, label)
		return
	}
	*flag = true
	delete(b.live, id)
	b.record(kind, id, label)
}

func (b *Backend) DestroyFence(device.Fence)         {}
func (b *Backend) DestroySemaphore(device.Semaphore) {}

func (b *Backend) AcquireImage(signal device.Semaphore) (device.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(KindAcquire); err != nil {
		return nil, err
	}
	b.record(KindAcquire, b.surface.ID, signal.Label())
	return b.surface, nil
}

func (b *Backend) Present(wait device.Semaphore) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(KindPresent, b.surface.ID, wait.Label())
	return nil
}

func (b *Backend) Resize(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surface.W, b.surface.H = width, height
	return nil
}

func (b *Backend) SurfaceSize() (uint32, uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.W, b.surface.H
}

func (b *Backend) Samples() uint32 {
	return b.samples
}

// WaitIdle completes all pending work.
func (b *Backend) WaitIdle() error {
	b.Complete()
	return nil
}

func (b *Backend) Destroy() {}

func destroyed(obj any) bool {
	switch o := obj.(type) {
	case *Buffer:
		return o.Destroyed
	case *Image:
		return o.Destroyed
	case *Pipeline:
		return o.Destroyed
	case *Descriptor:
		return o.Destroyed
	default:
		return false
	}
}
