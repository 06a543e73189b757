package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
)

var (
	// ErrFenceTimeout is returned when a frame fence does not signal within the configured timeout.
	ErrFenceTimeout = errors.New("device: fence wait timed out")
	// ErrDeviceLost is returned once the GPU device has been lost.
	ErrDeviceLost = errors.New("device: device lost")
	// ErrShutdown is returned by frame operations after Shutdown.
	ErrShutdown = errors.New("device: manager is shut down")
)

// Frame is the context of one frame being recorded. It is threaded through every rendering
// call between BeginFrame and SubmitFrame.
type Frame struct {
	// Index is the frame slot this frame records into.
	Index int
	// Number counts frames begun since the Manager was created, starting at 1.
	Number uint64
	// Commands records into the slot's command buffer and accumulates frame Stats.
	Commands *Commands

	slot     *frameSlot
	acquired bool
}

// Manager owns the frames in flight and the deferred destruction of GPU objects.
type Manager interface {
	Destroyer

	// Backend returns the GPU backend used for resource creation.
	Backend() Backend

	// FramesInFlight returns the number of frame slots.
	FramesInFlight() int

	// BeginFrame advances to the next frame slot, waits for its previous submission to finish,
	// recycles its command buffer, flushes its graveyard, resets the frame statistics and begins
	// recording. A fence timeout or backend failure is returned as a fatal error.
	//
	// Returns:
	//   - *Frame: the frame context to record into
	//   - error: a fatal error; the engine cannot continue
	BeginFrame() (*Frame, error)

	// AcquireImage acquires the next presentable image for f. The frame's submission will wait
	// for the image to become ready.
	//
	// Parameters:
	//   - f: the frame being recorded
	//
	// Returns:
	//   - Image: the presentable color image
	//   - error: an error if the surface could not provide an image
	AcquireImage(f *Frame) (Image, error)

	// SubmitFrame ends recording and submits f. The slot's fence signals when the GPU finishes.
	// On error the slot stays in SlotRecording and nothing is submitted.
	//
	// Parameters:
	//   - f: the frame returned by the latest BeginFrame
	//
	// Returns:
	//   - error: a fatal submission error
	SubmitFrame(f *Frame) error

	// Present displays the image acquired by f after its submission completes.
	Present(f *Frame) error

	// Stats returns the statistics of the current frame.
	Stats() Stats

	// SlotState returns the lifecycle state of frame slot i.
	SlotState(i int) SlotState

	// Pending returns the number of objects waiting in frame slot i's graveyard.
	Pending(i int) int

	// Shutdown waits for every frame slot, flushes every graveyard and destroys the
	// synchronization objects and the backend.
	Shutdown() error
}

type managerImpl struct {
	mu             *sync.Mutex
	backend        Backend
	framesInFlight int
	fenceTimeout   time.Duration

	slots    []*frameSlot
	commands []*Commands
	current  int
	frames   uint64
	shutdown bool
}

var _ Manager = &managerImpl{}

// NewManager creates the frame slots and their synchronization objects on backend.
// Fences start signaled so the first BeginFrame on each slot does not block.
//
// Parameters:
//   - backend: the GPU backend
//   - options: functional options such as WithFramesInFlight
//
// Returns:
//   - Manager: the frame manager
//   - error: an error if a synchronization object could not be created
func NewManager(backend Backend, options ...ManagerBuilderOption) (Manager, error) {
	m := &managerImpl{
		mu:             &sync.Mutex{},
		backend:        backend,
		framesInFlight: 2,
	}
	for _, option := range options {
		option(m)
	}
	if m.framesInFlight < 1 {
		return nil, fmt.Errorf("device: frames in flight must be at least 1, got %d", m.framesInFlight)
	}

	m.slots = make([]*frameSlot, m.framesInFlight)
	m.commands = make([]*Commands, m.framesInFlight)
	for i := range m.slots {
		s := &frameSlot{index: i, state: SlotIdle}
		var err error
		if s.fence, err = backend.CreateFence(true); err != nil {
			return nil, fmt.Errorf("device: create fence for slot %d: %w", i, err)
		}
		if s.acquire, err = backend.CreateSemaphore(fmt.Sprintf("slot %d acquire", i)); err != nil {
			return nil, fmt.Errorf("device: create acquire semaphore for slot %d: %w", i, err)
		}
		if s.release, err = backend.CreateSemaphore(fmt.Sprintf("slot %d release", i)); err != nil {
			return nil, fmt.Errorf("device: create release semaphore for slot %d: %w", i, err)
		}
		m.slots[i] = s
		m.commands[i] = newCommands()
	}
	// the first BeginFrame advances to slot 0
	m.current = m.framesInFlight - 1

	logger.Logger().Info("device manager created", "frames_in_flight", m.framesInFlight, "fence_timeout", m.fenceTimeout)
	return m, nil
}

func (m *managerImpl) Backend() Backend {
	return m.backend
}

func (m *managerImpl) FramesInFlight() int {
	return m.framesInFlight
}

func (m *managerImpl) BeginFrame() (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil, ErrShutdown
	}

	next := (m.current + 1) % m.framesInFlight
	s := m.slots[next]
	if s.state == SlotRecording {
		panic(fmt.Sprintf("device: frame slot %d is still recording", next))
	}

	if err := s.fence.Wait(m.fenceTimeout); err != nil {
		return nil, fmt.Errorf("device: wait for frame slot %d: %w", next, err)
	}
	if s.state == SlotSubmitted {
		s.transition(SlotIdle)
	}
	m.current = next

	if s.cmd != nil {
		m.backend.FreeCommandBuffer(s.cmd)
		s.cmd = nil
	}
	cmd, err := m.backend.AllocateCommandBuffer()
	if err != nil {
		return nil, fmt.Errorf("device: allocate command buffer for slot %d: %w", next, err)
	}
	s.cmd = cmd

	if flushed := s.graveyard.flush(m.backend); flushed > 0 {
		logger.Logger().Debug("graveyard flushed", "slot", next, "objects", flushed)
	}

	commands := m.commands[next]
	commands.reset(cmd)

	if err := cmd.Begin(); err != nil {
		return nil, fmt.Errorf("device: begin command buffer for slot %d: %w", next, err)
	}
	s.fence.Reset()
	s.transition(SlotRecording)
	m.frames++

	return &Frame{
		Index:    next,
		Number:   m.frames,
		Commands: commands,
		slot:     s,
	}, nil
}

func (m *managerImpl) AcquireImage(f *Frame) (Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil, ErrShutdown
	}
	img, err := m.backend.AcquireImage(f.slot.acquire)
	if err != nil {
		return nil, fmt.Errorf("device: acquire image for slot %d: %w", f.Index, err)
	}
	f.acquired = true
	return img, nil
}

func (m *managerImpl) SubmitFrame(f *Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return ErrShutdown
	}
	s := f.slot
	if s.state != SlotRecording {
		panic(fmt.Sprintf("device: submit of frame slot %d in state %s", s.index, s.state))
	}

	if err := s.cmd.End(); err != nil {
		return fmt.Errorf("device: end command buffer for slot %d: %w", s.index, err)
	}
	var wait Semaphore
	if f.acquired {
		wait = s.acquire
	}
	if err := m.backend.Submit(s.cmd, wait, s.release, s.fence); err != nil {
		return fmt.Errorf("device: submit frame slot %d: %w", s.index, err)
	}
	s.transition(SlotSubmitted)
	return nil
}

func (m *managerImpl) Present(f *Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return ErrShutdown
	}
	if !f.acquired {
		return nil
	}
	if f.slot.state != SlotSubmitted {
		panic(fmt.Sprintf("device: present of frame slot %d before submit", f.Index))
	}
	if err := m.backend.Present(f.slot.release); err != nil {
		return fmt.Errorf("device: present frame slot %d: %w", f.Index, err)
	}
	return nil
}

func (m *managerImpl) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commands[m.current].Stats()
}

func (m *managerImpl) SlotState(i int) SlotState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[i].state
}

func (m *managerImpl) Pending(i int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[i].graveyard.len()
}

func (m *managerImpl) DestroyBuffer(buf Buffer) {
	if buf == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return
	}
	g := &m.slots[m.current].graveyard
	g.buffers = append(g.buffers, buf)
}

func (m *managerImpl) DestroyImage(img Image) {
	if img == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return
	}
	g := &m.slots[m.current].graveyard
	g.images = append(g.images, img)
}

func (m *managerImpl) DestroyPipeline(p Pipeline) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return
	}
	g := &m.slots[m.current].graveyard
	g.pipelines = append(g.pipelines, p)
}

func (m *managerImpl) DestroyDescriptor(d Descriptor) {
	if d == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return
	}
	g := &m.slots[m.current].graveyard
	g.descriptors = append(g.descriptors, d)
}

func (m *managerImpl) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil
	}
	m.shutdown = true

	var errs []error
	for _, s := range m.slots {
		switch s.state {
		case SlotSubmitted:
			if err := s.fence.Wait(m.fenceTimeout); err != nil {
				errs = append(errs, fmt.Errorf("device: wait for frame slot %d: %w", s.index, err))
			}
			s.transition(SlotIdle)
		case SlotRecording:
			// never submitted, so there is nothing to wait for
			s.state = SlotIdle
		}
	}
	if err := m.backend.WaitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("device: wait idle: %w", err))
	}

	flushed := 0
	for _, s := range m.slots {
		flushed += s.graveyard.flush(m.backend)
		if s.cmd != nil {
			m.backend.FreeCommandBuffer(s.cmd)
			s.cmd = nil
		}
		m.backend.DestroyFence(s.fence)
		m.backend.DestroySemaphore(s.acquire)
		m.backend.DestroySemaphore(s.release)
	}
	m.backend.Destroy()

	logger.Logger().Info("device manager shut down", "frames", m.frames, "flushed", flushed)
	return errors.Join(errs...)
}
