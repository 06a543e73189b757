package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	label  string
	size   uint64
	buffer *wgpu.Buffer
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }

type wgpuImage struct {
	label   string
	width   uint32
	height  uint32
	format  ImageFormat
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (i *wgpuImage) Label() string       { return i.label }
func (i *wgpuImage) Width() uint32       { return i.width }
func (i *wgpuImage) Height() uint32      { return i.height }
func (i *wgpuImage) Format() ImageFormat { return i.format }

type wgpuPipeline struct {
	label     string
	pipeline  *wgpu.RenderPipeline
	layout    *wgpu.PipelineLayout
	module    *wgpu.ShaderModule
	pushGroup uint32
}

func (p *wgpuPipeline) Label() string { return p.label }

type wgpuDescriptor struct {
	label     string
	layout    DescriptorLayout
	bindGroup *wgpu.BindGroup
}

func (d *wgpuDescriptor) Label() string            { return d.label }
func (d *wgpuDescriptor) Layout() DescriptorLayout { return d.layout }

// wgpuSemaphore is a marker: WebGPU orders queue work and presentation implicitly.
type wgpuSemaphore struct {
	label string
}

func (s *wgpuSemaphore) Label() string { return s.label }

// wgpuFence is signaled from the queue's submitted-work-done callback. Waiting polls the device
// so the callback gets a chance to run.
type wgpuFence struct {
	mu       *sync.Mutex
	backend  *wgpuBackendImpl
	signaled bool
}

func (f *wgpuFence) signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = true
}

func (f *wgpuFence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

func (f *wgpuFence) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = false
}

func (f *wgpuFence) Wait(timeout time.Duration) error {
	start := time.Now()
	for !f.Signaled() {
		d := f.backend.currentDevice()
		if d == nil {
			return ErrDeviceLost
		}
		d.Poll(true, nil)
		if timeout > 0 && time.Since(start) > timeout {
			return fmt.Errorf("wgpu fence after %v: %w", timeout, ErrFenceTimeout)
		}
	}
	return nil
}
