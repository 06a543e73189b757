package devicetest

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
)

// CommandBuffer is the fake device.CommandBuffer. Recording logs into the owning Backend.
type CommandBuffer struct {
	ID      int
	backend *Backend

	recording bool
	freed     bool
	inPass    bool
	pass      int
	pipeline  *Pipeline
	bound     map[uint32]*Descriptor
	push      []byte
	vertices  *Buffer
	indices   *Buffer
	refs      []any
	err       error
}

var _ device.CommandBuffer = &CommandBuffer{}

func (c *CommandBuffer) setErr(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
}

func (c *CommandBuffer) use(obj any) {
	if destroyed(obj) {
		c.backend.fail("devicetest: command buffer %d recorded destroyed %T", c.ID, obj)
	}
	c.refs = append(c.refs, obj)
}

func (c *CommandBuffer) Begin() error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.freed {
		return errors.New("devicetest: begin on a freed command buffer")
	}
	c.recording = true
	c.bound = make(map[uint32]*Descriptor)
	return nil
}

func (c *CommandBuffer) End() error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.inPass {
		c.setErr("devicetest: end with an open render pass")
	}
	c.recording = false
	return c.err
}

func (c *CommandBuffer) BeginRenderPass(target device.RenderTarget) {
	b := c.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.inPass {
		c.setErr("devicetest: nested render pass")
	}
	for _, img := range []device.Image{target.Color, target.Resolve, target.Depth} {
		if img != nil {
			c.use(img.(*Image))
		}
	}
	c.inPass = true
	c.pipeline = nil
	c.bound = make(map[uint32]*Descriptor)
	b.passes = append(b.passes, Pass{Target: target})
	c.pass = len(b.passes) - 1
	b.record(KindBeginPass, c.ID, "")
}

func (c *CommandBuffer) EndRenderPass() {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	c.inPass = false
	c.backend.record(KindEndPass, c.ID, "")
}

func (c *CommandBuffer) SetViewport(x, y, width, height float32) {}

func (c *CommandBuffer) BindPipeline(p device.Pipeline) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	fp := p.(*Pipeline)
	c.use(fp)
	c.pipeline = fp
	c.backend.record(KindBindPipeline, fp.ID, fp.Spec.Label)
}

func (c *CommandBuffer) BindDescriptor(set uint32, d device.Descriptor) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	fd := d.(*Descriptor)
	c.use(fd)
	c.bound[set] = fd
	c.backend.record(KindBindDescriptor, fd.ID, fd.Spec.Label)
}

func (c *CommandBuffer) PushConstants(data []byte) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if len(data) > device.PushConstantSize {
		c.setErr("devicetest: %d bytes of push constants exceed %d", len(data), device.PushConstantSize)
	}
	c.push = slices.Clone(data)
}

func (c *CommandBuffer) BindMesh(vertices, indices device.Buffer) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	c.vertices = vertices.(*Buffer)
	c.indices = indices.(*Buffer)
	c.use(c.vertices)
	c.use(c.indices)
}

func (c *CommandBuffer) DrawIndexed(indexCount uint32) {
	b := c.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case !c.inPass:
		c.setErr("devicetest: draw outside a render pass")
	case c.pipeline == nil:
		c.setErr("devicetest: draw without a pipeline")
	case c.vertices == nil || c.indices == nil:
		c.setErr("devicetest: draw without a mesh")
	}
	b.draws = append(b.draws, Draw{
		Pass:        c.pass,
		Pipeline:    c.pipeline,
		Descriptors: maps.Clone(c.bound),
		Push:        slices.Clone(c.push),
		Vertices:    c.vertices,
		Indices:     c.indices,
		Count:       indexCount,
	})
	b.passes[c.pass].Draws++
	id := 0
	if c.pipeline != nil {
		id = c.pipeline.ID
	}
	b.record(KindDraw, id, "")
}

func (c *CommandBuffer) BlitImage(src, dst device.Image) {
	b := c.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.inPass {
		c.setErr("devicetest: blit inside a render pass")
	}
	s, d := src.(*Image), dst.(*Image)
	if s.W != d.W || s.H != d.H {
		c.setErr("devicetest: blit between %dx%d and %dx%d", s.W, s.H, d.W, d.H)
	}
	c.use(s)
	c.use(d)
	b.record(KindBlit, d.ID, d.Name)
}
