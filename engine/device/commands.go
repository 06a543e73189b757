package device

// Commands wraps a frame's CommandBuffer and accumulates Stats for everything recorded
// through it. It is reset by the Manager at BeginFrame.
type Commands struct {
	cmd       CommandBuffer
	stats     Stats
	shaders   map[Pipeline]struct{}
	materials map[Descriptor]struct{}
	passes    int
	inPass    bool
}

func newCommands() *Commands {
	return &Commands{
		shaders:   make(map[Pipeline]struct{}),
		materials: make(map[Descriptor]struct{}),
	}
}

func (c *Commands) reset(cmd CommandBuffer) {
	c.cmd = cmd
	c.stats = Stats{}
	c.passes = 0
	c.inPass = false
	clear(c.shaders)
	clear(c.materials)
}

// Buffer returns the underlying command buffer.
func (c *Commands) Buffer() CommandBuffer {
	return c.cmd
}

// Stats returns the counters accumulated since the frame began.
func (c *Commands) Stats() Stats {
	return c.stats
}

// RenderPasses returns the number of render passes begun this frame.
func (c *Commands) RenderPasses() int {
	return c.passes
}

// BeginRenderPass starts a pass on target and sets the viewport to cover it.
//
// Parameters:
//   - target: the attachments to render into
func (c *Commands) BeginRenderPass(target RenderTarget) {
	if c.inPass {
		panic("device: render pass already open")
	}
	c.cmd.BeginRenderPass(target)
	c.inPass = true
	c.passes++
	w, h := target.Size()
	c.cmd.SetViewport(0, 0, float32(w), float32(h))
}

// EndRenderPass closes the open render pass.
func (c *Commands) EndRenderPass() {
	if !c.inPass {
		panic("device: no render pass open")
	}
	c.cmd.EndRenderPass()
	c.inPass = false
}

// BindShader binds a pipeline and counts it as a shader bind.
func (c *Commands) BindShader(p Pipeline) {
	c.cmd.BindPipeline(p)
	c.stats.ShaderRebinds++
	if _, seen := c.shaders[p]; !seen {
		c.shaders[p] = struct{}{}
		c.stats.ShadersUsed++
	}
}

// BindMaterial binds a material descriptor at set and counts it as a material bind.
func (c *Commands) BindMaterial(set uint32, d Descriptor) {
	c.cmd.BindDescriptor(set, d)
	c.stats.MaterialRebinds++
	if _, seen := c.materials[d]; !seen {
		c.materials[d] = struct{}{}
		c.stats.MaterialsUsed++
	}
}

// BindDescriptor binds a non-material descriptor at set. It is not counted.
func (c *Commands) BindDescriptor(set uint32, d Descriptor) {
	c.cmd.BindDescriptor(set, d)
}

// PushConstants sets the per-draw constant block.
func (c *Commands) PushConstants(data []byte) {
	c.cmd.PushConstants(data)
}

// DrawMesh binds a vertex/index buffer pair and draws indexCount indices from it.
//
// Parameters:
//   - vertices: the vertex buffer
//   - indices: the uint32 index buffer
//   - indexCount: the number of indices to draw
func (c *Commands) DrawMesh(vertices, indices Buffer, indexCount uint32) {
	if indexCount == 0 {
		return
	}
	c.cmd.BindMesh(vertices, indices)
	c.cmd.DrawIndexed(indexCount)
	c.stats.DrawCalls++
	c.stats.DrawnIndices += int(indexCount)
}

// BlitImage copies src into dst outside of a render pass.
func (c *Commands) BlitImage(src, dst Image) {
	if c.inPass {
		panic("device: blit inside a render pass")
	}
	c.cmd.BlitImage(src, dst)
}
