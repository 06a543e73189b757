package device

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// pushChunk backs PushConstants with a dynamic-offset uniform buffer. Each push takes one
// pushStride slot; the staged bytes are uploaded when the command buffer is submitted.
type pushChunk struct {
	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
	staging   []byte
	used      uint32
}

// wgpuCommandBuffer records into a command encoder. A render pass is open between
// BeginRenderPass and EndRenderPass.
type wgpuCommandBuffer struct {
	backend  *wgpuBackendImpl
	encoder  *wgpu.CommandEncoder
	pass     *wgpu.RenderPassEncoder
	finished *wgpu.CommandBuffer

	chunks    []*pushChunk
	pushGroup uint32
	err       error
}

var _ CommandBuffer = &wgpuCommandBuffer{}

func (c *wgpuCommandBuffer) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *wgpuCommandBuffer) release() {
	if c.pass != nil {
		c.pass.End()
		c.pass = nil
	}
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
}

func (c *wgpuCommandBuffer) Begin() error {
	d := c.backend.currentDevice()
	if d == nil {
		return ErrDeviceLost
	}
	encoder, err := d.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	c.encoder = encoder
	c.err = nil
	return nil
}

func (c *wgpuCommandBuffer) End() error {
	if c.err != nil {
		return c.err
	}
	if c.pass != nil {
		return errors.New("wgpu: command buffer ended with an open render pass")
	}
	finished, err := c.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpu: finish command encoder: %w", err)
	}
	c.finished = finished
	c.encoder.Release()
	c.encoder = nil
	return nil
}

func clearColor(col common.Color) wgpu.Color {
	v := col.Vec4()
	return wgpu.Color{R: float64(v[0]), G: float64(v[1]), B: float64(v[2]), A: float64(v[3])}
}

func (c *wgpuCommandBuffer) BeginRenderPass(target RenderTarget) {
	desc := &wgpu.RenderPassDescriptor{}
	if target.Color != nil {
		attachment := wgpu.RenderPassColorAttachment{
			View:       target.Color.(*wgpuImage).view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearColor(target.Clear),
		}
		if target.Resolve != nil {
			attachment.ResolveTarget = target.Resolve.(*wgpuImage).view
			attachment.StoreOp = wgpu.StoreOpDiscard
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{attachment}
	}
	if target.Depth != nil {
		depthStore := wgpu.StoreOpDiscard
		if target.Color == nil {
			// depth-only passes produce shadow maps
			depthStore = wgpu.StoreOpStore
		}
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            target.Depth.(*wgpuImage).view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    depthStore,
			DepthClearValue: 1.0,
		}
	}
	c.pass = c.encoder.BeginRenderPass(desc)
}

func (c *wgpuCommandBuffer) EndRenderPass() {
	if c.pass == nil {
		return
	}
	c.pass.End()
	c.pass = nil
}

func (c *wgpuCommandBuffer) SetViewport(x, y, width, height float32) {
	if c.pass == nil {
		return
	}
	c.pass.SetViewport(x, y, width, height, 0, 1)
	c.pass.SetScissorRect(uint32(x), uint32(y), uint32(width), uint32(height))
}

func (c *wgpuCommandBuffer) BindPipeline(p Pipeline) {
	wp := p.(*wgpuPipeline)
	c.pass.SetPipeline(wp.pipeline)
	c.pushGroup = wp.pushGroup
}

func (c *wgpuCommandBuffer) BindDescriptor(set uint32, d Descriptor) {
	c.pass.SetBindGroup(set, d.(*wgpuDescriptor).bindGroup, nil)
}

func (c *wgpuCommandBuffer) PushConstants(data []byte) {
	if len(data) > PushConstantSize {
		c.setErr(fmt.Errorf("wgpu: %d bytes of draw constants exceed %d", len(data), PushConstantSize))
		return
	}
	var chunk *pushChunk
	if n := len(c.chunks); n > 0 && c.chunks[n-1].used < pushChunkDraws {
		chunk = c.chunks[n-1]
	} else {
		var err error
		if chunk, err = c.backend.takeChunk(); err != nil {
			c.setErr(err)
			return
		}
		c.chunks = append(c.chunks, chunk)
	}
	offset := chunk.used * pushStride
	copy(chunk.staging[offset:offset+PushConstantSize], data)
	clear(chunk.staging[offset+uint32(len(data)) : offset+PushConstantSize])
	chunk.used++
	c.pass.SetBindGroup(c.pushGroup, chunk.bindGroup, []uint32{offset})
}

func (c *wgpuCommandBuffer) BindMesh(vertices, indices Buffer) {
	c.pass.SetVertexBuffer(0, vertices.(*wgpuBuffer).buffer, 0, wgpu.WholeSize)
	c.pass.SetIndexBuffer(indices.(*wgpuBuffer).buffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

func (c *wgpuCommandBuffer) DrawIndexed(indexCount uint32) {
	c.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
}

func (c *wgpuCommandBuffer) BlitImage(src, dst Image) {
	s, d := src.(*wgpuImage), dst.(*wgpuImage)
	if s.width != d.width || s.height != d.height {
		c.setErr(fmt.Errorf("wgpu: blit from %dx%d to %dx%d", s.width, s.height, d.width, d.height))
		return
	}
	c.encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: d.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: s.width, Height: s.height, DepthOrArrayLayers: 1},
	)
}
