package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// pushStride is the dynamic uniform offset alignment guaranteed by WebGPU.
	pushStride = 256
	// pushChunkDraws is the number of per-draw constant blocks held by one push chunk.
	pushChunkDraws = 1024
)

type wgpuBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat        wgpu.TextureFormat
	presentMode          wgpu.PresentMode
	samples              uint32
	anisotropy           uint16
	width, height        uint32
	forceFallbackAdapter bool

	layouts       map[DescriptorLayout]*wgpu.BindGroupLayout
	drawLayout    *wgpu.BindGroupLayout
	samplers      [common.SamplerCount]*wgpu.Sampler
	shadowSampler *wgpu.Sampler
	pushPool      []*pushChunk

	frameImage *wgpuImage
}

var _ Backend = &wgpuBackendImpl{}

// NewWGPUBackend creates a WebGPU instance, adapter, device and queue for the surface described
// by surfaceDescriptor, configures the surface at width x height, and creates the fixed binding
// layouts and the sampler table. It locks the calling goroutine to its OS thread.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from window.SurfaceDescriptor
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: functional options such as WithPresentMode
//
// Returns:
//   - Backend: the WebGPU backend
//   - error: an error if any device object could not be created
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height uint32, options ...WGPUBackendOption) (Backend, error) {
	runtime.LockOSThread()
	b := &wgpuBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		anisotropy:  1,
		samples:     1,
		layouts:     make(map[DescriptorLayout]*wgpu.BindGroupLayout),
	}
	for _, option := range options {
		option(b)
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.Resize(width, height); err != nil {
		return nil, err
	}
	if err := b.createLayouts(); err != nil {
		return nil, err
	}
	if err := b.createSamplers(); err != nil {
		return nil, err
	}

	logger.Logger().Info("wgpu backend created", "format", b.surfaceFormat, "samples", b.samples, "width", width, "height", height)
	return b, nil
}

func (b *wgpuBackendImpl) currentDevice() *wgpu.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

func (b *wgpuBackendImpl) createLayouts() error {
	vertexFragment := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

	world := []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: vertexFragment,
		Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
	}}
	for i := range CascadeCount {
		world = append(world, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(1 + i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	world = append(world, wgpu.BindGroupLayoutEntry{
		Binding:    1 + CascadeCount,
		Visibility: wgpu.ShaderStageFragment,
		Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
	})
	for i := range common.SamplerCount {
		world = append(world, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(2 + CascadeCount + i),
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		})
	}

	descriptors := map[DescriptorLayout]wgpu.BindGroupLayoutDescriptor{
		LayoutWorld: {Label: "World Layout", Entries: world},
		LayoutShadow: {Label: "Shadow Layout", Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		}}},
		LayoutMaterial: {Label: "Material Layout", Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: vertexFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		}},
	}
	for layout, desc := range descriptors {
		created, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return fmt.Errorf("wgpu: create %s layout: %w", layout, err)
		}
		b.layouts[layout] = created
	}

	draw, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Draw Constants Layout",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: vertexFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   PushConstantSize,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create draw constants layout: %w", err)
	}
	b.drawLayout = draw
	return nil
}

func (b *wgpuBackendImpl) createSamplers() error {
	for i, staging := range common.SamplerTable() {
		filter, mipFilter := wgpu.FilterModeLinear, wgpu.MipmapFilterModeLinear
		if staging.Filter == common.FilterNearest {
			filter, mipFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
		}
		// WebGPU has no border color; ClampBorder samples the edge texel.
		address := wgpu.AddressModeClampToEdge
		if staging.Wrap == common.WrapRepeat {
			address = wgpu.AddressModeRepeat
		}
		lodMax := float32(0)
		if staging.Mipmaps {
			lodMax = 32
		}
		samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         fmt.Sprintf("Sampler %d", i),
			AddressModeU:  address,
			AddressModeV:  address,
			AddressModeW:  address,
			MagFilter:     filter,
			MinFilter:     filter,
			MipmapFilter:  mipFilter,
			LodMinClamp:   0,
			LodMaxClamp:   lodMax,
			MaxAnisotropy: staging.Anisotropy(b.anisotropy),
		})
		if err != nil {
			return fmt.Errorf("wgpu: create sampler %d: %w", i, err)
		}
		b.samplers[i] = samp
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create comparison sampler: %w", err)
	}
	b.shadowSampler = samp
	return nil
}

func (b *wgpuBackendImpl) Resize(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width == 0 || height == 0 {
		return nil
	}
	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return errors.New("wgpu: surface is not compatible with the adapter")
	}
	b.surfaceFormat = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width, b.height = width, height
	return nil
}

func (b *wgpuBackendImpl) SurfaceSize() (uint32, uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *wgpuBackendImpl) Samples() uint32 {
	return b.samples
}

func (b *wgpuBackendImpl) CreateFence(signaled bool) (Fence, error) {
	return &wgpuFence{mu: &sync.Mutex{}, backend: b, signaled: signaled}, nil
}

func (b *wgpuBackendImpl) CreateSemaphore(label string) (Semaphore, error) {
	return &wgpuSemaphore{label: label}, nil
}

func (b *wgpuBackendImpl) AllocateCommandBuffer() (CommandBuffer, error) {
	if b.currentDevice() == nil {
		return nil, ErrDeviceLost
	}
	return &wgpuCommandBuffer{backend: b}, nil
}

func (b *wgpuBackendImpl) FreeCommandBuffer(cmd CommandBuffer) {
	c := cmd.(*wgpuCommandBuffer)
	c.release()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, chunk := range c.chunks {
		chunk.used = 0
		b.pushPool = append(b.pushPool, chunk)
	}
	c.chunks = nil
}

func (b *wgpuBackendImpl) Submit(cmd CommandBuffer, wait, signal Semaphore, fence Fence) error {
	c := cmd.(*wgpuCommandBuffer)
	if c.finished == nil {
		return errors.New("wgpu: submit of a command buffer that was not ended")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return ErrDeviceLost
	}
	for _, chunk := range c.chunks {
		if chunk.used > 0 {
			b.queue.WriteBuffer(chunk.buffer, 0, chunk.staging[:chunk.used*pushStride])
		}
	}
	b.queue.Submit(c.finished)
	c.finished.Release()
	c.finished = nil

	if fence != nil {
		f := fence.(*wgpuFence)
		b.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
			f.signal()
		})
	}
	return nil
}

// takeChunk returns a pooled push chunk or creates a new one.
func (b *wgpuBackendImpl) takeChunk() (*pushChunk, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.pushPool); n > 0 {
		chunk := b.pushPool[n-1]
		b.pushPool = b.pushPool[:n-1]
		return chunk, nil
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Draw Constants Buffer",
		Size:  pushStride * pushChunkDraws,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create draw constants buffer: %w", err)
	}
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Draw Constants Bind Group",
		Layout: b.drawLayout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buf,
			Offset:  0,
			Size:    PushConstantSize,
		}},
	})
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("wgpu: create draw constants bind group: %w", err)
	}
	return &pushChunk{buffer: buf, bindGroup: group, staging: make([]byte, pushStride*pushChunkDraws)}, nil
}

func (b *wgpuBackendImpl) CreateBuffer(spec BufferSpec) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.BufferUsageCopyDst
	if spec.Usage&BufferVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if spec.Usage&BufferIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if spec.Usage&BufferUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	// queue writes must be 4-byte aligned
	size := (spec.Size + 3) &^ 3
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: spec.Label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", spec.Label, err)
	}
	return &wgpuBuffer{label: spec.Label, size: size, buffer: buf}, nil
}

func (b *wgpuBackendImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	wb := buf.(*wgpuBuffer)
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("wgpu: write of %d bytes at %d overflows buffer %q", len(data), offset, wb.label)
	}
	if len(data)%4 != 0 {
		padded := make([]byte, (len(data)+3)&^3)
		copy(padded, data)
		data = padded
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(wb.buffer, offset, data)
	return nil
}

func (b *wgpuBackendImpl) textureFormat(f ImageFormat) wgpu.TextureFormat {
	switch f {
	case FormatRGBA8:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case FormatDepth:
		return wgpu.TextureFormatDepth24Plus
	case FormatShadowDepth:
		return wgpu.TextureFormatDepth32Float
	default:
		return b.surfaceFormat
	}
}

func (b *wgpuBackendImpl) CreateImage(spec ImageSpec) (Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if spec.Width == 0 || spec.Height == 0 {
		return nil, fmt.Errorf("wgpu: image %q has zero size", spec.Label)
	}
	var usage wgpu.TextureUsage
	if spec.Usage&ImageRenderTarget != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if spec.Usage&ImageSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if spec.Usage&ImageCopySrc != 0 {
		usage |= wgpu.TextureUsageCopySrc
	}
	if spec.Usage&ImageCopyDst != 0 {
		usage |= wgpu.TextureUsageCopyDst
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: spec.Label,
		Size: wgpu.Extent3D{
			Width:              spec.Width,
			Height:             spec.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   max(spec.Samples, 1),
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.textureFormat(spec.Format),
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create image %q: %w", spec.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: create view of image %q: %w", spec.Label, err)
	}
	return &wgpuImage{label: spec.Label, width: spec.Width, height: spec.Height, format: spec.Format, texture: tex, view: view}, nil
}

func (b *wgpuBackendImpl) WriteImage(img Image, pixels []byte) error {
	wi := img.(*wgpuImage)
	if want := int(wi.width * wi.height * 4); len(pixels) != want {
		return fmt.Errorf("wgpu: image %q expects %d bytes, got %d", wi.label, want, len(pixels))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wi.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  wi.width * 4,
			RowsPerImage: wi.height,
		},
		&wgpu.Extent3D{
			Width:              wi.width,
			Height:             wi.height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuBackendImpl) CreateDescriptor(spec DescriptorSpec) (Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, ok := b.layouts[spec.Layout]
	if !ok {
		return nil, fmt.Errorf("wgpu: unknown descriptor layout %d", spec.Layout)
	}
	if spec.Buffer == nil {
		return nil, fmt.Errorf("wgpu: descriptor %q has no uniform buffer", spec.Label)
	}
	buf := spec.Buffer.(*wgpuBuffer)
	entries := []wgpu.BindGroupEntry{{
		Binding: 0,
		Buffer:  buf.buffer,
		Offset:  0,
		Size:    wgpu.WholeSize,
	}}
	for i, img := range spec.Images {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(1 + i),
			TextureView: img.(*wgpuImage).view,
		})
	}
	if spec.Layout == LayoutWorld {
		if len(spec.Images) != CascadeCount {
			return nil, fmt.Errorf("wgpu: world descriptor %q needs %d shadow images, got %d", spec.Label, CascadeCount, len(spec.Images))
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: 1 + CascadeCount, Sampler: b.shadowSampler})
		for i, samp := range b.samplers {
			entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(2 + CascadeCount + i), Sampler: samp})
		}
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   spec.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create descriptor %q: %w", spec.Label, err)
	}
	return &wgpuDescriptor{label: spec.Label, layout: spec.Layout, bindGroup: group}, nil
}

func (b *wgpuBackendImpl) AcquireImage(signal Semaphore) (Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameImage != nil {
		return nil, errors.New("wgpu: previous surface image not yet presented")
	}
	texture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("wgpu: acquire surface texture: %w", err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("wgpu: create surface view: %w", err)
	}
	b.frameImage = &wgpuImage{
		label:   "Surface",
		width:   b.width,
		height:  b.height,
		format:  FormatColor,
		texture: texture,
		view:    view,
	}
	return b.frameImage, nil
}

func (b *wgpuBackendImpl) Present(wait Semaphore) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameImage == nil {
		return nil
	}
	b.surface.Present()
	b.frameImage.view.Release()
	b.frameImage.texture.Release()
	b.frameImage = nil
	return nil
}

func (b *wgpuBackendImpl) DestroyBuffer(buf Buffer) {
	wb := buf.(*wgpuBuffer)
	wb.buffer.Release()
}

func (b *wgpuBackendImpl) DestroyImage(img Image) {
	wi := img.(*wgpuImage)
	wi.view.Release()
	wi.texture.Release()
}

func (b *wgpuBackendImpl) DestroyPipeline(p Pipeline) {
	wp := p.(*wgpuPipeline)
	wp.pipeline.Release()
	wp.layout.Release()
	wp.module.Release()
}

func (b *wgpuBackendImpl) DestroyDescriptor(d Descriptor) {
	d.(*wgpuDescriptor).bindGroup.Release()
}

func (b *wgpuBackendImpl) DestroyFence(Fence)         {}
func (b *wgpuBackendImpl) DestroySemaphore(Semaphore) {}

func (b *wgpuBackendImpl) WaitIdle() error {
	d := b.currentDevice()
	if d == nil {
		return ErrDeviceLost
	}
	d.Poll(true, nil)
	return nil
}

func (b *wgpuBackendImpl) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return
	}
	for _, chunk := range b.pushPool {
		chunk.bindGroup.Release()
		chunk.buffer.Release()
	}
	b.pushPool = nil
	for _, samp := range b.samplers {
		samp.Release()
	}
	b.shadowSampler.Release()
	for _, layout := range b.layouts {
		layout.Release()
	}
	b.drawLayout.Release()
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
	b.device = nil
	logger.Logger().Info("wgpu backend destroyed")
}
