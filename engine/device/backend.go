// Package device owns GPU frame pipelining: frame slots, fences, command buffer recycling,
// deferred destruction and per-frame statistics. GPU access goes through the Backend seam so
// the same frame logic runs on WebGPU or on a recording fake.
package device

import (
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// PushConstantSize is the size in bytes of the per-draw constant block pushed before each draw.
const PushConstantSize = 96

// CascadeCount is the number of shadow depth images bound by a LayoutWorld descriptor.
const CascadeCount = 4

// Buffer is an opaque GPU buffer owned by a Backend.
type Buffer interface {
	Label() string
	Size() uint64
}

// Image is an opaque GPU image owned by a Backend.
type Image interface {
	Label() string
	Width() uint32
	Height() uint32
	Format() ImageFormat
}

// Pipeline is an opaque compiled shader pipeline owned by a Backend.
type Pipeline interface {
	Label() string
}

// Descriptor is an opaque set of resource bindings owned by a Backend.
type Descriptor interface {
	Label() string
	Layout() DescriptorLayout
}

// Fence is signaled by the GPU when a submission completes.
type Fence interface {
	// Wait blocks until the fence is signaled. A zero timeout waits forever.
	// A timeout returns an error wrapping ErrFenceTimeout.
	Wait(timeout time.Duration) error
	Signaled() bool
	Reset()
}

// Semaphore orders GPU work against presentation. It is never observed by the CPU.
type Semaphore interface {
	Label() string
}

// BufferUsage is a bitmask describing how a buffer is bound.
type BufferUsage uint32

const (
	BufferVertex BufferUsage = 1 << iota
	BufferIndex
	BufferUniform
)

// ImageFormat selects the texel format of an image.
type ImageFormat int

const (
	// FormatColor matches the presentation surface so pipelines render to canvases and the
	// window interchangeably.
	FormatColor ImageFormat = iota
	// FormatRGBA8 is an sRGB texture format for uploaded pixel data.
	FormatRGBA8
	// FormatDepth is the depth format of main and canvas passes.
	FormatDepth
	// FormatShadowDepth is the sampleable depth format of shadow cascades.
	FormatShadowDepth
)

// ImageUsage is a bitmask describing how an image is accessed.
type ImageUsage uint32

const (
	ImageRenderTarget ImageUsage = 1 << iota
	ImageSampled
	ImageCopySrc
	ImageCopyDst
)

// BufferSpec describes a buffer to create.
type BufferSpec struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// ImageSpec describes an image to create.
type ImageSpec struct {
	Label   string
	Width   uint32
	Height  uint32
	Format  ImageFormat
	Usage   ImageUsage
	Samples uint32
}

// DescriptorLayout names one of the fixed binding layouts every shader is written against.
type DescriptorLayout int

const (
	// LayoutWorld binds the world uniform block, the CascadeCount shadow depth images and the
	// engine samplers.
	LayoutWorld DescriptorLayout = iota
	// LayoutShadow binds a world uniform block for one shadow cascade.
	LayoutShadow
	// LayoutMaterial binds a material uniform block and one albedo image.
	LayoutMaterial
)

func (l DescriptorLayout) String() string {
	switch l {
	case LayoutWorld:
		return "world"
	case LayoutShadow:
		return "shadow"
	case LayoutMaterial:
		return "material"
	default:
		return "unknown"
	}
}

// DescriptorSpec describes a descriptor to create. Buffer is bound at binding 0 and Images
// follow in order.
type DescriptorSpec struct {
	Label  string
	Layout DescriptorLayout
	Buffer Buffer
	Images []Image
}

// Topology is the primitive assembly mode of a pipeline.
type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyLines
)

// CullMode selects which faces a pipeline discards.
type CullMode int

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// DepthCompare is the depth test used by a pipeline.
type DepthCompare int

const (
	DepthLess DepthCompare = iota
	DepthLessEqual
	DepthAlways
)

// PipelineSpec describes a render pipeline compiled from WGSL source.
// Descriptor groups are numbered by their position in Layouts; the per-draw constant block
// occupies group len(Layouts). An empty FragmentEntry builds a depth-only pipeline that
// renders to FormatShadowDepth.
type PipelineSpec struct {
	Label               string
	Source              string
	VertexEntry         string
	FragmentEntry       string
	Layouts             []DescriptorLayout
	Topology            Topology
	CullMode            CullMode
	DepthCompare        DepthCompare
	DepthWrite          bool
	Blend               bool
	Samples             uint32
	DepthBias           int32
	DepthBiasSlopeScale float32
}

// RenderTarget is the set of attachments of one render pass. Color is nil for depth-only
// passes. Resolve receives the multisampled Color at the end of the pass when set.
type RenderTarget struct {
	Color   Image
	Resolve Image
	Depth   Image
	Clear   common.Color
}

// Size returns the pixel size of the pass, taken from its first attachment.
func (t RenderTarget) Size() (uint32, uint32) {
	switch {
	case t.Color != nil:
		return t.Color.Width(), t.Color.Height()
	case t.Depth != nil:
		return t.Depth.Width(), t.Depth.Height()
	default:
		return 0, 0
	}
}

// CommandBuffer records GPU commands for one frame slot. Recording methods do not return
// errors; the first recording failure is reported by End.
type CommandBuffer interface {
	Begin() error
	End() error
	BeginRenderPass(target RenderTarget)
	EndRenderPass()
	SetViewport(x, y, width, height float32)
	BindPipeline(p Pipeline)
	BindDescriptor(set uint32, d Descriptor)
	// PushConstants sets the per-draw constant block (at most PushConstantSize bytes) for
	// subsequent draws.
	PushConstants(data []byte)
	BindMesh(vertices, indices Buffer)
	DrawIndexed(indexCount uint32)
	BlitImage(src, dst Image)
}

// Backend is the GPU API seam used by the Manager and every resource factory.
type Backend interface {
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore(label string) (Semaphore, error)
	AllocateCommandBuffer() (CommandBuffer, error)
	FreeCommandBuffer(cmd CommandBuffer)
	// Submit queues cmd. The GPU waits on wait (when non-nil) before executing, then signals
	// signal and fence (when non-nil) once execution completes.
	Submit(cmd CommandBuffer, wait, signal Semaphore, fence Fence) error

	CreateBuffer(spec BufferSpec) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	CreateImage(spec ImageSpec) (Image, error)
	// WriteImage uploads tightly packed RGBA8 pixels covering the whole image.
	WriteImage(img Image, pixels []byte) error
	CreatePipeline(spec PipelineSpec) (Pipeline, error)
	CreateDescriptor(spec DescriptorSpec) (Descriptor, error)

	DestroyBuffer(buf Buffer)
	DestroyImage(img Image)
	DestroyPipeline(p Pipeline)
	DestroyDescriptor(d Descriptor)
	DestroyFence(f Fence)
	DestroySemaphore(s Semaphore)

	// AcquireImage returns the next presentable image and signals signal when it is ready.
	AcquireImage(signal Semaphore) (Image, error)
	// Present displays the last acquired image once wait is signaled.
	Present(wait Semaphore) error
	// Resize reconfigures the presentation surface.
	Resize(width, height uint32) error
	SurfaceSize() (uint32, uint32)
	// Samples returns the multisample count of the presentation surface passes.
	Samples() uint32

	WaitIdle() error
	Destroy()
}
